package web

// ChangelogEntry is one dated operational milestone.
type ChangelogEntry struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

// ChangelogEntries lists validator milestones, newest first.
var ChangelogEntries = []ChangelogEntry{
	{Date: "2026-01-22", Event: "Added security policy page"},
	{Date: "2026-01-13", Event: "Site launch"},
	{Date: "2026-01-10", Event: "Upgraded to jito-BAM v3.0.14"},
	{Date: "2026-01-01", Event: "First MEV rewards earned (epoch 904)"},
	{Date: "2025-12-30", Event: "Received Solana Foundation delegation (epoch 903)"},
	{Date: "2025-12-23", Event: "Upgraded to jito v3.0.13"},
	{Date: "2025-12-22", Event: "First epoch with stake (epoch 899)"},
	{Date: "2025-12-16", Event: "Accepted into Solana Foundation Delegation Program (epoch 896)"},
	{Date: "2025-11-19", Event: "Bootstrapped validator with Agave client"},
}
