// Package epochs provides Solana epoch arithmetic and network constants.
//
// Epoch numbers are converted to approximate UTC dates from a calibrated
// reference point (epoch 896 began 2025-12-16 UTC). The approximation is good
// enough for daily price lookups and report bucketing; exact epoch boundaries
// would require historical RPC data.
package epochs

import "time"

// Solana mainnet constants.
const (
	// SlotsPerEpoch is the number of slots in a mainnet epoch.
	SlotsPerEpoch = 432_000

	// EpochDuration is the approximate wall-clock length of an epoch (~2 days).
	EpochDuration = 172_800 * time.Second

	// LamportsPerSOL is the lamport denomination of one SOL.
	LamportsPerSOL = 1_000_000_000

	// referenceEpoch and referenceTimestamp calibrate epoch->date conversion.
	// Epoch 896 began 2025-12-16 00:00:00 UTC.
	referenceEpoch     = 896
	referenceTimestamp = 1765843200
)

// DateLayout is the canonical date format used throughout ledgers and caches.
const DateLayout = "2006-01-02"

// Time returns the approximate UTC start time of an epoch.
func Time(epoch uint64) time.Time {
	diff := int64(epoch) - referenceEpoch //nolint:gosec // epochs are far below int64 range
	seconds := referenceTimestamp + diff*int64(EpochDuration/time.Second)
	return time.Unix(seconds, 0).UTC()
}

// Date returns the approximate UTC date of an epoch in DateLayout form.
func Date(epoch uint64) string {
	return Time(epoch).Format(DateLayout)
}

// SOL converts lamports to SOL.
func SOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}
