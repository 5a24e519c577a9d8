package styling

import "slices"

// defaultFontFamily is the build tool's default font-family token table.
// Stacks are fallback priority order, most-preferred first.
var defaultFontFamily = map[string][]string{
	"sans":  {"ui-sans-serif", "system-ui", "sans-serif"},
	"serif": {"ui-serif", "Georgia", "serif"},
	"mono":  {"ui-monospace", "SFMono-Regular", "Menlo", "monospace"},
}

// TokenTable is the resolved design-token table after extend semantics are
// applied: defaults preserved, extended tokens added or replaced per name.
type TokenTable struct {
	FontFamily map[string][]string
}

// Resolve merges the record's theme.extend section into the default token
// table. The receiver is not mutated; extended stacks are copied so the
// resolved table cannot alias the configuration record.
func (c *Config) Resolve() TokenTable {
	fonts := make(map[string][]string, len(defaultFontFamily)+len(c.Theme.Extend.FontFamily))

	for token, stack := range defaultFontFamily {
		fonts[token] = slices.Clone(stack)
	}
	for token, stack := range c.Theme.Extend.FontFamily {
		fonts[token] = slices.Clone(stack)
	}

	return TokenTable{FontFamily: fonts}
}

// FontStack returns the resolved fallback stack for a token name, or nil if
// the token is unknown to both the overrides and the default table.
func (t TokenTable) FontStack(token string) []string {
	return t.FontFamily[token]
}
