// Package styling models the declarative configuration record consumed by the
// dashboard's utility-CSS build tool.
//
// The record names which source files the external class-name scanner should
// inspect, which design-token overrides extend the tool's default theme, and
// which plugins the tool should load. The record is constructed once per build
// invocation and is read-only afterwards; all glob *semantics*, CSS parsing,
// and plugin resolution belong to the consuming build tool, not this package.
package styling

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Styling configuration errors.
var (
	// ErrNoContent is returned when the content field is missing or empty.
	ErrNoContent = errors.New("styling: content is required")

	// ErrEmptyFontStack is returned when a font-family token maps to an
	// empty sequence.
	ErrEmptyFontStack = errors.New("styling: font family stack is empty")
)

// InvalidGlobError is returned when a content pattern is not valid glob syntax.
type InvalidGlobError struct {
	Pattern string
}

func (e InvalidGlobError) Error() string {
	return fmt.Sprintf("styling: invalid content glob %q", e.Pattern)
}

// Config is the styling build configuration record.
//
// Field order and sequence order are meaningful: content patterns are an
// ordered set (all matching files are scanned), font stacks are fallback
// priority order with the most-preferred family first, and plugins load in
// declaration order.
type Config struct {
	// Content holds glob patterns selecting the source files an external
	// scanner inspects for utility class names.
	Content []string `yaml:"content" json:"content"`

	// Theme carries design-token overrides merged into the build tool's
	// default token table.
	Theme Theme `yaml:"theme" json:"theme"`

	// Plugins lists extension modules for the build tool to load.
	// Empty in the shipped configuration.
	Plugins []PluginRef `yaml:"plugins" json:"plugins"`
}

// Theme describes design-token overrides. Only the extend section is used:
// extended tokens are merged into the default table rather than replacing it.
type Theme struct {
	Extend Extend `yaml:"extend" json:"extend"`
}

// Extend holds token-table additions and overrides.
type Extend struct {
	// FontFamily maps a token name (sans, mono) to an ordered font-family
	// fallback stack, most-preferred first.
	FontFamily map[string][]string `yaml:"fontFamily" json:"fontFamily"`
}

// Default returns the shipped styling record for the dashboard build:
// all Rust source under src plus the HTML entry point, with the sans and
// mono tokens both pinned to the monospace system family.
func Default() *Config {
	return &Config{
		Content: []string{"./src/**/*.rs", "./index.html"},
		Theme: Theme{
			Extend: Extend{
				FontFamily: map[string][]string{
					"sans": {"monospace"},
					"mono": {"monospace"},
				},
			},
		},
		Plugins: []PluginRef{},
	}
}

// Validate checks the record for structural well-formedness.
// It verifies that content is present and every pattern is syntactically
// valid glob syntax, that every configured font stack is a non-empty
// sequence, and that plugin references carry a name. Whether the globs
// match anything, or the plugins resolve, stays the build tool's concern.
func (c *Config) Validate() error {
	if len(c.Content) == 0 {
		return ErrNoContent
	}

	for _, pattern := range c.Content {
		if !doublestar.ValidatePattern(pattern) {
			return InvalidGlobError{Pattern: pattern}
		}
	}

	for token, stack := range c.Theme.Extend.FontFamily {
		if len(stack) == 0 {
			return fmt.Errorf("%w (token %q)", ErrEmptyFontStack, token)
		}
		for _, family := range stack {
			if family == "" {
				return fmt.Errorf("styling: blank family name in token %q", token)
			}
		}
	}

	for i, plugin := range c.Plugins {
		if plugin.Name == "" {
			return fmt.Errorf("styling: plugins[%d] is missing a name", i)
		}
	}

	return nil
}

// MatchesContent reports whether a source path (relative to the project root,
// slash-separated) is selected by any content pattern. The ./ prefix the
// build tool accepts on patterns is stripped before matching.
func (c *Config) MatchesContent(path string) bool {
	for _, pattern := range c.Content {
		trimmed := pattern
		if len(trimmed) > 2 && trimmed[:2] == "./" {
			trimmed = trimmed[2:]
		}
		if ok, err := doublestar.Match(trimmed, path); err == nil && ok {
			return true
		}
	}
	return false
}
