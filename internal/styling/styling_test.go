package styling

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultRecord(t *testing.T) {
	t.Parallel()

	cfg := Default()

	wantContent := []string{"./src/**/*.rs", "./index.html"}
	if len(cfg.Content) != len(wantContent) {
		t.Fatalf("Expected %d content patterns, got %d", len(wantContent), len(cfg.Content))
	}
	for i, want := range wantContent {
		if cfg.Content[i] != want {
			t.Errorf("content[%d] = %q, want %q", i, cfg.Content[i], want)
		}
	}

	for _, token := range []string{"sans", "mono"} {
		stack := cfg.Theme.Extend.FontFamily[token]
		if len(stack) != 1 || stack[0] != "monospace" {
			t.Errorf("fontFamily.%s = %v, want [monospace]", token, stack)
		}
	}

	if cfg.Plugins == nil {
		t.Error("Expected plugins to be an empty sequence, got nil")
	}
	if len(cfg.Plugins) != 0 {
		t.Errorf("Expected 0 plugins, got %d", len(cfg.Plugins))
	}
}

func TestDefaultRecordValidates(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateMissingContent(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrNoContent) {
		t.Errorf("Validate() = %v, want ErrNoContent", err)
	}
}

func TestValidateBadGlob(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Content = append(cfg.Content, "./src/[broken")

	err := cfg.Validate()

	var globErr InvalidGlobError
	if !errors.As(err, &globErr) {
		t.Fatalf("Validate() = %v, want InvalidGlobError", err)
	}
	if globErr.Pattern != "./src/[broken" {
		t.Errorf("Pattern = %q, want the broken pattern", globErr.Pattern)
	}
}

func TestValidateEmptyFontStack(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Theme.Extend.FontFamily["sans"] = nil

	if err := cfg.Validate(); !errors.Is(err, ErrEmptyFontStack) {
		t.Errorf("Validate() = %v, want ErrEmptyFontStack", err)
	}
}

func TestValidateUnnamedPlugin(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Plugins = []PluginRef{{Options: map[string]any{"strategy": "class"}}}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "plugins[0]") {
		t.Errorf("Validate() = %v, want plugins[0] error", err)
	}
}

func TestMatchesContent(t *testing.T) {
	t.Parallel()

	cfg := Default()

	cases := []struct {
		path string
		want bool
	}{
		{"src/main.rs", true},
		{"src/pages/home.rs", true},
		{"index.html", true},
		{"src/styles.css", false},
		{"README.md", false},
	}

	for _, tc := range cases {
		if got := cfg.MatchesContent(tc.path); got != tc.want {
			t.Errorf("MatchesContent(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestResolveExtendsDefaults(t *testing.T) {
	t.Parallel()

	table := Default().Resolve()

	// Overridden tokens take the extended stack.
	for _, token := range []string{"sans", "mono"} {
		stack := table.FontStack(token)
		if len(stack) != 1 || stack[0] != "monospace" {
			t.Errorf("FontStack(%q) = %v, want [monospace]", token, stack)
		}
	}

	// Untouched defaults survive the merge.
	serif := table.FontStack("serif")
	if len(serif) == 0 || serif[0] != "ui-serif" {
		t.Errorf("FontStack(serif) = %v, want default stack", serif)
	}

	if table.FontStack("display") != nil {
		t.Error("Expected nil stack for unknown token")
	}
}

func TestResolveDoesNotAliasConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	table := cfg.Resolve()

	table.FontFamily["sans"][0] = "mutated"

	if cfg.Theme.Extend.FontFamily["sans"][0] != "monospace" {
		t.Error("Resolve() leaked a reference to the config record")
	}
}
