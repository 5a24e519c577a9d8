package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfigIn(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, defaultConfigFile)
	if err := os.WriteFile(configFile, []byte("[validator]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	found := findConfigIn(tmpDir)
	if found != configFile {
		t.Errorf("expected %q, got %q", configFile, found)
	}
}

func TestFindConfigInNotFound(t *testing.T) {
	t.Parallel()

	found := findConfigIn(t.TempDir())
	if found != defaultConfigFile {
		t.Errorf("expected %q default, got %q", defaultConfigFile, found)
	}
}
