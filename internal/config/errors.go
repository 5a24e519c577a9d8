package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates all configuration validation failures so a
// user can fix everything in one pass instead of one error at a time.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("config validation failed: %s", e.Problems[0])
	}
	return fmt.Sprintf("config validation failed with %d problems:\n  - %s",
		len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Add records a validation problem.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// HasProblems reports whether any validation failures were recorded.
func (e *ValidationError) HasProblems() bool {
	return len(e.Problems) > 0
}

// OrNil returns the error if any problems were recorded, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasProblems() {
		return e
	}
	return nil
}
