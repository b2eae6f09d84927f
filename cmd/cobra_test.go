package cmd

import (
	"testing"
)

// TestDisallowArguments tests that positional arguments are rejected.
func TestDisallowArguments(t *testing.T) {
	if err := DisallowArguments(nil, nil); err != nil {
		t.Error("empty arguments rejected:", err)
	}
	if err := DisallowArguments(nil, []string{"extra"}); err == nil {
		t.Error("positional argument accepted")
	}
}
