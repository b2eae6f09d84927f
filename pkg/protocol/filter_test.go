package protocol

import (
	"testing"
)

// TestParseFilterEntry tests that only marked entries are patterns.
func TestParseFilterEntry(t *testing.T) {
	tests := []struct {
		entry    string
		value    string
		expected bool
	}{
		{"a.txt", "a.txt", false},
		{"a[1].txt", "a[1].txt", false},
		{"*", "*", false},
		{PatternEntry("*.txt"), "*.txt", true},
		{PatternEntry("a[1].txt"), "a[1].txt", true},
	}
	for _, test := range tests {
		value, pattern := ParseFilterEntry(test.entry)
		if value != test.value || pattern != test.expected {
			t.Errorf("entry %q parsed as (%q, %t), expected (%q, %t)",
				test.entry, value, pattern, test.value, test.expected,
			)
		}
	}
}
