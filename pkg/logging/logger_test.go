package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// TestNilLogger tests that a nil logger doesn't panic.
func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.Infof("value: %d", 1)
	logger.Sublogger("sub").Error("failure")
	if logger.Level() != LevelDisabled {
		t.Error("nil logger reports non-disabled level")
	}
	fmt.Fprintln(logger.Writer(LevelInfo), "discarded")
}

// TestLevelFiltering tests that lines above the logger's level are dropped.
func TestLevelFiltering(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(LevelWarn, buffer)
	logger.Error("first")
	logger.Warnf("second %d", 2)
	logger.Info("third")
	logger.Debug("fourth")

	output := buffer.String()
	if !strings.Contains(output, "first") || !strings.Contains(output, "second 2") {
		t.Error("expected error and warning lines in output:", output)
	}
	if strings.Contains(output, "third") || strings.Contains(output, "fourth") {
		t.Error("unexpected info or debug lines in output:", output)
	}
	if lines := strings.Count(output, "\n"); lines != 2 {
		t.Error("unexpected line count:", lines)
	}
}

// TestSubloggerScope tests that subloggers prefix their scope.
func TestSubloggerScope(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(LevelInfo, buffer).Sublogger("server").Sublogger("conn")
	logger.Info("accepted")
	if !strings.Contains(buffer.String(), "[server.conn] accepted") {
		t.Error("sublogger scope missing from output:", buffer.String())
	}
}

// TestWriter tests that the line-splitting writer emits one entry per line.
func TestWriter(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(LevelDebug, buffer)
	writer := logger.Writer(LevelDebug)
	fmt.Fprint(writer, "alpha\r\nbe")
	fmt.Fprint(writer, "ta\ngamma")

	output := buffer.String()
	if strings.Count(output, "\n") != 2 {
		t.Fatal("unexpected line count in output:", output)
	}
	if !strings.Contains(output, "alpha\n") || !strings.Contains(output, "beta\n") {
		t.Error("unexpected output:", output)
	}
	if strings.Contains(output, "gamma") {
		t.Error("incomplete line emitted:", output)
	}
}

// TestNameToLevel tests level name round trips.
func TestNameToLevel(t *testing.T) {
	for _, level := range []Level{LevelDisabled, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		if parsed, ok := NameToLevel(level.String()); !ok || parsed != level {
			t.Errorf("level %s did not round trip", level)
		}
	}
	if _, ok := NameToLevel("verbose"); ok {
		t.Error("invalid level name accepted")
	}
}
