package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", "text", &buf)
	t.Cleanup(func() { Setup("info", "text", nil) })

	Debug("hidden", "k", "v")
	Info("shown", "rows", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "rows=3") {
		t.Errorf("info line missing: %q", out)
	}
}

func TestSetup_JSONIncludesError(t *testing.T) {
	var buf bytes.Buffer
	Setup("debug", "json", &buf)
	t.Cleanup(func() { Setup("info", "text", nil) })

	Error("convert failed", errors.New("boom"), "file", "turni.csv")

	out := buf.String()
	for _, want := range []string{`"msg":"convert failed"`, `"err":"boom"`, `"file":"turni.csv"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestOddKeyValuesDropped(t *testing.T) {
	var buf bytes.Buffer
	Setup("debug", "text", &buf)
	t.Cleanup(func() { Setup("info", "text", nil) })

	Info("odd", "a", 1, "dangling")

	if strings.Contains(buf.String(), "BADKEY") {
		t.Errorf("dangling key rendered: %q", buf.String())
	}
}
