package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", Debug},
		{"INFO", Info},
		{"notice", Notice},
		{"warn", Warning},
		{"warning", Warning},
		{"error", Error},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSinkAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer func() {
		SetSink(os.Stderr)
		SetLevel(Warning)
	}()

	logger := New("logtest")

	SetLevel(Warning)
	logger.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug message written at warning level: %q", buf.String())
	}

	SetLevel(Debug)
	logger.Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("debug message missing from sink: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "logtest") {
		t.Errorf("module name missing from sink: %q", buf.String())
	}
}
