package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitLevels(t *testing.T) {
	defer Init(Config{Level: "info"})

	tests := []struct {
		level   string
		logWarn bool
		logInfo bool
	}{
		{"debug", true, true},
		{"info", true, true},
		{"warn", true, false},
		{"error", false, false},
		{"bogus", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			Init(Config{Level: tt.level, Output: &buf})

			Info().Msg("info-line")
			Warn().Msg("warn-line")

			out := buf.String()
			if got := strings.Contains(out, "info-line"); got != tt.logInfo {
				t.Errorf("info logged = %v, want %v", got, tt.logInfo)
			}
			if got := strings.Contains(out, "warn-line"); got != tt.logWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.logWarn)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	defer Init(Config{Level: "info"})

	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})

	l := With("visitor-log")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"visitor-log"`) {
		t.Fatalf("component field missing: %s", buf.String())
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("global level = %v", zerolog.GlobalLevel())
	}
}
