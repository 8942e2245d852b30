package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/watchface/internal/config"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name string
		want zerolog.Level
	}{
		{name: "debug", want: zerolog.DebugLevel},
		{name: "info", want: zerolog.InfoLevel},
		{name: "warn", want: zerolog.WarnLevel},
		{name: "error", want: zerolog.ErrorLevel},
		{name: "", want: zerolog.InfoLevel},
		{name: "trace", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.name); got != tt.want {
				t.Errorf("Level(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSetup_JSONErrorLevel(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Setup(&buf, config.LogConfig{Level: "error", UseJSON: true})

	log.Warn().Msg("filtered")
	log.Error().Msg("kept")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output %q is not one JSON line: %v", buf.String(), err)
	}
	if line["message"] != "kept" || line["level"] != "error" {
		t.Errorf("logged %v, want the error line only", line)
	}
}
