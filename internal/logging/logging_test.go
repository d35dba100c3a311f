package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.ErrorLevel,
		"dev":     zerolog.DebugLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"prod":    zerolog.ErrorLevel,
		"bogus":   zerolog.ErrorLevel,
	}
	for in, want := range tests {
		if got := Level(in); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesModuleField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(&buf)
	log.Info().Str("module", "room").Msg("joined")
	log.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, "joined") || !strings.Contains(out, "module=room") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
}
