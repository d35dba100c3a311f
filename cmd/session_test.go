package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/whisper786/chat/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TURN_SERVER", "")
	t.Setenv("WHISPER_TURN_SERVER", "")
	return path
}

func TestLoadConfigRejectsRelayWithoutTURN(t *testing.T) {
	path := writeConfig(t, "turn_server: \"\"\n")

	if _, err := LoadConfig(config.Options{ConfigFile: path, ForceRelay: true}); !errors.Is(err, errRelayWithoutTURN) {
		t.Fatalf("err = %v, want errRelayWithoutTURN", err)
	}
	if _, err := LoadConfig(config.Options{ConfigFile: path}); err != nil {
		t.Fatalf("load without relay: %v", err)
	}
}

func TestNetworkFlagsOptions(t *testing.T) {
	f := networkFlags{domain: "example.org", insecure: true, turn: "turn.example.org", relay: true}
	opts := f.options()
	if opts.Domain != "example.org" || !opts.Insecure || opts.TURNServer != "turn.example.org" || !opts.ForceRelay {
		t.Fatalf("options = %+v", opts)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"join"}, {"serve"}, {"config", "init"}, {"config", "show"}} {
		c, _, err := rootCmd.Find(path)
		if err != nil || c == rootCmd {
			t.Errorf("command %v not registered: %v", path, err)
		}
	}
}
