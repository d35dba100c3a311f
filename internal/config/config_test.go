package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the default config path at an empty temp dir and clears
// the environment variables Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WHISPER_CONFIG", filepath.Join(dir, "missing.yaml"))
	for _, key := range []string{"DOMAIN", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD", "WHISPER_DOMAIN", "WHISPER_NAME", "WHISPER_INSECURE", "WHISPER_GRACE_DELAY"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Fatalf("domain = %q", cfg.Domain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Fatalf("ws url = %q", cfg.WebSocketURL)
	}
	if cfg.GraceDelay != DefaultGraceDelay || cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Fatalf("timings = %v / %v", cfg.GraceDelay, cfg.ConnectTimeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	data := "domain: file.example\nname: FromFile\ngrace_delay: 2s\nturn_server: turn.file\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOMAIN", "env.example")
	t.Setenv("WHISPER_NAME", "FromEnv")

	cfg, err := Load(Options{ConfigFile: path, Name: "FromFlag", Insecure: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		field string
		got   any
		want  any
	}{
		{"name", cfg.Name, "FromFlag"},
		{"domain", cfg.Domain, "env.example"},
		{"turn", cfg.TURNServer, "turn.file"},
		{"grace", cfg.GraceDelay, 2 * time.Second},
		{"ws", cfg.WebSocketURL, "ws://env.example/ws"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.field, tt.got, tt.want)
		}
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(Options{ConfigFile: filepath.Join(dir, "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteDefault(path); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("second write = %v, want ErrConfigExists", err)
	}

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout || cfg.STUNServer != DefaultSTUN {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestICEServers(t *testing.T) {
	cfg := Default()
	turn := cfg.GetTURNServers()
	if len(turn) != 3 || turn[0] != "turn:"+DefaultTURN+":3478?transport=udp" || turn[2] != "turns:"+DefaultTURN+":5349?transport=tcp" {
		t.Fatalf("turn servers = %v", turn)
	}

	cfg.TURNServer = ""
	cfg.STUNServer = ""
	if cfg.GetTURNServers() != nil || cfg.GetSTUNServers() != nil {
		t.Fatal("expected no ICE servers when unset")
	}
}
