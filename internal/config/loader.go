package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "WHISPER"
	defaultConfigName = "config.yaml"
)

var ErrConfigExists = errors.New("config file already exists")

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile string

	Domain     string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Name       string
	ListenAddr string
}

// envAliases keeps the unprefixed variable names working alongside
// WHISPER_*.
var envAliases = map[string]string{
	"domain":        "DOMAIN",
	"stun_server":   "STUN_SERVER",
	"turn_server":   "TURN_SERVER",
	"turn_username": "TURN_USERNAME",
	"turn_password": "TURN_PASSWORD",
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Config file
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("domain", def.Domain)
	v.SetDefault("insecure", def.Insecure)
	v.SetDefault("stun_server", def.STUNServer)
	v.SetDefault("turn_server", def.TURNServer)
	v.SetDefault("turn_username", def.TURNUser)
	v.SetDefault("turn_password", def.TURNPass)
	v.SetDefault("force_relay", def.ForceRelay)
	v.SetDefault("name", def.Name)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("grace_delay", def.GraceDelay)
	v.SetDefault("connect_timeout", def.ConnectTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key), alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	path := opts.ConfigFile
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			// An explicit file must exist; the default one is optional.
			if opts.ConfigFile != "" {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			log.Debug().Str("module", "config").Str("path", path).Msg("config file loaded")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.apply(opts)
	cfg.WebSocketURL = cfg.webSocketURL()
	return cfg, nil
}

// apply overwrites fields with non-zero flag values.
func (c *Config) apply(opts Options) {
	if opts.Domain != "" {
		c.Domain = opts.Domain
	}
	if opts.Insecure {
		c.Insecure = true
	}
	if opts.STUNServer != "" {
		c.STUNServer = opts.STUNServer
	}
	if opts.TURNServer != "" {
		c.TURNServer = opts.TURNServer
	}
	if opts.TURNUser != "" {
		c.TURNUser = opts.TURNUser
	}
	if opts.TURNPass != "" {
		c.TURNPass = opts.TURNPass
	}
	if opts.ForceRelay {
		c.ForceRelay = true
	}
	if opts.Name != "" {
		c.Name = opts.Name
	}
	if opts.ListenAddr != "" {
		c.ListenAddr = opts.ListenAddr
	}
}

// DefaultPath returns the per-user config file location, or "" when the
// platform has no config directory.
func DefaultPath() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "whisper", defaultConfigName)
}

// WriteDefault writes the built-in configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
