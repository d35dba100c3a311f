package config

import (
	"fmt"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain         = "whisper.qzz.io"
	DefaultSTUN           = "stun:stun.l.google.com:19302"
	DefaultTURN           = "whisper.qzz.io"
	DefaultTURNUser       = "whisper"
	DefaultTURNPass       = "whisper-secret"
	DefaultListenAddr     = ":8080"
	DefaultGraceDelay     = 500 * time.Millisecond
	DefaultConnectTimeout = 15 * time.Second
)

// Config holds application configuration
type Config struct {
	// Domain is the broker domain
	Domain string `mapstructure:"domain" yaml:"domain"`

	// Insecure selects ws:// instead of wss:// for the broker
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// WebSocketURL is constructed from domain
	WebSocketURL string `mapstructure:"-" yaml:"-"`

	// ICE servers for WebRTC. TURNServer is a bare host name.
	STUNServer string `mapstructure:"stun_server" yaml:"stun_server"`
	TURNServer string `mapstructure:"turn_server" yaml:"turn_server"`
	TURNUser   string `mapstructure:"turn_username" yaml:"turn_username"`
	TURNPass   string `mapstructure:"turn_password" yaml:"turn_password"`
	ForceRelay bool   `mapstructure:"force_relay" yaml:"force_relay"`

	// Name is the default display name for join
	Name string `mapstructure:"name" yaml:"name"`

	// ListenAddr is where serve binds the broker
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	GraceDelay     time.Duration `mapstructure:"grace_delay" yaml:"grace_delay"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Domain:         DefaultDomain,
		STUNServer:     DefaultSTUN,
		TURNServer:     DefaultTURN,
		TURNUser:       DefaultTURNUser,
		TURNPass:       DefaultTURNPass,
		ListenAddr:     DefaultListenAddr,
		GraceDelay:     DefaultGraceDelay,
		ConnectTimeout: DefaultConnectTimeout,
	}
	cfg.WebSocketURL = cfg.webSocketURL()
	return cfg
}

func (c *Config) webSocketURL() string {
	scheme := "wss"
	if c.Insecure {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, c.Domain)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
