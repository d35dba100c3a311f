package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whisper786/chat/internal/config"
)

var errRelayWithoutTURN = errors.New("cannot force relay mode without TURN server configured")

// networkFlags are the broker and ICE overrides shared by commands that
// talk to the network.
type networkFlags struct {
	domain   string
	insecure bool
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
}

func (f *networkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Custom broker domain")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Use ws:// instead of wss:// for the broker")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server host")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
}

func (f *networkFlags) options() config.Options {
	return config.Options{
		ConfigFile: flagConfigFile,
		Domain:     f.domain,
		Insecure:   f.insecure,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, errRelayWithoutTURN
	}

	return cfg, nil
}
