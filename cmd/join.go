package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/whisper786/chat/internal/logging"
	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/room"
	"github.com/whisper786/chat/internal/transport"
	"github.com/whisper786/chat/internal/transport/rtc"
	"github.com/whisper786/chat/internal/ui"
)

var (
	joinNet     networkFlags
	flagName    string
	flagOffline bool
	flagNoMedia bool
)

var errNameRequired = errors.New("a display name is required: pass --name or set name in the config file")

var joinCmd = &cobra.Command{
	Use:     "join <room>",
	Aliases: []string{"j"},
	Short:   "Join a room, creating it if nobody is there",
	Long: `Join a chat room by name. If nobody is in the room yet you become its host.

Examples:
  whisper join lobby --name Alice
  whisper join lobby --name Bob --relay
  whisper join demo --name Carol --offline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := joinNet.options()
		opts.Name = flagName
		cfg, err := LoadConfig(opts)
		if err != nil {
			return err
		}
		if cfg.Name == "" {
			return errNameRequired
		}

		// The room screen owns the terminal.
		if flagLogFile == "" {
			logging.Init(io.Discard)
		}

		var tr transport.Transport = rtc.New(cfg)
		if flagOffline {
			tr = transport.NewNetwork()
		}

		return joinRoom(cmd.Context(), room.Options{
			Transport:      tr,
			GraceDelay:     cfg.GraceDelay,
			ConnectTimeout: cfg.ConnectTimeout,
		}, args[0], cfg.Name)
	},
}

func joinRoom(ctx context.Context, opts room.Options, roomName, name string) error {
	sess := room.NewSession(opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	var local *media.Local
	if !flagNoMedia {
		l, err := media.NewLocal()
		if err != nil {
			log.Warn().Str("module", "cmd").Err(err).Msg("local media unavailable")
		} else {
			local = l
			sess.SetLocalMedia(local)
		}
	}

	if err := sess.JoinRoom(roomName, name); err != nil {
		return err
	}

	started := time.Now()
	last, err := ui.RunRoom(sess, local)
	cancel()
	<-done
	if err != nil {
		return err
	}

	ui.RenderSessionSummary(ui.NewSessionSummary(last, time.Since(started)))
	return last.LastError
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinNet.register(joinCmd)
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name in the room")
	joinCmd.Flags().BoolVar(&flagOffline, "offline", false, "Use an in-process network instead of the broker")
	joinCmd.Flags().BoolVar(&flagNoMedia, "no-media", false, "Join without camera or microphone")
}
