package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/whisper786/chat/internal/broker"
	"github.com/whisper786/chat/internal/config"
	"github.com/whisper786/chat/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the identity broker peers use to find each other",
	Long: `Run the broker. It assigns peer identities and relays connection setup
between peers. It never sees chat messages or media.

Examples:
  whisper serve
  whisper serve --listen :9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{ConfigFile: flagConfigFile, ListenAddr: flagListen})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg.ListenAddr)
	},
}

func serve(ctx context.Context, addr string) error {
	hub := broker.NewHub()
	srv := broker.NewServer(addr, hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Str("module", "broker").Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	ui.PrintSuccessf("Broker listening on %s", addr)
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Address to listen on (default :8080)")
}
