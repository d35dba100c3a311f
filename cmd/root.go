package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/whisper786/chat/internal/logging"
	"github.com/whisper786/chat/internal/ui"
	"github.com/whisper786/chat/internal/version"
)

var (
	flagConfigFile string
	flagLogFile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "whisper",
	Short: "Serverless chat rooms with one-to-one calls over a peer-to-peer mesh",
	Long: `whisper joins chat rooms formed directly between peers using WebRTC.
The first participant to arrive becomes the host and keeps the roster; a small
broker only hands out identities and relays connection setup.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagLogFile == "" {
			return nil
		}
		f, err := logging.OpenFile(flagLogFile)
		if err != nil {
			return err
		}
		logging.Init(f)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
}
