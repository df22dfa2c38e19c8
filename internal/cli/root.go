// Package cli wires the mapwalk commands.
package cli

import (
	"fmt"
	"os"

	"github.com/ConserveLee/mapwalk/internal/config"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=v1.2.3"
var Version = "dev"

var (
	configFile string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "mapwalk",
	Short: "Replay recorded routes across a game map",
	Long: "mapwalk walks recorded external routes: it matches map node templates on screen\n" +
		"and replays the input macro recorded for each node.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./mapwalk.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func consoleLogger() zerolog.Logger {
	return logger.NewConsole(os.Stderr, debugLog)
}

func loadStore(log *logger.AppLogger) (*config.Store, error) {
	store, err := config.Load(configFile, log)
	if err != nil {
		return nil, err
	}
	if file := store.ConfigFile(); file != "" {
		log.Debug("Using config %s", file)
	}
	return store, nil
}
