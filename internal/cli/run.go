package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ConserveLee/mapwalk/app/external"
	"github.com/ConserveLee/mapwalk/internal/config"
	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/hotkey"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/spf13/cobra"
)

var (
	runFolder   string
	runRounds   int
	runDisplay  int
	runNoHotkey bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFolder, "folder", "f", "", "route folder under mod_dir (overrides external_folder)")
	runCmd.Flags().IntVarP(&runRounds, "rounds", "r", 0, "number of rounds (overrides rounds)")
	runCmd.Flags().IntVar(&runDisplay, "display", -1, "display index (overrides display)")
	runCmd.Flags().BoolVar(&runNoHotkey, "no-hotkey", false, "do not listen for the stop hotkey")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an external route headless",
	Long: "Run the configured external route for the configured number of rounds.\n" +
		"Stop with Ctrl+C or the stop hotkey.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewAppLogger(consoleLogger(), nil)

		store, err := loadStore(log.With("config"))
		if err != nil {
			return err
		}
		if err := applyRunOverrides(store, cmd); err != nil {
			return err
		}
		if err := store.Watch(); err != nil {
			log.Warn("Config changes will not be picked up: %v", err)
		}
		defer store.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		settings := store.Snapshot()
		if !runNoHotkey && settings.StopHotkey != "" {
			go func() {
				if err := hotkey.Listen(ctx, settings.StopHotkey, cancel, log.With("hotkey")); err != nil {
					log.Warn("Stop hotkey disabled: %v", err)
				}
			}()
		}

		task := external.NewTask(external.Options{Store: store, Logger: log})
		err = task.Run(ctx)
		if errors.Is(err, engine.ErrTaskDisabled) {
			return nil
		}
		return err
	},
}

func applyRunOverrides(store *config.Store, cmd *cobra.Command) error {
	if cmd.Flags().Changed("folder") {
		if err := store.Set("external_folder", runFolder); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rounds") {
		if err := store.Set("rounds", runRounds); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("display") {
		if err := store.Set("display", runDisplay); err != nil {
			return err
		}
	}
	return nil
}
