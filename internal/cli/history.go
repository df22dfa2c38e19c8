package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ConserveLee/mapwalk/internal/journal"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or the plays of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewAppLogger(consoleLogger(), nil)
		store, err := loadStore(log.With("config"))
		if err != nil {
			return err
		}
		path := store.Snapshot().Journal
		if path == "" {
			return fmt.Errorf("journal is disabled in the config")
		}

		jr, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer jr.Close()

		ctx := context.Background()
		if len(args) == 1 {
			return printPlays(ctx, cmd, jr, args[0])
		}

		runs, err := jr.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = formatTime(*r.FinishedAt)
			}
			rows = append(rows, []string{
				r.ID, r.Folder, formatRunStatus(r.Status), strconv.Itoa(r.Rounds), strconv.Itoa(r.Plays),
				formatTime(r.StartedAt), finished, orDash(r.Error),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"RUN", "FOLDER", "STATUS", "ROUNDS", "PLAYS", "STARTED", "FINISHED", "ERROR"}, rows)
	},
}

func printPlays(ctx context.Context, cmd *cobra.Command, jr *journal.Journal, runID string) error {
	run, err := jr.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	plays, err := jr.Plays(ctx, run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n\n", headerStyle.Render(run.Folder), formatRunStatus(run.Status), mutedStyle.Render(run.ID))
	rows := make([][]string, 0, len(plays))
	for _, p := range plays {
		rows = append(rows, []string{
			strconv.Itoa(p.Round), orDash(p.Prev), p.Node, strconv.FormatFloat(p.Score, 'f', 4, 64),
			formatTime(p.StartedAt), formatDuration(p.Duration), formatOutcome(p.Outcome), orDash(p.Error),
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ROUND", "FROM", "NODE", "SCORE", "STARTED", "DURATION", "OUTCOME", "ERROR"}, rows)
}
