package cli

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/spf13/cobra"
)

var (
	matchFolder string
	matchPrev   string
	matchAll    bool
)

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVarP(&matchFolder, "folder", "f", "", "route folder (default external_folder)")
	matchCmd.Flags().StringVar(&matchPrev, "prev", nav.Start, "node the route is at; empty for the route start")
	matchCmd.Flags().BoolVar(&matchAll, "all", false, "also score templates that are not candidates")
}

var matchCmd = &cobra.Command{
	Use:   "match <screenshot.png>",
	Short: "Score a screenshot against a route's map templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewAppLogger(consoleLogger(), nil)
		store, err := loadStore(log.With("config"))
		if err != nil {
			return err
		}
		settings := store.Snapshot()
		folder := settings.ExternalFolder
		if matchFolder != "" {
			folder = matchFolder
		}

		bundle, err := assets.Load(context.Background(), filepath.Join(settings.ModDir, folder), log.With("assets"))
		if err != nil {
			return err
		}
		frame, err := screen.LoadGray(args[0])
		if err != nil {
			return err
		}
		if ref := settings.Reference; ref.Width > 0 && ref.Height > 0 {
			frame = screen.ScaleGray(frame, ref.Width, ref.Height)
		}

		scorer := screen.DefaultScorer()
		rows := scoreTemplates(frame, bundle.Templates, matchPrev, matchAll, scorer)

		matcher := nav.NewMatcher(stillFrame{frame}, bundle.Templates, scorer, log.With("match"))
		best, err := matcher.FindBestMatch(matchPrev, settings.MinConfidence)
		if err != nil {
			return err
		}

		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			mark := ""
			if r.Name == best.Node {
				mark = okStyle.Render("<- next")
			}
			table = append(table, []string{r.Name, strconv.FormatFloat(r.Score, 'f', 4, 64), formatYesNo(r.Candidate), mark})
		}
		if err := writeTable(cmd.OutOrStdout(), []string{"TEMPLATE", "SCORE", "CANDIDATE", ""}, table); err != nil {
			return err
		}

		switch {
		case best.Candidates == 0:
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("No candidates: the route ends here"))
		case !best.Found():
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", warnStyle.Render(fmt.Sprintf("Nothing above min_confidence %.2f", settings.MinConfidence)))
		}
		return nil
	},
}

// stillFrame serves one fixed frame to the matcher
type stillFrame struct {
	frame *image.Gray
}

func (s stillFrame) CaptureGray() (*image.Gray, error) {
	return s.frame, nil
}

type matchRow struct {
	Name      string
	Score     float64
	Candidate bool
}

// scoreTemplates scores the candidates of prev, or every template with
// all, best first
func scoreTemplates(frame *image.Gray, templates *assets.TemplateSet, prev string, all bool, scorer screen.Scorer) []matchRow {
	var rows []matchRow
	for _, t := range templates.All() {
		candidate := nav.IsCandidate(prev, t.Name)
		if !candidate && !all {
			continue
		}
		rows = append(rows, matchRow{Name: t.Name, Score: scorer.Score(frame, t.Image), Candidate: candidate})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
