package cli

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(routesCmd)
}

var routesCmd = &cobra.Command{
	Use:   "routes [folder]",
	Short: "List route folders, or check the nodes of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewAppLogger(consoleLogger(), nil)
		store, err := loadStore(log.With("config"))
		if err != nil {
			return err
		}
		modDir := store.Snapshot().ModDir
		ctx := context.Background()

		if len(args) == 1 {
			bundle, err := assets.Load(ctx, filepath.Join(modDir, args[0]), log.With("assets"))
			if err != nil {
				return err
			}
			var rows [][]string
			for _, n := range inspectRoute(bundle) {
				problems := mutedStyle.Render("-")
				if len(n.Problems) > 0 {
					problems = errorStyle.Render(strings.Join(n.Problems, "; "))
				}
				rows = append(rows, []string{n.Name, formatYesNo(n.Start), strconv.Itoa(len(n.Children)), orDash(strings.Join(n.Children, " ")), problems})
			}
			return writeTable(cmd.OutOrStdout(), []string{"NODE", "START", "CHILDREN", "", "PROBLEMS"}, rows)
		}

		folders, err := assets.ListFolders(modDir)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, folder := range folders {
			bundle, err := assets.Load(ctx, filepath.Join(modDir, folder), logger.Nop())
			if err != nil {
				rows = append(rows, []string{folder, "-", "-", "-", "-", errorStyle.Render(err.Error())})
				continue
			}
			rows = append(rows, []string{
				folder,
				strconv.Itoa(len(bundle.Scripts)),
				strconv.Itoa(bundle.Templates.Len()),
				strconv.Itoa(bundle.End.Len()),
				strconv.Itoa(bundle.Interrupt.Len()),
				okStyle.Render("ok"),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"FOLDER", "SCRIPTS", "MAP", "END", "INTERRUPT", "STATUS"}, rows)
	},
}

type routeNode struct {
	Name     string
	Start    bool
	Children []string
	Problems []string
}

// inspectRoute lists every node that has a template or a script, in
// match order, with the problems that would stop it from being walked
func inspectRoute(b *assets.Bundle) []routeNode {
	names := b.Templates.Names()
	var scriptOnly []string
	for name := range b.Scripts {
		if _, ok := b.Templates.Get(name); !ok {
			scriptOnly = append(scriptOnly, name)
		}
	}
	sort.Strings(scriptOnly)

	var nodes []routeNode
	for _, name := range append(names, scriptOnly...) {
		n := routeNode{
			Name:     name,
			Start:    nav.IsStartCandidate(name),
			Children: nav.Candidates(name, names),
		}
		if err := nav.ValidateNode(name); err != nil {
			n.Problems = append(n.Problems, err.Error())
		}
		if _, ok := b.Templates.Get(name); !ok {
			n.Problems = append(n.Problems, "no map template")
		}
		if _, ok := b.Scripts[name]; !ok {
			n.Problems = append(n.Problems, "no script")
		}
		nodes = append(nodes, n)
	}
	return nodes
}
