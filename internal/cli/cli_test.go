package cli

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/journal"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapwalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestWriteTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeTable(&out, []string{"A", "LONG"}, [][]string{{"x", "1"}, {"yyyy", "2"}}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "A     LONG", lines[0])
	assert.Equal(t, "x     1", lines[1])
	assert.Equal(t, "yyyy  2", lines[2])
}

type fixedScorer map[*image.Gray]float64

func (s fixedScorer) Score(_, template *image.Gray) float64 { return s[template] }

func TestScoreTemplates(t *testing.T) {
	imgs := map[string]*image.Gray{}
	var templates []assets.Template
	for _, name := range []string{"1", "2", "1-1", "1a"} {
		imgs[name] = image.NewGray(image.Rect(0, 0, 1, 1))
		templates = append(templates, assets.Template{Name: name, Image: imgs[name]})
	}
	set := assets.NewTemplateSet(templates)
	scorer := fixedScorer{imgs["1"]: 0.2, imgs["2"]: 0.7, imgs["1-1"]: 0.9, imgs["1a"]: 0.95}

	rows := scoreTemplates(nil, set, "", false, scorer)
	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"1-1", "2", "1"}, names, "1a is not a start candidate")

	rows = scoreTemplates(nil, set, "1", true, scorer)
	require.Len(t, rows, 4)
	assert.Equal(t, "1a", rows[0].Name)
	assert.False(t, rows[0].Candidate)
	assert.True(t, rows[1].Candidate)
}

func TestInspectRoute(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	bundle := &assets.Bundle{
		Templates: assets.NewTemplateSet([]assets.Template{
			{Name: "1", Image: gray}, {Name: "1-1", Image: gray}, {Name: "1-12345", Image: gray},
		}),
		Scripts: map[string]*macro.Script{"1": {Name: "1"}, "1-1": {Name: "1-1"}, "9": {Name: "9"}},
	}

	nodes := inspectRoute(bundle)
	require.Len(t, nodes, 4)
	assert.Equal(t, "1", nodes[0].Name)
	assert.Equal(t, []string{"1-1"}, nodes[0].Children)
	assert.Empty(t, nodes[0].Problems)

	assert.Equal(t, "1-12345", nodes[2].Name)
	assert.Len(t, nodes[2].Problems, 2, "unreachable name and no script")

	assert.Equal(t, "9", nodes[3].Name)
	assert.Equal(t, []string{"no map template"}, nodes[3].Problems)
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	jr, err := journal.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	run, err := jr.StartRun(ctx, "forest")
	require.NoError(t, err)
	require.NoError(t, jr.RecordPlay(ctx, &journal.Play{RunID: run.ID, Round: 1, Node: "1", Score: 0.91, Outcome: journal.OutcomeOK}))
	require.NoError(t, jr.FinishRun(ctx, run.ID, journal.RunFinished, 1, nil))
	require.NoError(t, jr.Close())

	cfg := writeConfig(t, "journal: "+dbPath+"\n")

	out := executeCommand(t, "--config", cfg, "history")
	assert.Contains(t, out, run.ID)
	assert.Contains(t, out, "forest")
	assert.Contains(t, out, "finished")

	out = executeCommand(t, "--config", cfg, "history", run.ID)
	assert.Contains(t, out, "0.9100")
	assert.Contains(t, out, "ok")
}

func TestRoutesCommand(t *testing.T) {
	modDir := t.TempDir()
	for _, dir := range []string{"forest/scripts", "forest/map", "builtin", "broken/scripts"} {
		require.NoError(t, os.MkdirAll(filepath.Join(modDir, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(modDir, "forest/scripts/1.json"), []byte(`{"actions":[]}`), 0o644))

	cfg := writeConfig(t, "mod_dir: "+modDir+"\n")
	out := executeCommand(t, "--config", cfg, "routes")
	assert.Contains(t, out, "forest")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "no map templates")
	assert.NotContains(t, out, "builtin")

	out = executeCommand(t, "--config", cfg, "routes", "forest")
	assert.Contains(t, out, "no map template")
}

func TestVersionCommand(t *testing.T) {
	out := executeCommand(t, "version")
	assert.Contains(t, out, "mapwalk dev")
}
