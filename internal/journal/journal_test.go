package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)

	run, err := j.StartRun(ctx, "forest")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	got, err := j.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Zero(t, got.Plays)

	require.NoError(t, j.FinishRun(ctx, run.ID, RunFailed, 2, errors.New("boom")))
	got, err = j.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Equal(t, 2, got.Rounds)
	assert.Equal(t, "boom", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))
}

func TestRunNotFound(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)

	_, err := j.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, j.FinishRun(ctx, "missing", RunFinished, 0, nil), ErrRunNotFound)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := j.StartRun(ctx, fmt.Sprintf("route-%d", i))
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := j.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRecorderWritesPlays(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)
	run, err := j.StartRun(ctx, "forest")
	require.NoError(t, err)

	rec := NewRecorder(j, run.ID, nil)
	var _ nav.Recorder = rec
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec.SetRound(1)
	rec.RecordPlay(nav.PlayRecord{Node: "A-1", Prev: nav.Start, Score: 0.91, Started: start, Duration: 1500 * time.Millisecond})
	rec.RecordPlay(nav.PlayRecord{Node: "A-1-2", Prev: "A-1", Score: 0.7, Started: start.Add(2 * time.Second),
		Err: fmt.Errorf("A-1-2: %w", macro.ErrMacroFailed)})
	rec.SetRound(2)
	rec.RecordPlay(nav.PlayRecord{Node: "A-1", Started: start.Add(time.Minute), Err: engine.ErrTaskDisabled})

	plays, err := j.Plays(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, plays, 3)

	assert.Equal(t, "A-1", plays[0].Node)
	assert.Empty(t, plays[0].Prev)
	assert.Equal(t, 1, plays[0].Round)
	assert.Equal(t, OutcomeOK, plays[0].Outcome)
	assert.Equal(t, 1500*time.Millisecond, plays[0].Duration)
	assert.True(t, start.Equal(plays[0].StartedAt))

	assert.Equal(t, "A-1", plays[1].Prev)
	assert.Equal(t, OutcomeFailed, plays[1].Outcome)
	assert.Contains(t, plays[1].Error, "macro failed")

	assert.Equal(t, 2, plays[2].Round)
	assert.Equal(t, OutcomeStopped, plays[2].Outcome)

	got, err := j.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Plays)
}

func TestRecordPlayValidation(t *testing.T) {
	j := setupJournal(t)
	assert.ErrorIs(t, j.RecordPlay(context.Background(), &Play{Node: "A"}), ErrInvalidPlay)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, RunFinished, StatusOf(nil))
	assert.Equal(t, RunStopped, StatusOf(fmt.Errorf("x: %w", engine.ErrTaskDisabled)))
	assert.Equal(t, RunFailed, StatusOf(errors.New("x")))
	assert.Equal(t, OutcomeError, OutcomeOf(macro.ErrMalformedAction))
}
