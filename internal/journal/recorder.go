package journal

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/ConserveLee/mapwalk/internal/nav"
)

// Recorder writes navigation plays of one run into the journal. It
// implements nav.Recorder.
type Recorder struct {
	journal *Journal
	runID   string
	round   atomic.Int64
	log     *logger.AppLogger
}

// NewRecorder records plays under runID
func NewRecorder(j *Journal, runID string, log *logger.AppLogger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{journal: j, runID: runID, log: log}
}

// SetRound tags subsequent plays with a round number
func (r *Recorder) SetRound(round int) {
	r.round.Store(int64(round))
}

// RecordPlay implements nav.Recorder. Journal failures are logged only.
func (r *Recorder) RecordPlay(rec nav.PlayRecord) {
	play := &Play{
		RunID:     r.runID,
		Round:     int(r.round.Load()),
		Node:      rec.Node,
		Prev:      rec.Prev,
		Score:     rec.Score,
		StartedAt: rec.Started,
		Duration:  rec.Duration,
		Outcome:   OutcomeOf(rec.Err),
	}
	if rec.Err != nil {
		play.Error = rec.Err.Error()
	}
	// The task context may already be cancelled when a play was stopped
	if err := r.journal.RecordPlay(context.Background(), play); err != nil {
		r.log.Warn("Journal write failed: %v", err)
	}
}

// OutcomeOf classifies a play error
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, macro.ErrMacroFailed):
		return OutcomeFailed
	case errors.Is(err, engine.ErrTaskDisabled):
		return OutcomeStopped
	default:
		return OutcomeError
	}
}

// StatusOf classifies the error a run ended with
func StatusOf(err error) RunStatus {
	switch {
	case err == nil:
		return RunFinished
	case errors.Is(err, engine.ErrTaskDisabled):
		return RunStopped
	default:
		return RunFailed
	}
}
