package nav

import (
	"context"
	"errors"
	"time"

	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/ConserveLee/mapwalk/internal/tick"
)

// NodeMatcher picks the next node on screen
type NodeMatcher interface {
	FindBestMatch(prev string, minConfidence float64) (MatchResult, error)
}

// Player replays the macro of one node
type Player interface {
	Play(ctx context.Context, sess *macro.Session, node string) error
}

// PlayRecord describes one macro play during navigation
type PlayRecord struct {
	Node     string
	Prev     string
	Score    float64
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Recorder observes every play outcome
type Recorder interface {
	RecordPlay(rec PlayRecord)
}

// Config wires a Navigator
type Config struct {
	Matcher NodeMatcher
	Player  Player

	// MinConfidence is read once per poll. Nil means the default of 0.
	MinConfidence func() float64

	ScanWindow   time.Duration
	PollInterval time.Duration

	// OnPoll runs after every idle poll, for cooperative tickers
	OnPoll func()

	Recorder Recorder
	Clock    tick.Clock
	Logger   *logger.AppLogger
}

// Navigator walks a route one node at a time
type Navigator struct {
	matcher       NodeMatcher
	player        Player
	minConfidence func() float64
	scanWindow    time.Duration
	pollInterval  time.Duration
	onPoll        func()
	recorder      Recorder
	clock         tick.Clock
	log           *logger.AppLogger
}

// NewNavigator creates a navigator with defaults for unset fields
func NewNavigator(cfg Config) *Navigator {
	n := &Navigator{
		matcher:       cfg.Matcher,
		player:        cfg.Player,
		minConfidence: cfg.MinConfidence,
		scanWindow:    cfg.ScanWindow,
		pollInterval:  cfg.PollInterval,
		onPoll:        cfg.OnPoll,
		recorder:      cfg.Recorder,
		clock:         cfg.Clock,
		log:           cfg.Logger,
	}
	if n.minConfidence == nil {
		n.minConfidence = func() float64 { return constants.DefaultMinConfidence }
	}
	if n.scanWindow <= 0 {
		n.scanWindow = constants.NavScanWindow
	}
	if n.pollInterval <= 0 {
		n.pollInterval = constants.NavPollInterval
	}
	if n.clock == nil {
		n.clock = tick.SystemClock{}
	}
	if n.log == nil {
		n.log = logger.Nop()
	}
	return n
}

// Navigate plays node macros starting after start (Start for a fresh
// route) until no candidate remains or nothing matches within the scan
// window; both count as arrival and return true. A failed macro returns
// false. Stopping the task returns engine.ErrTaskDisabled and any other
// playback error is returned as is.
func (n *Navigator) Navigate(ctx context.Context, start string) (bool, error) {
	sess := macro.NewSession()
	cursor := start

	for {
		match, finished, err := n.scan(ctx, cursor)
		if err != nil {
			return false, err
		}
		if finished {
			n.log.Info("No candidate maps, navigation ended")
			return true, nil
		}
		if !match.Found() {
			n.log.Info("Timeout matching map, assuming destination reached or path lost")
			return true, nil
		}

		n.log.Info("Start executing macro: %s", match.Node)
		started := n.clock.Now()
		err = n.player.Play(ctx, sess, match.Node)
		n.record(PlayRecord{
			Node:     match.Node,
			Prev:     cursor,
			Score:    match.Score,
			Started:  started,
			Duration: n.clock.Now().Sub(started),
			Err:      err,
		})

		switch {
		case err == nil:
			cursor = match.Node
		case errors.Is(err, macro.ErrMacroFailed):
			n.log.Warn("Macro execution failed: %s", match.Node)
			return false, nil
		default:
			return false, err
		}
	}
}

// scan polls the matcher until a node wins, the route has no candidates
// (finished) or the scan window elapses. Capture errors count as a miss.
func (n *Navigator) scan(ctx context.Context, cursor string) (MatchResult, bool, error) {
	windowStart := n.clock.Now()
	for n.clock.Now().Sub(windowStart) < n.scanWindow {
		if err := engine.Disabled(ctx); err != nil {
			return MatchResult{}, false, err
		}

		res, err := n.matcher.FindBestMatch(cursor, n.minConfidence())
		switch {
		case err != nil:
			n.log.Debug("Match poll failed: %v", err)
		case res.Candidates == 0:
			return res, true, nil
		case res.Found():
			return res, false, nil
		}

		n.clock.Sleep(n.pollInterval)
		if n.onPoll != nil {
			n.onPoll()
		}
	}
	return MatchResult{}, false, nil
}

func (n *Navigator) record(rec PlayRecord) {
	if n.recorder != nil {
		n.recorder.RecordPlay(rec)
	}
}
