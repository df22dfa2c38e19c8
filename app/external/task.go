// Package external runs the external-route task: for every round it walks
// the recorded map route from the start, then holds position with periodic
// skills and mouse jitter until the round ends or times out.
package external

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/config"
	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/input"
	"github.com/ConserveLee/mapwalk/internal/journal"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/ConserveLee/mapwalk/internal/notify"
	"github.com/ConserveLee/mapwalk/internal/tick"
)

// ErrNoFolder is returned when no route folder is selected
var ErrNoFolder = errors.New("no external folder selected")

// Controls is the input device the task drives
type Controls interface {
	macro.Input
	input.Clicker
}

// Notifier plays the end-of-run cue
type Notifier interface {
	Play(s notify.Sound)
}

// Options wires a Task. Unset collaborators get the live desktop ones.
type Options struct {
	Store  *config.Store
	Logger *logger.AppLogger
	Clock  tick.Clock

	Controls Controls
	Frames   nav.FrameSource
	Scorer   screen.Scorer
	Notifier Notifier
	Rand     *rand.Rand

	// Runner callbacks, see engine.NewRunner
	LogFunc    func(string)
	StatusFunc func(string)
}

// Task owns one external-route run at a time
type Task struct {
	store    *config.Store
	log      *logger.AppLogger
	clock    tick.Clock
	controls Controls
	frames   nav.FrameSource
	scorer   screen.Scorer
	notifier Notifier
	rng      *rand.Rand
	runner   *engine.Runner

	mu        sync.Mutex
	display   int
	robot     *input.Robot
	searcher  *screen.Searcher
	debugSave bool
}

// NewTask creates a stopped task. Store is required.
func NewTask(opts Options) *Task {
	t := &Task{
		store:    opts.Store,
		log:      opts.Logger,
		clock:    opts.Clock,
		controls: opts.Controls,
		frames:   opts.Frames,
		scorer:   opts.Scorer,
		notifier: opts.Notifier,
		rng:      opts.Rand,
		runner:   engine.NewRunner(opts.LogFunc, opts.StatusFunc),
	}
	if t.log == nil {
		t.log = logger.Nop()
	}
	if t.clock == nil {
		t.clock = tick.SystemClock{}
	}
	if t.rng == nil {
		seed := uint64(time.Now().UnixNano())
		t.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if t.notifier == nil {
		t.notifier = notify.New(func() bool { return t.store.Snapshot().Sound }, t.log)
	}
	t.display = t.store.Snapshot().Display
	return t
}

// SetDisplayID selects the monitor that is captured and clicked on
func (t *Task) SetDisplayID(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.display = id
	if t.robot != nil {
		t.robot.SetDisplayID(id)
	}
	if t.searcher != nil {
		t.searcher.SetDisplayID(id)
	}
}

// Start launches the run in the background. It returns false when a run
// is already active.
func (t *Task) Start(ctx context.Context) bool {
	return t.runner.Start(ctx, "External task", t.Run)
}

// Stop ends the active run and waits for it
func (t *Task) Stop() {
	t.runner.Stop()
}

// Wait blocks until the active run returns
func (t *Task) Wait() error {
	return t.runner.Wait()
}

// Running reports whether a run is active
func (t *Task) Running() bool {
	return t.runner.Status() == engine.StatusRunning
}

// Run executes all rounds in the calling goroutine
func (t *Task) Run(ctx context.Context) error {
	settings := t.store.Snapshot()
	if settings.ExternalFolder == "" {
		return ErrNoFolder
	}
	dir := filepath.Join(settings.ModDir, settings.ExternalFolder)

	bundle, err := assets.Load(ctx, dir, t.log.With("assets"))
	if err != nil {
		t.notifier.Play(notify.SoundFailed)
		return fmt.Errorf("load %s: %w", settings.ExternalFolder, err)
	}

	jr, runID := t.openJournal(ctx, settings)
	w := t.newWalker(settings, bundle, jr, runID)

	rounds, err := w.run(ctx)

	if jr != nil {
		if ferr := jr.FinishRun(context.Background(), runID, journal.StatusOf(err), rounds, err); ferr != nil {
			t.log.Warn("Journal write failed: %v", ferr)
		}
		jr.Close()
	}

	switch {
	case err == nil:
		t.log.Info("All %d rounds finished", rounds)
		t.notifier.Play(notify.SoundDone)
	case errors.Is(err, engine.ErrTaskDisabled):
		t.log.Info("Task stopped after %d rounds", rounds)
		t.notifier.Play(notify.SoundStopped)
	default:
		t.log.Error("Task failed: %v", err)
		t.notifier.Play(notify.SoundFailed)
	}
	return err
}

// openJournal starts a journal run. The journal is optional: any failure
// is logged and the task runs unrecorded.
func (t *Task) openJournal(ctx context.Context, settings config.Settings) (*journal.Journal, string) {
	if settings.Journal == "" {
		return nil, ""
	}
	jr, err := journal.Open(settings.Journal)
	if err != nil {
		t.log.Warn("Journal disabled: %v", err)
		return nil, ""
	}
	run, err := jr.StartRun(ctx, settings.ExternalFolder)
	if err != nil {
		t.log.Warn("Journal disabled: %v", err)
		jr.Close()
		return nil, ""
	}
	t.log.Debug("[Journal] run %s", run.ID)
	return jr, run.ID
}

func (t *Task) liveControls() Controls {
	if t.controls != nil {
		return t.controls
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.robot == nil {
		t.robot = input.NewRobot(t.display, t.log.With("input"))
	}
	return t.robot
}

func (t *Task) liveFrames(settings config.Settings) nav.FrameSource {
	if t.frames != nil {
		return t.frames
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.searcher == nil {
		t.searcher = screen.NewSearcher()
		t.searcher.SetDebugFunc(t.log.With("screen").Debug)
		t.searcher.SetDisplayID(t.display)
	}
	t.searcher.SetReference(settings.Reference.Width, settings.Reference.Height)
	t.debugSave = false
	return t.searcher
}

// saveDebugFrame keeps the frame of the first failed navigation per run
func (t *Task) saveDebugFrame() {
	if !constants.DebugDump {
		return
	}
	t.mu.Lock()
	searcher, taken := t.searcher, t.debugSave
	t.debugSave = true
	t.mu.Unlock()
	if searcher == nil || taken {
		return
	}
	if err := searcher.SaveDebugScreenshot("debug_nav_failed.png"); err != nil {
		t.log.Debug("Debug screenshot not saved: %v", err)
		return
	}
	t.log.Info("Saved debug_nav_failed.png")
}

// walker holds the collaborators of one run
type walker struct {
	task     *Task
	store    *config.Store
	log      *logger.AppLogger
	clock    tick.Clock
	controls Controls
	rounds   int

	matcher   *nav.Matcher
	navigator *nav.Navigator
	player    *macro.Player
	reset     *input.MenuReset
	recorder  *journal.Recorder
	end       *nav.Probe

	skill   *tick.Ticker
	jitter  *tick.Ticker
	tickers tick.Set
}

func (t *Task) newWalker(settings config.Settings, bundle *assets.Bundle, jr *journal.Journal, runID string) *walker {
	controls := t.liveControls()
	frames := t.liveFrames(settings)
	log := t.log.With("task")

	w := &walker{
		task:     t,
		store:    t.store,
		log:      log,
		clock:    t.clock,
		controls: controls,
		rounds:   settings.Rounds,
	}

	w.skill = tick.NewTicker(t.clock, w.castSkill, func() time.Duration {
		return w.store.Snapshot().SkillCastFrequency
	})
	w.jitter = tick.NewTicker(t.clock, w.moveJitter, func() time.Duration {
		j := w.store.Snapshot().Jitter
		return uniform(t.rng, j.MinDelay, j.MaxDelay)
	})
	w.tickers = tick.Set{w.skill, w.jitter}

	w.reset = input.NewMenuReset(controls, settings.ResetSequence, t.clock, t.log.With("reset"))
	interrupt := nav.NewProbe("Popup", frames, bundle.Interrupt, t.scorer,
		constants.ProbeThreshold, constants.InterruptProbeRate, t.clock, log)
	w.end = nav.NewProbe("Round end", frames, bundle.End, t.scorer,
		constants.ProbeThreshold, constants.EndProbeInterval, t.clock, log)

	w.player = macro.NewPlayer(macro.PlayerConfig{
		Scripts:     bundle.Scripts,
		Input:       controls,
		Bindings:    t.store.Bindings(),
		Reset:       w.reset.Run,
		Interrupted: interrupt.Visible,
		Jitter:      w.jitter,
		Settings:    t.store.PlayerSettings,
		Clock:       t.clock,
		Logger:      t.log.With("macro"),
	})
	w.matcher = nav.NewMatcher(frames, bundle.Templates, t.scorer, t.log.With("match"))

	var recorder nav.Recorder
	if jr != nil {
		w.recorder = journal.NewRecorder(jr, runID, log)
		recorder = w.recorder
	}
	w.navigator = nav.NewNavigator(nav.Config{
		Matcher:       w.matcher,
		Player:        w.player,
		MinConfidence: t.store.MinConfidence,
		OnPoll:        w.navTick,
		Recorder:      recorder,
		Clock:         t.clock,
		Logger:        t.log.With("nav"),
	})
	return w
}

// run plays every round and returns how many completed
func (w *walker) run(ctx context.Context) (int, error) {
	for round := 1; round <= w.rounds; round++ {
		if err := w.playRound(ctx, round); err != nil {
			return round - 1, err
		}
	}
	return w.rounds, nil
}

func (w *walker) playRound(ctx context.Context, round int) error {
	w.log.Info("Round %d/%d", round, w.rounds)
	w.task.runner.StatusFunc(fmt.Sprintf("Status: Round %d/%d", round, w.rounds))
	if w.recorder != nil {
		w.recorder.SetRound(round)
	}

	if err := w.sleep(ctx, constants.RoundStartWait); err != nil {
		return err
	}
	w.tickers.Reset()
	w.player.ClearDelayed()

	arrived, err := w.navigator.Navigate(ctx, nav.Start)
	if err != nil {
		return err
	}
	if !arrived {
		w.log.Warn("Navigation failed, resetting")
		w.task.saveDebugFrame()
		return w.reset.Run(ctx)
	}
	return w.hold(ctx)
}

// hold keeps the character busy at the destination until the round ends.
// A node parked on a delay is rescanned every DelayedRescanPeriod and the
// route resumes from it once one of its children shows up.
func (w *walker) hold(ctx context.Context) error {
	started := w.clock.Now()
	nextRescan := started.Add(constants.DelayedRescanPeriod)

	for {
		if err := engine.Disabled(ctx); err != nil {
			return err
		}
		w.tickers.Tick()

		now := w.clock.Now()
		timeout := w.store.Snapshot().RoundTimeout
		if timeout <= 0 {
			timeout = constants.DefaultRoundTimeout
		}
		if now.Sub(started) >= timeout {
			w.log.Warn("Task Timeout")
			return w.reset.Run(ctx)
		}
		if w.end.Visible() {
			w.log.Info("Round complete")
			return nil
		}

		if node, ok := w.player.Delayed(); ok && !now.Before(nextRescan) {
			nextRescan = now.Add(constants.DelayedRescanPeriod)
			resumed, arrived, err := w.resume(ctx, node)
			if err != nil {
				return err
			}
			if resumed && !arrived {
				w.log.Warn("Navigation failed after %s, resetting", node)
				w.task.saveDebugFrame()
				return w.reset.Run(ctx)
			}
		}

		w.clock.Sleep(constants.TaskLoopInterval)
	}
}

// resume continues the route from a delayed node when a child of it is
// visible
func (w *walker) resume(ctx context.Context, node string) (resumed, arrived bool, err error) {
	res, err := w.matcher.FindBestMatch(node, w.store.MinConfidence())
	if err != nil {
		w.log.Debug("Delayed rescan failed: %v", err)
		return false, false, nil
	}
	if !res.Found() {
		return false, false, nil
	}
	w.log.Info("Resuming after %s", node)
	arrived, err = w.navigator.Navigate(ctx, node)
	return true, arrived, err
}

// sleep waits d in TaskLoopInterval steps
func (w *walker) sleep(ctx context.Context, d time.Duration) error {
	deadline := w.clock.Now().Add(d)
	for w.clock.Now().Before(deadline) {
		if err := engine.Disabled(ctx); err != nil {
			return err
		}
		step := min(deadline.Sub(w.clock.Now()), constants.TaskLoopInterval)
		w.clock.Sleep(step)
	}
	return engine.Disabled(ctx)
}

// navTick runs between matcher polls. Combat-only jitter stays off while
// the route is being walked.
func (w *walker) navTick() {
	w.skill.Tick()
	if macro.JitterMode(w.store.Snapshot().Jitter.Mode) == macro.JitterAlways {
		w.jitter.Tick()
	}
}

func (w *walker) castSkill() {
	bindings := w.store.Bindings()
	var key string
	switch w.store.Snapshot().UseSkill {
	case config.SkillCombat:
		key = bindings.CombatSkill()
	case config.SkillUltimate:
		key = bindings.UltimateSkill()
	case config.SkillSupport:
		key = bindings.Support()
	default:
		return
	}
	w.controls.KeyTap(key)
	w.log.Debug("[Skill] %s", key)
}

func (w *walker) moveJitter() {
	j := w.store.Snapshot().Jitter
	if macro.JitterMode(j.Mode) == macro.JitterDisabled {
		return
	}
	dx, dy := jitterOffset(w.task.rng, j.Amount)
	w.controls.MoveRelative(dx, dy)
	w.log.Debug("[Jitter] %d,%d", dx, dy)
}

// jitterOffset picks a random offset in [-amount, amount] on both axes.
// It is never (0, 0).
func jitterOffset(rng *rand.Rand, amount int) (int, int) {
	var dx, dy int
	if amount > 0 {
		dx = rng.IntN(2*amount+1) - amount
		dy = rng.IntN(2*amount+1) - amount
	}
	if dx == 0 && dy == 0 {
		dx = amount / 2
		if dx == 0 {
			dx = 5
		}
	}
	return dx, dy
}

// uniform picks a duration in [lo, hi]
func uniform(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
}
