package input

import (
	"context"
	"fmt"
	"time"

	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/tick"
)

// Clicker is the subset of Robot a menu sequence needs
type Clicker interface {
	KeyTap(key string)
	ClickAt(fx, fy float64)
}

// Step is one action of a menu sequence: a key tap, a click at a
// fractional screen position, or just a wait. Wait follows the action.
type Step struct {
	Key  string        `mapstructure:"key"`
	X    float64       `mapstructure:"x"`
	Y    float64       `mapstructure:"y"`
	Wait time.Duration `mapstructure:"wait"`
}

func (s Step) String() string {
	switch {
	case s.Key != "":
		return fmt.Sprintf("key %s", s.Key)
	case s.X != 0 || s.Y != 0:
		return fmt.Sprintf("click (%.2f, %.2f)", s.X, s.Y)
	default:
		return "wait"
	}
}

// DefaultResetSequence opens the in-mission menu, goes to the settings
// tab, confirms the reset and leaves the dialog.
func DefaultResetSequence() []Step {
	return []Step{
		{Key: "esc", Wait: 800 * time.Millisecond},
		{X: 0.73, Y: 0.92, Wait: 500 * time.Millisecond},
		{X: 0.60, Y: 0.32, Wait: time.Second},
		{X: 0.59, Y: 0.56, Wait: 500 * time.Millisecond},
	}
}

// MenuReset performs the reset-and-transport sequence by replaying
// fixed menu steps.
type MenuReset struct {
	clicker Clicker
	steps   []Step
	clock   tick.Clock
	log     *logger.AppLogger
}

// NewMenuReset creates a reset sequence. Empty steps use the default.
func NewMenuReset(clicker Clicker, steps []Step, clock tick.Clock, log *logger.AppLogger) *MenuReset {
	if len(steps) == 0 {
		steps = DefaultResetSequence()
	}
	if clock == nil {
		clock = tick.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MenuReset{clicker: clicker, steps: steps, clock: clock, log: log}
}

// Run executes the sequence. It matches macro.ResetFunc.
func (m *MenuReset) Run(ctx context.Context) error {
	m.log.Info("Reset and transport")
	for i, step := range m.steps {
		if err := engine.Disabled(ctx); err != nil {
			return err
		}
		m.log.Debug("[Reset] step %d/%d: %s", i+1, len(m.steps), step)

		switch {
		case step.Key != "":
			m.clicker.KeyTap(step.Key)
		case step.X != 0 || step.Y != 0:
			m.clicker.ClickAt(step.X, step.Y)
		}
		m.clock.Sleep(step.Wait)
	}
	return nil
}
