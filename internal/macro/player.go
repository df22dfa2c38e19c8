package macro

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/tick"
)

// Player errors.
var (
	// ErrMacroFailed means playback was interrupted and the rest of the
	// macro abandoned. Navigation treats it as a failed path attempt.
	ErrMacroFailed = errors.New("macro failed")

	// ErrMalformedAction means the script holds an action kind the player
	// does not know. It is a data bug, not a runtime condition.
	ErrMalformedAction = errors.New("malformed action")

	// ErrUnknownNode means there is no script for the requested node.
	ErrUnknownNode = errors.New("no script for node")
)

// Input injects synthetic input. Calls are synchronous fire-and-forget.
type Input interface {
	MoveRelative(dx, dy int)
	MouseDown(button string)
	MouseUp(button string)
	KeyDown(key string)
	KeyUp(key string)
}

// ResetFunc runs the multi-step reset-and-transport sequence.
type ResetFunc func(ctx context.Context) error

// JitterMode is the anti-idle mouse perturbation policy.
type JitterMode string

const (
	JitterDisabled   JitterMode = "disabled"
	JitterAlways     JitterMode = "always"
	JitterCombatOnly JitterMode = "combat_only"
)

// Settings is the configuration snapshot taken at the start of each play.
type Settings struct {
	JitterMode      JitterMode
	LiveSensitivity Sensitivity
	FrameInterval   time.Duration
	SettleDelay     time.Duration
}

// DefaultSettings returns the playback defaults.
func DefaultSettings() Settings {
	return Settings{
		JitterMode:      JitterDisabled,
		LiveSensitivity: Unit,
		FrameInterval:   constants.FrameInterval,
		SettleDelay:     constants.SettleDelay,
	}
}

// PlayerConfig wires a Player to its collaborators.
type PlayerConfig struct {
	Scripts  map[string]*Script
	Input    Input
	Bindings Bindings
	Reset    ResetFunc

	// Interrupted is polled on every wait step; true fails the macro.
	Interrupted func() bool

	// Jitter is fired once per wait step when the jitter mode is Always.
	Jitter *tick.Ticker

	// Settings is read once per play. Nil means DefaultSettings.
	Settings func() Settings

	Clock  tick.Clock
	Logger *logger.AppLogger
}

// Player replays node macros with drift-free deadline waits.
type Player struct {
	scripts     map[string]*Script
	input       Input
	bindings    Bindings
	reset       ResetFunc
	interrupted func() bool
	jitter      *tick.Ticker
	settings    func() Settings
	clock       tick.Clock
	log         *logger.AppLogger

	// Cached for the duration of one play
	recorded Sensitivity
	live     Sensitivity

	// Node whose macro is parked on a delay action
	delayed    string
	hasDelayed bool
}

// NewPlayer creates a player.
func NewPlayer(cfg PlayerConfig) *Player {
	p := &Player{
		scripts:     cfg.Scripts,
		input:       cfg.Input,
		bindings:    cfg.Bindings,
		reset:       cfg.Reset,
		interrupted: cfg.Interrupted,
		jitter:      cfg.Jitter,
		settings:    cfg.Settings,
		clock:       cfg.Clock,
		log:         cfg.Logger,
		recorded:    Unit,
		live:        Unit,
	}
	if p.scripts == nil {
		p.scripts = map[string]*Script{}
	}
	if p.settings == nil {
		p.settings = DefaultSettings
	}
	if p.clock == nil {
		p.clock = tick.SystemClock{}
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	if p.interrupted == nil {
		p.interrupted = func() bool { return false }
	}
	return p
}

// Has reports whether a script exists for node.
func (p *Player) Has(node string) bool {
	_, ok := p.scripts[node]
	return ok
}

// Delayed returns the node whose macro last stopped on a delay action.
func (p *Player) Delayed() (string, bool) {
	return p.delayed, p.hasDelayed
}

// ClearDelayed drops the delayed-node marker.
func (p *Player) ClearDelayed() {
	p.delayed, p.hasDelayed = "", false
}

// Play replays the macro recorded for node. Actions fire in stored order,
// each once the elapsed time since the start of the play reaches its
// offset. Keys held when playback fails are not released.
func (p *Player) Play(ctx context.Context, sess *Session, node string) error {
	script, ok := p.scripts[node]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}
	if sess == nil {
		sess = NewSession()
	}

	settings := p.settings()
	p.recorded = script.RecordedSensitivity()
	p.live = settings.LiveSensitivity

	start := p.clock.Now()
	for i, action := range script.Actions {
		if err := p.waitUntil(ctx, start, action.At(), settings); err != nil {
			if errors.Is(err, ErrMacroFailed) {
				p.ClearDelayed()
				p.log.Warn("Macro %s interrupted before action %d/%d", node, i+1, len(script.Actions))
			}
			return err
		}

		if action.Kind == KindDelay {
			p.delayed, p.hasDelayed = node, true
			continue
		}
		p.ClearDelayed()
		if err := p.execute(ctx, sess, action); err != nil {
			return fmt.Errorf("%s action %d: %w", node, i+1, err)
		}
	}

	return p.pause(ctx, settings.SettleDelay, settings.FrameInterval)
}

// waitUntil steps cooperatively until offset has elapsed since start.
func (p *Player) waitUntil(ctx context.Context, start time.Time, offset time.Duration, settings Settings) error {
	for {
		if p.clock.Now().Sub(start) >= offset {
			return nil
		}
		if err := engine.Disabled(ctx); err != nil {
			return err
		}
		if p.interrupted() {
			return ErrMacroFailed
		}
		if settings.JitterMode == JitterAlways && p.jitter != nil {
			p.jitter.Tick()
		}
		p.clock.Sleep(frameStep(settings.FrameInterval))
	}
}

// pause sleeps for d while staying responsive to task stop.
func (p *Player) pause(ctx context.Context, d, step time.Duration) error {
	deadline := p.clock.Now().Add(d)
	for p.clock.Now().Before(deadline) {
		if err := engine.Disabled(ctx); err != nil {
			return err
		}
		remaining := deadline.Sub(p.clock.Now())
		p.clock.Sleep(min(remaining, frameStep(step)*10))
	}
	return nil
}

func frameStep(d time.Duration) time.Duration {
	if d <= 0 {
		return constants.FrameInterval
	}
	return d
}

// execute dispatches one action by kind
func (p *Player) execute(ctx context.Context, sess *Session, action Action) error {
	var err error
	switch action.Kind {
	case KindMouseMove:
		p.moveRelative(action.DX, action.DY)
	case KindMouseRotation:
		p.rotate(action)
	case KindMouseDown:
		p.input.MouseDown(action.Button)
	case KindMouseUp:
		p.input.MouseUp(action.Button)
	case KindKeyDown:
		err = p.key(ctx, sess, Down, action.Key)
	case KindKeyUp:
		err = p.key(ctx, sess, Up, action.Key)
	default:
		err = fmt.Errorf("%w: unknown action type %q", ErrMalformedAction, action.Kind)
	}
	if err != nil {
		p.log.Info("Action execution failed -> type: %s, key/btn: %s, Error: %v", action.Kind, action.label(), err)
	}
	return err
}

// moveRelative scales a recorded displacement from the recorded
// sensitivity to the live one.
func (p *Player) moveRelative(dx, dy float64) {
	sx := p.recorded.X / nonZero(p.live.X)
	sy := p.recorded.Y / nonZero(p.live.Y)
	p.input.MoveRelative(int(math.Round(dx*sx)), int(math.Round(dy*sy)))
}

func (p *Player) rotate(action Action) {
	direction := action.Direction
	if direction == "" {
		direction = "up"
	}
	sensitivity := constants.DefaultRotationSen
	if action.Sensitivity != nil {
		sensitivity = *action.Sensitivity
	}
	pixels := float64(int(action.Angle * sensitivity))

	var dx, dy float64
	switch direction {
	case "left":
		dx = -pixels
	case "right":
		dx = pixels
	case "up":
		dy = -pixels
	case "down":
		dy = pixels
	default:
		p.log.Warn("Unknown mouse direction: %s", direction)
		return
	}
	p.moveRelative(dx, dy)
	p.log.Debug("Mouse rotation: %s, Angle: %v, Pixels: %v", direction, action.Angle, pixels)
}

func (p *Player) key(ctx context.Context, sess *Session, edge Edge, recorded string) error {
	res := sess.Resolve(edge, recorded, p.bindings, p.clock.Now())
	switch {
	case res.Reset:
		if p.reset == nil {
			p.log.Warn("Reset key pressed but no reset action is configured")
			return nil
		}
		if err := p.reset(ctx); err != nil {
			if errors.Is(err, engine.ErrTaskDisabled) {
				return err
			}
			p.log.Warn("Reset and transport failed: %v", err)
		}
		return nil
	case res.Skip:
		return nil
	}

	if edge == Down {
		p.input.KeyDown(res.Key)
	} else {
		p.input.KeyUp(res.Key)
	}
	return nil
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
