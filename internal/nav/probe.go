package nav

import (
	"time"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/tick"
)

// Probe reports whether any template of a set is on screen. Results are
// cached for one interval so it can be polled from tight wait loops.
type Probe struct {
	name      string
	source    FrameSource
	set       *assets.TemplateSet
	scorer    screen.Scorer
	threshold float64
	every     time.Duration
	clock     tick.Clock
	log       *logger.AppLogger

	checked bool
	last    time.Time
	seen    bool
}

// NewProbe creates a probe. An empty set is never visible and never
// captures a frame.
func NewProbe(name string, source FrameSource, set *assets.TemplateSet, scorer screen.Scorer,
	threshold float64, every time.Duration, clock tick.Clock, log *logger.AppLogger) *Probe {
	if scorer == nil {
		scorer = screen.DefaultScorer()
	}
	if clock == nil {
		clock = tick.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Probe{
		name:      name,
		source:    source,
		set:       set,
		scorer:    scorer,
		threshold: threshold,
		every:     every,
		clock:     clock,
		log:       log,
	}
}

// Visible reports whether a template scored at least the threshold on
// the latest checked frame
func (p *Probe) Visible() bool {
	if p == nil || p.set.Len() == 0 {
		return false
	}
	now := p.clock.Now()
	if p.checked && now.Sub(p.last) < p.every {
		return p.seen
	}
	p.checked, p.last, p.seen = true, now, false

	frame, err := p.source.CaptureGray()
	if err != nil {
		p.log.Debug("[Probe] %s capture failed: %v", p.name, err)
		return false
	}
	for _, t := range p.set.All() {
		if score := p.scorer.Score(frame, t.Image); score >= p.threshold {
			p.log.Info("%s detected: %s (conf=%.4f)", p.name, t.Name, score)
			p.seen = true
			break
		}
	}
	return p.seen
}
