package nav

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/tick"
	"github.com/stretchr/testify/assert"
)

func TestProbeThresholdAndCache(t *testing.T) {
	ss := newScoredSet(map[string]float64{"win": 0.85, "lose": 0.2})
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	clock := tick.NewManualClock(time.Unix(0, 0))
	p := NewProbe("End screen", src, ss.set, ss.scorer, 0.8, time.Second, clock, nil)

	assert.True(t, p.Visible())
	assert.Equal(t, 1, src.captures)

	ss.scorer.scores[ss.images["win"]] = 0.1
	clock.Advance(500 * time.Millisecond)
	assert.True(t, p.Visible(), "cached within the interval")
	assert.Equal(t, 1, src.captures)

	clock.Advance(500 * time.Millisecond)
	assert.False(t, p.Visible())
	assert.Equal(t, 2, src.captures)
}

func TestProbeEmptySetNeverCaptures(t *testing.T) {
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	p := NewProbe("Popup", src, assets.NewTemplateSet(nil), nil, 0.8, 0, nil, nil)
	assert.False(t, p.Visible())
	assert.Zero(t, src.captures)

	var nilProbe *Probe
	assert.False(t, nilProbe.Visible())
}

func TestProbeCaptureErrorIsNotVisible(t *testing.T) {
	ss := newScoredSet(map[string]float64{"win": 0.95})
	src := &staticSource{err: errors.New("no display")}
	p := NewProbe("End screen", src, ss.set, ss.scorer, 0.8, 0, tick.NewManualClock(time.Unix(0, 0)), nil)
	assert.False(t, p.Visible())
	assert.Empty(t, ss.scorer.scored)
}
