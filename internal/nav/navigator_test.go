package nav

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/ConserveLee/mapwalk/internal/engine"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/ConserveLee/mapwalk/internal/tick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// routeMatcher answers with the next node of a fixed route once the
// clock has passed that node's appearance time.
type routeMatcher struct {
	clock      tick.Clock
	candidates map[string]int       // prev -> candidate count
	next       map[string]string    // prev -> node that becomes visible
	visibleAt  map[string]time.Time // node -> time it appears
	err        error
	polls      int
}

func (m *routeMatcher) FindBestMatch(prev string, _ float64) (MatchResult, error) {
	m.polls++
	if m.err != nil {
		return MatchResult{}, m.err
	}
	res := MatchResult{Candidates: m.candidates[prev]}
	node, ok := m.next[prev]
	if ok && !m.clock.Now().Before(m.visibleAt[node]) {
		res.Node = node
		res.Score = 0.8
	}
	return res, nil
}

type fakePlayer struct {
	clock    *tick.ManualClock
	duration time.Duration
	errs     map[string]error
	played   []string
	sessions []*macro.Session
}

func (p *fakePlayer) Play(_ context.Context, sess *macro.Session, node string) error {
	p.played = append(p.played, node)
	p.sessions = append(p.sessions, sess)
	p.clock.Advance(p.duration)
	return p.errs[node]
}

type recorderFunc func(PlayRecord)

func (f recorderFunc) RecordPlay(rec PlayRecord) { f(rec) }

func newRoute(clock *tick.ManualClock) *routeMatcher {
	return &routeMatcher{
		clock:      clock,
		candidates: map[string]int{Start: 2, "A-1": 1, "A-1-2": 1, "A-1-2-3": 0},
		next:       map[string]string{Start: "A-1", "A-1": "A-1-2", "A-1-2": "A-1-2-3"},
		visibleAt:  map[string]time.Time{},
	}
}

func TestNavigateWalksRouteToTheEnd(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	route.visibleAt["A-1-2"] = t0.Add(4 * time.Second)
	player := &fakePlayer{clock: clock, duration: 3 * time.Second}
	var records []PlayRecord

	n := NewNavigator(Config{
		Matcher:  route,
		Player:   player,
		Clock:    clock,
		Recorder: recorderFunc(func(r PlayRecord) { records = append(records, r) }),
	})

	arrived, err := n.Navigate(context.Background(), Start)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Equal(t, []string{"A-1", "A-1-2", "A-1-2-3"}, player.played)

	// One session spans the whole navigation
	require.Len(t, player.sessions, 3)
	assert.NotNil(t, player.sessions[0])
	assert.Same(t, player.sessions[0], player.sessions[2])

	require.Len(t, records, 3)
	assert.Equal(t, "A-1", records[1].Prev)
	assert.Equal(t, 3*time.Second, records[1].Duration)
	assert.NoError(t, records[2].Err)
}

func TestNavigateZeroCandidatesNeverPlays(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	player := &fakePlayer{clock: clock}
	n := NewNavigator(Config{Matcher: route, Player: player, Clock: clock})

	arrived, err := n.Navigate(context.Background(), "A-1-2-3")
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Empty(t, player.played)
	assert.Equal(t, 1, route.polls)
}

func TestNavigateScanWindowElapsed(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	route.visibleAt["A-1"] = t0.Add(time.Hour)
	player := &fakePlayer{clock: clock}
	polls := 0
	n := NewNavigator(Config{
		Matcher: route,
		Player:  player,
		Clock:   clock,
		OnPoll:  func() { polls++ },
	})

	arrived, err := n.Navigate(context.Background(), Start)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Empty(t, player.played)
	assert.Equal(t, 50, route.polls, "one poll per 100ms over the 5s window")
	assert.Equal(t, 50, polls)
}

func TestNavigateWindowRestartsAfterEachPlay(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	// A-1-2 appears 4.9s after A-1 finished playing
	player := &fakePlayer{clock: clock, duration: time.Second}
	route.visibleAt["A-1-2"] = t0.Add(time.Second + 4900*time.Millisecond)
	route.visibleAt["A-1-2-3"] = t0.Add(time.Hour)
	n := NewNavigator(Config{Matcher: route, Player: player, Clock: clock})

	arrived, err := n.Navigate(context.Background(), Start)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Equal(t, []string{"A-1", "A-1-2"}, player.played)
}

func TestNavigateMacroFailed(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	player := &fakePlayer{clock: clock, errs: map[string]error{
		"A-1-2": fmt.Errorf("interrupted: %w", macro.ErrMacroFailed),
	}}
	n := NewNavigator(Config{Matcher: route, Player: player, Clock: clock})

	arrived, err := n.Navigate(context.Background(), Start)
	require.NoError(t, err)
	assert.False(t, arrived)
	assert.Equal(t, []string{"A-1", "A-1-2"}, player.played)
}

func TestNavigatePropagatesOtherErrors(t *testing.T) {
	for _, want := range []error{engine.ErrTaskDisabled, macro.ErrMalformedAction, macro.ErrUnknownNode} {
		t.Run(want.Error(), func(t *testing.T) {
			clock := tick.NewManualClock(t0)
			route := newRoute(clock)
			player := &fakePlayer{clock: clock, errs: map[string]error{"A-1": fmt.Errorf("A-1: %w", want)}}
			n := NewNavigator(Config{Matcher: route, Player: player, Clock: clock})

			arrived, err := n.Navigate(context.Background(), Start)
			assert.ErrorIs(t, err, want)
			assert.False(t, arrived)
		})
	}
}

func TestNavigateStopsWhenTaskDisabled(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	route.visibleAt["A-1"] = t0.Add(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	clock.OnSleep = func(now time.Time) {
		if now.Sub(t0) >= time.Second {
			cancel()
		}
	}
	n := NewNavigator(Config{Matcher: route, Player: &fakePlayer{clock: clock}, Clock: clock})

	arrived, err := n.Navigate(ctx, Start)
	assert.ErrorIs(t, err, engine.ErrTaskDisabled)
	assert.False(t, arrived)
	assert.Equal(t, 10, route.polls)
}

func TestNavigateCaptureErrorsAreMisses(t *testing.T) {
	clock := tick.NewManualClock(t0)
	route := newRoute(clock)
	route.err = errors.New("capture failed")
	player := &fakePlayer{clock: clock}
	n := NewNavigator(Config{Matcher: route, Player: player, Clock: clock})

	arrived, err := n.Navigate(context.Background(), Start)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Empty(t, player.played)
}

func TestNavigateWithMatcherAndPlayer(t *testing.T) {
	clock := tick.NewManualClock(t0)
	frame := image.NewGray(image.Rect(0, 0, 8, 8))
	ss := newScoredSet(map[string]float64{"A": 0.9, "A-1": 0.6, "A-1-2": 0.7})
	matcher := NewMatcher(&staticSource{frame: frame}, ss.set, ss.scorer, nil)

	input := &countingInput{}
	player := macro.NewPlayer(macro.PlayerConfig{
		Scripts: map[string]*macro.Script{
			"A-1":   {Name: "A-1", Actions: []macro.Action{{Time: 0.1, Kind: macro.KindKeyDown, Key: "w"}}},
			"A-1-2": {Name: "A-1-2", Actions: []macro.Action{{Time: 0.1, Kind: macro.KindKeyUp, Key: "w"}}},
		},
		Input: input,
		Clock: clock,
	})
	n := NewNavigator(Config{Matcher: matcher, Player: player, Clock: clock})

	arrived, err := n.Navigate(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Equal(t, []string{"down w", "up w"}, input.keys)
}

func TestNavigateUnknownScriptIsAnError(t *testing.T) {
	clock := tick.NewManualClock(t0)
	ss := newScoredSet(map[string]float64{"1": 0.9})
	matcher := NewMatcher(&staticSource{frame: image.NewGray(image.Rect(0, 0, 4, 4))}, ss.set, ss.scorer, nil)
	player := macro.NewPlayer(macro.PlayerConfig{Input: &countingInput{}, Clock: clock})
	n := NewNavigator(Config{Matcher: matcher, Player: player, Clock: clock})

	_, err := n.Navigate(context.Background(), Start)
	assert.ErrorIs(t, err, macro.ErrUnknownNode)
}

type countingInput struct {
	keys []string
}

func (c *countingInput) MoveRelative(int, int) {}
func (c *countingInput) MouseDown(string)     {}
func (c *countingInput) MouseUp(string)       {}
func (c *countingInput) KeyDown(k string)     { c.keys = append(c.keys, "down "+k) }
func (c *countingInput) KeyUp(k string)       { c.keys = append(c.keys, "up "+k) }
