package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTickerFiresOnFirstPoll(t *testing.T) {
	clock := NewManualClock(epoch)
	fired := 0
	tk := NewTicker(clock, func() { fired++ }, func() time.Duration { return time.Second })

	require.True(t, tk.Tick())
	assert.Equal(t, 1, fired)
	assert.False(t, tk.Tick(), "second poll inside the interval must be a no-op")
	assert.Equal(t, 1, fired)
}

func TestTickerWaitsFullIntervalAfterReset(t *testing.T) {
	clock := NewManualClock(epoch)
	fired := 0
	tk := NewTicker(clock, func() { fired++ }, func() time.Duration { return 5 * time.Second })

	tk.Reset()
	clock.Advance(4 * time.Second)
	assert.False(t, tk.Tick())
	clock.Advance(time.Second)
	assert.True(t, tk.Tick())
	assert.Equal(t, 1, fired)
}

func TestTickerReevaluatesInterval(t *testing.T) {
	clock := NewManualClock(epoch)
	interval := 10 * time.Second
	fired := 0
	tk := NewTicker(clock, func() { fired++ }, func() time.Duration { return interval })

	tk.Tick()
	clock.Advance(2 * time.Second)
	assert.False(t, tk.Tick())

	interval = time.Second
	assert.True(t, tk.Tick(), "shortened interval applies on the next poll")
	assert.Equal(t, 2, fired)
}

func TestSetTicksAndResetsAll(t *testing.T) {
	clock := NewManualClock(epoch)
	var a, b int
	set := Set{
		NewTicker(clock, func() { a++ }, func() time.Duration { return time.Second }),
		nil,
		NewTicker(clock, func() { b++ }, func() time.Duration { return 3 * time.Second }),
	}

	set.Reset()
	clock.Advance(time.Second)
	set.Tick()
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, b)

	clock.Advance(2 * time.Second)
	set.Tick()
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}

func TestManualClockSleepAdvances(t *testing.T) {
	clock := NewManualClock(epoch)
	var seen time.Time
	clock.OnSleep = func(now time.Time) { seen = now }

	clock.Sleep(250 * time.Millisecond)
	assert.Equal(t, epoch.Add(250*time.Millisecond), clock.Now())
	assert.Equal(t, clock.Now(), seen)

	clock.Sleep(-time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), clock.Now())
}
