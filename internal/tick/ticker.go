package tick

import "time"

// Ticker fires its action when polled after at least one interval has
// passed since the last fire. It never runs on its own: it only advances
// when a wait loop calls Tick.
type Ticker struct {
	clock    Clock
	action   func()
	interval func() time.Duration
	last     time.Time
	fired    bool
}

// NewTicker creates a ticker. interval is evaluated on every Tick so a
// changed setting applies on the next poll.
func NewTicker(clock Clock, action func(), interval func() time.Duration) *Ticker {
	return &Ticker{
		clock:    clock,
		action:   action,
		interval: interval,
	}
}

// Tick runs the action if it is due and reports whether it fired.
// A ticker that never fired (and was never reset) is always due.
func (t *Ticker) Tick() bool {
	now := t.clock.Now()
	if t.fired && now.Sub(t.last) < t.interval() {
		return false
	}
	t.last = now
	t.fired = true
	t.action()
	return true
}

// Reset makes the next fire wait a full interval from now.
func (t *Ticker) Reset() {
	t.last = t.clock.Now()
	t.fired = true
}

// Set polls several tickers together, in order.
type Set []*Ticker

// Tick polls every ticker in the set.
func (s Set) Tick() {
	for _, t := range s {
		if t != nil {
			t.Tick()
		}
	}
}

// Reset resets every ticker in the set.
func (s Set) Reset() {
	for _, t := range s {
		if t != nil {
			t.Reset()
		}
	}
}
