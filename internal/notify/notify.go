// Package notify plays short sound cues when a run finishes or fails.
package notify

import (
	"math"
	"sync"
	"time"

	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(48000)
)

// Sound is a notification cue
type Sound int

const (
	SoundDone Sound = iota
	SoundFailed
	SoundStopped
)

func (s Sound) String() string {
	switch s {
	case SoundDone:
		return "done"
	case SoundFailed:
		return "failed"
	default:
		return "stopped"
	}
}

// Note is one tone of a cue
type Note struct {
	Freq     float64
	Duration time.Duration
}

// Melody returns the notes of a cue
func Melody(s Sound) []Note {
	switch s {
	case SoundDone:
		return []Note{{523.25, 120 * time.Millisecond}, {659.25, 120 * time.Millisecond}, {783.99, 200 * time.Millisecond}}
	case SoundFailed:
		return []Note{{392.00, 200 * time.Millisecond}, {0, 60 * time.Millisecond}, {261.63, 300 * time.Millisecond}}
	default:
		return []Note{{440.00, 150 * time.Millisecond}}
	}
}

// Notifier plays cues on the default audio device
type Notifier struct {
	mu          sync.Mutex
	enabled     func() bool
	initialized bool
	broken      bool
	log         *logger.AppLogger
}

// New creates a notifier. enabled is checked before every cue.
func New(enabled func() bool, log *logger.AppLogger) *Notifier {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{enabled: enabled, log: log}
}

// Play queues a cue and returns immediately
func (n *Notifier) Play(s Sound) {
	if !n.enabled() {
		return
	}
	if !n.init() {
		return
	}
	speaker.Play(Streamer(sampleRate, Melody(s)))
	n.log.Debug("[Notify] %s", s)
}

// init sets up the speaker once. A device that fails to open disables
// sound for the rest of the process.
func (n *Notifier) init() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return true
	}
	if n.broken {
		return false
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		n.broken = true
		n.log.Warn("Sound disabled: %v", err)
		return false
	}
	n.initialized = true
	return true
}

// Streamer renders notes back to back
func Streamer(sr beep.SampleRate, notes []Note) beep.Streamer {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, note := range notes {
		parts = append(parts, beep.Take(sr.N(note.Duration), NewToneGenerator(sr, note.Freq)))
	}
	return beep.Seq(parts...)
}

// ToneGenerator generates a soft sine tone. A zero frequency is a rest.
type ToneGenerator struct {
	sr   beep.SampleRate
	freq float64
	pos  int
}

// NewToneGenerator creates a tone generator
func NewToneGenerator(sr beep.SampleRate, freq float64) *ToneGenerator {
	return &ToneGenerator{
		sr:   sr,
		freq: freq,
	}
}

func (g *ToneGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		sample := 0.0
		if g.freq > 0 {
			sample = math.Sin(2 * math.Pi * g.freq * t)
			sample += 0.25 * math.Sin(2*math.Pi*g.freq*2*t)

			// Short attack to avoid clicks
			envelope := math.Min(t/0.01, 1.0)
			sample *= envelope * 0.25
		}

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ToneGenerator) Err() error {
	return nil
}
