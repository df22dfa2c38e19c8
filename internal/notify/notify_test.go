package notify

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
)

func drain(s beep.Streamer) (total int, peak float64) {
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			if v := buf[i][0]; v > peak {
				peak = v
			} else if -v > peak {
				peak = -v
			}
		}
		total += n
		if !ok {
			return total, peak
		}
	}
}

func TestToneGeneratorRange(t *testing.T) {
	rate := beep.SampleRate(44100)
	gen := NewToneGenerator(rate, 440)

	samples := make([][2]float64, 2000)
	n, ok := gen.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 2000, n)
	for i := 0; i < n; i++ {
		assert.LessOrEqual(t, samples[i][0], 1.0)
		assert.GreaterOrEqual(t, samples[i][0], -1.0)
		assert.Equal(t, samples[i][0], samples[i][1])
	}
	assert.Zero(t, samples[0][0], "the attack starts silent")
	assert.NoError(t, gen.Err())
}

func TestRestIsSilent(t *testing.T) {
	total, peak := drain(Streamer(beep.SampleRate(8000), []Note{{0, 100 * time.Millisecond}}))
	assert.Equal(t, 800, total)
	assert.Zero(t, peak)
}

func TestMelodyLength(t *testing.T) {
	rate := beep.SampleRate(8000)
	for _, s := range []Sound{SoundDone, SoundFailed, SoundStopped} {
		var want int
		for _, note := range Melody(s) {
			want += rate.N(note.Duration)
		}
		total, peak := drain(Streamer(rate, Melody(s)))
		assert.Equal(t, want, total, s.String())
		assert.Greater(t, peak, 0.0, s.String())
	}
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	n := New(func() bool { return false }, nil)
	n.Play(SoundDone)
	assert.False(t, n.initialized)
}
