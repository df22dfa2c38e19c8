package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewAppLogger(zerolog.New(&buf), nil).With("nav")

	l.Info("matched %s", "A-1")

	out := buf.String()
	assert.Contains(t, out, `"component":"nav"`)
	assert.Contains(t, out, `"message":"matched A-1"`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewAppLogger(zerolog.New(&buf).Level(zerolog.InfoLevel), nil)

	l.Debug("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "shown 2")
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Info("x")
		l.Error("y %v", nil)
		l.With("c").Debug("z")
	})
}
