package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"fyne.io/fyne/v2/data/binding"
	"github.com/rs/zerolog"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelError
	LevelDebug
)

// historyLimit keeps the UI log list manageable
const historyLimit = 100

// AppLogger handles application logging to console and, when attached, the UI history
type AppLogger struct {
	zl          zerolog.Logger
	dataBinding binding.StringList
}

// NewAppLogger creates a logger that writes through zl and mirrors
// non-debug lines into data. data may be nil.
func NewAppLogger(zl zerolog.Logger, data binding.StringList) *AppLogger {
	return &AppLogger{
		zl:          zl,
		dataBinding: data,
	}
}

// NewConsole builds the zerolog logger used by the command line.
func NewConsole(w io.Writer, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() *AppLogger {
	return NewAppLogger(zerolog.Nop(), nil)
}

// With returns a child logger tagged with a component name.
func (l *AppLogger) With(component string) *AppLogger {
	return &AppLogger{
		zl:          l.zl.With().Str("component", component).Logger(),
		dataBinding: l.dataBinding,
	}
}

// Zerolog exposes the underlying logger for structured fields.
func (l *AppLogger) Zerolog() zerolog.Logger {
	return l.zl
}

// Info logs an informational message
func (l *AppLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Info().Msg(msg)
	l.appendHistory("INFO", msg)
}

// Warn logs a recoverable problem
func (l *AppLogger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Warn().Msg(msg)
	l.appendHistory("WARN", msg)
}

// Error logs an error message
func (l *AppLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Error().Msg(msg)
	l.appendHistory("ERROR", msg)
}

// Debug logs a debug message to the console only (to keep UI clean)
func (l *AppLogger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// appendHistory handles the formatting and appending to the UI list
func (l *AppLogger) appendHistory(level, msg string) {
	if l.dataBinding == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	formattedMsg := fmt.Sprintf("[%s] %s: %s", timestamp, level, msg)

	l.dataBinding.Append(formattedMsg)

	list, _ := l.dataBinding.Get()
	if len(list) > historyLimit {
		l.dataBinding.Set(list[len(list)-historyLimit:])
	}
}
