// Package hotkey listens for the global stop hotkey.
package hotkey

import (
	"context"
	"errors"
	"strings"

	"github.com/ConserveLee/mapwalk/internal/logger"
	hook "github.com/robotn/gohook"
)

// ErrNoKey is returned for an empty hotkey
var ErrNoKey = errors.New("no hotkey configured")

// ParseCombo splits a combo like "ctrl+f10" into gohook key names
func ParseCombo(spec string) ([]string, error) {
	var keys []string
	for _, part := range strings.Split(spec, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		keys = append(keys, part)
	}
	if len(keys) == 0 {
		return nil, ErrNoKey
	}
	return keys, nil
}

// Listen calls onPress every time the combo is pressed, until ctx is
// done. It blocks.
func Listen(ctx context.Context, spec string, onPress func(), log *logger.AppLogger) error {
	keys, err := ParseCombo(spec)
	if err != nil {
		return err
	}
	if log == nil {
		log = logger.Nop()
	}

	hook.Register(hook.KeyDown, keys, func(hook.Event) {
		log.Info("Hotkey %s pressed", spec)
		onPress()
	})
	events := hook.Start()
	done := hook.Process(events)
	log.Debug("[Hotkey] listening for %s", spec)

	select {
	case <-ctx.Done():
		hook.End()
	case <-done:
	}
	return nil
}
