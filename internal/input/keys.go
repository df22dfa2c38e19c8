// Package input injects keyboard and mouse events into the game and
// holds the live key bindings.
package input

import (
	"strings"
	"sync"
)

// keyAliases maps recorded key names to the names robotgo understands
var keyAliases = map[string]string{
	"lcontrol":  "lctrl",
	"rcontrol":  "rctrl",
	"control":   "ctrl",
	"escape":    "esc",
	"return":    "enter",
	"page_up":   "pageup",
	"page_down": "pagedown",
	"caps_lock": "capslock",
}

// KeyName translates a key name to robotgo's naming. Single characters
// are lower-cased so no implicit shift is added.
func KeyName(key string) string {
	lower := strings.ToLower(key)
	if alias, ok := keyAliases[lower]; ok {
		return alias
	}
	if len(key) == 1 {
		return lower
	}
	return key
}

// KeyMap is the set of rebindable game controls
type KeyMap struct {
	Dodge      string `mapstructure:"dodge"`
	Interact   string `mapstructure:"interact"`
	Combat     string `mapstructure:"combat"`
	Ultimate   string `mapstructure:"ultimate"`
	SpiralDive string `mapstructure:"spiral_dive"`
	Support    string `mapstructure:"support"`
}

// DefaultKeyMap is the game's default control scheme
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dodge:      "lshift",
		Interact:   "f",
		Combat:     "e",
		Ultimate:   "q",
		SpiralDive: "4",
		Support:    "z",
	}
}

// LiveBindings resolves roles against a KeyMap that can be swapped at
// any time. It implements macro.Bindings.
type LiveBindings struct {
	mu   sync.RWMutex
	keys KeyMap
}

// NewLiveBindings creates bindings starting from keys
func NewLiveBindings(keys KeyMap) *LiveBindings {
	return &LiveBindings{keys: keys}
}

// Set replaces the key map
func (b *LiveBindings) Set(keys KeyMap) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = keys
}

// Keys returns the current key map
func (b *LiveBindings) Keys() KeyMap {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.keys
}

func (b *LiveBindings) Dodge() string         { return b.Keys().Dodge }
func (b *LiveBindings) Interact() string      { return b.Keys().Interact }
func (b *LiveBindings) CombatSkill() string   { return b.Keys().Combat }
func (b *LiveBindings) UltimateSkill() string { return b.Keys().Ultimate }
func (b *LiveBindings) SpiralDive() string    { return b.Keys().SpiralDive }
func (b *LiveBindings) Support() string       { return b.Keys().Support }
