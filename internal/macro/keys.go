package macro

import (
	"strings"
	"time"

	"github.com/ConserveLee/mapwalk/internal/constants"
)

// Edge is the direction of a key transition.
type Edge int

const (
	Down Edge = iota
	Up
)

func (e Edge) String() string {
	if e == Down {
		return "down"
	}
	return "up"
}

// Recorded key names with a contextual meaning.
const (
	ResetKey = "f4"
	fKey     = "f"
)

// Bindings maps logical roles to live key names. Implementations may
// change their answers at any time (rebindable controls).
type Bindings interface {
	Dodge() string
	Interact() string
	CombatSkill() string
	UltimateSkill() string
	SpiralDive() string
}

// Resolution is the outcome of resolving one recorded key edge.
type Resolution struct {
	Key   string // Live key to press or release
	Reset bool   // Run reset-and-transport instead of a keystroke
	Skip  bool   // Nothing to send
}

// Session carries the key-resolution state across every macro of one
// navigation, since the interact window spans node boundaries.
type Session struct {
	lastInteract    time.Time
	lastWasInteract bool
}

// NewSession creates an empty session. The first F press is an interact.
func NewSession() *Session {
	return &Session{}
}

// NormalizeKey maps modifier synonyms to their left-hand names.
func NormalizeKey(key string) string {
	switch strings.ToLower(key) {
	case "shift":
		return "lshift"
	case "ctrl":
		return "lcontrol"
	}
	return key
}

// Resolve translates a recorded key edge into the live control scheme.
func (s *Session) Resolve(edge Edge, key string, b Bindings, now time.Time) Resolution {
	key = NormalizeKey(key)

	switch key {
	case ResetKey:
		if edge == Down {
			return Resolution{Reset: true}
		}
		return Resolution{Skip: true}
	case "lshift":
		return Resolution{Key: b.Dodge()}
	case fKey:
		return Resolution{Key: s.resolveF(edge, b, now)}
	case "4":
		return Resolution{Key: b.SpiralDive()}
	case "e":
		return Resolution{Key: b.CombatSkill()}
	case "q":
		return Resolution{Key: b.UltimateSkill()}
	}
	return Resolution{Key: key}
}

// resolveF decides between interact and quick action. A down edge at
// least InteractWindow after the last interact is an interact; anything
// sooner is a literal F. The up edge follows its down edge.
func (s *Session) resolveF(edge Edge, b Bindings, now time.Time) string {
	if edge == Down {
		if now.Sub(s.lastInteract) >= constants.InteractWindow {
			s.lastInteract = now
			s.lastWasInteract = true
			return b.Interact()
		}
		s.lastWasInteract = false
		return fKey
	}

	if s.lastWasInteract {
		s.lastWasInteract = false
		return b.Interact()
	}
	return fKey
}
