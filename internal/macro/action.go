// Package macro replays recorded input scripts against the live game.
package macro

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates recorded actions.
type Kind string

const (
	KindMouseMove     Kind = "mouse_move"
	KindMouseRotation Kind = "mouse_rotation"
	KindMouseDown     Kind = "mouse_down"
	KindMouseUp       Kind = "mouse_up"
	KindKeyDown       Kind = "key_down"
	KindKeyUp         Kind = "key_up"
	KindDelay         Kind = "delay"
)

// Action is one recorded input event. Time is seconds since the start of
// the macro; the remaining fields are used according to Kind.
type Action struct {
	Time float64 `json:"time"`
	Kind Kind    `json:"type"`

	// mouse_move
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// mouse_rotation
	Direction   string   `json:"direction,omitempty"`
	Angle       float64  `json:"angle,omitempty"`
	Sensitivity *float64 `json:"sensitivity,omitempty"`

	// mouse_down / mouse_up
	Button string `json:"button,omitempty"`

	// key_down / key_up
	Key string `json:"key,omitempty"`
}

// At returns the action offset from the macro start.
func (a Action) At() time.Duration {
	return time.Duration(a.Time * float64(time.Second))
}

// label names the key or button an action refers to, for logs.
func (a Action) label() string {
	switch {
	case a.Key != "":
		return a.Key
	case a.Button != "":
		return a.Button
	default:
		return "N/A"
	}
}

// Sensitivity is a horizontal/vertical mouse sensitivity pair.
type Sensitivity struct {
	X float64
	Y float64
}

// Unit is the sensitivity used when a script does not record one.
var Unit = Sensitivity{X: 1.0, Y: 1.0}

// Script is the recorded macro for one map node.
type Script struct {
	Name      string   `json:"-"`
	Actions   []Action `json:"actions"`
	OriginalX *float64 `json:"original_x_sensitivity,omitempty"`
	OriginalY *float64 `json:"original_y_sensitivity,omitempty"`
}

// ParseScript decodes a script document.
func ParseScript(name string, data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", name, err)
	}
	s.Name = name
	return &s, nil
}

// RecordedSensitivity returns the sensitivity the macro was recorded with.
// Both axes must be present, otherwise Unit is used.
func (s *Script) RecordedSensitivity() Sensitivity {
	if s.OriginalX == nil || s.OriginalY == nil {
		return Unit
	}
	return Sensitivity{X: *s.OriginalX, Y: *s.OriginalY}
}

// Duration is the offset of the last action.
func (s *Script) Duration() time.Duration {
	if len(s.Actions) == 0 {
		return 0
	}
	return s.Actions[len(s.Actions)-1].At()
}
