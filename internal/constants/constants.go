package constants

import "time"

// Navigation
const (
	NavScanWindow   = 5 * time.Second        // How long to look for the next node before assuming arrival
	NavPollInterval = 100 * time.Millisecond // Wait between matcher polls when nothing matched

	// Minimum confidence for a node match. Any positive correlation wins when it is the best seen.
	DefaultMinConfidence = 0.0
)

// Macro Playback
const (
	FrameInterval      = 10 * time.Millisecond // One cooperative wait step while waiting for an action deadline
	SettleDelay        = 2 * time.Second       // Pause after the last action of a macro
	InteractWindow     = 3 * time.Second       // F presses closer than this are quick actions, not interacts
	DefaultRotationSen = 10.0                  // Pixels per degree when a rotation carries no sensitivity
)

// Task Loop
const (
	TaskLoopInterval    = 200 * time.Millisecond // Outer task loop cadence
	DelayedRescanPeriod = 1 * time.Second        // How often a delayed node is re-checked
	RoundStartWait      = 2 * time.Second        // Wait before the first navigation of a round
	DefaultRoundTimeout = 180 * time.Second
	DefaultRounds       = 10
)

// Background Tickers
const (
	DefaultSkillFrequency = 5 * time.Second
	DefaultJitterMinDelay = 4 * time.Second
	DefaultJitterMaxDelay = 8 * time.Second
	DefaultJitterAmount   = 20
)

// Image Matching
const (
	ReferenceWidth  = 2560 // Resolution the map templates were captured at
	ReferenceHeight = 1440
	LoadWorkers     = 8 // Parallel image decoders during asset loading

	ProbeThreshold     = 0.8                    // Score an end or interrupt template needs to count as visible
	EndProbeInterval   = 1 * time.Second        // Cadence of the round-complete check
	InterruptProbeRate = 500 * time.Millisecond // Cadence of the popup check during playback

	// Debugging
	DebugDump = true
)
