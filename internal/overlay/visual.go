// Package overlay provides the floating activity overlay: per-frame visual
// smoothing and the window that renders it.
package overlay

import (
	"time"

	"mavoice/internal/audio"
)

// State is the session phase shown by the overlay.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateDone
	StateListening
	StateAISpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateListening:
		return "listening"
	case StateAISpeaking:
		return "ai-speaking"
	}
	return "unknown"
}

// RGB is a linear color with components in [0, 1].
type RGB [3]float32

var stateColors = map[State]RGB{
	StateIdle:       {0, 0, 0},
	StateRecording:  {1.0, 0.51, 0.24},
	StateProcessing: {0.9, 0.76, 0.31},
	StateDone:       {0.31, 0.86, 0.51},
	StateListening:  {0.35, 0.6, 1.0},
	StateAISpeaking: {0.65, 0.45, 1.0},
}

const (
	levelRise     = 0.18
	levelFall     = 0.3
	levelSnap     = 0.003
	intensityRise = 0.15
	intensityFall = 0.1
	colorRate     = 0.08
	modeRate      = 0.15

	recordingFloor = 0.12
	speakingFloor  = 0.08

	// DoneFade is how long the done flash takes to fade out.
	DoneFade = 1500 * time.Millisecond
	// DoneHold is how long the done state stays before returning to idle.
	DoneHold = 2 * time.Second
)

var doneLevels = [4]float32{0.4, 0.6, 0.5, 0.3}

// Frame is everything the renderer needs for one frame.
type Frame struct {
	State     State
	Levels    [4]float32
	Intensity float32
	Color     RGB
	// Mode blends toward the processing animation: 0 bars, 1 spinner.
	Mode float32
	// DoneExpired is set once the done state has been shown for DoneHold.
	DoneExpired bool
	// Active is false once an idle overlay has fully settled.
	Active bool
}

// VisualState smooths levels, intensity and color across frames. It is not
// safe for concurrent use; the orchestrator owns it.
type VisualState struct {
	state     State
	doneAt    time.Time
	levels    [4]float32
	intensity float32
	color     RGB
	mode      float32
}

// State returns the current phase.
func (v *VisualState) State() State { return v.state }

// SetState switches phase. Entering Done restarts the fade clock.
func (v *VisualState) SetState(s State, now time.Time) {
	if s == StateDone && v.state != StateDone {
		v.doneAt = now
	}
	v.state = s
}

// Update advances one frame from the latest capture and playback levels.
func (v *VisualState) Update(mic, out audio.Levels, now time.Time) Frame {
	var target [4]float32
	switch v.state {
	case StateRecording, StateListening:
		target = mic
	case StateAISpeaking:
		target = out
	}
	for i := range v.levels {
		rate := float32(levelFall)
		if target[i] > 0 {
			rate = levelRise
		}
		v.levels[i] = lerp(v.levels[i], target[i], rate)
		if v.levels[i] < levelSnap {
			v.levels[i] = 0
		}
	}

	ti := v.targetIntensity()
	if ti > v.intensity {
		v.intensity = lerp(v.intensity, ti, intensityRise)
	} else {
		v.intensity = lerp(v.intensity, ti, intensityFall)
		if v.intensity < levelSnap {
			v.intensity = 0
		}
	}

	tc := stateColors[v.state]
	for i := range v.color {
		v.color[i] = lerp(v.color[i], tc[i], colorRate)
	}

	var tm float32
	if v.state == StateProcessing {
		tm = 1
	}
	v.mode = lerp(v.mode, tm, modeRate)

	f := Frame{
		State: v.state,
		Color: v.color,
		Mode:  v.mode,
	}

	switch v.state {
	case StateRecording:
		for i, l := range v.levels {
			f.Levels[i] = max(l, recordingFloor)
		}
		f.Intensity = v.intensity * 0.85
	case StateProcessing:
		f.Intensity = v.intensity
	case StateDone:
		elapsed := now.Sub(v.doneAt)
		fade := doneFade(elapsed)
		for i, l := range doneLevels {
			f.Levels[i] = l * fade
		}
		f.Intensity = fade * 0.8
		f.DoneExpired = elapsed >= DoneHold
	case StateAISpeaking:
		for i, l := range v.levels {
			f.Levels[i] = max(l, speakingFloor)
		}
		f.Intensity = v.intensity
	default:
		f.Levels = v.levels
		f.Intensity = v.intensity
	}

	f.Active = v.state != StateIdle || v.intensity > 0 || v.levels != [4]float32{}
	return f
}

func (v *VisualState) targetIntensity() float32 {
	switch v.state {
	case StateRecording, StateDone, StateAISpeaking:
		return 1
	case StateProcessing:
		return 0.7
	case StateListening:
		return 0.6
	}
	return 0
}

func doneFade(elapsed time.Duration) float32 {
	if elapsed <= 0 {
		return 1
	}
	f := 1 - float32(elapsed)/float32(DoneFade)
	return max(f, 0)
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
