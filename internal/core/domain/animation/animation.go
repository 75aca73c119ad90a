package animation

import (
	"fmt"
	"strings"
)

// Mode selects how a definition's play head moves on each step.
type Mode string

const (
	ModeLoop        Mode = "LOOP"         // 1 -> 2 -> 3 -> 1
	ModeReverseLoop Mode = "REVERSE_LOOP" // 3 -> 2 -> 1 -> 3
	ModeBounce      Mode = "BOUNCE"       // 1 -> 2 -> 3 -> 2 -> 1
	ModeRandom      Mode = "RANDOM"       // uniform re-roll, may repeat
)

func (m Mode) String() string {
	return string(m)
}

func (m Mode) IsValid() bool {
	switch m {
	case ModeLoop, ModeReverseLoop, ModeBounce, ModeRandom:
		return true
	default:
		return false
	}
}

// ParseMode parses a case-insensitive mode token. ok is false for unknown tokens,
// in which case ModeLoop is returned.
func ParseMode(token string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(token)))
	if !m.IsValid() {
		return ModeLoop, false
	}
	return m, true
}

// RawDefinition is one entry of the definitions source before validation.
type RawDefinition struct {
	Frames []string `yaml:"frames" json:"frames"`
	Type   string   `yaml:"type,omitempty" json:"type,omitempty"`
	Speed  *int     `yaml:"speed,omitempty" json:"speed,omitempty"`
}

// Definition is a loaded frame sequence together with its play head.
// It is not safe for concurrent mutation; the owning engine serializes Advance and Reset.
type Definition struct {
	id     string
	frames []string
	mode   Mode
	speed  int

	frame    int
	tick     int
	backward bool
}

// NewDefinition copies frames and clamps speed to at least 1.
func NewDefinition(id string, frames []string, mode Mode, speed int) *Definition {
	if speed < 1 {
		speed = 1
	}
	if !mode.IsValid() {
		mode = ModeLoop
	}
	return &Definition{
		id:     id,
		frames: append([]string(nil), frames...),
		mode:   mode,
		speed:  speed,
	}
}

func (d *Definition) ID() string       { return d.id }
func (d *Definition) Mode() Mode       { return d.mode }
func (d *Definition) Speed() int       { return d.speed }
func (d *Definition) FrameCount() int  { return len(d.frames) }
func (d *Definition) FrameIndex() int  { return d.frame }
func (d *Definition) TickCounter() int { return d.tick }

// Frames returns a copy of the frame list.
func (d *Definition) Frames() []string {
	return append([]string(nil), d.frames...)
}

// CurrentFrame returns the frame under the play head, or "" for an empty definition.
func (d *Definition) CurrentFrame() string {
	if len(d.frames) == 0 {
		return ""
	}
	return d.frames[d.frame]
}

// FrameAt returns the frame at index i regardless of the play head.
func (d *Definition) FrameAt(i int) (string, bool) {
	if i < 0 || i >= len(d.frames) {
		return "", false
	}
	return d.frames[i], true
}

// Advance counts one tick and, once the counter reaches speed, moves the play head one step.
// intn must return a uniform integer in [0,n); it is only consulted in random mode.
// It reports whether the play head moved.
func (d *Definition) Advance(intn func(n int) int) bool {
	n := len(d.frames)
	if n == 0 {
		return false
	}

	d.tick++
	if d.tick < d.speed {
		return false
	}
	d.tick = 0

	switch d.mode {
	case ModeReverseLoop:
		d.frame = (d.frame - 1 + n) % n
	case ModeRandom:
		d.frame = intn(n)
	case ModeBounce:
		d.frame = d.bounceStep(n)
	default:
		d.frame = (d.frame + 1) % n
	}
	return true
}

// bounceStep reverses direction at either end of the sequence.
func (d *Definition) bounceStep(n int) int {
	if n == 1 {
		return 0
	}
	if !d.backward {
		if d.frame+1 < n {
			return d.frame + 1
		}
		d.backward = true
		return d.frame - 1
	}
	if d.frame-1 >= 0 {
		return d.frame - 1
	}
	d.backward = false
	return d.frame + 1
}

// Reset rewinds the play head and tick counter without touching frames.
func (d *Definition) Reset() {
	d.frame = 0
	d.tick = 0
	d.backward = false
}

// Info returns a detached copy of the definition's descriptive state.
func (d *Definition) Info() Info {
	return Info{
		ID:           d.id,
		FrameCount:   len(d.frames),
		Mode:         d.mode,
		Speed:        d.speed,
		CurrentFrame: d.frame,
		TickCounter:  d.tick,
	}
}

// Info is a read-only view of a definition for diagnostics and the admin API.
type Info struct {
	ID           string `json:"id"`
	FrameCount   int    `json:"frame_count"`
	Mode         Mode   `json:"mode"`
	Speed        int    `json:"speed"`
	CurrentFrame int    `json:"current_frame"`
	TickCounter  int    `json:"tick_counter"`
}

func (i Info) String() string {
	return fmt.Sprintf("Animation '%s': %d frames, type=%s, speed=%d, current=%d",
		i.ID, i.FrameCount, i.Mode, i.Speed, i.CurrentFrame)
}

// LoadReport summarizes a wholesale load of the definitions source.
type LoadReport struct {
	Loaded   []string `json:"loaded"`
	Skipped  []string `json:"skipped"`
	Warnings []string `json:"warnings"`
}

// ValidateResponse represents the response of a definitions validation
type ValidateResponse struct {
	Problems []string `json:"problems"`
}
