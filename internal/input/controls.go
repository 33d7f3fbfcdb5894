package input

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tomz197/swarmship/internal/mode"
)

// Point is a normalized hand position, both axes in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Touches are the finger contacts reported for the right hand.
type Touches struct {
	IndexThumb   bool `json:"index_thumb"`
	PointerThumb bool `json:"pointer_thumb"` // Older trackers name the index finger "pointer"
	PinkyThumb   bool `json:"pinky_thumb"`
}

// RightHand is the trigger hand.
type RightHand struct {
	Touches Touches  `json:"touches"`
	Angle   *float64 `json:"angle,omitempty"` // Palm angle in degrees
}

// HandFrame is one message of the gesture channel. Absent hands are null.
type HandFrame struct {
	Left  *Point     `json:"left"`
	Right *RightHand `json:"right"`
}

// ParseHandFrame decodes a gesture channel message.
func ParseHandFrame(raw []byte) (HandFrame, error) {
	var f HandFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return HandFrame{}, fmt.Errorf("decode hand frame: %w", err)
	}
	return f, nil
}

// State is what one tick reads out of the control slot.
type State struct {
	// Left is the steering pose; nil when either hand is missing.
	Left *Point
	// Shoot and Boost fire once per received frame.
	Shoot bool
	Boost bool
	// Heading in radians, set when the latest frame carried an angle.
	Heading *float64
	// Mode is a pending mode command, 0 when none.
	Mode mode.Mode
}

// HandsPresent reports whether steering input is available.
func (s State) HandsPresent() bool {
	return s.Left != nil
}

// Controls is the control-state slot shared between the input feeds and the
// simulation. Writers overwrite (last writer wins); the tick reads with Consume.
type Controls struct {
	mu      sync.Mutex
	left    *Point
	shoot   bool
	boost   bool
	heading *float64
	mode    mode.Mode
	frames  uint64
	logger  *log.Logger
}

// NewControls creates an empty slot. No hands are present until the first frame.
func NewControls(logger *log.Logger) *Controls {
	if logger == nil {
		logger = log.Default()
	}
	return &Controls{logger: logger}
}

// OnHandFrame decodes and stores a raw gesture message. Malformed messages
// are logged and leave the slot untouched.
func (c *Controls) OnHandFrame(raw []byte) error {
	f, err := ParseHandFrame(raw)
	if err != nil {
		c.logger.Warn("ignoring gesture message", "err", err)
		return err
	}
	c.SetFrame(f)
	return nil
}

// SetFrame stores a decoded hand frame.
func (c *Controls) SetFrame(f HandFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frames++
	if f.Left == nil || f.Right == nil {
		c.left = nil
		return
	}

	left := *f.Left
	c.left = &left
	if f.Right.Touches.IndexThumb || f.Right.Touches.PointerThumb {
		c.shoot = true
	}
	if f.Right.Touches.PinkyThumb {
		c.boost = true
	}
	if f.Right.Angle != nil {
		rad := *f.Right.Angle * math.Pi / 180
		c.heading = &rad
	}
}

// OnVoiceCommand matches a transcript and stores the resulting mode command.
// It reports whether the transcript named a mode.
func (c *Controls) OnVoiceCommand(transcript string) (mode.Mode, bool) {
	m, ok := MatchVoice(transcript)
	if !ok {
		c.logger.Info("unrecognized voice command", "transcript", transcript)
		return 0, false
	}

	c.logger.Info("voice command", "transcript", transcript, "mode", m)
	c.RequestMode(m)
	return m, true
}

// RequestMode stores a pending mode command.
func (c *Controls) RequestMode(m mode.Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

// Consume returns the current control state. The pose persists; the shoot and
// boost triggers, the heading and the pending mode are cleared.
func (c *Controls) Consume() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Shoot:   c.shoot,
		Boost:   c.boost,
		Heading: c.heading,
		Mode:    c.mode,
	}
	if c.left != nil {
		left := *c.left
		s.Left = &left
	}

	c.shoot = false
	c.boost = false
	c.heading = nil
	c.mode = 0
	return s
}

// Frames returns how many hand frames have been stored.
func (c *Controls) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Reset drops the pose and any pending trigger.
func (c *Controls) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = nil
	c.shoot = false
	c.boost = false
	c.heading = nil
	c.mode = 0
}

// Phrases are tested in order; the first one contained in the transcript wins.
var voicePhrases = []struct {
	phrase string
	mode   mode.Mode
}{
	{"single agent", mode.Single},
	{"autonomous", mode.Autonomous},
	{"swarm", mode.Swarm},
}

// MatchVoice maps a transcript to a mode, case-insensitively.
func MatchVoice(transcript string) (mode.Mode, bool) {
	t := strings.ToLower(transcript)
	for _, p := range voicePhrases {
		if strings.Contains(t, p.phrase) {
			return p.mode, true
		}
	}
	return 0, false
}

// VoiceMessage is one message of the voice channel.
type VoiceMessage struct {
	Command string `json:"voice_command"`
}

// OnVoiceMessage decodes a voice channel message and forwards its transcript.
func (c *Controls) OnVoiceMessage(raw []byte) error {
	var msg VoiceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("ignoring voice message", "err", err)
		return fmt.Errorf("decode voice message: %w", err)
	}
	c.OnVoiceCommand(msg.Command)
	return nil
}
