// Package midi drives MIDI-controlled actuators (solenoid boards, tactile transducer
// controllers) as a feedback.Driver.
//
// Each style maps to a note on one channel. An impact is a NoteOn whose velocity encodes the
// intensity, immediately followed by a NoteOff; the controller turns the note into a pulse.
// Warm-up sends a ControlChange on an "arm" controller so the board can energize its drivers.
//
// Messages are encoded with gitlab.com/gomidi/midi/v2 and written to a Sender. Sender matches
// the Send method of gomidi's drivers.Out, so an opened output port can be passed directly.
// Send is called synchronously; wrap the Driver with package driver/dispatch when the port
// can block.
package midi

import (
	"maps"
	"math"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/evan-idocoding/zhaptic/feedback"
)

// Sender writes one raw MIDI message.
type Sender interface {
	Send(msg []byte) error
}

// DefaultNotes maps every style to a note number. New copies it, so later changes only
// affect drivers created afterwards.
var DefaultNotes = map[feedback.Style]uint8{
	feedback.Light:  60,
	feedback.Medium: 62,
	feedback.Heavy:  64,
	feedback.Soft:   65,
	feedback.Rigid:  67,
}

const (
	// DefaultArmController is the controller number used by WarmUp (general purpose 1).
	DefaultArmController uint8 = 16
	// DefaultArmValue is the value sent on the arm controller.
	DefaultArmValue uint8 = 127
)

type config struct {
	channel  uint8
	notes    map[feedback.Style]uint8
	armCC    uint8
	armValue uint8
	armOff   bool
}

// Option configures New.
type Option func(*config)

// WithChannel sets the MIDI channel (0..15). Out-of-range values are ignored.
func WithChannel(ch uint8) Option {
	return func(c *config) {
		if ch < 16 {
			c.channel = ch
		}
	}
}

// WithNotes replaces the style-to-note mapping. Styles missing from m are unsupported.
// Note numbers above 127 are dropped.
func WithNotes(m map[feedback.Style]uint8) Option {
	return func(c *config) {
		out := make(map[feedback.Style]uint8, len(m))
		for s, n := range m {
			if n <= 127 {
				out[s] = n
			}
		}
		c.notes = out
	}
}

// WithArm sets the controller and value sent by WarmUp.
func WithArm(controller, value uint8) Option {
	return func(c *config) {
		c.armCC = controller & 0x7f
		c.armValue = value & 0x7f
	}
}

// WithoutArm makes WarmUp a successful no-op for boards that need no arming.
func WithoutArm() Option {
	return func(c *config) { c.armOff = true }
}

// Driver is a feedback.Driver backed by a MIDI output.
type Driver struct {
	out Sender
	cfg config

	sendErrors atomic.Uint64
}

var _ feedback.Driver = (*Driver)(nil)

// New creates a Driver writing to out. A nil out yields a driver that supports nothing.
func New(out Sender, opts ...Option) *Driver {
	cfg := config{
		armCC:    DefaultArmController,
		armValue: DefaultArmValue,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.notes == nil {
		cfg.notes = maps.Clone(DefaultNotes)
	}
	return &Driver{out: out, cfg: cfg}
}

func (d *Driver) SupportsStyle(s feedback.Style) bool {
	if d.out == nil {
		return false
	}
	_, ok := d.cfg.notes[s]
	return ok
}

func (d *Driver) WarmUp() bool {
	if d.out == nil {
		return false
	}
	if d.cfg.armOff {
		return true
	}
	return d.send(gomidi.ControlChange(d.cfg.channel, d.cfg.armCC, d.cfg.armValue))
}

// Fire sends NoteOn/NoteOff for the style's note. Intensity 0 sends nothing.
func (d *Driver) Fire(s feedback.Style, intensity float64) bool {
	note, ok := d.cfg.notes[s]
	if !ok || d.out == nil {
		return false
	}
	vel := Velocity(intensity)
	if vel == 0 {
		return true
	}
	if !d.send(gomidi.NoteOn(d.cfg.channel, note, vel)) {
		return false
	}
	return d.send(gomidi.NoteOff(d.cfg.channel, note))
}

// SendErrors returns the number of failed Send calls.
func (d *Driver) SendErrors() uint64 { return d.sendErrors.Load() }

func (d *Driver) send(msg gomidi.Message) bool {
	if err := d.out.Send(msg.Bytes()); err != nil {
		d.sendErrors.Add(1)
		return false
	}
	return true
}

// Velocity maps an intensity in [0, 1] to a MIDI velocity in [0, 127].
//
// Any positive intensity yields at least 1, because velocity 0 means NoteOff.
func Velocity(intensity float64) uint8 {
	i := feedback.ClampIntensity(intensity)
	if i == 0 {
		return 0
	}
	v := math.Round(i * 127)
	if v < 1 {
		v = 1
	}
	return uint8(v)
}
