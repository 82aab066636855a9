package knobs

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the key does not name a knob.
	ErrNotFound = errors.New("knobs: key not found")
	// ErrInvalidValue indicates a value fails parsing or range validation.
	ErrInvalidValue = errors.New("knobs: invalid value")
)

// Knob keys.
const (
	KeyFreshnessWindow  = "feedback.freshness_window"
	KeyDefaultIntensity = "feedback.default_intensity"
	KeySweepInterval    = "sweep.interval"
	KeyLogLevel         = "log.level"
)

// Source indicates where the current value comes from.
type Source int

const (
	SourceDefault Source = iota
	SourceRuntimeSet
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceRuntimeSet:
		return "runtime-set"
	default:
		return "unknown"
	}
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Type is the value type of a knob.
type Type string

const (
	TypeDuration Type = "duration"
	TypeFloat64  Type = "float64"
	TypeEnum     Type = "enum"
)

// Constraints summarizes the validation attached to a knob.
type Constraints struct {
	Min     string   `json:"min,omitempty"`
	Max     string   `json:"max,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// Item is a point-in-time view of one knob. Values are rendered as the strings Set accepts.
type Item struct {
	Key          string    `json:"key"`
	Type         Type      `json:"type"`
	Value        string    `json:"value"`
	DefaultValue string    `json:"default"`
	Source       Source    `json:"source"`
	LastUpdated  time.Time `json:"last_updated"`

	Constraints Constraints `json:"constraints"`
}

// Snapshot is a view of every knob, sorted by key.
type Snapshot struct {
	Items []Item `json:"items"`
}
