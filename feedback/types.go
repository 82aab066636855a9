package feedback

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the warm-up state of a Session.
type State int32

const (
	// Cold is the initial state: never warmed up.
	Cold State = iota
	// Warming is held only while the driver's WarmUp call runs.
	Warming
	// Ready means a warm-up succeeded within the freshness window.
	Ready
	// Decayed means the warm-up expired, or the driver rejected it.
	Decayed
)

func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case Warming:
		return "warming"
	case Ready:
		return "ready"
	case Decayed:
		return "decayed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Result describes the outcome of a Trigger. It is informational, never an error.
type Result int

const (
	// ResultFired means the driver emitted the impact.
	ResultFired Result = iota
	// ResultDropped means the driver reported that the impact was not emitted. It is not retried.
	ResultDropped
	// ResultUnsupported means the style is not supported; the driver was not called.
	ResultUnsupported
)

func (r Result) String() string {
	switch r {
	case ResultFired:
		return "fired"
	case ResultDropped:
		return "dropped"
	case ResultUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventWarmUp EventKind = iota
	EventFire
	EventSkip
	EventDecay
)

func (k EventKind) String() string {
	switch k {
	case EventWarmUp:
		return "warmup"
	case EventFire:
		return "fire"
	case EventSkip:
		return "skip"
	case EventDecay:
		return "decay"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is delivered to a Hook after a session operation.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID
	Style     Style
	At        time.Time

	// Intensity is the clamped intensity (EventFire and EventSkip from Trigger only).
	Intensity float64
	// OK is the driver's advisory return value (EventWarmUp, EventFire).
	OK bool
	// State is the session state after the operation.
	State State
}

// Hook observes session events.
//
// Hooks are called synchronously while the session lock is held: they must be fast, must not
// block, and must not call back into the same Session. Panics are recovered and swallowed.
type Hook func(Event)

// SessionSnapshot is a point-in-time view of a Session.
type SessionSnapshot struct {
	ID         uuid.UUID `json:"id"`
	Style      Style     `json:"style"`
	State      State     `json:"state"`
	Pooled     bool      `json:"pooled"`
	LastWarmUp time.Time `json:"last_warm_up"`

	Prepares       uint64 `json:"prepares"`
	WarmUps        uint64 `json:"warm_ups"`
	WarmUpFailures uint64 `json:"warm_up_failures"`
	Fires          uint64 `json:"fires"`
	FireFailures   uint64 `json:"fire_failures"`
	Skipped        uint64 `json:"skipped"`
	Decays         uint64 `json:"decays"`
}
