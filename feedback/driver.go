package feedback

// Driver is the actuator backend.
//
// Implementations must be safe for concurrent use and must not block: Session calls them while
// holding its lock. If a concrete backend can block, wrap it (see package driver/dispatch).
type Driver interface {
	// SupportsStyle is a pure capability query. It is called on every Prepare/Trigger,
	// so it must be cheap and free of side effects.
	SupportsStyle(style Style) bool

	// WarmUp prepares the actuator so that the next Fire has lower latency.
	// The return value is advisory: true means the driver accepted the warm-up.
	WarmUp() bool

	// Fire emits one impact. intensity is always within [0, 1].
	// The return value is advisory: false means the impact was not emitted.
	Fire(style Style, intensity float64) bool
}

// NopDriver is a Driver for hardware without an actuator.
//
// It supports no style, so sessions backed by it never leave Cold and never fire.
type NopDriver struct{}

func (NopDriver) SupportsStyle(Style) bool { return false }
func (NopDriver) WarmUp() bool             { return false }
func (NopDriver) Fire(Style, float64) bool { return false }

var _ Driver = NopDriver{}
