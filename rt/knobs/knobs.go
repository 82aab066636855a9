package knobs

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
)

// Ranges.
const (
	MinFreshnessWindow = 10 * time.Millisecond
	MaxFreshnessWindow = time.Minute

	MinSweepInterval = 100 * time.Millisecond
	MaxSweepInterval = 10 * time.Minute

	DefaultSweepInterval = 5 * time.Second
)

var levelNames = []string{"debug", "info", "warn", "error"}

type defaults struct {
	window    time.Duration
	intensity float64
	interval  time.Duration
	level     slog.Level
}

// Option sets the default value of a knob. Defaults are validated by New.
type Option func(*defaults)

func WithFreshnessWindow(d time.Duration) Option {
	return func(c *defaults) { c.window = d }
}

func WithDefaultIntensity(f float64) Option {
	return func(c *defaults) { c.intensity = f }
}

func WithSweepInterval(d time.Duration) Option {
	return func(c *defaults) { c.interval = d }
}

func WithLogLevel(l slog.Level) Option {
	return func(c *defaults) { c.level = l }
}

// knob is implemented by every knob kind.
type knob interface {
	key() string
	setString(string) error
	reset()
	item() Item
}

// Knobs is the registry. Create it with New.
type Knobs struct {
	writeMu sync.Mutex
	byKey   map[string]knob

	window    *durationKnob
	intensity *floatKnob
	interval  *durationKnob
	level     *levelKnob
}

// New creates the knob registry. It returns an error wrapping ErrInvalidValue if a default
// is out of range.
func New(opts ...Option) (*Knobs, error) {
	d := defaults{
		window:    feedback.DefaultFreshnessWindow,
		intensity: feedback.DefaultIntensity,
		interval:  DefaultSweepInterval,
		level:     slog.LevelInfo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}

	k := &Knobs{
		window:    newDurationKnob(KeyFreshnessWindow, d.window, MinFreshnessWindow, MaxFreshnessWindow),
		intensity: newFloatKnob(KeyDefaultIntensity, d.intensity, 0, 1),
		interval:  newDurationKnob(KeySweepInterval, d.interval, MinSweepInterval, MaxSweepInterval),
		level:     newLevelKnob(KeyLogLevel, d.level),
	}
	if err := k.window.validate(d.window); err != nil {
		return nil, err
	}
	if err := k.intensity.validate(d.intensity); err != nil {
		return nil, err
	}
	if err := k.interval.validate(d.interval); err != nil {
		return nil, err
	}
	if _, ok := levelName(d.level); !ok {
		return nil, fmt.Errorf("%w: %s: unsupported level %v", ErrInvalidValue, KeyLogLevel, d.level)
	}

	k.byKey = map[string]knob{}
	for _, kn := range []knob{k.window, k.intensity, k.interval, k.level} {
		k.byKey[kn.key()] = kn
	}
	return k, nil
}

// FreshnessWindow returns the current freshness window.
func (k *Knobs) FreshnessWindow() time.Duration { return k.window.get() }

// DefaultIntensity returns the intensity used when a trigger does not specify one.
func (k *Knobs) DefaultIntensity() float64 { return k.intensity.get() }

// SweepInterval returns the current idle sweep interval.
func (k *Knobs) SweepInterval() time.Duration { return k.interval.get() }

// LogLevel returns the LevelVar bound to log.level.
func (k *Knobs) LogLevel() *slog.LevelVar { return &k.level.v }

// Set parses value and applies it to key.
func (k *Knobs) Set(key, value string) error {
	kn, ok := k.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	return kn.setString(value)
}

// Reset restores key to its default.
func (k *Knobs) Reset(key string) error {
	kn, ok := k.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	kn.reset()
	return nil
}

// Lookup returns the current view of a single knob.
func (k *Knobs) Lookup(key string) (Item, bool) {
	kn, ok := k.byKey[key]
	if !ok {
		return Item{}, false
	}
	return kn.item(), true
}

// Keys returns every knob key, sorted.
func (k *Knobs) Keys() []string {
	out := make([]string, 0, len(k.byKey))
	for key := range k.byKey {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns every knob, sorted by key.
func (k *Knobs) Snapshot() Snapshot {
	keys := k.Keys()
	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, k.byKey[key].item())
	}
	return Snapshot{Items: items}
}

// stamp tracks the last runtime write. Zero means never.
type stamp struct{ ns atomic.Int64 }

func (s *stamp) touch() { s.ns.Store(time.Now().UnixNano()) }

func (s *stamp) time() time.Time {
	ns := s.ns.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

type durationKnob struct {
	k        string
	def      time.Duration
	min, max time.Duration
	cur      atomic.Int64
	updated  stamp
}

func newDurationKnob(key string, def, min, max time.Duration) *durationKnob {
	d := &durationKnob{k: key, def: def, min: min, max: max}
	d.cur.Store(int64(def))
	return d
}

func (d *durationKnob) key() string        { return d.k }
func (d *durationKnob) get() time.Duration { return time.Duration(d.cur.Load()) }

func (d *durationKnob) validate(v time.Duration) error {
	if v < d.min || v > d.max {
		return fmt.Errorf("%w: %s: %v out of range [%v, %v]", ErrInvalidValue, d.k, v, d.min, d.max)
	}
	return nil
}

func (d *durationKnob) setString(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, d.k, err)
	}
	if err := d.validate(v); err != nil {
		return err
	}
	d.cur.Store(int64(v))
	d.updated.touch()
	return nil
}

func (d *durationKnob) reset() {
	d.cur.Store(int64(d.def))
	d.updated.touch()
}

func (d *durationKnob) item() Item {
	cur := d.get()
	return Item{
		Key:          d.k,
		Type:         TypeDuration,
		Value:        cur.String(),
		DefaultValue: d.def.String(),
		Source:       sourceOf(cur == d.def),
		LastUpdated:  d.updated.time(),
		Constraints:  Constraints{Min: d.min.String(), Max: d.max.String()},
	}
}

type floatKnob struct {
	k        string
	def      float64
	min, max float64
	bits     atomic.Uint64
	updated  stamp
}

func newFloatKnob(key string, def, min, max float64) *floatKnob {
	f := &floatKnob{k: key, def: def, min: min, max: max}
	f.bits.Store(math.Float64bits(def))
	return f
}

func (f *floatKnob) key() string  { return f.k }
func (f *floatKnob) get() float64 { return math.Float64frombits(f.bits.Load()) }

func (f *floatKnob) validate(v float64) error {
	if math.IsNaN(v) || v < f.min || v > f.max {
		return fmt.Errorf("%w: %s: %v out of range [%v, %v]", ErrInvalidValue, f.k, v, f.min, f.max)
	}
	return nil
}

func (f *floatKnob) setString(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.k, err)
	}
	if err := f.validate(v); err != nil {
		return err
	}
	f.bits.Store(math.Float64bits(v))
	f.updated.touch()
	return nil
}

func (f *floatKnob) reset() {
	f.bits.Store(math.Float64bits(f.def))
	f.updated.touch()
}

func (f *floatKnob) item() Item {
	cur := f.get()
	return Item{
		Key:          f.k,
		Type:         TypeFloat64,
		Value:        formatFloat(cur),
		DefaultValue: formatFloat(f.def),
		Source:       sourceOf(cur == f.def),
		LastUpdated:  f.updated.time(),
		Constraints:  Constraints{Min: formatFloat(f.min), Max: formatFloat(f.max)},
	}
}

type levelKnob struct {
	k       string
	def     slog.Level
	v       slog.LevelVar
	updated stamp
}

func newLevelKnob(key string, def slog.Level) *levelKnob {
	l := &levelKnob{k: key, def: def}
	l.v.Set(def)
	return l
}

func (l *levelKnob) key() string { return l.k }

func (l *levelKnob) setString(s string) error {
	lv, ok := parseLevel(s)
	if !ok {
		return fmt.Errorf("%w: %s: %q (allowed: %s)", ErrInvalidValue, l.k, s, strings.Join(levelNames, ", "))
	}
	l.v.Set(lv)
	l.updated.touch()
	return nil
}

func (l *levelKnob) reset() {
	l.v.Set(l.def)
	l.updated.touch()
}

func (l *levelKnob) item() Item {
	cur := l.v.Level()
	name, _ := levelName(cur)
	def, _ := levelName(l.def)
	return Item{
		Key:          l.k,
		Type:         TypeEnum,
		Value:        name,
		DefaultValue: def,
		Source:       sourceOf(cur == l.def),
		LastUpdated:  l.updated.time(),
		Constraints:  Constraints{Allowed: append([]string(nil), levelNames...)},
	}
}

// ParseLevel parses debug|info|warn|error (case-insensitive; "warning" is accepted).
func ParseLevel(s string) (slog.Level, error) {
	lv, ok := parseLevel(s)
	if !ok {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidValue, s)
	}
	return lv, nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelName(l slog.Level) (string, bool) {
	switch l {
	case slog.LevelDebug:
		return "debug", true
	case slog.LevelInfo:
		return "info", true
	case slog.LevelWarn:
		return "warn", true
	case slog.LevelError:
		return "error", true
	default:
		return l.String(), false
	}
}

func sourceOf(isDefault bool) Source {
	if isDefault {
		return SourceDefault
	}
	return SourceRuntimeSet
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
