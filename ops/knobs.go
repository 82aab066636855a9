package ops

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/evan-idocoding/zhaptic/rt/knobs"
)

// WithKnobAllowKeys restricts KnobSetHandler and KnobResetHandler to the given keys. Other
// keys get 403. Without it every knob is writable.
func WithKnobAllowKeys(keys ...string) Option {
	return func(c *config) {
		c.allowKeys = make(map[string]bool, len(keys))
		for _, k := range keys {
			c.allowKeys[k] = true
		}
	}
}

type knobsSnapshotResponse struct {
	OK    bool         `json:"ok"`
	Items []knobs.Item `json:"items"`
}

// KnobsSnapshotHandler lists every knob.
//
// Text output:
//
//	<key>	<value>	default=<v>	source=<default|runtime-set>
func KnobsSnapshotHandler(k *knobs.Knobs, opts ...Option) http.Handler {
	if k == nil {
		panic("ops: nil knobs.Knobs")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r, format) {
			return
		}
		items := k.Snapshot().Items
		write(w, r, format, http.StatusOK, knobsSnapshotResponse{OK: true, Items: items}, func(b *strings.Builder) {
			for _, it := range items {
				writeKnobLine(b, it)
			}
		})
	})
}

func writeKnobLine(b *strings.Builder, it knobs.Item) {
	fields := []string{it.Key, it.Value, "default=" + it.DefaultValue, "source=" + it.Source.String()}
	if !it.LastUpdated.IsZero() {
		fields = append(fields, "updated="+it.LastUpdated.UTC().Format(time.RFC3339))
	}
	line(b, fields...)
}

type knobWriteResponse struct {
	OK  bool        `json:"ok"`
	Key string      `json:"key"`
	Old *knobs.Item `json:"old,omitempty"`
	New *knobs.Item `json:"new,omitempty"`
}

// KnobSetHandler sets ?key= to ?value=. POST only.
//
// 400 for a missing key or an invalid value, 403 for a key outside WithKnobAllowKeys, and 404
// for an unknown key.
func KnobSetHandler(k *knobs.Knobs, opts ...Option) http.Handler {
	if k == nil {
		panic("ops: nil knobs.Knobs")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowWrite(w, r, format) {
			return
		}
		key, ok := knobKeyFromRequest(w, r, format, cfg)
		if !ok {
			return
		}
		value, ok := queryValue(r, "value")
		if !ok {
			writeError(w, r, format, http.StatusBadRequest, "missing value")
			return
		}
		applyKnobWrite(w, r, format, k, key, func() error { return k.Set(key, value) })
	})
}

// KnobResetHandler restores ?key= to its default. POST only.
func KnobResetHandler(k *knobs.Knobs, opts ...Option) http.Handler {
	if k == nil {
		panic("ops: nil knobs.Knobs")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowWrite(w, r, format) {
			return
		}
		key, ok := knobKeyFromRequest(w, r, format, cfg)
		if !ok {
			return
		}
		applyKnobWrite(w, r, format, k, key, func() error { return k.Reset(key) })
	})
}

func knobKeyFromRequest(w http.ResponseWriter, r *http.Request, f Format, cfg config) (string, bool) {
	key, ok := queryValue(r, "key")
	if !ok || key == "" {
		writeError(w, r, f, http.StatusBadRequest, "missing key")
		return "", false
	}
	if cfg.allowKeys != nil && !cfg.allowKeys[key] {
		writeError(w, r, f, http.StatusForbidden, "key not allowed")
		return "", false
	}
	return key, true
}

func applyKnobWrite(w http.ResponseWriter, r *http.Request, f Format, k *knobs.Knobs, key string, apply func() error) {
	old, found := k.Lookup(key)
	if !found {
		writeError(w, r, f, http.StatusNotFound, "key not found")
		return
	}
	if err := apply(); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, knobs.ErrInvalidValue):
			code = http.StatusBadRequest
		case errors.Is(err, knobs.ErrNotFound):
			code = http.StatusNotFound
		}
		writeError(w, r, f, code, err.Error())
		return
	}
	cur, _ := k.Lookup(key)
	write(w, r, f, http.StatusOK, knobWriteResponse{OK: true, Key: key, Old: &old, New: &cur}, func(b *strings.Builder) {
		line(b, "knob", key, "old", old.Value)
		line(b, "knob", key, "new", cur.Value)
	})
}
