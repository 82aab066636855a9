package ops

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/evan-idocoding/zhaptic/feedback"
)

// SessionSource lists session snapshots. *feedback.Pool implements it.
type SessionSource interface {
	Snapshot() []feedback.SessionSnapshot
}

// Feedback is the part of *feedback.Pool the write handlers drive.
type Feedback interface {
	SessionFor(style feedback.Style) *feedback.Session
}

// WithIntensitySource sets where TriggerHandler reads the intensity used when the request has
// no ?intensity=. Default is feedback.DefaultIntensity. Other handlers ignore it.
func WithIntensitySource(fn func() float64) Option {
	return func(c *config) { c.intensity = fn }
}

type sessionsResponse struct {
	OK       bool                       `json:"ok"`
	Sessions []feedback.SessionSnapshot `json:"sessions"`
}

// SessionsHandler lists the sessions of src.
//
// Text output has one line per session:
//
//	<style>	<state>	id=<uuid>	prepares=N	warm_ups=N	fires=N	...
func SessionsHandler(src SessionSource, opts ...Option) http.Handler {
	if src == nil {
		panic("ops: nil SessionSource")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r, format) {
			return
		}
		snaps := src.Snapshot()
		if snaps == nil {
			snaps = []feedback.SessionSnapshot{}
		}
		write(w, r, format, http.StatusOK, sessionsResponse{OK: true, Sessions: snaps}, func(b *strings.Builder) {
			for _, s := range snaps {
				writeSessionLine(b, s)
			}
		})
	})
}

func writeSessionLine(b *strings.Builder, s feedback.SessionSnapshot) {
	line(b,
		s.Style.String(),
		s.State.String(),
		"id="+s.ID.String(),
		"prepares="+u64(s.Prepares),
		"warm_ups="+u64(s.WarmUps),
		"warm_up_failures="+u64(s.WarmUpFailures),
		"fires="+u64(s.Fires),
		"fire_failures="+u64(s.FireFailures),
		"skipped="+u64(s.Skipped),
		"decays="+u64(s.Decays),
	)
}

type prepareResponse struct {
	OK      bool                     `json:"ok"`
	Session feedback.SessionSnapshot `json:"session"`
}

// PrepareHandler warms up the session for ?style=. POST only.
//
// It answers 200 with the session snapshot whether or not the warm-up succeeded.
func PrepareHandler(fb Feedback, opts ...Option) http.Handler {
	if fb == nil {
		panic("ops: nil Feedback")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowWrite(w, r, format) {
			return
		}
		style, ok := styleFromRequest(w, r, format)
		if !ok {
			return
		}
		s := fb.SessionFor(style)
		s.Prepare()
		snap := s.Snapshot()
		write(w, r, format, http.StatusOK, prepareResponse{OK: true, Session: snap}, func(b *strings.Builder) {
			line(b, "prepare", "style", snap.Style.String())
			line(b, "prepare", "state", snap.State.String())
			line(b, "prepare", "warm_ups", u64(snap.WarmUps))
		})
	})
}

type triggerResponse struct {
	OK        bool            `json:"ok"`
	Style     feedback.Style  `json:"style"`
	Intensity float64         `json:"intensity"`
	Result    feedback.Result `json:"result"`
	State     feedback.State  `json:"state"`
}

// TriggerHandler fires an impact on the session for ?style=, optionally at ?intensity=.
// POST only.
//
// Intensity is clamped to [0, 1]. A dropped or unsupported impact still answers 200.
func TriggerHandler(fb Feedback, opts ...Option) http.Handler {
	if fb == nil {
		panic("ops: nil Feedback")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowWrite(w, r, format) {
			return
		}
		style, ok := styleFromRequest(w, r, format)
		if !ok {
			return
		}

		intensity := feedback.DefaultIntensity
		if cfg.intensity != nil {
			intensity = cfg.intensity()
		}
		if raw, ok := queryValue(r, "intensity"); ok && raw != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				writeError(w, r, format, http.StatusBadRequest, "invalid intensity")
				return
			}
			intensity = v
		}

		s := fb.SessionFor(style)
		res := s.Trigger(intensity)
		resp := triggerResponse{
			OK:        true,
			Style:     style,
			Intensity: feedback.ClampIntensity(intensity),
			Result:    res,
			State:     s.State(),
		}
		write(w, r, format, http.StatusOK, resp, func(b *strings.Builder) {
			line(b, "trigger", "style", resp.Style.String())
			line(b, "trigger", "intensity", strconv.FormatFloat(resp.Intensity, 'g', -1, 64))
			line(b, "trigger", "result", resp.Result.String())
			line(b, "trigger", "state", resp.State.String())
		})
	})
}

func styleFromRequest(w http.ResponseWriter, r *http.Request, f Format) (feedback.Style, bool) {
	raw, ok := queryValue(r, "style")
	if !ok || strings.TrimSpace(raw) == "" {
		writeError(w, r, f, http.StatusBadRequest, "missing style")
		return 0, false
	}
	style, err := feedback.ParseStyle(raw)
	if err != nil {
		writeError(w, r, f, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return style, true
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
