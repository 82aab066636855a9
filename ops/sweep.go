package ops

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evan-idocoding/zhaptic/rt/sweep"
)

// Sweeper is the part of *sweep.Sweeper the sweep handlers use.
type Sweeper interface {
	SweepNow() int
	Status() sweep.Status
}

type sweepStatusResponse struct {
	OK     bool         `json:"ok"`
	Status sweep.Status `json:"status"`
}

// SweepStatusHandler reports the idle sweeper status.
func SweepStatusHandler(s Sweeper, opts ...Option) http.Handler {
	if s == nil {
		panic("ops: nil Sweeper")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r, format) {
			return
		}
		st := s.Status()
		write(w, r, format, http.StatusOK, sweepStatusResponse{OK: true, Status: st}, func(b *strings.Builder) {
			writeSweepStatus(b, st)
		})
	})
}

type sweepRunResponse struct {
	OK      bool         `json:"ok"`
	Decayed int          `json:"decayed"`
	Status  sweep.Status `json:"status"`
}

// SweepRunHandler runs one sweep now. POST only.
func SweepRunHandler(s Sweeper, opts ...Option) http.Handler {
	if s == nil {
		panic("ops: nil Sweeper")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowWrite(w, r, format) {
			return
		}
		n := s.SweepNow()
		st := s.Status()
		write(w, r, format, http.StatusOK, sweepRunResponse{OK: true, Decayed: n, Status: st}, func(b *strings.Builder) {
			line(b, "sweep", "decayed", strconv.Itoa(n))
			writeSweepStatus(b, st)
		})
	})
}

func writeSweepStatus(b *strings.Builder, st sweep.Status) {
	line(b, "sweep", "state", st.State.String())
	line(b, "sweep", "interval", st.Interval.String())
	line(b, "sweep", "window", st.Window.String())
	line(b, "sweep", "runs", u64(st.Runs))
	line(b, "sweep", "decayed_total", u64(st.Decayed))
	line(b, "sweep", "panics", u64(st.Panics))
	if !st.LastRun.IsZero() {
		line(b, "sweep", "last_run", st.LastRun.UTC().Format(time.RFC3339Nano))
	}
}
