package ops

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evan-idocoding/zhaptic/journal"
)

// JournalReader is the read side of *journal.Journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Counts(ctx context.Context) (map[string]uint64, error)
	Stats() journal.Stats
}

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
)

type journalResponse struct {
	OK      bool              `json:"ok"`
	Counts  map[string]uint64 `json:"counts"`
	Stats   journal.Stats     `json:"stats"`
	Entries []journal.Entry   `json:"entries"`
}

// JournalRecentHandler lists the newest journal entries, newest first.
//
// ?limit= defaults to 50 and is capped at 1000.
func JournalRecentHandler(j JournalReader, opts ...Option) http.Handler {
	if j == nil {
		panic("ops: nil JournalReader")
	}
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r, format) {
			return
		}
		limit := defaultJournalLimit
		if raw, ok := queryValue(r, "limit"); ok && raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, r, format, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(n, maxJournalLimit)
		}

		entries, err := j.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, r, format, http.StatusInternalServerError, err.Error())
			return
		}
		counts, err := j.Counts(r.Context())
		if err != nil {
			writeError(w, r, format, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		resp := journalResponse{OK: true, Counts: counts, Stats: j.Stats(), Entries: entries}
		write(w, r, format, http.StatusOK, resp, func(b *strings.Builder) {
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				line(b, "count", k, u64(counts[k]))
			}
			line(b, "stats", "dropped", u64(resp.Stats.Dropped))
			for _, e := range entries {
				ok := "ok"
				if !e.OK {
					ok = "fail"
				}
				line(b,
					e.At.UTC().Format(time.RFC3339Nano),
					e.Kind,
					e.Style.String(),
					strconv.FormatFloat(e.Intensity, 'g', -1, 64),
					ok,
					e.State,
				)
			}
		})
	})
}
