package journal

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
)

func TestWriter_SurvivesInsertPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := Open(ctx, filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	var calls atomic.Int64
	j.insert = func(events []feedback.Event) error {
		if calls.Add(1) == 1 {
			panic("insert boom")
		}
		return j.insertEvents(events)
	}

	ev := feedback.Event{Kind: feedback.EventFire, Style: feedback.Heavy, At: time.Unix(1, 0), OK: true, State: feedback.Ready}
	j.Hook()(ev)
	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush after panic: %v", err)
	}
	if st := j.Stats(); st.WriteErrors != 1 || st.Written != 0 {
		t.Fatalf("stats=%+v", st)
	}

	j.Hook()(ev)
	if err := j.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if st := j.Stats(); st.Written != 1 {
		t.Fatalf("writer stopped after panic: stats=%+v", st)
	}
	counts, err := j.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["fire"] != 1 {
		t.Fatalf("counts=%v", counts)
	}
}
