// Package journal records feedback session events into a SQLite database for diagnostics.
//
// A Journal is attached to sessions through Hook. The hook never blocks the session: events are
// queued and written by a single background goroutine in small transactions. When the queue is
// full the event is dropped and counted (see Stats).
//
// The journal is write-only from the point of view of feedback: nothing read back from it ever
// influences session behavior.
//
// The database is opened with the pure-Go modernc.org/sqlite driver. Use ":memory:" for an
// in-process journal.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/rt/safego"
)

var (
	// ErrClosed is returned by operations on a closed Journal.
	ErrClosed = errors.New("journal: closed")
)

const (
	defaultQueueSize = 256
	maxBatch         = 128
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	at_ns      INTEGER NOT NULL,
	kind       TEXT    NOT NULL,
	session_id TEXT    NOT NULL,
	style      TEXT    NOT NULL,
	intensity  REAL    NOT NULL,
	ok         INTEGER NOT NULL,
	state      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS events_kind ON events(kind);
`

// Entry is one recorded event.
type Entry struct {
	ID        int64          `json:"id"`
	At        time.Time      `json:"at"`
	Kind      string         `json:"kind"`
	SessionID string         `json:"session_id"`
	Style     feedback.Style `json:"style"`
	Intensity float64        `json:"intensity"`
	OK        bool           `json:"ok"`
	State     string         `json:"state"`
}

// Stats are cumulative journal counters.
type Stats struct {
	Written     uint64 `json:"written"`
	Dropped     uint64 `json:"dropped"`
	WriteErrors uint64 `json:"write_errors"`
}

type options struct {
	queueSize int
	maxRows   int
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithQueueSize sets the event queue capacity. Values <= 0 are ignored.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithMaxRows keeps at most n rows, pruning the oldest after each write batch. n <= 0 keeps
// everything.
func WithMaxRows(n int) Option {
	return func(o *options) { o.maxRows = n }
}

// WithLogger sets the logger used for write errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type item struct {
	ev  feedback.Event
	ack chan struct{} // non-nil for flush markers
}

// Journal is a SQLite-backed event journal.
type Journal struct {
	db      *sql.DB
	maxRows int
	logger  *slog.Logger
	insert  func([]feedback.Event) error

	mu     sync.RWMutex
	closed bool
	queue  chan item
	done   chan struct{}

	written     atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64
}

// Open opens (creating if needed) the journal at path and starts its writer.
func Open(ctx context.Context, path string, opts ...Option) (*Journal, error) {
	o := options{queueSize: defaultQueueSize, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	j := &Journal{
		db:      db,
		maxRows: o.maxRows,
		logger:  o.logger,
		queue:   make(chan item, o.queueSize),
		done:    make(chan struct{}),
	}
	j.insert = j.insertEvents
	safego.Go(context.Background(), j.run,
		safego.WithName("journal"),
		safego.WithFinally(func() { close(j.done) }),
	)
	return j, nil
}

// Hook returns a feedback.Hook that records events. It never blocks.
func (j *Journal) Hook() feedback.Hook {
	return j.record
}

func (j *Journal) record(ev feedback.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}
	select {
	case j.queue <- item{ev: ev}:
	default:
		j.dropped.Add(1)
	}
}

// Flush waits until every event queued before the call has been written.
func (j *Journal) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrClosed
	}
	select {
	case j.queue <- item{ack: ack}:
		j.mu.RUnlock()
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 means 100.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at_ns, kind, session_id, style, intensity, ok, state
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			atNS  int64
			style string
			ok    int
		)
		if err := rows.Scan(&e.ID, &atNS, &e.Kind, &e.SessionID, &style, &e.Intensity, &ok, &e.State); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.At = time.Unix(0, atNS).UTC()
		e.OK = ok != 0
		if s, err := feedback.ParseStyle(style); err == nil {
			e.Style = s
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate: %w", err)
	}
	return out, nil
}

// Counts returns the number of recorded events per kind ("warmup", "fire", "skip", "decay").
func (j *Journal) Counts(ctx context.Context) (map[string]uint64, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("journal: query counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var (
			kind string
			n    uint64
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate: %w", err)
	}
	return out, nil
}

// Ping checks that the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	j.mu.RLock()
	closed := j.closed
	j.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return j.db.PingContext(ctx)
}

// Stats returns cumulative counters.
func (j *Journal) Stats() Stats {
	return Stats{
		Written:     j.written.Load(),
		Dropped:     j.dropped.Load(),
		WriteErrors: j.writeErrors.Load(),
	}
}

// Close stops accepting events, writes what is queued, and closes the database.
// It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		<-j.done
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}

func (j *Journal) run(context.Context) {
	batch := make([]item, 0, maxBatch)
	for it := range j.queue {
		batch = append(batch[:0], it)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-j.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		j.write(batch)
	}
}

func (j *Journal) write(batch []item) {
	var events []feedback.Event
	for _, it := range batch {
		if it.ack == nil {
			events = append(events, it.ev)
		}
	}
	if len(events) > 0 {
		// A failed or panicking batch is counted once and dropped; the writer keeps going.
		safego.RunErr(context.Background(), func(context.Context) error {
			if err := j.insert(events); err != nil {
				j.writeErrors.Add(1)
				return err
			}
			j.written.Add(uint64(len(events)))
			return nil
		},
			safego.WithName("journal"),
			safego.WithTag("events", strconv.Itoa(len(events))),
			safego.WithPanicCounter(&j.writeErrors),
			safego.WithErrorHandler(func(_ context.Context, info safego.ErrorInfo) {
				j.logger.Warn("journal write failed", slog.Int("events", len(events)), slog.Any("err", info.Err))
			}),
			safego.WithPanicHandler(func(_ context.Context, info safego.PanicInfo) {
				j.logger.Error("journal write panicked", slog.Int("events", len(events)), slog.Any("value", info.Value))
			}),
		)
	}
	for _, it := range batch {
		if it.ack != nil {
			close(it.ack)
		}
	}
}

func (j *Journal) insertEvents(events []feedback.Event) error {
	ctx := context.Background()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// The single connection must be released on every path, panics included.
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (at_ns, kind, session_id, style, intensity, ok, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		ok := 0
		if ev.OK {
			ok = 1
		}
		if _, err := stmt.ExecContext(ctx,
			ev.At.UnixNano(), ev.Kind.String(), ev.SessionID.String(),
			ev.Style.String(), ev.Intensity, ok, ev.State.String(),
		); err != nil {
			return err
		}
	}
	if j.maxRows > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM events WHERE id <= (SELECT MAX(id) FROM events) - ?`, j.maxRows); err != nil {
			return err
		}
	}
	return tx.Commit()
}
