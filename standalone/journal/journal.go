// Package journal records keepout activation transitions in SQLite
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"atcguard/standalone/keepout"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id      TEXT PRIMARY KEY,
	at_ns   INTEGER NOT NULL,
	enabled INTEGER NOT NULL,
	source  TEXT NOT NULL
)`

const schemaIndex = `CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at_ns)`

// Entry is one recorded transition
type Entry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Enabled bool      `json:"enabled"`
	Source  string    `json:"source"`
}

// Journal appends transitions to a transitions table
type Journal struct {
	db  *sql.DB
	now func() time.Time

	// observer queue, drained by one writer goroutine
	mu     sync.Mutex
	queue  chan pending
	done   chan struct{}
	closed bool
}

// QueueSize is how many transitions Observer buffers before dropping
const QueueSize = 64

type pending struct {
	at      time.Time
	enabled bool
	source  keepout.Source
	ack     chan struct{} // flush marker, no row
}

// Open opens (creating if needed) the journal database at path
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection so ":memory:" databases are shared
	db.SetMaxOpenConns(1)

	j, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New uses an already open database, creating the table if needed
func New(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	if _, err := db.Exec(schemaIndex); err != nil {
		return nil, fmt.Errorf("create journal index: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Record appends one transition
func (j *Journal) Record(enabled bool, source keepout.Source) (Entry, error) {
	return j.insert(j.now(), enabled, source)
}

func (j *Journal) insert(at time.Time, enabled bool, source keepout.Source) (Entry, error) {
	e := Entry{
		ID:      uuid.New().String(),
		At:      at.UTC(),
		Enabled: enabled,
		Source:  source.String(),
	}
	flag := 0
	if enabled {
		flag = 1
	}
	_, err := j.db.Exec(
		`INSERT INTO transitions (id, at_ns, enabled, source) VALUES (?, ?, ?, ?)`,
		e.ID, e.At.UnixNano(), flag, e.Source,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record transition: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(
		`SELECT id, at_ns, enabled, source FROM transitions ORDER BY at_ns DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			atNS int64
			flag int
		)
		if err := rows.Scan(&e.ID, &atNS, &flag, &e.Source); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.At = time.Unix(0, atNS).UTC()
		e.Enabled = flag != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Observer returns a keepout.ChangeFunc that queues every transition for a
// background writer. The callback never waits on the database: when the
// queue is full the transition is dropped with a warning.
func (j *Journal) Observer(logger *slog.Logger) keepout.ChangeFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	j.mu.Lock()
	if j.queue == nil && !j.closed {
		j.queue = make(chan pending, QueueSize)
		j.done = make(chan struct{})
		go j.drain(j.queue, j.done, logger)
	}
	j.mu.Unlock()

	return func(enabled bool, source keepout.Source) {
		p := pending{at: j.now(), enabled: enabled, source: source}

		j.mu.Lock()
		defer j.mu.Unlock()
		if j.closed || j.queue == nil {
			return
		}
		select {
		case j.queue <- p:
		default:
			logger.Warn("journal queue full, keepout transition dropped",
				"enabled", enabled, "source", source.String())
		}
	}
}

func (j *Journal) drain(queue <-chan pending, done chan<- struct{}, logger *slog.Logger) {
	defer close(done)
	for p := range queue {
		if p.ack != nil {
			close(p.ack)
			continue
		}
		if _, err := j.insert(p.at, p.enabled, p.source); err != nil {
			logger.Warn("failed to journal keepout transition", "err", err)
		}
	}
}

// flush waits until everything queued so far is written
func (j *Journal) flush() {
	ack := make(chan struct{})
	j.mu.Lock()
	if j.closed || j.queue == nil {
		j.mu.Unlock()
		return
	}
	j.queue <- pending{ack: ack}
	j.mu.Unlock()
	<-ack
}

// Close stops the writer after it has drained the queue, then closes the
// database. Transitions observed after Close are ignored.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	if j.queue != nil {
		close(j.queue)
	}
	done := j.done
	j.mu.Unlock()

	if done != nil {
		<-done
	}
	return j.db.Close()
}
