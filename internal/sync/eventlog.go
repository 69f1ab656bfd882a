package syncx

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Event types appended by the tracker service.
const (
	UserRegistered    = "UserRegistered"
	UserRoleChanged   = "UserRoleChanged"
	UserDeleted       = "UserDeleted"
	SubjectCreated    = "SubjectCreated"
	SubjectUpdated    = "SubjectUpdated"
	SubjectDeleted    = "SubjectDeleted"
	AssessmentCreated = "AssessmentCreated"
	AssessmentUpdated = "AssessmentUpdated"
	AssessmentDeleted = "AssessmentDeleted"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`  // natural key, e.g. "subject:12"
	DataJSON  string `json:"data"` // JSON payload
	CreatedAt int64  `json:"created_at"`
}

// Log is an append-only audit trail of mutations.
type Log interface {
	Append(ctx context.Context, e Event) error
	// List returns newest first; an empty key lists everything.
	List(ctx context.Context, key string, limit int) ([]Event, error)
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

func (r *EventRepo) List(ctx context.Context, key string, limit int) ([]Event, error) {
	limit = clampLimit(limit)
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq, site_id, typ, key, data, created_at FROM event_log ORDER BY seq DESC LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq, site_id, typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY seq DESC LIMIT $2`, key, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryLog keeps events in process; used with the in-memory store.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (m *MemoryLog) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	e.Seq = int64(len(m.events)) + 1
	e.CreatedAt = time.Now().Unix()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryLog) List(_ context.Context, key string, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if key == "" || m.events[i].Key == key {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func clampLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}
