package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/taskflow/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// defaultListLimit bounds ListChangeEvents when the caller passes no limit.
const defaultListLimit = 50

// Journal is the session activity log. It lives in a private in-memory
// database and is gone when the process exits.
type Journal struct {
	db   *sql.DB
	name string
}

// OpenInMemory opens a fresh, uniquely named in-memory journal.
func OpenInMemory() (*Journal, error) {
	name := uuid.NewString()
	db, err := sql.Open(driverName, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Shared-cache memory databases disappear with their last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)
	j := &Journal{db: db, name: name}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the requested operation.
func (j *Journal) Close() error {
	return j.db.Close()
}

// migrate handles migrate.
func (j *Journal) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			task_id TEXT NOT NULL,
			task_title TEXT NOT NULL DEFAULT '',
			from_column_id TEXT NOT NULL DEFAULT '',
			from_index INTEGER NOT NULL DEFAULT -1,
			to_column_id TEXT NOT NULL DEFAULT '',
			to_index INTEGER NOT NULL DEFAULT -1,
			actor TEXT NOT NULL DEFAULT 'system',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created_at ON change_events(created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_task ON change_events(task_id, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Record stores one change event. A zero ID lets sqlite assign one.
func (j *Journal) Record(ctx context.Context, event domain.ChangeEvent) error {
	_, err := j.AppendChangeEvent(ctx, event)
	return err
}

// AppendChangeEvent inserts a change-event ledger record and returns its id.
func (j *Journal) AppendChangeEvent(ctx context.Context, event domain.ChangeEvent) (int64, error) {
	if strings.TrimSpace(event.TaskID) == "" {
		return 0, fmt.Errorf("change event task id: %w", domain.ErrInvalidID)
	}
	var id any
	if event.ID > 0 {
		id = event.ID
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO change_events(id, operation, task_id, task_title, from_column_id, from_index, to_column_id, to_index, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		string(normalizeChangeOperation(string(event.Operation))),
		event.TaskID,
		event.TaskTitle,
		event.FromColumnID,
		event.FromIndex,
		event.ToColumnID,
		event.ToIndex,
		chooseActor(event.Actor, "system"),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return 0, fmt.Errorf("insert change event: %w", err)
	}
	return res.LastInsertId()
}

// ListChangeEvents lists recent events for activity-log consumption, newest first.
func (j *Journal) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, operation, task_id, task_title, from_column_id, from_index, to_column_id, to_index, actor, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event      domain.ChangeEvent
			opRaw      string
			createdRaw string
		)
		if err := rows.Scan(
			&event.ID,
			&opRaw,
			&event.TaskID,
			&event.TaskTitle,
			&event.FromColumnID,
			&event.FromIndex,
			&event.ToColumnID,
			&event.ToIndex,
			&event.Actor,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// CountChangeEvents reports how many events the journal holds.
func (j *Journal) CountChangeEvents(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_events`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// chooseActor returns the first non-empty candidate.
func chooseActor(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// normalizeChangeOperation maps stored text back onto a known operation.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch op := domain.ChangeOperation(strings.ToLower(strings.TrimSpace(raw))); op {
	case domain.ChangeOperationCreate, domain.ChangeOperationUpdate, domain.ChangeOperationMove, domain.ChangeOperationDelete:
		return op
	default:
		return domain.ChangeOperationUpdate
	}
}

// normalizeEventTS defaults zero timestamps to now.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
