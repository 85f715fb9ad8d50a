package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteTrail persists the trail in a single SQLite database. Appends
// are serialized through a mutex so concurrent executors cannot race on
// the same plan_id; the UNIQUE constraint backs the idempotency gate
// even across processes.
type SQLiteTrail struct {
	db *sql.DB

	mu sync.Mutex // guards appends

	wmu      sync.Mutex
	watchers map[int]chan Record
	nextID   int
}

// SQLiteConfig holds configuration for the SQLite trail
type SQLiteConfig struct {
	Path string
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/audit.db",
	}
}

// NewSQLiteTrail opens (or creates) the trail database at cfg.Path.
func NewSQLiteTrail(cfg SQLiteConfig) (*SQLiteTrail, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	t := &SQLiteTrail{db: db, watchers: make(map[int]chan Record)}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return t, nil
}

func (t *SQLiteTrail) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(plan_id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_records_plan_id ON records(plan_id);
	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	`
	_, err := t.db.Exec(schema)
	return err
}

// Append writes one record to the trail.
func (t *SQLiteTrail) Append(ctx context.Context, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.ID == "" || rec.PlanID == "" || rec.Kind == "" {
		return fmt.Errorf("audit record incomplete: id=%q plan_id=%q kind=%q", rec.ID, rec.PlanID, rec.Kind)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO records (id, plan_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.PlanID, string(rec.Kind), string(rec.Payload), rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: plan %s kind %s", ErrDuplicate, rec.PlanID, rec.Kind)
		}
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	t.notify(rec)
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Query retrieves records in append order.
func (t *SQLiteTrail) Query(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT id, plan_id, kind, payload, created_at FROM records WHERE 1=1`
	var args []any

	if f.PlanID != "" {
		query += ` AND plan_id = ?`
		args = append(args, f.PlanID)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if !f.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.Since)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var kind, payload string
		if err := rows.Scan(&rec.ID, &rec.PlanID, &kind, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Kind = RecordKind(kind)
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HasResult reports whether planID already has an execution result.
func (t *SQLiteTrail) HasResult(ctx context.Context, planID string) (bool, error) {
	var count int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE plan_id = ? AND kind = ?`,
		planID, string(KindResult)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for result: %w", err)
	}
	return count > 0, nil
}

// Watch subscribes to new records.
func (t *SQLiteTrail) Watch() (<-chan Record, func()) {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan Record, 64)
	t.watchers[id] = ch

	stop := func() {
		t.wmu.Lock()
		defer t.wmu.Unlock()
		if c, ok := t.watchers[id]; ok {
			delete(t.watchers, id)
			close(c)
		}
	}
	return ch, stop
}

func (t *SQLiteTrail) notify(rec Record) {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	for _, ch := range t.watchers {
		select {
		case ch <- rec:
		default:
			// Slow consumer: drop rather than block the append path.
		}
	}
}

// Close shuts down the trail and all watch subscriptions.
func (t *SQLiteTrail) Close() error {
	t.wmu.Lock()
	for id, ch := range t.watchers {
		delete(t.watchers, id)
		close(ch)
	}
	t.wmu.Unlock()
	return t.db.Close()
}

var _ Trail = (*SQLiteTrail)(nil)
