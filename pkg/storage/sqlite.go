package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// SQLiteStore is a Store backed by a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store              = (*SQLiteStore)(nil)
	_ critical.Persister = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path, applies the
// WAL pragmas, and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS critical_context (
			id             TEXT PRIMARY KEY,
			type           TEXT NOT NULL,
			content        TEXT NOT NULL,
			reason         TEXT NOT NULL DEFAULT '',
			source         TEXT NOT NULL DEFAULT '',
			never_compress INTEGER NOT NULL DEFAULT 1,
			created_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS health_history (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at          TEXT NOT NULL,
			health               TEXT NOT NULL,
			utilization_percent  REAL NOT NULL,
			drift_score          REAL NOT NULL,
			compaction_triggered INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_health_history_recorded_at
			ON health_history(recorded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveCritical inserts or replaces the pinned item.
func (s *SQLiteStore) SaveCritical(ctx context.Context, item critical.Item) error {
	const q = `
		INSERT OR REPLACE INTO critical_context
			(id, type, content, reason, source, never_compress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		item.ID,
		string(item.Type),
		item.Content,
		item.Reason,
		item.Source,
		boolToInt(item.NeverCompress),
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage: save critical item: %w", err)
	}
	return nil
}

// DeleteCritical removes the pinned item with the given ID.
func (s *SQLiteStore) DeleteCritical(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM critical_context WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete critical item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete critical item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCritical returns all pinned items in insertion order.
func (s *SQLiteStore) ListCritical(ctx context.Context) ([]critical.Item, error) {
	const q = `
		SELECT id, type, content, reason, source, never_compress, created_at
		FROM critical_context
		ORDER BY rowid
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("storage: list critical items: %w", err)
	}
	defer rows.Close()

	var items []critical.Item
	for rows.Next() {
		var (
			item          critical.Item
			typ           string
			neverCompress int
			createdAt     string
		)
		if err := rows.Scan(&item.ID, &typ, &item.Content, &item.Reason,
			&item.Source, &neverCompress, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scan critical item: %w", err)
		}
		item.Type = critical.Type(typ)
		item.NeverCompress = neverCompress != 0
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("storage: parse created_at: %w", err)
		}
		item.CreatedAt = ts
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list critical items: %w", err)
	}
	return items, nil
}

// AppendHealth records one snapshot.
func (s *SQLiteStore) AppendHealth(ctx context.Context, snap health.Snapshot) error {
	const q = `
		INSERT INTO health_history
			(recorded_at, health, utilization_percent, drift_score, compaction_triggered)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		snap.Timestamp.UTC().Format(time.RFC3339Nano),
		string(snap.Health),
		snap.UtilizationPercent,
		snap.DriftScore,
		boolToInt(snap.CompactionTriggered),
	)
	if err != nil {
		return fmt.Errorf("storage: append health snapshot: %w", err)
	}
	return nil
}

// ListHealth returns the most recent snapshots in chronological order.
func (s *SQLiteStore) ListHealth(ctx context.Context, limit int) ([]health.Snapshot, error) {
	q := `
		SELECT recorded_at, health, utilization_percent, drift_score, compaction_triggered
		FROM health_history
		ORDER BY id DESC
	`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list health history: %w", err)
	}
	defer rows.Close()

	var snaps []health.Snapshot
	for rows.Next() {
		var (
			snap       health.Snapshot
			recordedAt string
			status     string
			triggered  int
		)
		if err := rows.Scan(&recordedAt, &status, &snap.UtilizationPercent,
			&snap.DriftScore, &triggered); err != nil {
			return nil, fmt.Errorf("storage: scan health snapshot: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("storage: parse recorded_at: %w", err)
		}
		snap.Timestamp = ts
		snap.Health = health.Status(status)
		snap.CompactionTriggered = triggered != 0
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list health history: %w", err)
	}

	// Rows come back newest first; flip to chronological.
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
