// Package sqlite persists episodes in a single-file SQLite database using the
// pure-Go modernc.org driver, so no cgo toolchain is required. Step payloads
// are stored as JSON columns; the schema is embedded and applied on open.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/episode"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Options configures a Store.
type Options struct {
	// BusyTimeout is how long a blocked connection waits for the write lock
	// before failing.
	BusyTimeout time.Duration
}

// Store is a durable EpisodeStore backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and applies the
// embedded schema. The connection runs in WAL mode with a busy timeout and
// foreign keys enabled.
func New(path string, optFns ...func(o *Options)) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	opts := Options{BusyTimeout: 5 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer keeps the pure-Go driver free of SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(context.Background(), opts.BusyTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context, busyTimeout time.Duration) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Create persists the episode header plus any steps it already carries. It
// fails when an episode with the same id exists.
func (s *Store) Create(ctx context.Context, ep *core.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("episode must have a non-empty id")
	}

	clone := ep.Clone()

	stateJSON, err := json.Marshal(clone.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	metadataJSON, err := json.Marshal(clone.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE id = ?`, clone.ID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		err = fmt.Errorf("episode %q already exists", clone.ID)
		return err
	}

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO episodes (id, state_json, metadata_json, started_at, updated_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		clone.ID,
		string(stateJSON),
		string(metadataJSON),
		clone.Started.UTC(),
		clone.Updated.UTC(),
		nullableTime(clone.Ended),
	); err != nil {
		return err
	}

	for _, rec := range clone.Steps {
		if err = insertStepTx(ctx, tx, clone.ID, rec); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get loads the episode with its full step history.
func (s *Store) Get(ctx context.Context, id string) (*core.Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, state_json, metadata_json, started_at, updated_at, ended_at
		 FROM episodes
		 WHERE id = ?`,
		id,
	)

	var (
		ep           core.Episode
		stateJSON    string
		metadataJSON string
		ended        sql.NullTime
	)
	if err := row.Scan(&ep.ID, &stateJSON, &metadataJSON, &ep.Started, &ep.Updated, &ended); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		}
		return nil, err
	}
	if ended.Valid {
		ep.Ended = ended.Time
	}
	if err := json.Unmarshal([]byte(stateJSON), &ep.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &ep.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT record_json FROM steps WHERE episode_id = ? ORDER BY step ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ep.Steps = make([]core.StepRecord, 0)
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, err
		}
		var rec core.StepRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal step: %w", err)
		}
		ep.Steps = append(ep.Steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ep, nil
}

// AppendStep adds one step record to the episode's history and bumps its
// updated timestamp.
func (s *Store) AppendStep(ctx context.Context, id string, rec core.StepRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		err = fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		return err
	}

	if err = insertStepTx(ctx, tx, id, rec); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE episodes SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return err
	}

	return tx.Commit()
}

// List returns all stored episode ids sorted alphabetically.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM episodes ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the episode and, via the cascading foreign key, its steps.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
	}
	return nil
}

func insertStepTx(ctx context.Context, tx *sql.Tx, episodeID string, rec core.StepRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal step: %w", err)
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO steps (episode_id, step, record_json) VALUES (?, ?, ?)`,
		episodeID,
		rec.Step,
		string(recordJSON),
	)
	return err
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
