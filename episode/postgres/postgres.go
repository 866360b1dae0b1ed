// Package postgres persists episodes in PostgreSQL via a pgx connection pool.
// Episode state and step records are stored as JSONB; steps cascade-delete
// with their episode.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/episode"
)

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
    id TEXT PRIMARY KEY,
    state JSONB NOT NULL DEFAULT '{}'::jsonb,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    started_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS episode_steps (
    episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    step INTEGER NOT NULL,
    record JSONB NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (episode_id, step)
);
`

// Store is a durable EpisodeStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store. Call EnsureSchema once
// before first use unless the tables are managed externally.
func New(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the episode tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM episodes WHERE id = $1)`, clone.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		err = fmt.Errorf("episode %q already exists", clone.ID)
		return err
	}

	var ended *time.Time
	if !clone.Ended.IsZero() {
		t := clone.Ended.UTC()
		ended = &t
	}

	if _, err = tx.Exec(
		ctx,
		`INSERT INTO episodes (id, state, metadata, started_at, updated_at, ended_at)
		 VALUES ($1, $2::jsonb, $3::jsonb, $4, $5, $6)`,
		clone.ID,
		string(stateJSON),
		string(metadataJSON),
		clone.Started.UTC(),
		clone.Updated.UTC(),
		ended,
	); err != nil {
		return err
	}

	for _, rec := range clone.Steps {
		if err = insertStepTx(ctx, tx, clone.ID, rec); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get loads the episode with its full step history.
func (s *Store) Get(ctx context.Context, id string) (*core.Episode, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT id, state::text, metadata::text, started_at, updated_at, ended_at
		 FROM episodes
		 WHERE id = $1`,
		id,
	)

	var (
		ep           core.Episode
		stateJSON    string
		metadataJSON string
		ended        *time.Time
	)
	if err := row.Scan(&ep.ID, &stateJSON, &metadataJSON, &ep.Started, &ep.Updated, &ended); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		}
		return nil, err
	}
	if ended != nil {
		ep.Ended = *ended
	}
	if err := json.Unmarshal([]byte(stateJSON), &ep.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &ep.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	rows, err := s.pool.Query(
		ctx,
		`SELECT record::text FROM episode_steps WHERE episode_id = $1 ORDER BY step ASC`,
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
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM episodes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		err = fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		return err
	}

	if err = insertStepTx(ctx, tx, id, rec); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `UPDATE episodes SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// List returns all stored episode ids sorted alphabetically.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM episodes ORDER BY id ASC`)
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
	}
	return nil
}

func insertStepTx(ctx context.Context, tx pgx.Tx, episodeID string, rec core.StepRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal step: %w", err)
	}
	_, err = tx.Exec(
		ctx,
		`INSERT INTO episode_steps (episode_id, step, record) VALUES ($1, $2, $3::jsonb)`,
		episodeID,
		rec.Step,
		string(recordJSON),
	)
	return err
}
