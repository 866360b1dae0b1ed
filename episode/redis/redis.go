// Package redis persists episodes in Redis as JSON documents. The episode
// header and its step list live under separate keys so steps can be appended
// without rewriting history.
//
// The key namespace is organized as follows:
//   - <prefix>/episodes            set of stored episode ids
//   - <prefix>/episodes/<id>       episode header document
//   - <prefix>/episodes/<id>/steps list of step records
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/episode"
)

// Options configures a Store.
type Options struct {
	// Prefix namespaces every key written by the store.
	Prefix string
	// TTL, when positive, expires episode keys the given duration after the
	// last write.
	TTL time.Duration
}

// Store is a durable EpisodeStore backed by Redis.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// New wraps an existing Redis client. The caller owns the client lifecycle.
func New(client *goredis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{Prefix: "agentgym"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *Store) indexKey() string {
	return path.Join(s.prefix, "episodes")
}

func (s *Store) episodeKey(id string) string {
	return path.Join(s.prefix, "episodes", id)
}

func (s *Store) stepsKey(id string) string {
	return path.Join(s.prefix, "episodes", id, "steps")
}

// episodeDoc is the stored header, without the step history.
type episodeDoc struct {
	ID       string            `json:"id"`
	State    map[string]any    `json:"state"`
	Metadata map[string]string `json:"metadata"`
	Started  time.Time         `json:"started"`
	Updated  time.Time         `json:"updated"`
	Ended    time.Time         `json:"ended"`
}

// Create persists the episode header plus any steps it already carries. It
// fails when an episode with the same id exists.
func (s *Store) Create(ctx context.Context, ep *core.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("episode must have a non-empty id")
	}

	clone := ep.Clone()

	exists, err := s.client.Exists(ctx, s.episodeKey(clone.ID)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("episode %q already exists", clone.ID)
	}

	doc := episodeDoc{
		ID:       clone.ID,
		State:    clone.State,
		Metadata: clone.Metadata,
		Started:  clone.Started,
		Updated:  clone.Updated,
		Ended:    clone.Ended,
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}

	stepJSONs := make([]any, 0, len(clone.Steps))
	for _, rec := range clone.Steps {
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal step: %w", err)
		}
		stepJSONs = append(stepJSONs, recJSON)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.episodeKey(clone.ID), docJSON, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), clone.ID)
	if len(stepJSONs) > 0 {
		pipe.RPush(ctx, s.stepsKey(clone.ID), stepJSONs...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.stepsKey(clone.ID), s.ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Get loads the episode with its full step history.
func (s *Store) Get(ctx context.Context, id string) (*core.Episode, error) {
	data, err := s.client.Get(ctx, s.episodeKey(id)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		}
		return nil, err
	}

	var doc episodeDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal episode: %w", err)
	}

	items, err := s.client.LRange(ctx, s.stepsKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	steps := make([]core.StepRecord, 0, len(items))
	for _, item := range items {
		var rec core.StepRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal step: %w", err)
		}
		steps = append(steps, rec)
	}

	return &core.Episode{
		ID:       doc.ID,
		Steps:    steps,
		State:    doc.State,
		Metadata: doc.Metadata,
		Started:  doc.Started,
		Updated:  doc.Updated,
		Ended:    doc.Ended,
	}, nil
}

// AppendStep adds one step record to the episode's history and bumps its
// updated timestamp.
func (s *Store) AppendStep(ctx context.Context, id string, rec core.StepRecord) error {
	data, err := s.client.Get(ctx, s.episodeKey(id)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
		}
		return err
	}

	var doc episodeDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("unmarshal episode: %w", err)
	}
	doc.Updated = time.Now()

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal step: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.episodeKey(id), docJSON, s.ttl)
	pipe.RPush(ctx, s.stepsKey(id), recJSON)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.stepsKey(id), s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List returns all stored episode ids sorted alphabetically.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the episode header, its steps, and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, s.episodeKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("episode %q: %w", id, episode.ErrNotFound)
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.episodeKey(id))
	pipe.Del(ctx, s.stepsKey(id))
	pipe.SRem(ctx, s.indexKey(), id)
	_, err = pipe.Exec(ctx)
	return err
}
