package episode

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hupe1980/agentgym/core"
)

// Recall is a keyword index over recorded episodes. Ingest flattens each
// step's textual content (agent responses, messages, environment actions and
// observations) into searchable entries; Search scores case-insensitive term
// overlap between the query and stored content.
//
// Scoring: matched unique query terms divided by total unique query terms,
// so a result hitting every term scores 1.0. Linear scan, no stemming.
// Suitable for demos and tests; swap in a vector index for semantic
// retrieval at scale.
type Recall struct {
	mu      sync.RWMutex
	entries []recallEntry
}

type recallEntry struct {
	episodeID string
	step      int
	content   string
	terms     map[string]struct{}
}

// NewRecall creates an empty recall index.
func NewRecall() *Recall {
	return &Recall{}
}

// Ingest indexes every step of the episode. Re-ingesting an episode replaces
// its previous entries, so the index follows the latest recorded state.
func (r *Recall) Ingest(_ context.Context, ep *core.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("episode must have a non-empty id")
	}

	fresh := make([]recallEntry, 0)
	for _, rec := range ep.GetSteps() {
		content := stepContent(rec)
		if content == "" {
			continue
		}
		fresh = append(fresh, recallEntry{
			episodeID: ep.ID,
			step:      rec.Step,
			content:   content,
			terms:     termSet(content),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]recallEntry, 0, len(r.entries)+len(fresh))
	for _, entry := range r.entries {
		if entry.episodeID != ep.ID {
			kept = append(kept, entry)
		}
	}
	r.entries = append(kept, fresh...)

	return nil
}

// Len returns the number of indexed step entries.
func (r *Recall) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Search returns up to limit entries matching the query, best first. Ties
// break by episode id and step for deterministic ordering. An empty query or
// a query without indexable terms yields no results.
func (r *Recall) Search(_ context.Context, query string, limit int) ([]core.RecallResult, error) {
	queryTerms := termSet(query)
	if len(queryTerms) == 0 || limit <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]core.RecallResult, 0)
	for _, entry := range r.entries {
		matched := 0
		for term := range queryTerms {
			if _, ok := entry.terms[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, core.RecallResult{
			EpisodeID: entry.episodeID,
			Step:      entry.step,
			Content:   entry.content,
			Score:     float64(matched) / float64(len(queryTerms)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].EpisodeID != results[j].EpisodeID {
			return results[i].EpisodeID < results[j].EpisodeID
		}
		return results[i].Step < results[j].Step
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// stepContent flattens one step record into a single text blob: every
// agent's responses, messages and message action, then the observations.
func stepContent(rec core.StepRecord) string {
	var parts []string

	agentIDs := make([]string, 0, len(rec.Outputs))
	for id := range rec.Outputs {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)

	for _, id := range agentIDs {
		out := rec.Outputs[id]
		for _, resp := range out.Responses {
			if s, ok := resp.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		for _, msg := range out.Messages {
			if s, ok := msg.Content.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if s, ok := out.EnvironmentActions["message"].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}

	obsIDs := make([]string, 0, len(rec.Result.Observations))
	for id := range rec.Result.Observations {
		obsIDs = append(obsIDs, id)
	}
	sort.Strings(obsIDs)

	for _, id := range obsIDs {
		if s := rec.Result.Observations[id].Text(); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, " ")
}

// termSet tokenizes text into a lowercase set of letter/number runs.
func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		terms[f] = struct{}{}
	}

	return terms
}
