// Package episode records what happened during network runs: an in-memory
// EpisodeStore for tests and demos, plus Recall, a keyword index over stored
// episodes for cross-episode retrieval.
//
// Durable backends with the same store contract live in the subpackages
// episode/sqlite (single-file, pure-Go driver), episode/postgres (pgx pool,
// jsonb payloads) and episode/redis (JSON documents, pipelined appends).
// All backends scope data by episode id and report missing episodes with
// ErrNotFound.
package episode
