// Package memory implements the copy-on-write memory store with
// embedding-based recall. A Store is a value: Add and Remember return new
// stores and never touch their receiver, so snapshots taken at any point
// stay stable. Concurrent writers against the same store value each get
// their own result; arbitrating between them is the caller's job.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/animus-ai/animus/internal/embedding"
	"github.com/animus-ai/animus/internal/model"
)

// ConfigurationError indicates an invalid memory configuration, surfaced
// when the store is constructed, not at embed time.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("memory config %s: %s", e.Field, e.Detail)
}

// Config holds memory store settings.
type Config struct {
	MaxItems  int
	VectorDim int
	MaxRecall int
}

// DefaultConfig returns the standard store settings.
func DefaultConfig() Config {
	return Config{MaxItems: 10000, VectorDim: 384, MaxRecall: 10}
}

// Store is an immutable memory store snapshot.
type Store struct {
	Config   Config
	Items    []model.MemoryItem
	embedder embedding.Embedder
}

// New creates a store, validating the configuration. When an embedder is
// supplied its dimension must match the configured vector dimension.
func New(cfg Config, emb embedding.Embedder) (Store, error) {
	if cfg.MaxItems <= 0 {
		return Store{}, &ConfigurationError{Field: "max_items", Detail: "must be greater than 0"}
	}
	if cfg.VectorDim <= 0 {
		return Store{}, &ConfigurationError{Field: "vector_dim", Detail: "must be greater than 0"}
	}
	if cfg.MaxRecall <= 0 {
		return Store{}, &ConfigurationError{Field: "max_recall", Detail: "must be greater than 0"}
	}
	if emb != nil && emb.Dims() != cfg.VectorDim {
		return Store{}, &ConfigurationError{
			Field:  "vector_dim",
			Detail: fmt.Sprintf("embedder produces %d dimensions, store configured for %d", emb.Dims(), cfg.VectorDim),
		}
	}
	return Store{Config: cfg, embedder: emb}, nil
}

// Add appends an item and returns the new store. The receiver is unchanged.
// When the store is at capacity the oldest items are evicted first. A
// non-positive MaxItems (a store built without New) means no capacity limit.
func (s Store) Add(item model.MemoryItem) Store {
	items := make([]model.MemoryItem, 0, len(s.Items)+1)
	items = append(items, s.Items...)
	items = append(items, item)
	if s.Config.MaxItems > 0 && len(items) > s.Config.MaxItems {
		items = items[len(items)-s.Config.MaxItems:]
	}
	s.Items = items
	return s
}

// Remember builds a memory item from raw text and appends it via Add. The
// item gets a generated id, the current unix timestamp, an importance
// clamped to [0,1], and an embedding when an embedder is configured. An
// embedding failure fails the whole call; the returned store is unchanged.
func (s Store) Remember(ctx context.Context, text, memType string, importance float64) (Store, error) {
	item := model.MemoryItem{
		ID:         "mem_" + ulid.Make().String(),
		Text:       text,
		Type:       memType,
		Importance: math.Max(0, math.Min(1, importance)),
		Timestamp:  time.Now().Unix(),
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return s, fmt.Errorf("embed memory: %w", err)
		}
		item.Embedding = vec
	}

	return s.Add(item), nil
}

// Recall returns the items most relevant to the query, most-relevant first,
// truncated to limit (the configured MaxRecall when limit <= 0).
//
// Relevance is cosine similarity between the query embedding and each
// item's embedding. When no embedder is configured, or embedding the query
// fails, the documented fallback applies: most-recent-first by timestamp,
// ties broken by id. The fallback is deterministic, never approximate.
func (s Store) Recall(ctx context.Context, query string, limit int) []model.MemoryItem {
	if limit <= 0 {
		limit = s.Config.MaxRecall
	}
	if len(s.Items) == 0 {
		return nil
	}

	if s.embedder == nil {
		return s.recentFirst(limit)
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return s.recentFirst(limit)
	}

	type scored struct {
		item  model.MemoryItem
		score float64
	}
	ranked := make([]scored, 0, len(s.Items))
	for _, item := range s.Items {
		score := -1.0
		if len(item.Embedding) == len(queryVec) {
			score = embedding.CosineSimilarity(queryVec, item.Embedding)
		}
		ranked = append(ranked, scored{item: item, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]model.MemoryItem, 0, limit)
	for _, r := range ranked[:limit] {
		out = append(out, r.item)
	}
	return out
}

func (s Store) recentFirst(limit int) []model.MemoryItem {
	items := append([]model.MemoryItem(nil), s.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp > items[j].Timestamp
		}
		return items[i].ID > items[j].ID
	})
	if limit > len(items) {
		limit = len(items)
	}
	return items[:limit]
}
