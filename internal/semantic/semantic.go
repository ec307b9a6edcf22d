// Package semantic maintains the optional embedding search index over
// stored messages. Two backends exist: a local flat index with
// embeddings fetched from an Ollama-compatible endpoint, and a Chroma
// collection where the server owns both embedding and persistence.
//
// Indexing is an enrichment: failures degrade search quality but never
// fail ingestion, so Add swallows errors and only Flush reports them.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailattic/mailattic/internal/model"
)

// Backend names accepted in configuration.
const (
	BackendLocal  = "local"
	BackendChroma = "chroma"
)

// excerptLimit caps how much text per message is embedded; embedding
// models truncate long inputs anyway, so spending tokens past the
// opening of the body buys nothing.
const excerptLimit = 2000

// Hit is one semantic search result, best first.
type Hit struct {
	MessageID int64
	Score     float64
}

// Indexer is the embedding-index capability used by ingestion and the
// search command.
type Indexer interface {
	// Add queues one message for indexing. Failures are absorbed.
	Add(ctx context.Context, messageID int64, subject, body string)

	// Flush persists anything queued. Called at batch boundaries and at
	// the end of a run.
	Flush(ctx context.Context) error

	// Search returns up to k message ids ranked by similarity to query.
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

// NewIndexer builds the configured backend. Returns (nil, nil) when the
// semantic layer is disabled.
func NewIndexer(ctx context.Context, cfg model.SemanticConfig) (Indexer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "", BackendLocal:
		embedder := NewOllamaEmbedder(cfg.Endpoint, cfg.ModelName)
		return NewLocalIndex(cfg.IndexPath, embedder, cfg.BatchSize), nil
	case BackendChroma:
		return NewChromaIndex(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown semantic backend %q", cfg.Backend)
	}
}

// excerpt builds the embedded text for a message: subject and the
// opening of the body.
func excerpt(subject, body string) string {
	text := strings.TrimSpace(strings.TrimSpace(subject) + "\n\n" + strings.TrimSpace(body))
	if len(text) > excerptLimit {
		text = text[:excerptLimit]
	}
	return text
}
