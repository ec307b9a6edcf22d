package semantic

import (
	"context"
	"fmt"
	"os"
	"strconv"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"

	"github.com/mailattic/mailattic/internal/logging"
	"github.com/mailattic/mailattic/internal/model"
)

// collectionName is the Chroma collection all message embeddings live in.
const collectionName = "messages"

// ChromaIndex stores embeddings in a Chroma instance (cloud or
// self-hosted) and lets the server compute embeddings through its
// configured embedding function, so no local model is needed.
type ChromaIndex struct {
	client     chroma.Client
	collection chroma.Collection
}

// NewChromaIndex connects to Chroma and ensures the messages
// collection exists. The API key is required; tenant and database are
// optional and only meaningful against Chroma Cloud.
func NewChromaIndex(ctx context.Context, cfg model.SemanticConfig) (*ChromaIndex, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chroma backend requires an API key (set CHROMA_API_KEY or semantic.api_key)")
	}

	// The Gemini embedding function reads its key from the environment.
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}
	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gemini embedding function: %w", err)
	}

	baseURL := cfg.ChromaURL
	if baseURL == "" {
		baseURL = chroma.ChromaCloudEndpoint
	}

	var client chroma.Client
	if cfg.Database != "" && cfg.Tenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(baseURL),
			chroma.WithCloudAPIKey(cfg.APIKey),
			chroma.WithDatabaseAndTenant(cfg.Database, cfg.Tenant),
		)
	} else if cfg.Tenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(baseURL),
			chroma.WithCloudAPIKey(cfg.APIKey),
			chroma.WithTenant(cfg.Tenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(baseURL),
			chroma.WithCloudAPIKey(cfg.APIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chroma collection %q: %w", collectionName, err)
	}

	logging.Log.Debugf("connected to chroma at %s, collection %q", baseURL, collectionName)
	return &ChromaIndex{client: client, collection: collection}, nil
}

// Add upserts one message excerpt. Failures are logged and swallowed:
// a message that cannot be embedded still belongs in the archive.
func (x *ChromaIndex) Add(ctx context.Context, messageID int64, subject, body string) {
	text := excerpt(subject, body)
	if text == "" {
		return
	}
	id := strconv.FormatInt(messageID, 10)

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"message_id": id,
		"subject":    subject,
	})
	if err != nil {
		logging.Log.Debugf("embedding metadata for message %d: %v", messageID, err)
		return
	}
	err = x.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(id)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		logging.Log.Debugf("upserting embedding for message %d: %v", messageID, err)
	}
}

// Flush is a no-op: every Add is sent to the server immediately.
func (x *ChromaIndex) Flush(ctx context.Context) error {
	return nil
}

// Search queries the collection and maps document ids back to message
// ids. Chroma reports distances, so the score is inverted to keep
// higher-is-better ordering across backends.
func (x *ChromaIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	results, err := x.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return nil, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(idGroups[0]))
	for i, docID := range idGroups[0] {
		id, err := strconv.ParseInt(string(docID), 10, 64)
		if err != nil {
			logging.Log.Debugf("skipping non-numeric document id %q", string(docID))
			continue
		}
		hit := Hit{MessageID: id}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Score = 1 - float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
