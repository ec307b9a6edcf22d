package semantic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mailattic/mailattic/internal/atomicfile"
	"github.com/mailattic/mailattic/internal/logging"
)

// defaultBatchSize bounds the in-memory pending buffer when the
// configuration does not set one.
const defaultBatchSize = 500

// LocalIndex is a flat inner-product index over unit vectors, persisted
// as a JSON document with an append-only JSONL sidecar mapping vector
// ordinals to message ids.
//
// The index document is replaced atomically before new sidecar lines are
// appended, so after a crash the vector list may run ahead of the
// sidecar; unmapped trailing vectors are ignored by Search and simply
// re-embedded on the next run.
type LocalIndex struct {
	indexPath string
	metaPath  string
	embedder  Embedder
	batchSize int

	loaded  bool
	dim     int
	vectors [][]float32
	ids     []int64

	pending []pendingDoc
}

type pendingDoc struct {
	id      int64
	vec     []float32
	excerpt string
}

// indexFile is the on-disk shape of the vector list.
type indexFile struct {
	Dim     int         `json:"dim"`
	Vectors [][]float32 `json:"vectors"`
}

// metaLine is one sidecar record. Line N maps vector N to its message.
type metaLine struct {
	MessageID int64  `json:"message_id"`
	Excerpt   string `json:"excerpt"`
}

// NewLocalIndex returns a local index rooted at indexPath. The sidecar
// lives next to it at indexPath + ".meta.jsonl". State is loaded lazily
// on first use.
func NewLocalIndex(indexPath string, embedder Embedder, batchSize int) *LocalIndex {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &LocalIndex{
		indexPath: indexPath,
		metaPath:  indexPath + ".meta.jsonl",
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Add embeds the message excerpt and queues it, flushing automatically
// when the buffer fills. Embedding failures drop the single document.
func (x *LocalIndex) Add(ctx context.Context, messageID int64, subject, body string) {
	text := excerpt(subject, body)
	if text == "" {
		return
	}

	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		logging.Log.Debugf("embedding message %d failed: %v", messageID, err)
		return
	}
	normalize(vec)

	x.pending = append(x.pending, pendingDoc{id: messageID, vec: vec, excerpt: text})
	if len(x.pending) >= x.batchSize {
		if err := x.Flush(ctx); err != nil {
			logging.Log.Warnf("flushing embedding index: %v", err)
		}
	}
}

// Flush appends the pending vectors to the index document and records
// their message ids in the sidecar. Index first, sidecar second: a
// crash in between leaves unmapped vectors, never mismapped ones.
//
// The pending buffer is consumed whether or not the write succeeds.
// Retrying a half-written batch could shift ordinals and misalign the
// sidecar, and losing a few embeddings only degrades search.
func (x *LocalIndex) Flush(ctx context.Context) error {
	if len(x.pending) == 0 {
		return nil
	}
	if err := x.ensureLoaded(); err != nil {
		x.pending = x.pending[:0]
		return err
	}

	accepted := make([]pendingDoc, 0, len(x.pending))
	vectors := x.vectors
	dim := x.dim
	for _, doc := range x.pending {
		if dim == 0 {
			dim = len(doc.vec)
		}
		if len(doc.vec) != dim {
			logging.Log.Debugf("dropping vector for message %d: dimension %d != %d", doc.id, len(doc.vec), dim)
			continue
		}
		accepted = append(accepted, doc)
		vectors = append(vectors, doc.vec)
	}
	x.pending = x.pending[:0]

	data, err := json.Marshal(indexFile{Dim: dim, Vectors: vectors})
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := atomicfile.WriteFile(x.indexPath, data, 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", x.indexPath, err)
	}
	x.dim = dim
	x.vectors = vectors

	if err := x.appendMeta(accepted); err != nil {
		return err
	}
	for _, doc := range accepted {
		x.ids = append(x.ids, doc.id)
	}
	return nil
}

// Search embeds the query and ranks stored vectors by inner product.
func (x *LocalIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if err := x.ensureLoaded(); err != nil {
		return nil, err
	}
	n := len(x.vectors)
	if len(x.ids) < n {
		n = len(x.ids)
	}
	if n == 0 {
		return nil, nil
	}

	qv, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	normalize(qv)
	if len(qv) != x.dim {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(qv), x.dim)
	}

	hits := make([]Hit, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, Hit{MessageID: x.ids[i], Score: dot(qv, x.vectors[i])})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ensureLoaded reads the index document and sidecar once. A missing or
// unreadable index starts empty; malformed sidecar lines are skipped.
func (x *LocalIndex) ensureLoaded() error {
	if x.loaded {
		return nil
	}
	x.loaded = true

	if data, err := os.ReadFile(x.indexPath); err == nil {
		var f indexFile
		if err := json.Unmarshal(data, &f); err == nil {
			x.dim = f.Dim
			x.vectors = f.Vectors
		} else {
			logging.Log.Warnf("ignoring corrupt index %s: %v", x.indexPath, err)
		}
	}

	f, err := os.Open(x.metaPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var line metaLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			continue
		}
		x.ids = append(x.ids, line.MessageID)
	}
	return sc.Err()
}

// appendMeta writes one sidecar line per accepted document and syncs.
func (x *LocalIndex) appendMeta(docs []pendingDoc) error {
	if len(docs) == 0 {
		return nil
	}
	f, err := os.OpenFile(x.metaPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening sidecar %s: %w", x.metaPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(metaLine{MessageID: doc.id, Excerpt: doc.excerpt}); err != nil {
			return fmt.Errorf("writing sidecar line: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing sidecar: %w", err)
	}
	return f.Sync()
}
