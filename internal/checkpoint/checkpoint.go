// Package checkpoint persists ingestion progress so an interrupted run
// resumes where it stopped instead of reprocessing the whole archive.
//
// Two kinds of identity are tracked: item keys (file paths, or
// path-plus-ordinal for container members) for export-tree sources, and
// external message ids for native PST extraction where no stable file
// path exists. State is rewritten atomically after every processed item,
// so a crash loses at most the item in flight.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mailattic/mailattic/internal/atomicfile"
)

// EventSentinel is recorded for item keys that were processed but
// produced no message row (calendar events).
const EventSentinel int64 = -1

// state is the on-disk JSON shape.
type state struct {
	Processed   map[string]int64 `json:"processed,omitempty"`
	ExternalIDs []string         `json:"external_ids,omitempty"`
}

// Store tracks processed items for one checkpoint file. It is owned by
// a single ingestion run; concurrent writers are not supported.
type Store struct {
	path      string
	processed map[string]int64
	seen      map[string]struct{}
	seenOrder []string
}

// Load reads checkpoint state from path. A missing file yields an empty
// store; an unreadable or corrupt file also yields an empty store, since
// re-ingesting is always safe (storage upserts are idempotent).
func Load(path string) (*Store, error) {
	s := &Store{
		path:      path,
		processed: map[string]int64{},
		seen:      map[string]struct{}{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return s, nil
	}
	if st.Processed != nil {
		s.processed = st.Processed
	}
	for _, id := range st.ExternalIDs {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.seenOrder = append(s.seenOrder, id)
	}
	return s, nil
}

// SeenItem reports whether the item key was already processed.
func (s *Store) SeenItem(key string) bool {
	_, ok := s.processed[key]
	return ok
}

// MarkItem records an item key as processed (messageID is the stored
// row id, or EventSentinel) and persists the state.
func (s *Store) MarkItem(key string, messageID int64) error {
	s.processed[key] = messageID
	return s.save()
}

// SeenExternalID reports whether a message identity was already stored
// by a native PST run.
func (s *Store) SeenExternalID(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// MarkExternalID records a message identity and persists the state.
func (s *Store) MarkExternalID(id string) error {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = struct{}{}
		s.seenOrder = append(s.seenOrder, id)
	}
	return s.save()
}

// Len returns how many item keys have been processed.
func (s *Store) Len() int {
	return len(s.processed)
}

func (s *Store) save() error {
	data, err := json.Marshal(state{
		Processed:   s.processed,
		ExternalIDs: s.seenOrder,
	})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", s.path, err)
	}
	return nil
}
