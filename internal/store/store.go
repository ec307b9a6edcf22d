package store

import (
	"context"

	"github.com/mailattic/mailattic/internal/model"
)

// Store defines the persistence interface for canonical messages and
// their dependent records (attachments, events, entities, tags).
type Store interface {
	// Begin opens a write batch. The ingestion pipeline holds one batch
	// at a time, committing every few hundred items to bound the work
	// lost on a crash.
	Begin(ctx context.Context) (Batch, error)

	// CountMessages returns the total number of stored messages.
	CountMessages(ctx context.Context) (int64, error)

	// Search returns messages whose subject or body contains query,
	// newest first.
	Search(ctx context.Context, query string, limit int) ([]model.Message, error)

	// MessagesByAccount returns messages carrying the given account
	// tag, ordered by sent time. limit <= 0 means no limit.
	MessagesByAccount(ctx context.Context, account string, newestFirst bool, limit int) ([]model.Message, error)

	// MessagesByIDs returns the messages with the given row ids, in
	// database order. Callers needing a particular order re-sort.
	MessagesByIDs(ctx context.Context, ids []int64) ([]model.Message, error)

	// DumpTable returns the column names and all rows of one of the
	// exportable tables, with values rendered as strings.
	DumpTable(ctx context.Context, table string) (cols []string, rows [][]string, err error)

	Close() error
}

// Batch is a single write transaction. Callers must finish it with
// Commit or Rollback; nothing is durable before Commit.
type Batch interface {
	// UpsertMessage inserts the message or, when a row with the same
	// external id exists, replaces its contents. The resolved row id is
	// returned and also written back to m.ID.
	UpsertMessage(ctx context.Context, m *model.Message) (int64, error)

	// InsertAttachment records one attachment under a stored message.
	InsertAttachment(ctx context.Context, messageID int64, a model.Attachment) error

	// InsertEvent records a calendar event. ev.MessageID may be zero
	// for events not linked to any message.
	InsertEvent(ctx context.Context, ev model.Event) error

	// AddEntities records extracted entities for a stored message.
	AddEntities(ctx context.Context, messageID int64, ents []model.Entity) error

	// TagMessage records tag assignments, ignoring duplicates.
	TagMessage(ctx context.Context, messageID int64, tags []model.MessageTag) error

	Commit() error
	Rollback() error
}
