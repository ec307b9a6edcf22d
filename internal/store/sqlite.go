package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mailattic/mailattic/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const upsertMessageSQL = `
	INSERT INTO messages (
		external_id, thread_id, folder,
		sender_name, sender_email,
		recipients_to, recipients_cc, recipients_bcc,
		subject, body, sent_at, received_at,
		is_read, has_attachments,
		account_tag, partner_tags, raw_headers
	) VALUES (
		?, ?, ?,
		?, ?,
		?, ?, ?,
		?, ?, ?, ?,
		?, ?,
		?, ?, ?
	)
	ON CONFLICT(external_id) DO UPDATE SET
		thread_id = excluded.thread_id,
		folder = excluded.folder,
		sender_name = excluded.sender_name,
		sender_email = excluded.sender_email,
		recipients_to = excluded.recipients_to,
		recipients_cc = excluded.recipients_cc,
		recipients_bcc = excluded.recipients_bcc,
		subject = excluded.subject,
		body = excluded.body,
		sent_at = excluded.sent_at,
		received_at = excluded.received_at,
		is_read = excluded.is_read,
		has_attachments = excluded.has_attachments,
		account_tag = excluded.account_tag,
		partner_tags = excluded.partner_tags,
		raw_headers = excluded.raw_headers`

// Begin opens a write batch backed by a single transaction, with the
// message upsert pre-compiled since it runs once per item.
func (s *SQLiteStore) Begin(ctx context.Context) (Batch, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, upsertMessageSQL)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing message upsert: %w", err)
	}

	return &sqliteBatch{tx: tx, upsert: stmt}, nil
}

// sqliteBatch implements Batch on one open transaction.
type sqliteBatch struct {
	tx     *sqlx.Tx
	upsert *sqlx.Stmt
}

func (b *sqliteBatch) UpsertMessage(ctx context.Context, m *model.Message) (int64, error) {
	_, err := b.upsert.ExecContext(ctx,
		m.ExternalID, nullable(m.ThreadID), nullable(m.Folder),
		nullable(m.SenderName), nullable(m.SenderEmail),
		nullable(m.RecipientsTo), nullable(m.RecipientsCc), nullable(m.RecipientsBcc),
		nullable(m.Subject), nullable(m.Body),
		nullable(m.SentAt), nullable(m.ReceivedAt),
		boolToInt(m.IsRead), boolToInt(m.HasAttachments),
		nullable(m.AccountTag), nullable(m.PartnerTags), nullable(m.RawHeaders),
	)
	if err != nil {
		return 0, fmt.Errorf("upserting message %s: %w", m.ExternalID, err)
	}

	var id int64
	err = b.tx.GetContext(ctx, &id,
		"SELECT id FROM messages WHERE external_id = ?", m.ExternalID,
	)
	if err != nil {
		return 0, fmt.Errorf("resolving id for message %s: %w", m.ExternalID, err)
	}

	m.ID = id
	return id, nil
}

func (b *sqliteBatch) InsertAttachment(ctx context.Context, messageID int64, a model.Attachment) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO attachments (message_id, filename, content_type, size, blob_ref)
		VALUES (?, ?, ?, ?, ?)`,
		messageID, a.Filename, nullable(a.ContentType), a.Size, nullable(a.BlobRef),
	)
	if err != nil {
		return fmt.Errorf("inserting attachment %s: %w", a.Filename, err)
	}
	return nil
}

func (b *sqliteBatch) InsertEvent(ctx context.Context, ev model.Event) error {
	kind := ev.Kind
	if kind == "" {
		kind = model.EventKindCalendar
	}

	var messageID interface{}
	if ev.MessageID != 0 {
		messageID = ev.MessageID
	}

	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO events (message_id, kind, title, starts_at, ends_at, location, source_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		messageID, kind, nullable(ev.Title),
		nullable(ev.StartsAt), nullable(ev.EndsAt),
		nullable(ev.Location), nullable(ev.SourceRef),
	)
	if err != nil {
		return fmt.Errorf("inserting event %q: %w", ev.Title, err)
	}
	return nil
}

func (b *sqliteBatch) AddEntities(ctx context.Context, messageID int64, ents []model.Entity) error {
	if len(ents) == 0 {
		return nil
	}

	stmt, err := b.tx.PreparexContext(ctx, `
		INSERT INTO entities (message_id, label, text, start_char, end_char)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range ents {
		if _, err := stmt.ExecContext(ctx, messageID, e.Label, e.Text, e.StartChar, e.EndChar); err != nil {
			return fmt.Errorf("inserting entity %q: %w", e.Text, err)
		}
	}
	return nil
}

func (b *sqliteBatch) TagMessage(ctx context.Context, messageID int64, tags []model.MessageTag) error {
	for _, t := range tags {
		_, err := b.tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO account_tags (message_id, name, kind)
			VALUES (?, ?, ?)`,
			messageID, t.Name, string(t.Kind),
		)
		if err != nil {
			return fmt.Errorf("tagging message %d with %s: %w", messageID, t.Name, err)
		}
	}
	return nil
}

func (b *sqliteBatch) Commit() error {
	b.upsert.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (b *sqliteBatch) Rollback() error {
	b.upsert.Close()
	return b.tx.Rollback()
}

// CountMessages returns the total number of stored messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM messages"); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// Search returns messages whose subject or body contains query, newest
// first.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "%" + query + "%"

	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM messages
		WHERE subject LIKE ? OR body LIKE ?
		ORDER BY sent_at DESC
		LIMIT ?`,
		q, q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MessagesByAccount returns messages carrying the given account tag,
// ordered by sent time.
func (s *SQLiteStore) MessagesByAccount(ctx context.Context, account string, newestFirst bool, limit int) ([]model.Message, error) {
	direction := "ASC"
	if newestFirst {
		direction = "DESC"
	}
	query := fmt.Sprintf(
		"SELECT * FROM messages WHERE account_tag = ? ORDER BY sent_at %s", direction,
	)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("querying messages for account %s: %w", account, err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MessagesByIDs returns the messages with the given row ids.
func (s *SQLiteStore) MessagesByIDs(ctx context.Context, ids []int64) ([]model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT * FROM messages WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("expanding id list: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages by id: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// exportableTables whitelists what DumpTable will read.
var exportableTables = map[string]bool{
	"messages":     true,
	"attachments":  true,
	"events":       true,
	"entities":     true,
	"account_tags": true,
}

// DumpTable returns the column names and all rows of one exportable
// table, with every value rendered as a string (NULL becomes "").
func (s *SQLiteStore) DumpTable(ctx context.Context, table string) ([]string, [][]string, error) {
	if !exportableTables[table] {
		return nil, nil, fmt.Errorf("table %q is not exportable", table)
	}

	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s columns: %w", table, err)
	}

	var out [][]string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = renderValue(v)
		}
		out = append(out, rec)
	}

	return cols, out, rows.Err()
}

// collectMessages drains a result set of full message rows.
func collectMessages(rows *sqlx.Rows) ([]model.Message, error) {
	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// scanMessage scans a message row from a sqlx.Rows result set. Column
// order must match the messages table definition.
func scanMessage(rows *sqlx.Rows) (model.Message, error) {
	var (
		m              model.Message
		threadID       sql.NullString
		folder         sql.NullString
		senderName     sql.NullString
		senderEmail    sql.NullString
		recipientsTo   sql.NullString
		recipientsCc   sql.NullString
		recipientsBcc  sql.NullString
		subject        sql.NullString
		body           sql.NullString
		sentAt         sql.NullString
		receivedAt     sql.NullString
		isRead         int
		hasAttachments int
		accountTag     sql.NullString
		partnerTags    sql.NullString
		rawHeaders     sql.NullString
	)

	err := rows.Scan(
		&m.ID, &m.ExternalID, &threadID, &folder,
		&senderName, &senderEmail,
		&recipientsTo, &recipientsCc, &recipientsBcc,
		&subject, &body, &sentAt, &receivedAt,
		&isRead, &hasAttachments,
		&accountTag, &partnerTags, &rawHeaders,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("scanning message row: %w", err)
	}

	m.ThreadID = threadID.String
	m.Folder = folder.String
	m.SenderName = senderName.String
	m.SenderEmail = senderEmail.String
	m.RecipientsTo = recipientsTo.String
	m.RecipientsCc = recipientsCc.String
	m.RecipientsBcc = recipientsBcc.String
	m.Subject = subject.String
	m.Body = body.String
	m.SentAt = sentAt.String
	m.ReceivedAt = receivedAt.String
	m.IsRead = isRead != 0
	m.HasAttachments = hasAttachments != 0
	m.AccountTag = accountTag.String
	m.PartnerTags = partnerTags.String
	m.RawHeaders = rawHeaders.String

	return m, nil
}

// nullable maps empty strings to NULL for storage.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// renderValue formats a scanned SQLite value for export.
func renderValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
