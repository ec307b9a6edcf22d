package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id     TEXT NOT NULL UNIQUE,
	thread_id       TEXT,
	folder          TEXT,
	sender_name     TEXT,
	sender_email    TEXT,
	recipients_to   TEXT,
	recipients_cc   TEXT,
	recipients_bcc  TEXT,
	subject         TEXT,
	body            TEXT,
	sent_at         TEXT,
	received_at     TEXT,
	is_read         INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	has_attachments INTEGER NOT NULL DEFAULT 0 CHECK(has_attachments IN (0, 1)),
	account_tag     TEXT,
	partner_tags    TEXT,
	raw_headers     TEXT
);

CREATE TABLE IF NOT EXISTS attachments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id   INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL,
	content_type TEXT,
	size         INTEGER NOT NULL DEFAULT 0,
	blob_ref     TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER REFERENCES messages(id) ON DELETE SET NULL,
	kind       TEXT NOT NULL DEFAULT 'calendar',
	title      TEXT,
	starts_at  TEXT,
	ends_at    TEXT,
	location   TEXT,
	source_ref TEXT
);

CREATE TABLE IF NOT EXISTS entities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	label      TEXT NOT NULL,
	text       TEXT NOT NULL,
	start_char INTEGER NOT NULL DEFAULT 0,
	end_char   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS account_tags (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	UNIQUE(message_id, name, kind)
);

CREATE INDEX IF NOT EXISTS idx_messages_sent_at ON messages(sent_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender_email ON messages(sender_email);
CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id);
CREATE INDEX IF NOT EXISTS idx_entities_message_id ON entities(message_id);
CREATE INDEX IF NOT EXISTS idx_account_tags_message_id ON account_tags(message_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_messages_account_tag ON messages(account_tag);
CREATE INDEX IF NOT EXISTS idx_messages_account_sent
	ON messages(account_tag, sent_at);
CREATE INDEX IF NOT EXISTS idx_entities_label ON entities(label);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
