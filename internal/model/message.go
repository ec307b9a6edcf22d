package model

// TagKind identifies what a stored tag represents.
type TagKind string

const (
	TagKindAccount TagKind = "account"
	TagKindPartner TagKind = "partner"
)

// EventKindCalendar marks events derived from ICS calendar data.
const EventKindCalendar = "calendar"

// Message is the unified representation of a mail item from any archive
// format (PST, OLM XML, mbox, EML, EMLX).
type Message struct {
	// ID is the internal database identifier, assigned on insert.
	ID int64 `json:"id"`

	// ExternalID is the stable cross-run identity: the raw Message-ID
	// header when present, otherwise a content-derived hash.
	ExternalID string `json:"external_id"`

	// ThreadID groups related messages when the source exposes
	// conversation metadata (Thread-Index / Thread-Topic).
	ThreadID string `json:"thread_id"`

	// Folder is the source folder path, when the source preserves one.
	Folder string `json:"folder"`

	// SenderName is the display name from the originator field.
	SenderName string `json:"sender_name"`

	// SenderEmail is the originator address.
	SenderEmail string `json:"sender_email"`

	// RecipientsTo, RecipientsCc, and RecipientsBcc are semicolon-joined
	// address lists, de-duplicated in first-seen order.
	RecipientsTo  string `json:"recipients_to"`
	RecipientsCc  string `json:"recipients_cc"`
	RecipientsBcc string `json:"recipients_bcc"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// Body is the extracted plain-text body.
	Body string `json:"body"`

	// SentAt and ReceivedAt are ISO-8601 UTC timestamps, or empty when
	// the source date could not be parsed.
	SentAt     string `json:"sent_at"`
	ReceivedAt string `json:"received_at"`

	// IsRead mirrors the source's read flag when available.
	IsRead bool `json:"is_read"`

	// HasAttachments reports whether any attachment rows accompany
	// this message.
	HasAttachments bool `json:"has_attachments"`

	// AccountTag is the primary organizational account assigned by the
	// tagging rules, or empty when no rule matched.
	AccountTag string `json:"account_tag"`

	// PartnerTags is a semicolon-joined list of matched partner
	// organizations.
	PartnerTags string `json:"partner_tags"`

	// RawHeaders optionally preserves the original header block.
	RawHeaders string `json:"raw_headers"`
}

// HasContent reports whether the message carries a subject or a body.
// Messages with neither are discarded during ingestion.
func (m *Message) HasContent() bool {
	return m.Subject != "" || m.Body != ""
}

// Attachment describes one file attached to a message. Payload bytes are
// not stored; BlobRef may point at an external location.
type Attachment struct {
	ID          int64  `json:"id"`
	MessageID   int64  `json:"message_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	BlobRef     string `json:"blob_ref"`
}

// Event is a calendar entry extracted from ICS data. MessageID is zero
// when the event is not linked to a stored message.
type Event struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"message_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Location  string `json:"location"`
	SourceRef string `json:"source_ref"`
}

// Entity is one named entity extracted from a message body. Offsets are
// byte positions into the body text.
type Entity struct {
	Label     string `json:"label"`
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// MessageTag pairs a tag name with its kind for persistence.
type MessageTag struct {
	Name string  `json:"name"`
	Kind TagKind `json:"kind"`
}
