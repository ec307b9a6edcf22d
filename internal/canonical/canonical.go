// Package canonical converts parsed source items (RFC-822 messages,
// flattened Outlook-for-Mac XML documents) into the unified message
// record. Conversion is lossy by design: whatever a format cannot
// provide stays empty rather than failing the item.
package canonical

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mailattic/mailattic/internal/model"
)

// ErrNoContent reports a structurally valid item with neither subject
// nor body. Such items are counted and skipped, never stored.
var ErrNoContent = errors.New("message has no subject or body")

// EmailPattern matches bare email addresses anywhere in free text. Used
// both for lenient header recovery and for scanning XML exports that
// embed addresses in arbitrary fields.
var EmailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// HashID returns the hex SHA-1 digest of s. Used to synthesize stable
// identities when the source offers none.
func HashID(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ExternalID derives the stable cross-run identity of a header-based
// message: the trimmed Message-ID header verbatim (angle brackets
// included) when present, otherwise a digest over originator, date, and
// subject.
func ExternalID(h mail.Header) string {
	if mid := strings.TrimSpace(h.Get("Message-Id")); mid != "" {
		return mid
	}
	return HashID(h.Get("From") + h.Get("Date") + h.Get("Subject"))
}

// FromMail converts one parsed RFC-822 message into the canonical
// record, consuming the reader's part stream. folder may be empty when
// the source layout carries no folder information.
func FromMail(mr *mail.Reader, folder string) (*model.Message, error) {
	h := mr.Header

	msg := &model.Message{
		ExternalID: ExternalID(h),
		Folder:     folder,
		Subject:    DecodeHeader(h.Get("Subject")),
		Body:       extractBody(mr),
	}
	if !msg.HasContent() {
		return nil, ErrNoContent
	}

	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		msg.SenderName = DecodeHeader(list[0].Name)
		msg.SenderEmail = list[0].Address
	} else {
		raw := h.Get("From")
		msg.SenderName = DecodeHeader(raw)
		msg.SenderEmail = EmailPattern.FindString(raw)
	}

	msg.RecipientsTo = dedupeJoin(addressStrings(h, "To"))
	msg.RecipientsCc = dedupeJoin(addressStrings(h, "Cc"))
	msg.RecipientsBcc = dedupeJoin(addressStrings(h, "Bcc"))

	if t, err := h.Date(); err == nil && !t.IsZero() {
		msg.SentAt = t.UTC().Format(ISOFormat)
	}
	msg.ReceivedAt = msg.SentAt

	msg.ThreadID = h.Get("Thread-Index")
	if msg.ThreadID == "" {
		msg.ThreadID = h.Get("Thread-Topic")
	}

	return msg, nil
}

// extractBody walks the part stream and joins the textual content. For
// multipart messages only text/plain inline parts contribute; a
// single-part message contributes its content whatever the type.
// Attachment parts never contribute.
func extractBody(mr *mail.Reader) string {
	ct, _, err := mr.Header.ContentType()
	multipart := err == nil && strings.HasPrefix(ct, "multipart/")

	var parts []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if multipart {
			pct, _, err := ih.ContentType()
			if err != nil || pct != "text/plain" {
				continue
			}
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n\n")
}

// addressStrings returns the addresses under key, falling back to a
// regex scan of the raw header when structured parsing fails.
func addressStrings(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		return EmailPattern.FindAllString(h.Get(key), -1)
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Address != "" {
			out = append(out, a.Address)
		}
	}
	return out
}

// dedupeJoin joins addresses with ";", dropping repeats while keeping
// first-seen order.
func dedupeJoin(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return strings.Join(out, ";")
}

// DecodeHeader decodes MIME encoded-words, returning the input unchanged
// when decoding fails.
func DecodeHeader(s string) string {
	dec := &mime.WordDecoder{CharsetReader: charset.Reader}
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}
