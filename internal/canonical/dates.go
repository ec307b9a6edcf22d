package canonical

import (
	netmail "net/mail"
	"strings"
	"time"
)

// ISOFormat is the timestamp layout used throughout the store: ISO-8601
// in UTC with second precision.
const ISOFormat = "2006-01-02T15:04:05Z"

// dateLayouts are tried in order when normalizing free-form export
// dates. ICS basic formats come first since calendar data is the most
// common non-RFC source.
var dateLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// NormalizeDate parses s against known layouts and returns it formatted
// as ISOFormat in UTC. Unparseable input yields "", never an error:
// a missing timestamp must not lose the message.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(ISOFormat)
		}
	}
	// RFC 5322 dates with all their historical quirks.
	if t, err := netmail.ParseDate(s); err == nil {
		return t.UTC().Format(ISOFormat)
	}
	return ""
}
