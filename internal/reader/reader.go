// Package reader discovers and parses raw mail items inside an export
// tree: RFC-822 files (.eml/.txt), mbox containers, Apple Mail .emlx
// files, Outlook-for-Mac XML documents, and ICS calendar files.
//
// Readers are restartable. A walk always revisits every file in the
// tree; deciding whether an item was already ingested is the caller's
// job, keyed by Item.Key. Unreadable or unparseable items are reported
// as Items with Err set rather than silently dropped, so the caller can
// count them.
package reader

import (
	"github.com/emersion/go-message/mail"

	// Registers extended charset support for message body decoding.
	_ "github.com/emersion/go-message/charset"
)

// Item is one mail item discovered during a walk. Msg is nil when Err
// is set.
type Item struct {
	// Msg is the parsed message, ready for a single pass over its parts.
	Msg *mail.Reader

	// Key is the checkpoint identity of this item: the file path for
	// single-message files, path::msg:<n> for mbox members.
	Key string

	// Path is the file the item came from.
	Path string

	// Err records why the item could not be parsed.
	Err error
}

// WalkFunc receives each discovered item. Returning a non-nil error
// aborts the walk.
type WalkFunc func(item Item) error
