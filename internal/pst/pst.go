// Package pst handles Outlook PST archives. There is no pure-Go parser
// wired in by default, so ingestion either goes through an external
// readpst conversion into an EML tree or through a NativeExtractor
// registered at build time.
package pst

import "context"

// Attachment describes one attachment surfaced by a native extractor.
type Attachment struct {
	// Filename is the attachment's display name.
	Filename string
	// Size is the attachment payload size in bytes.
	Size int64
}

// Message is one message pulled out of a PST by a native extractor.
// Raw holds the full RFC 5322 bytes so the normal parsing path applies.
type Message struct {
	// Raw is the message source, headers and body.
	Raw []byte
	// Folder is the PST folder path the message came from.
	Folder string
	// Attachments lists the message's attachments, if the extractor
	// reports them.
	Attachments []Attachment
}

// NativeExtractor walks a PST file and hands every message to fn.
// Returning an error from fn aborts the walk.
type NativeExtractor interface {
	Extract(ctx context.Context, pstPath string, fn func(Message) error) error
}

var native NativeExtractor

// RegisterNative installs a native PST extractor. Intended to be called
// from an init function in a build-tagged file that links the parser.
func RegisterNative(e NativeExtractor) {
	native = e
}

// Native reports the registered extractor, if any.
func Native() (NativeExtractor, bool) {
	return native, native != nil
}
