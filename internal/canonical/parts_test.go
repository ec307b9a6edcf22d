package canonical

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePart(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestReconstructBody(t *testing.T) {
	dir := t.TempDir()
	writePart(t, dir, "01_body.html",
		`<html><body><p>Hello from HTML</p><script>var x = 1;</script></body></html>`)
	writePart(t, dir, "02_notes.txt", "Plain notes")
	writePart(t, dir, "message.xml", "<email/>")
	writePart(t, dir, "skip.dat", "binary stuff")

	got := ReconstructBody(filepath.Join(dir, "message.xml"))
	if got != "Hello from HTML\n\nPlain notes" {
		t.Errorf("ReconstructBody = %q", got)
	}
	if strings.Contains(got, "var x") {
		t.Errorf("script content leaked into body: %q", got)
	}
}

func TestReconstructBodyCap(t *testing.T) {
	dir := t.TempDir()
	writePart(t, dir, "big.txt", strings.Repeat("a", 12000))

	got := ReconstructBody(filepath.Join(dir, "message.xml"))
	if len(got) != 10000 {
		t.Errorf("len = %d, want the 10000-char cap", len(got))
	}
}

func TestReconstructBodyEmpty(t *testing.T) {
	dir := t.TempDir()
	if got := ReconstructBody(filepath.Join(dir, "message.xml")); got != "" {
		t.Errorf("ReconstructBody on empty dir = %q, want empty", got)
	}
}

func TestFindAttachments(t *testing.T) {
	dir := t.TempDir()
	attDir := filepath.Join(dir, "com.microsoft.__Attachments")
	if err := os.MkdirAll(attDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePart(t, attDir, "doc.pdf", "PDF")
	writePart(t, attDir, "image.png", "PNG8")
	writePart(t, attDir, "meta.xml", "<meta/>")

	atts := FindAttachments(filepath.Join(dir, "message.xml"))
	if len(atts) != 2 {
		t.Fatalf("got %d attachments, want 2: %+v", len(atts), atts)
	}
	if atts[0].Filename != "doc.pdf" || atts[0].Size != 3 {
		t.Errorf("atts[0] = %+v", atts[0])
	}
	if atts[1].Filename != "image.png" || atts[1].Size != 4 {
		t.Errorf("atts[1] = %+v", atts[1])
	}
	if atts[0].BlobRef == "" {
		t.Errorf("BlobRef not set")
	}
}

func TestFindAttachmentsScanLimit(t *testing.T) {
	dir := t.TempDir()
	attDir := filepath.Join(dir, "com.microsoft.__Attachments")
	if err := os.MkdirAll(attDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for i := 0; i < 12; i++ {
		writePart(t, attDir, fmt.Sprintf("f%02d.bin", i), "x")
	}

	atts := FindAttachments(filepath.Join(dir, "message.xml"))
	if len(atts) != 10 {
		t.Errorf("got %d attachments, want the scan capped at 10", len(atts))
	}
}

func TestFindAttachmentsMissingDir(t *testing.T) {
	dir := t.TempDir()
	if atts := FindAttachments(filepath.Join(dir, "message.xml")); atts != nil {
		t.Errorf("got %+v, want nil", atts)
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "paragraphs",
			input: "<html><body><p>one</p><p>two</p></body></html>",
			want:  "one\ntwo",
		},
		{
			name:  "style dropped",
			input: "<html><style>p { color: red }</style><p>kept</p></html>",
			want:  "kept",
		},
		{
			name:  "plain text passthrough",
			input: "just text",
			want:  "just text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.input); got != tt.want {
				t.Errorf("HTMLToText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	if got := DecodeBytes([]byte("plain utf-8")); got != "plain utf-8" {
		t.Errorf("utf-8 passthrough = %q", got)
	}
	// 0xE9 is é in Latin-1 and invalid on its own in UTF-8.
	if got := DecodeBytes([]byte{'C', 'a', 'f', 0xE9}); got != "Café" {
		t.Errorf("latin-1 fallback = %q, want Café", got)
	}
	if got := DecodeBytes(nil); got != "" {
		t.Errorf("nil input = %q, want empty", got)
	}
}
