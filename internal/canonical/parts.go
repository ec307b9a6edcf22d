package canonical

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/mailattic/mailattic/internal/model"
)

const (
	// partReadLimit caps how many bytes of each sibling part file are
	// read; exporters sometimes leave multi-megabyte RTF blobs behind.
	partReadLimit = 200 * 1024

	// bodyCharLimit caps the total reconstructed body length.
	bodyCharLimit = 10000

	// attachmentDirName is the sibling directory Outlook-for-Mac
	// exports use for attachment payloads.
	attachmentDirName = "com.microsoft.__Attachments"

	// attachmentScanLimit bounds how many directory entries are
	// considered per message.
	attachmentScanLimit = 10
)

// partSuffixes lists sibling-file name endings that may hold rendered
// message content, matched against the lower-cased file name.
var partSuffixes = []string{
	".com_0000", ".com_0001", ".com_0002", ".com_0003", ".com_0004",
	".com_0005", ".com_0006", ".com_0007", ".com_0008", ".com_0009",
	".com_0010",
	".html", ".htm", ".rtf", ".txt",
}

// ReconstructBody assembles a plain-text body from rendered sibling
// artifacts next to xmlPath. Many exports store the body as separate
// part files rather than inline XML text. Returns "" when nothing
// usable is found.
func ReconstructBody(xmlPath string) string {
	entries, err := os.ReadDir(filepath.Dir(xmlPath))
	if err != nil {
		return ""
	}

	var parts []string
	total := 0
	for _, e := range entries {
		if e.IsDir() || !hasAnySuffix(strings.ToLower(e.Name()), partSuffixes) {
			continue
		}
		raw := readLimited(filepath.Join(filepath.Dir(xmlPath), e.Name()), partReadLimit)
		if len(raw) == 0 {
			continue
		}
		text := strings.TrimSpace(DecodeBytes(raw))
		if looksLikeHTML(text) {
			text = HTMLToText(text)
		}
		if text == "" {
			continue
		}
		parts = append(parts, text)
		total += len(text)
		if total >= bodyCharLimit {
			break
		}
	}

	joined := strings.Join(parts, "\n\n")
	if len(joined) > bodyCharLimit {
		joined = truncate(joined, bodyCharLimit)
	}
	return joined
}

// FindAttachments lists attachment candidates stored beside xmlPath.
// Only the first attachmentScanLimit directory entries are considered,
// and the export's own .xml bookkeeping files are ignored.
func FindAttachments(xmlPath string) []model.Attachment {
	dir := filepath.Join(filepath.Dir(xmlPath), attachmentDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []model.Attachment
	for i, e := range entries {
		if i >= attachmentScanLimit {
			break
		}
		if e.IsDir() || strings.HasSuffix(strings.ToLower(e.Name()), ".xml") {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		out = append(out, model.Attachment{
			Filename: e.Name(),
			Size:     size,
			BlobRef:  filepath.Join(dir, e.Name()),
		})
	}
	return out
}

// DecodeBytes decodes raw content as UTF-8, falling back to Latin-1,
// which accepts any byte sequence.
func DecodeBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// HTMLToText strips markup, keeping text content newline-separated.
// script and style contents are dropped.
func HTMLToText(s string) string {
	tz := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch tz.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tz.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				if txt := strings.TrimSpace(string(tz.Text())); txt != "" {
					b.WriteString(txt)
					b.WriteByte('\n')
				}
			}
		}
	}
}

// looksLikeHTML is a cheap sniff for rendered markup in a part file.
func looksLikeHTML(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "<html") || strings.Contains(l, "</p>")
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// readLimited reads at most limit bytes of path, returning nil on any
// error.
func readLimited(path string, limit int64) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil
	}
	return b
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
