package reader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// VEvent is one VEVENT block from an ICS file. Fields are keyed by
// upper-cased property name with parameters stripped (DTSTART;TZID=...
// becomes DTSTART); values are kept raw. Index is the zero-based
// position of the event within its file, stable across runs because
// blocks are read in file order.
type VEvent struct {
	Fields map[string]string
	Path   string
	Index  int
}

// WalkICS walks root recursively and yields every VEVENT found in .ics
// files. Unreadable files are skipped.
func WalkICS(root string, fn func(ev VEvent) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".ics") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for i, fields := range parseICS(string(raw)) {
			if err := fn(VEvent{Fields: fields, Path: path, Index: i}); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseICS scans ICS content for VEVENT blocks. Folded continuation
// lines (leading space or tab) are joined onto the preceding line first.
// Blocks missing their END:VEVENT are dropped.
func parseICS(content string) []map[string]string {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		if (strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += strings.TrimSpace(raw)
		} else {
			lines = append(lines, raw)
		}
	}

	var events []map[string]string
	var cur map[string]string
	for _, ln := range lines {
		switch strings.TrimSpace(ln) {
		case "BEGIN:VEVENT":
			cur = map[string]string{}
			continue
		case "END:VEVENT":
			if cur != nil {
				events = append(events, cur)
			}
			cur = nil
			continue
		}
		if cur == nil {
			continue
		}
		k, v, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		if i := strings.Index(k, ";"); i >= 0 {
			k = k[:i]
		}
		cur[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return events
}
