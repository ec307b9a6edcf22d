package reader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestWalkEML(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a.eml", "From: x@y.co\r\nSubject: One\r\n\r\nbody\r\n")
	writeTree(t, dir, "sub/b.txt", "From: z@y.co\r\nSubject: Two\r\n\r\nbody\r\n")
	writeTree(t, dir, "c.jpg", "not mail")

	var items []Item
	err := WalkEML(dir, func(it Item) error {
		items = append(items, it)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkEML: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	subjects := map[string]bool{}
	for _, it := range items {
		if it.Err != nil {
			t.Errorf("item %s: unexpected error %v", it.Key, it.Err)
			continue
		}
		if it.Key != it.Path {
			t.Errorf("Key = %q, want the file path %q", it.Key, it.Path)
		}
		subjects[it.Msg.Header.Get("Subject")] = true
	}
	if !subjects["One"] || !subjects["Two"] {
		t.Errorf("subjects = %v, want One and Two", subjects)
	}
}

func TestWalkEMLAborts(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a.eml", "From: x@y.co\r\nSubject: One\r\n\r\nbody\r\n")
	writeTree(t, dir, "b.eml", "From: x@y.co\r\nSubject: Two\r\n\r\nbody\r\n")

	stop := errors.New("stop")
	calls := 0
	err := WalkEML(dir, func(Item) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want the callback error", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times after abort, want 1", calls)
	}
}
