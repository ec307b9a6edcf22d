package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		ew, err := w.Create(name)
		if err != nil {
			t.Fatalf("adding entry %s: %v", name, err)
		}
		if _, err := ew.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing zip file: %v", err)
	}
}

func TestIsZipArchive(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "export.zip")
	writeZip(t, zipPath, map[string]string{"a.txt": "hello"})
	if !isZipArchive(zipPath) {
		t.Errorf("isZipArchive(%s) = false", zipPath)
	}

	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("PKzz not a zip"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if isZipArchive(plain) {
		t.Errorf("isZipArchive matched a text file")
	}

	if isZipArchive(filepath.Join(dir, "absent.zip")) {
		t.Errorf("isZipArchive matched a missing file")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if isZipArchive(empty) {
		t.Errorf("isZipArchive matched an empty file")
	}
}

func TestUnpack(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "export.zip")
	writeZip(t, zipPath, map[string]string{
		"mail/a.eml":     "Subject: hi\r\n\r\nbody\r\n",
		"mail/sub/b.eml": "Subject: deep\r\n\r\nbody\r\n",
	})

	dest := filepath.Join(dir, "out")
	if err := unpack(zipPath, dest); err != nil {
		t.Fatalf("unpack: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "mail", "a.eml"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "Subject: hi\r\n\r\nbody\r\n" {
		t.Errorf("extracted content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "mail", "sub", "b.eml")); err != nil {
		t.Errorf("nested entry not extracted: %v", err)
	}
}

func TestUnpackSkipsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"good.txt":    "fine",
		"../evil.txt": "escape attempt",
	})

	dest := filepath.Join(dir, "out")
	if err := unpack(zipPath, dest); err != nil {
		t.Fatalf("unpack: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "good.txt")); err != nil {
		t.Errorf("good entry not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
		t.Errorf("escaping entry written outside the destination")
	}
}
