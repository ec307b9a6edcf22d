package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mailattic/mailattic/internal/logging"
)

// zipMagic is the local-file-header signature opening a zip archive.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// isZipArchive sniffs the first four bytes of path. Outlook exports are
// frequently handed over as zips of EML trees, and OLM files are zips
// themselves.
func isZipArchive(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, zipMagic)
}

// unpack extracts the archive under destDir. Entries whose names would
// escape the destination are skipped, as are individually failing
// entries; one bad member must not lose the rest of the archive.
func unpack(zipPath, destDir string) error {
	// ErrInsecurePath still hands back a usable reader; the per-entry
	// guard below drops the offending names.
	r, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}
	for _, entry := range r.File {
		if err := extractEntry(entry, destDir); err != nil {
			logging.Log.Debugf("skipping archive entry %s: %v", entry.Name, err)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("entry name escapes destination")
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
