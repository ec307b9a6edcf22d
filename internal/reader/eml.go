package reader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
)

// WalkEML walks root recursively and yields one item per .eml or .txt
// file. readpst and most mail exporters emit one message per file in
// this layout.
func WalkEML(root string, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".eml") && !strings.HasSuffix(name, ".txt") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fn(Item{Key: path, Path: path, Err: err})
		}
		defer f.Close()

		mr, err := mail.CreateReader(f)
		if err != nil {
			return fn(Item{Key: path, Path: path, Err: err})
		}
		return fn(Item{Msg: mr, Key: path, Path: path})
	})
}
