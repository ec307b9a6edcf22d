package reader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message/mail"
)

// MboxKey returns the checkpoint key for the n-th message inside an
// mbox file. The ordinal keeps keys stable across runs because mbox
// members are read in file order.
func MboxKey(path string, n int) string {
	return fmt.Sprintf("%s::msg:%d", path, n)
}

// WalkMbox walks root recursively and yields one item per message found
// in each .mbox file.
func WalkMbox(root string, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".mbox") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fn(Item{Key: path, Path: path, Err: err})
		}
		defer f.Close()

		mr := mbox.NewReader(f)
		for n := 0; ; n++ {
			r, err := mr.NextMessage()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// Container damage: members past this point are
				// unrecoverable, so report once and stop this file.
				return fn(Item{Key: MboxKey(path, n), Path: path, Err: err})
			}

			item := Item{Key: MboxKey(path, n), Path: path}
			msg, err := mail.CreateReader(r)
			if err != nil {
				item.Err = err
			} else {
				item.Msg = msg
			}
			if err := fn(item); err != nil {
				return err
			}
		}
	})
}
