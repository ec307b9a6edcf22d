package reader

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
)

// WalkEMLX walks root recursively and yields one item per Apple Mail
// .emlx file.
func WalkEMLX(root string, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".emlx") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fn(Item{Key: path, Path: path, Err: err})
		}
		mr, err := parseEMLX(raw)
		if err != nil {
			return fn(Item{Key: path, Path: path, Err: err})
		}
		return fn(Item{Msg: mr, Key: path, Path: path})
	})
}

// parseEMLX parses raw bytes as an RFC-822 message, retrying once with
// the first line removed: Apple Mail prefixes the payload with a decimal
// byte count on a line of its own.
func parseEMLX(raw []byte) (*mail.Reader, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err == nil {
		return mr, nil
	}
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return mail.CreateReader(bytes.NewReader(raw[i+1:]))
	}
	return nil, err
}
