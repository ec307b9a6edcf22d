package cli

import (
	"errors"
	"flag"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mailattic/mailattic/internal/credential"
	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/store"
)

// subjectWidth caps the subject column so one long subject does not
// dominate the table.
const subjectWidth = 80

// parseFlags parses args, reporting whether help output already
// handled the invocation.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// resolveSecrets fills semantic API keys from the system keyring when
// the config file and environment leave them empty. Keyring errors are
// ignored: a missing entry just means the key stays unset.
func resolveSecrets(cfg *model.Config) {
	if cfg.Semantic.APIKey == "" {
		if v, err := credential.Get(credential.ChromaAPIKey); err == nil {
			cfg.Semantic.APIKey = v
		}
	}
	if cfg.Semantic.GeminiAPIKey == "" {
		if v, err := credential.Get(credential.GeminiAPIKey); err == nil {
			cfg.Semantic.GeminiAPIKey = v
		}
	}
}

// openStore opens the SQLite store behind --db.
func openStore(path string) (store.Store, error) {
	if path == "" {
		return nil, errors.New("--db is required")
	}
	return store.NewSQLiteStore(path)
}

// renderTable renders rows as a bordered terminal table.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// truncateCell cuts a cell value to at most max runes.
func truncateCell(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
