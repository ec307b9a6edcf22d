// Package report renders HTML reports and CSV exports from the message
// store.
package report

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/mailattic/mailattic/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// dossierLimit caps how many messages a dossier includes.
const dossierLimit = 500

// Timeline writes an account's messages as a chronological HTML table.
func Timeline(ctx context.Context, st store.Store, account, outPath string) error {
	msgs, err := st.MessagesByAccount(ctx, account, false, 0)
	if err != nil {
		return err
	}
	return render("timeline.html", outPath, map[string]interface{}{
		"Account":  account,
		"Messages": msgs,
	})
}

// Dossier writes an account's most recent messages, bodies included, as
// an HTML dossier.
func Dossier(ctx context.Context, st store.Store, account, outPath string) error {
	msgs, err := st.MessagesByAccount(ctx, account, true, dossierLimit)
	if err != nil {
		return err
	}
	return render("dossier.html", outPath, map[string]interface{}{
		"Account":  account,
		"Messages": msgs,
	})
}

func render(name, outPath string, data interface{}) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := templates.ExecuteTemplate(f, name, data); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return f.Close()
}
