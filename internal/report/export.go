package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailattic/mailattic/internal/logging"
	"github.com/mailattic/mailattic/internal/store"
)

// exportTables lists the tables ExportCSV writes, in output order.
var exportTables = []string{"messages", "attachments", "events", "entities", "account_tags"}

// ExportCSV dumps every exportable table to <outDir>/<table>.csv. An
// empty table yields an empty file, not a lone header row.
func ExportCSV(ctx context.Context, st store.Store, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}
	for _, table := range exportTables {
		cols, rows, err := st.DumpTable(ctx, table)
		if err != nil {
			return err
		}
		out := filepath.Join(outDir, table+".csv")
		if err := writeCSV(out, cols, rows); err != nil {
			return err
		}
		logging.Log.Infof("exported %s -> %s", table, out)
	}
	return nil
}

func writeCSV(path string, cols []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if len(rows) > 0 {
		w := csv.NewWriter(f)
		if err := w.Write(cols); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := w.WriteAll(rows); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}
