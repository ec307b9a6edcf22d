package cli

import (
	"context"
	"errors"
	"flag"

	"github.com/mailattic/mailattic/internal/report"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the SQLite database")
	out := fs.String("out", "", "output directory for CSV files")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	return report.ExportCSV(context.Background(), st, *out)
}
