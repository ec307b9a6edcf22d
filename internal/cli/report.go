package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/mailattic/mailattic/internal/report"
)

func runTimeline(args []string) error {
	fs := flag.NewFlagSet("timeline", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the SQLite database")
	account := fs.String("account", "", "account tag to report on")
	out := fs.String("out", "", "output HTML path")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *account == "" || *out == "" {
		return errors.New("--account and --out are required")
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := report.Timeline(context.Background(), st, *account, *out); err != nil {
		return err
	}
	fmt.Printf("Wrote timeline to %s\n", *out)
	return nil
}

func runDossier(args []string) error {
	fs := flag.NewFlagSet("dossier", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the SQLite database")
	account := fs.String("account", "", "account tag to report on")
	out := fs.String("out", "", "output HTML path")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *account == "" || *out == "" {
		return errors.New("--account and --out are required")
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := report.Dossier(context.Background(), st, *account, *out); err != nil {
		return err
	}
	fmt.Printf("Wrote dossier to %s\n", *out)
	return nil
}
