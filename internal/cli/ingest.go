package cli

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/mailattic/mailattic/internal/ingest"
	"github.com/mailattic/mailattic/internal/logging"
	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/nlp"
	"github.com/mailattic/mailattic/internal/semantic"
	"github.com/mailattic/mailattic/internal/store"
	"github.com/mailattic/mailattic/internal/tag"
)

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	source := fs.String("source", "", "PST file, zip/OLM archive, or directory of exported messages")
	dbPath := fs.String("db", "", "path to the SQLite database")
	ckptPath := fs.String("checkpoint", "", "path to the checkpoint state file")
	cfgPath := fs.String("config", model.DefaultConfigPath(), "path to the accounts config")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *source == "" || *dbPath == "" || *ckptPath == "" {
		return errors.New("--source, --db, and --checkpoint are required")
	}
	if *verbose {
		logging.SetVerbose(true)
	}

	// A long conversion or walk should stop cleanly on Ctrl-C; the
	// checkpoint makes the interrupted run resumable.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	resolveSecrets(cfg)
	tagger, err := tag.New(cfg)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	indexer, err := semantic.NewIndexer(ctx, cfg.Semantic)
	if err != nil {
		logging.Log.Warnf("Semantic layer disabled: %v", err)
		indexer = nil
	}

	runLog := logging.Log.WithField("run_id", uuid.NewString())
	pipe := ingest.New(cfg, st, tagger, nlp.New(cfg.Entities.Engine), indexer, runLog)
	stats, err := pipe.Run(ctx, *source, *ckptPath)
	if err != nil {
		return err
	}
	runLog.Infof("ingest completed: %d stored, %d skipped, %d invalid, %d events, %d attachments",
		stats.Stored, stats.Skipped, stats.Invalid, stats.Events, stats.Attachments)
	return nil
}
