package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/semantic"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the SQLite database")
	query := fs.String("q", "", "substring to match against subject and body")
	limit := fs.Int("limit", 50, "maximum number of results")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *query == "" {
		return errors.New("--q is required")
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	msgs, err := st.Search(context.Background(), *query, *limit)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.SentAt,
			m.SenderEmail,
			m.AccountTag,
			truncateCell(m.Subject, subjectWidth),
		})
	}
	fmt.Printf("Search: %s\n", *query)
	fmt.Println(renderTable([]string{"ID", "Sent", "Sender", "Account", "Subject"}, rows))
	return nil
}

func runSemantic(args []string) error {
	fs := flag.NewFlagSet("semantic", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to the SQLite database")
	cfgPath := fs.String("config", model.DefaultConfigPath(), "path to the accounts config")
	query := fs.String("q", "", "natural language query")
	k := fs.Int("k", 10, "number of results")
	if handled, err := parseFlags(fs, args); err != nil || handled {
		return err
	}
	if *query == "" {
		return errors.New("--q is required")
	}

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	resolveSecrets(cfg)
	if !cfg.Semantic.Enabled {
		fmt.Println("Semantic layer disabled in config.")
		return nil
	}

	ctx := context.Background()
	indexer, err := semantic.NewIndexer(ctx, cfg.Semantic)
	if err != nil {
		return err
	}
	hits, err := indexer.Search(ctx, *query, *k)
	if err != nil {
		return err
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.MessageID)
	}
	msgs, err := st.MessagesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}

	// Rows go out in hit order, which is already descending by score.
	// Hits whose rows are gone (store rebuilt since indexing) are
	// dropped rather than shown as blanks.
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		m, ok := byID[h.MessageID]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%.3f", h.Score),
			m.SentAt,
			m.SenderEmail,
			truncateCell(m.Subject, subjectWidth),
			m.AccountTag,
		})
	}

	fmt.Printf("Semantic results: %q\n", *query)
	fmt.Println(renderTable([]string{"Score", "Sent", "Sender", "Subject", "Account"}, rows))
	return nil
}
