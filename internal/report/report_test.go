package report_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/report"
	"github.com/mailattic/mailattic/internal/store"
	"github.com/mailattic/mailattic/tests/testutil"
)

func seedMessages(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	batch, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	msgs := []model.Message{
		{
			ExternalID:  "<t1@x>",
			SenderEmail: "ap@acme.com",
			Subject:     "Kickoff notes",
			Body:        "minutes attached",
			SentAt:      "2024-01-01T09:00:00Z",
			AccountTag:  "Acme",
		},
		{
			ExternalID:  "<t2@x>",
			SenderEmail: "ceo@acme.com",
			Subject:     "Renewal terms",
			Body:        "see section 4",
			SentAt:      "2024-02-01T09:00:00Z",
			AccountTag:  "Acme",
			PartnerTags: "Globex",
		},
	}
	for i := range msgs {
		if _, err := batch.UpsertMessage(ctx, &msgs[i]); err != nil {
			t.Fatalf("UpsertMessage: %v", err)
		}
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestTimeline(t *testing.T) {
	st := testutil.NewTestStore(t)
	seedMessages(t, st)

	out := filepath.Join(t.TempDir(), "reports", "timeline.html")
	if err := report.Timeline(context.Background(), st, "Acme", out); err != nil {
		t.Fatalf("Timeline: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"Compliance timeline: Acme",
		"Kickoff notes",
		"Renewal terms",
		"2024-01-01T09:00:00Z",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
	// Chronological: the kickoff row comes before the renewal row.
	if strings.Index(html, "Kickoff notes") > strings.Index(html, "Renewal terms") {
		t.Errorf("timeline not in ascending date order")
	}
}

func TestDossier(t *testing.T) {
	st := testutil.NewTestStore(t)
	seedMessages(t, st)

	out := filepath.Join(t.TempDir(), "dossier.html")
	if err := report.Dossier(context.Background(), st, "Acme", out); err != nil {
		t.Fatalf("Dossier: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"Dossier: Acme",
		"see section 4",
		"Partners: Globex",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dossier missing %q", want)
		}
	}
	// Most recent first, bodies included.
	if strings.Index(html, "Renewal terms") > strings.Index(html, "Kickoff notes") {
		t.Errorf("dossier not in descending date order")
	}
}

func TestExportCSV(t *testing.T) {
	st := testutil.NewTestStore(t)
	seedMessages(t, st)

	outDir := filepath.Join(t.TempDir(), "export")
	if err := report.ExportCSV(context.Background(), st, outDir); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	for _, table := range []string{"messages", "attachments", "events", "entities", "account_tags"} {
		if _, err := os.Stat(filepath.Join(outDir, table+".csv")); err != nil {
			t.Errorf("missing export for %s: %v", table, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "messages.csv"))
	if err != nil {
		t.Fatalf("reading messages.csv: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "external_id") {
		t.Errorf("messages.csv missing the header row")
	}
	if !strings.Contains(content, "Kickoff notes") || !strings.Contains(content, "Renewal terms") {
		t.Errorf("messages.csv missing seeded rows")
	}

	// Tables without rows export as empty files, not lone headers.
	info, err := os.Stat(filepath.Join(outDir, "events.csv"))
	if err != nil {
		t.Fatalf("stat events.csv: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("events.csv size = %d, want an empty file", info.Size())
	}
}
