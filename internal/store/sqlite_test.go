package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/store"
	"github.com/mailattic/mailattic/tests/testutil"
)

func storeMessage(t *testing.T, st *store.SQLiteStore, m *model.Message) int64 {
	t.Helper()
	ctx := context.Background()
	batch, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id, err := batch.UpsertMessage(ctx, m)
	if err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return id
}

func TestMigrationsCreateSchema(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"messages", "attachments", "events", "entities", "account_tags"} {
		cols, rows, err := st.DumpTable(ctx, table)
		if err != nil {
			t.Fatalf("DumpTable(%s): %v", table, err)
		}
		if len(cols) == 0 {
			t.Errorf("table %s has no columns", table)
		}
		if len(rows) != 0 {
			t.Errorf("table %s not empty on a fresh database", table)
		}
	}

	cols, _, err := st.DumpTable(ctx, "messages")
	if err != nil {
		t.Fatalf("DumpTable(messages): %v", err)
	}
	if !contains(cols, "external_id") || !contains(cols, "account_tag") {
		t.Errorf("messages columns = %v", cols)
	}
}

func TestDumpTableRejectsUnknownTable(t *testing.T) {
	st := testutil.NewTestStore(t)
	if _, _, err := st.DumpTable(context.Background(), "sqlite_master"); err == nil {
		t.Fatalf("expected an error for a non-exportable table")
	}
}

func TestUpsertMessageIsIdempotent(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	first := &model.Message{
		ExternalID:  "<abc@x>",
		SenderEmail: "ap@acme.com",
		Subject:     "version one",
		Body:        "old body",
		SentAt:      "2024-01-01T09:00:00Z",
	}
	firstID := storeMessage(t, st, first)
	if first.ID != firstID {
		t.Errorf("row id not written back: m.ID=%d returned=%d", first.ID, firstID)
	}

	second := &model.Message{
		ExternalID:  "<abc@x>",
		SenderEmail: "ap@acme.com",
		Subject:     "version two",
		Body:        "new body",
		SentAt:      "2024-01-01T09:00:00Z",
	}
	secondID := storeMessage(t, st, second)
	if secondID != firstID {
		t.Errorf("upsert changed the row id: %d then %d", firstID, secondID)
	}

	count, err := st.CountMessages(ctx)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if count != 1 {
		t.Errorf("CountMessages = %d, want 1", count)
	}

	if hits, _ := st.Search(ctx, "version one", 10); len(hits) != 0 {
		t.Errorf("stale subject still searchable: %v", hits)
	}
	hits, err := st.Search(ctx, "version two", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Body != "new body" {
		t.Errorf("Search = %+v, want the replaced contents", hits)
	}
}

func TestDependentRows(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	batch, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	msg := &model.Message{ExternalID: "<dep@x>", Subject: "carrier", HasAttachments: true}
	id, err := batch.UpsertMessage(ctx, msg)
	if err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
	if err := batch.InsertAttachment(ctx, id, model.Attachment{
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		Size:        3,
	}); err != nil {
		t.Fatalf("InsertAttachment: %v", err)
	}
	if err := batch.InsertEvent(ctx, model.Event{
		MessageID: id,
		Kind:      model.EventKindCalendar,
		Title:     "linked",
		StartsAt:  "2024-01-01T09:00:00Z",
	}); err != nil {
		t.Fatalf("InsertEvent linked: %v", err)
	}
	if err := batch.InsertEvent(ctx, model.Event{
		Kind:  model.EventKindCalendar,
		Title: "standalone",
	}); err != nil {
		t.Fatalf("InsertEvent standalone: %v", err)
	}
	if err := batch.AddEntities(ctx, id, []model.Entity{
		{Label: "MONEY", Text: "$500.00", StartChar: 0, EndChar: 7},
	}); err != nil {
		t.Fatalf("AddEntities: %v", err)
	}
	tags := []model.MessageTag{
		{Name: "Acme", Kind: model.TagKindAccount},
		{Name: "Globex", Kind: model.TagKindPartner},
	}
	if err := batch.TagMessage(ctx, id, tags); err != nil {
		t.Fatalf("TagMessage: %v", err)
	}
	// Re-tagging the same names must be a no-op, not an error.
	if err := batch.TagMessage(ctx, id, tags); err != nil {
		t.Fatalf("TagMessage repeat: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	_, rows, err := st.DumpTable(ctx, "attachments")
	if err != nil {
		t.Fatalf("DumpTable(attachments): %v", err)
	}
	if len(rows) != 1 || !rowContains(rows[0], "doc.pdf") {
		t.Errorf("attachments = %v", rows)
	}

	_, rows, err = st.DumpTable(ctx, "events")
	if err != nil {
		t.Fatalf("DumpTable(events): %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("events = %v, want the linked and the standalone row", rows)
	}

	_, rows, err = st.DumpTable(ctx, "entities")
	if err != nil {
		t.Fatalf("DumpTable(entities): %v", err)
	}
	if len(rows) != 1 || !rowContains(rows[0], "$500.00") {
		t.Errorf("entities = %v", rows)
	}

	_, rows, err = st.DumpTable(ctx, "account_tags")
	if err != nil {
		t.Fatalf("DumpTable(account_tags): %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("account_tags = %v, want duplicates ignored", rows)
	}
}

func TestMessagesByAccount(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	seed := []model.Message{
		{ExternalID: "<1@x>", Subject: "oldest", AccountTag: "Acme", SentAt: "2024-01-01T09:00:00Z"},
		{ExternalID: "<2@x>", Subject: "newest", AccountTag: "Acme", SentAt: "2024-03-01T09:00:00Z"},
		{ExternalID: "<3@x>", Subject: "middle", AccountTag: "Acme", SentAt: "2024-02-01T09:00:00Z"},
		{ExternalID: "<4@x>", Subject: "other", AccountTag: "Beta", SentAt: "2024-04-01T09:00:00Z"},
	}
	for i := range seed {
		storeMessage(t, st, &seed[i])
	}

	asc, err := st.MessagesByAccount(ctx, "Acme", false, 0)
	if err != nil {
		t.Fatalf("MessagesByAccount asc: %v", err)
	}
	if got := subjects(asc); !equal(got, []string{"oldest", "middle", "newest"}) {
		t.Errorf("ascending order = %v", got)
	}

	desc, err := st.MessagesByAccount(ctx, "Acme", true, 2)
	if err != nil {
		t.Fatalf("MessagesByAccount desc: %v", err)
	}
	if got := subjects(desc); !equal(got, []string{"newest", "middle"}) {
		t.Errorf("descending limited order = %v", got)
	}
}

func TestMessagesByIDs(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	a := storeMessage(t, st, &model.Message{ExternalID: "<a@x>", Subject: "alpha"})
	storeMessage(t, st, &model.Message{ExternalID: "<b@x>", Subject: "beta"})
	c := storeMessage(t, st, &model.Message{ExternalID: "<c@x>", Subject: "gamma"})

	got, err := st.MessagesByIDs(ctx, []int64{c, a})
	if err != nil {
		t.Fatalf("MessagesByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MessagesByIDs returned %d rows, want 2", len(got))
	}
	for _, m := range got {
		if m.Subject == "beta" {
			t.Errorf("unrequested row returned: %+v", m)
		}
	}

	if got, err := st.MessagesByIDs(ctx, nil); err != nil || len(got) != 0 {
		t.Errorf("MessagesByIDs(nil) = %v, %v", got, err)
	}
}

func TestSearchNewestFirst(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	storeMessage(t, st, &model.Message{ExternalID: "<s1@x>", Subject: "report draft", SentAt: "2024-01-01T09:00:00Z"})
	storeMessage(t, st, &model.Message{ExternalID: "<s2@x>", Subject: "report final", SentAt: "2024-02-01T09:00:00Z"})
	storeMessage(t, st, &model.Message{ExternalID: "<s3@x>", Body: "see the report inside", SentAt: "2024-03-01T09:00:00Z", Subject: "fyi"})

	hits, err := st.Search(ctx, "report", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := subjects(hits); !equal(got, []string{"fyi", "report final", "report draft"}) {
		t.Errorf("search order = %v", got)
	}

	limited, err := st.Search(ctx, "report", 1)
	if err != nil {
		t.Fatalf("Search limited: %v", err)
	}
	if len(limited) != 1 || limited[0].Subject != "fyi" {
		t.Errorf("limited search = %v", subjects(limited))
	}
}

func subjects(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Subject
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func rowContains(row []string, want string) bool {
	for _, cell := range row {
		if strings.Contains(cell, want) {
			return true
		}
	}
	return false
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
