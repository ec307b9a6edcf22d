// Package ingest is the top-level ingestion control loop. It detects
// what kind of source it was pointed at, drives the format readers
// through canonicalization, tagging, enrichment, and storage, and
// records per-item checkpoint state so an interrupted run resumes
// instead of starting over.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"github.com/mailattic/mailattic/internal/canonical"
	"github.com/mailattic/mailattic/internal/checkpoint"
	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/nlp"
	"github.com/mailattic/mailattic/internal/pst"
	"github.com/mailattic/mailattic/internal/reader"
	"github.com/mailattic/mailattic/internal/semantic"
	"github.com/mailattic/mailattic/internal/store"
	"github.com/mailattic/mailattic/internal/tag"
)

const (
	// commitInterval is how many stored items share one storage
	// transaction. Bounds the work lost if the process dies mid-run.
	commitInterval = 500

	// progressInterval is how often message progress is logged.
	progressInterval = 500

	// eventProgressInterval is how often calendar-event progress is
	// logged; event parsing is much cheaper than message ingestion.
	eventProgressInterval = 1000
)

// Stats counts what one ingestion run did.
type Stats struct {
	// Stored is the number of messages upserted.
	Stored int
	// Skipped is the number of items the checkpoint already covered.
	Skipped int
	// Invalid is the number of unparseable or contentless items.
	Invalid int
	// Events is the number of calendar events created.
	Events int
	// Attachments is the number of attachment rows recorded.
	Attachments int
}

// Pipeline wires parsing, tagging, enrichment, and storage behind one
// resumable Run call. The indexer may be nil when the semantic layer is
// disabled or failed to initialize.
type Pipeline struct {
	store    store.Store
	tagger   *tag.Tagger
	entities *nlp.Extractor
	indexer  semantic.Indexer
	cfg      *model.Config
	log      logrus.FieldLogger
}

// New assembles a pipeline from its collaborators.
func New(cfg *model.Config, st store.Store, tagger *tag.Tagger, entities *nlp.Extractor, indexer semantic.Indexer, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		store:    st,
		tagger:   tagger,
		entities: entities,
		indexer:  indexer,
		cfg:      cfg,
		log:      log,
	}
}

// Run ingests one source, which may be a directory of exported
// messages, a zip archive of one, or a PST file. Detection precedence:
// directories and zip contents go straight to the export-tree walk;
// other files are preflighted, then handed to a native PST extractor
// when one is registered, else converted with readpst.
func (p *Pipeline) Run(ctx context.Context, source, checkpointPath string) (*Stats, error) {
	ckpt, err := checkpoint.Load(checkpointPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("source not found: %s", source)
	}
	if info.IsDir() {
		return p.runExportTree(ctx, source, ckpt)
	}

	if isZipArchive(source) {
		p.log.Info("detected zip archive, unpacking")
		dest := filepath.Join(p.cfg.WorkDir, "eml_unzip")
		if err := unpack(source, dest); err != nil {
			return nil, err
		}
		return p.runExportTree(ctx, dest, ckpt)
	}

	if err := pst.Preflight(ctx, source); err != nil {
		return nil, err
	}
	if ext, ok := pst.Native(); ok {
		p.log.Info("using native PST extractor")
		return p.runNative(ctx, ext, source, ckpt)
	}
	if !pst.ConverterAvailable() {
		return nil, fmt.Errorf("readpst not found: install libpst, or provide a zip of EML/mbox exports")
	}
	outDir := filepath.Join(p.cfg.WorkDir, "readpst_out")
	if err := pst.Convert(ctx, source, outDir); err != nil {
		return nil, err
	}
	return p.runExportTree(ctx, outDir, ckpt)
}

// runExportTree walks a directory of exported messages: EML, mbox, and
// EMLX first, then the Outlook-for-Mac XML heuristics when that first
// pass touched nothing, then calendar files.
func (p *Pipeline) runExportTree(ctx context.Context, root string, ckpt *checkpoint.Store) (*Stats, error) {
	r, err := p.newRunner(ctx, ckpt)
	if err != nil {
		return nil, err
	}

	for _, walk := range []func(string, reader.WalkFunc) error{reader.WalkEML, reader.WalkMbox, reader.WalkEMLX} {
		if err := walk(root, r.handleMailItem); err != nil {
			r.abort()
			return nil, err
		}
	}

	// Stored and Skipped both zero means the tree holds no RFC-822
	// content at all, known or new, so the XML heuristics get a turn.
	if r.stats.Stored == 0 && r.stats.Skipped == 0 {
		p.log.Info("no EML, mbox, or EMLX messages found, trying the Outlook for Mac XML path")
		if err := reader.WalkOutlookXML(root, r.handleXMLItem); err != nil {
			r.abort()
			return nil, err
		}
	}

	if err := reader.WalkICS(root, r.handleEvent); err != nil {
		r.abort()
		return nil, err
	}

	return r.finish(ctx)
}

// runNative drives a registered native PST extractor. Identity is
// tracked by external id because PST items have no stable file path.
func (p *Pipeline) runNative(ctx context.Context, ext pst.NativeExtractor, source string, ckpt *checkpoint.Store) (*Stats, error) {
	r, err := p.newRunner(ctx, ckpt)
	if err != nil {
		return nil, err
	}
	if err := ext.Extract(ctx, source, r.handleNativeMessage); err != nil {
		r.abort()
		return nil, fmt.Errorf("extracting %s: %w", source, err)
	}
	return r.finish(ctx)
}

// runner carries the mutable state of one Run: the open storage batch,
// the checkpoint store, and the counters.
type runner struct {
	p           *Pipeline
	ctx         context.Context
	ckpt        *checkpoint.Store
	batch       store.Batch
	stats       Stats
	sinceCommit int
}

func (p *Pipeline) newRunner(ctx context.Context, ckpt *checkpoint.Store) (*runner, error) {
	batch, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &runner{p: p, ctx: ctx, ckpt: ckpt, batch: batch}, nil
}

// handleMailItem processes one RFC-822 item from the EML, mbox, or EMLX
// walks. Parse failures and contentless messages are counted, never
// fatal.
func (r *runner) handleMailItem(item reader.Item) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if item.Err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("unparseable %s: %v", item.Key, item.Err)
		return nil
	}
	if r.ckpt.SeenItem(item.Key) {
		r.stats.Skipped++
		return nil
	}

	msg, err := canonical.FromMail(item.Msg, "")
	if err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("skipping %s: %v", item.Key, err)
		return nil
	}
	return r.finishMessage(item.Key, msg, nil)
}

// handleXMLItem processes one Outlook-for-Mac XML document, pulling the
// body from rendered sibling files when the XML itself has none and
// picking up attachment artifacts stored next to the document.
func (r *runner) handleXMLItem(item reader.XMLItem) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if item.Err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("unparseable %s: %v", item.Path, item.Err)
		return nil
	}
	if r.ckpt.SeenItem(item.Path) {
		r.stats.Skipped++
		return nil
	}

	msg, err := canonical.FromOLM(item.Doc)
	if err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("skipping %s: %v", item.Path, err)
		return nil
	}
	if msg.Body == "" {
		msg.Body = canonical.ReconstructBody(item.Path)
	}
	atts := canonical.FindAttachments(item.Path)
	if len(atts) > 0 {
		msg.HasAttachments = true
	}
	return r.finishMessage(item.Path, msg, atts)
}

// handleEvent records one calendar event. Events never map to a message
// row, so the checkpoint gets the sentinel value.
func (r *runner) handleEvent(ev reader.VEvent) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	key := fmt.Sprintf("%s::evt:%d", ev.Path, ev.Index)
	if r.ckpt.SeenItem(key) {
		r.stats.Skipped++
		return nil
	}

	e := model.Event{
		Kind:      model.EventKindCalendar,
		Title:     ev.Fields["SUMMARY"],
		StartsAt:  canonical.NormalizeDate(ev.Fields["DTSTART"]),
		EndsAt:    canonical.NormalizeDate(ev.Fields["DTEND"]),
		Location:  ev.Fields["LOCATION"],
		SourceRef: ev.Path,
	}
	if err := r.batch.InsertEvent(r.ctx, e); err != nil {
		return fmt.Errorf("storing event from %s: %w", ev.Path, err)
	}
	if err := r.ckpt.MarkItem(key, checkpoint.EventSentinel); err != nil {
		return err
	}
	r.stats.Events++
	if r.stats.Events%eventProgressInterval == 0 {
		r.p.log.Infof("parsed %d calendar events", r.stats.Events)
	}
	return r.maybeCycle()
}

// handleNativeMessage processes one message from a native PST
// extractor: raw bytes through the normal RFC-822 path, attachments
// from the extractor's own metadata.
func (r *runner) handleNativeMessage(m pst.Message) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	mr, err := mail.CreateReader(bytes.NewReader(m.Raw))
	if err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("unparseable PST message: %v", err)
		return nil
	}
	externalID := canonical.ExternalID(mr.Header)
	if r.ckpt.SeenExternalID(externalID) {
		r.stats.Skipped++
		return nil
	}

	msg, err := canonical.FromMail(mr, m.Folder)
	if err != nil {
		r.stats.Invalid++
		r.p.log.Debugf("skipping PST message %s: %v", externalID, err)
		return nil
	}
	var atts []model.Attachment
	for _, a := range m.Attachments {
		atts = append(atts, model.Attachment{Filename: a.Filename, Size: a.Size})
	}
	if len(atts) > 0 {
		msg.HasAttachments = true
	}

	if err := r.storeMessage(msg, atts); err != nil {
		return err
	}
	r.embed(msg)
	if err := r.ckpt.MarkExternalID(externalID); err != nil {
		return err
	}
	r.stats.Stored++
	r.progress()
	return r.maybeCycle()
}

// finishMessage stores an item-keyed message and records its checkpoint
// entry.
func (r *runner) finishMessage(key string, msg *model.Message, atts []model.Attachment) error {
	if err := r.storeMessage(msg, atts); err != nil {
		return err
	}
	r.embed(msg)
	if err := r.ckpt.MarkItem(key, msg.ID); err != nil {
		return err
	}
	r.stats.Stored++
	r.progress()
	return r.maybeCycle()
}

// storeMessage tags and upserts one message plus its dependent rows.
// Attachment failures are per-item noise; entity and tag storage errors
// are storage errors and abort the run.
func (r *runner) storeMessage(msg *model.Message, atts []model.Attachment) error {
	primary, partners, tags := r.p.tagger.Evaluate(msg.SenderEmail, recipientList(msg), msg.Subject, msg.Body)
	msg.AccountTag = primary
	msg.PartnerTags = strings.Join(partners, ";")

	if _, err := r.batch.UpsertMessage(r.ctx, msg); err != nil {
		return fmt.Errorf("storing message %s: %w", msg.ExternalID, err)
	}
	for _, a := range atts {
		if err := r.batch.InsertAttachment(r.ctx, msg.ID, a); err != nil {
			r.p.log.Debugf("recording attachment %s: %v", a.Filename, err)
			continue
		}
		r.stats.Attachments++
	}
	if ents := r.p.entities.Extract(msg.Body); len(ents) > 0 {
		if err := r.batch.AddEntities(r.ctx, msg.ID, ents); err != nil {
			return fmt.Errorf("storing entities for %s: %w", msg.ExternalID, err)
		}
	}
	if len(tags) > 0 {
		if err := r.batch.TagMessage(r.ctx, msg.ID, tags); err != nil {
			return fmt.Errorf("tagging message %s: %w", msg.ExternalID, err)
		}
	}
	return nil
}

// embed hands one stored message to the semantic indexer, which absorbs
// its own failures.
func (r *runner) embed(msg *model.Message) {
	if r.p.indexer == nil {
		return
	}
	r.p.indexer.Add(r.ctx, msg.ID, msg.Subject, msg.Body)
}

func (r *runner) progress() {
	if r.stats.Stored%progressInterval == 0 {
		r.p.log.Infof("processed %d messages", r.stats.Stored)
	}
}

// maybeCycle commits the open batch and opens a fresh one every
// commitInterval items.
func (r *runner) maybeCycle() error {
	r.sinceCommit++
	if r.sinceCommit < commitInterval {
		return nil
	}
	return r.cycleBatch()
}

func (r *runner) cycleBatch() error {
	if err := r.batch.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	batch, err := r.p.store.Begin(r.ctx)
	if err != nil {
		return err
	}
	r.batch = batch
	r.sinceCommit = 0
	return nil
}

// finish flushes the semantic index (best-effort) and commits the last
// batch.
func (r *runner) finish(ctx context.Context) (*Stats, error) {
	if r.p.indexer != nil {
		if err := r.p.indexer.Flush(ctx); err != nil {
			r.p.log.Warnf("flushing semantic index: %v", err)
		}
	}
	if err := r.batch.Commit(); err != nil {
		return nil, fmt.Errorf("committing final batch: %w", err)
	}
	return &r.stats, nil
}

func (r *runner) abort() {
	if err := r.batch.Rollback(); err != nil {
		r.p.log.Debugf("rolling back batch: %v", err)
	}
}

// recipientList flattens the three recipient fields for tag evaluation.
func recipientList(m *model.Message) []string {
	var out []string
	for _, field := range []string{m.RecipientsTo, m.RecipientsCc, m.RecipientsBcc} {
		if field == "" {
			continue
		}
		out = append(out, strings.Split(field, ";")...)
	}
	return out
}
