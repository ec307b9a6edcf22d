// Package nlp extracts named entities from message text. Extraction
// never fails the pipeline: when the statistical engine is unavailable
// the regex patterns still run, and an empty result is a valid result.
package nlp

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/mailattic/mailattic/internal/logging"
	"github.com/mailattic/mailattic/internal/model"
)

// Engine names accepted in configuration.
const (
	EngineAuto  = "auto"
	EngineRegex = "regex"
)

// Pattern-extracted entity labels.
const (
	LabelEmail = "EMAIL"
	LabelDate  = "DATE"
	LabelMoney = "MONEY"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	datePattern  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	moneyPattern = regexp.MustCompile(`\$\s?\d{1,3}(,\d{3})*(\.\d{2})?\b`)
)

// Extractor produces entities for arbitrary text.
type Extractor struct {
	engine   string
	nerTried bool
	nerOK    bool
}

// New returns an extractor for the configured engine name. Unknown
// names behave like EngineAuto.
func New(engine string) *Extractor {
	if engine == "" {
		engine = EngineAuto
	}
	return &Extractor{engine: engine}
}

// Extract returns the entities found in text: statistical NER results
// first (when the engine allows and works), then the pattern matches.
// Offsets are byte positions into text.
func (e *Extractor) Extract(text string) []model.Entity {
	if text == "" {
		return nil
	}

	var ents []model.Entity
	if e.engine != EngineRegex {
		ents = append(ents, e.nerEntities(text)...)
	}
	ents = append(ents, patternEntities(text)...)
	return ents
}

// nerEntities runs the statistical model. The first failure disables it
// for the rest of the run, with a single notice; per-message errors
// would otherwise flood the log on malformed archives.
func (e *Extractor) nerEntities(text string) []model.Entity {
	if e.nerTried && !e.nerOK {
		return nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		if !e.nerTried {
			logging.Log.Warnf("entity model unavailable, continuing with regex extraction only: %v", err)
		}
		e.nerTried = true
		e.nerOK = false
		return nil
	}
	e.nerTried = true
	e.nerOK = true

	var out []model.Entity
	searchFrom := 0
	for _, ent := range doc.Entities() {
		if ent.Text == "" {
			continue
		}
		idx := strings.Index(text[searchFrom:], ent.Text)
		if idx < 0 {
			// Tokenization may rewrite whitespace; retry from the top
			// before giving up on this entity.
			if idx = strings.Index(text, ent.Text); idx < 0 {
				continue
			}
			searchFrom = 0
		}
		start := searchFrom + idx
		out = append(out, model.Entity{
			Label:     ent.Label,
			Text:      ent.Text,
			StartChar: start,
			EndChar:   start + len(ent.Text),
		})
		searchFrom = start + len(ent.Text)
	}
	return out
}

// patternEntities applies the fixed regex patterns for addresses, dates,
// and monetary amounts.
func patternEntities(text string) []model.Entity {
	var out []model.Entity
	for _, p := range []struct {
		label string
		re    *regexp.Regexp
	}{
		{LabelEmail, emailPattern},
		{LabelDate, datePattern},
		{LabelMoney, moneyPattern},
	} {
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, model.Entity{
				Label:     p.label,
				Text:      text[m[0]:m[1]],
				StartChar: m[0],
				EndChar:   m[1],
			})
		}
	}
	return out
}
