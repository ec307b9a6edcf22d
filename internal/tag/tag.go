// Package tag assigns organizational account and partner tags to
// canonical messages from configured rules.
package tag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mailattic/mailattic/internal/model"
)

// Scoring weights and threshold. These values are load-bearing for
// existing archives: changing them re-tags messages on the next
// re-ingestion from a fresh checkpoint.
const (
	aliasWeight    = 1
	keywordWeight  = 1
	domainWeight   = 2
	scoreThreshold = 2
)

// Tagger evaluates tagging rules against canonical messages. Overrides
// (exact sender address, then subject patterns in order) win over the
// scoring heuristic.
type Tagger struct {
	accounts  []model.AccountConfig
	addresses map[string]string
	patterns  []subjectPattern
}

type subjectPattern struct {
	re      *regexp.Regexp
	account string
}

// New compiles the configured rules. Subject override patterns are
// compiled here so a malformed pattern fails the run before any message
// is processed.
func New(cfg *model.Config) (*Tagger, error) {
	t := &Tagger{
		accounts:  cfg.Accounts,
		addresses: make(map[string]string, len(cfg.Overrides.Addresses)),
	}
	for addr, account := range cfg.Overrides.Addresses {
		t.addresses[strings.ToLower(addr)] = account
	}
	for _, sp := range cfg.Overrides.SubjectPatterns {
		if sp.Pattern == "" || sp.Account == "" {
			continue
		}
		re, err := regexp.Compile(sp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling subject override %q: %w", sp.Pattern, err)
		}
		t.patterns = append(t.patterns, subjectPattern{re: re, account: sp.Account})
	}
	return t, nil
}

// Evaluate returns the primary account tag (empty when no rule matched),
// the matched partner names, and the full tag set to persist.
//
// Accounts are scored in configuration order and the first one reaching
// the threshold becomes the primary; partners match independently of
// account scores.
func (t *Tagger) Evaluate(senderEmail string, recipients []string, subject, body string) (string, []string, []model.MessageTag) {
	if senderEmail != "" {
		if account, ok := t.addresses[strings.ToLower(senderEmail)]; ok {
			return account, nil, []model.MessageTag{{Name: account, Kind: model.TagKindAccount}}
		}
	}
	for _, sp := range t.patterns {
		if sp.re.MatchString(subject) {
			return sp.account, nil, []model.MessageTag{{Name: sp.account, Kind: model.TagKindAccount}}
		}
	}

	text := strings.ToLower(subject + "\n" + body)
	sender := strings.ToLower(senderEmail)
	lowered := make([]string, len(recipients))
	for i, r := range recipients {
		lowered[i] = strings.ToLower(r)
	}

	var primary string
	var partners []string
	var tags []model.MessageTag
	for _, acc := range t.accounts {
		score := 0
		if containsAny(text, acc.Aliases) {
			score += aliasWeight
		}
		if containsAny(text, acc.Keywords) {
			score += keywordWeight
		}
		if domainMatch(sender, lowered, acc.Domains) {
			score += domainWeight
		}
		if score >= scoreThreshold && primary == "" {
			primary = acc.Name
			tags = append(tags, model.MessageTag{Name: acc.Name, Kind: model.TagKindAccount})
		}

		for _, p := range acc.Partners {
			if p != "" && strings.Contains(text, strings.ToLower(p)) {
				partners = append(partners, p)
				tags = append(tags, model.MessageTag{Name: p, Kind: model.TagKindPartner})
			}
		}
	}
	return primary, partners, tags
}

// containsAny reports whether any non-empty term occurs in text,
// case-insensitively.
func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// domainMatch reports whether any configured domain appears in the
// sender or recipient addresses, as a plain "@domain" substring check
// rather than strict address parsing.
func domainMatch(sender string, recipients []string, domains []string) bool {
	for _, d := range domains {
		if d == "" {
			continue
		}
		needle := "@" + strings.ToLower(d)
		if strings.Contains(sender, needle) {
			return true
		}
		for _, r := range recipients {
			if strings.Contains(r, needle) {
				return true
			}
		}
	}
	return false
}
