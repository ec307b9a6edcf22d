package canonical

import (
	"github.com/mailattic/mailattic/internal/model"
	"github.com/mailattic/mailattic/internal/reader"
)

// Candidate key tables for flattened Outlook-for-Mac exports. Different
// Outlook versions emit the same logical field under different element
// names; the first key with a value wins, so order is significant.
var (
	olmSubjectKeys = []string{"subject", "mssubject", "itemsubject", "title", "opfmessagecopysubject"}
	olmBodyKeys    = []string{"body", "textbody", "plaintext", "preview", "bodypreview", "content", "opfmessagecopybody"}
	olmSentKeys    = []string{"datesent", "datetimesent", "sent", "date", "receivedtime", "opfmessagecopyreceivedtime", "opfmessagecopysenttime"}
	olmFromKeys    = []string{"from", "sender", "fromname", "fromemailaddress", "opfmessagecopysenderaddress"}
	olmToKeys      = []string{"to", "torecipients", "recipient", "toaddresses", "toemailaddress"}
	olmCcKeys      = []string{"cc", "ccrecipients", "ccaddresses", "ccemailaddress"}
	olmBccKeys     = []string{"bcc", "bccrecipients", "bccaddresses", "bccemailaddress"}
)

// FromOLM converts one flattened Outlook-for-Mac XML document into the
// canonical record. The external id is derived from file path and
// subject because these exports carry no Message-ID.
func FromOLM(doc *reader.Document) (*model.Message, error) {
	subject := doc.Pick(olmSubjectKeys...)
	body := doc.Pick(olmBodyKeys...)
	if subject == "" && body == "" {
		return nil, ErrNoContent
	}

	sender := olmSenderEmail(doc)
	sent := NormalizeDate(doc.Pick(olmSentKeys...))

	return &model.Message{
		ExternalID:    HashID(doc.Path + subject),
		SenderName:    sender,
		SenderEmail:   sender,
		RecipientsTo:  olmCollectEmails(doc, olmToKeys),
		RecipientsCc:  olmCollectEmails(doc, olmCcKeys),
		RecipientsBcc: olmCollectEmails(doc, olmBccKeys),
		Subject:       subject,
		Body:          body,
		SentAt:        sent,
		ReceivedAt:    sent,
	}, nil
}

// olmSenderEmail recovers the sender address with three increasingly
// desperate scans: the from-block text, attributes of emailaddress
// elements, then every text value in the document.
func olmSenderEmail(doc *reader.Document) string {
	if m := EmailPattern.FindString(doc.Pick(olmFromKeys...)); m != "" {
		return m
	}
	for _, v := range doc.AttrValues("emailaddress") {
		if m := EmailPattern.FindString(v); m != "" {
			return m
		}
	}
	var found string
	doc.EachValue(func(tag, text string) bool {
		if m := EmailPattern.FindString(text); m != "" {
			found = m
			return false
		}
		return true
	})
	return found
}

// olmCollectEmails extracts every address appearing under the candidate
// keys, de-duplicated in first-seen order and semicolon-joined.
func olmCollectEmails(doc *reader.Document, keys []string) string {
	var out []string
	for _, k := range keys {
		for _, v := range doc.Values(k) {
			out = append(out, EmailPattern.FindAllString(v, -1)...)
		}
	}
	return dedupeJoin(out)
}
