package canonical

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mailattic/mailattic/internal/reader"
)

func parseXML(t *testing.T, content string) *reader.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing xml: %v", err)
	}
	doc, err := reader.ParseDocument(path)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}

func TestFromOLM(t *testing.T) {
	doc := parseXML(t, `<?xml version="1.0"?>
<email>
  <subject>Quarterly review</subject>
  <body>Please see the numbers.</body>
  <datesent>2024-01-02T15:04:05</datesent>
  <from>Alice Person ap@acme.com</from>
  <to>bob@beta.com, carol@beta.com</to>
</email>`)

	msg, err := FromOLM(doc)
	if err != nil {
		t.Fatalf("FromOLM: %v", err)
	}

	if want := HashID(doc.Path + "Quarterly review"); msg.ExternalID != want {
		t.Errorf("ExternalID = %q, want %q", msg.ExternalID, want)
	}
	if msg.Subject != "Quarterly review" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Body != "Please see the numbers." {
		t.Errorf("Body = %q", msg.Body)
	}
	if msg.SenderEmail != "ap@acme.com" {
		t.Errorf("SenderEmail = %q", msg.SenderEmail)
	}
	if msg.RecipientsTo != "bob@beta.com;carol@beta.com" {
		t.Errorf("RecipientsTo = %q", msg.RecipientsTo)
	}
	if msg.SentAt != "2024-01-02T15:04:05Z" {
		t.Errorf("SentAt = %q", msg.SentAt)
	}
}

func TestFromOLMCandidateOrder(t *testing.T) {
	doc := parseXML(t, `<email>
  <title>Fallback title</title>
  <subject>Primary subject</subject>
  <body>b</body>
</email>`)

	msg, err := FromOLM(doc)
	if err != nil {
		t.Fatalf("FromOLM: %v", err)
	}
	if msg.Subject != "Primary subject" {
		t.Errorf("Subject = %q, want the earlier candidate key to win", msg.Subject)
	}

	doc = parseXML(t, `<email>
  <opfmessagecopysubject>Exported subject</opfmessagecopysubject>
  <opfmessagecopybody>Exported body</opfmessagecopybody>
</email>`)

	msg, err = FromOLM(doc)
	if err != nil {
		t.Fatalf("FromOLM: %v", err)
	}
	if msg.Subject != "Exported subject" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Body != "Exported body" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestFromOLMSenderFromAttributes(t *testing.T) {
	doc := parseXML(t, `<email>
  <subject>No from block</subject>
  <emailaddress OPFContactEmailAddressAddress="sender@corp.com" type="work"/>
</email>`)

	msg, err := FromOLM(doc)
	if err != nil {
		t.Fatalf("FromOLM: %v", err)
	}
	if msg.SenderEmail != "sender@corp.com" {
		t.Errorf("SenderEmail = %q, want the attribute scan to find sender@corp.com", msg.SenderEmail)
	}
}

func TestFromOLMSenderAnywhere(t *testing.T) {
	doc := parseXML(t, `<email>
  <subject>Buried address</subject>
  <note>reply to chief@corp.com please</note>
</email>`)

	msg, err := FromOLM(doc)
	if err != nil {
		t.Fatalf("FromOLM: %v", err)
	}
	if msg.SenderEmail != "chief@corp.com" {
		t.Errorf("SenderEmail = %q, want the whole-document scan to find chief@corp.com", msg.SenderEmail)
	}
}

func TestFromOLMNoContent(t *testing.T) {
	doc := parseXML(t, `<email><datesent>20240101</datesent></email>`)

	_, err := FromOLM(doc)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}
