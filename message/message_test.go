package message

import (
	"testing"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/client"
)

// TestMaterialisePlainTextFetch covers spec scenario 1: a SELECT that
// returns one message whose headers carry no Date and whose body is plain
// text, fetched as a raw RFC822 message the way BODY.PEEK[] would return
// it.
func TestMaterialisePlainTextFetch(t *testing.T) {
	raw := "Subject: Nuu\r\nFrom: from@here.com\r\nTo: to@here.com\r\n\r\nHi"
	item := &client.FetchItem{
		SeqNum: 1,
		UID:    imapkit.UID(1),
		RFC822: []byte(raw),
	}

	msg, err := Materialise(item, Options{})
	if err != nil {
		t.Fatalf("Materialise() error = %v", err)
	}

	if msg.Subject != "Nuu" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "Nuu")
	}
	text, ok := msg.Text()
	if !ok || text != "Hi" {
		t.Errorf("Text() = %q, %v; want %q, true", text, ok, "Hi")
	}
	if msg.HasHTMLBody() {
		t.Error("HasHTMLBody() = true, want false")
	}
	if !msg.Date.IsZero() {
		t.Errorf("Date = %v, want zero value (no Date header present)", msg.Date)
	}
	if len(msg.From) != 1 || msg.From[0].String() != "from@here.com" {
		t.Errorf("From = %+v, want [from@here.com]", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0].String() != "to@here.com" {
		t.Errorf("To = %+v, want [to@here.com]", msg.To)
	}
}

// TestMaterialiseEmptyFetchKeepsEnvelopeFields covers the "no raw body
// present" path: a FLAGS/ENVELOPE-only fetch still materialises a Message,
// just without any bodies or attachments.
func TestMaterialiseEmptyFetchKeepsEnvelopeFields(t *testing.T) {
	item := &client.FetchItem{
		SeqNum: 7,
		UID:    imapkit.UID(42),
		Flags:  []string{"\\Seen"},
	}

	msg, err := Materialise(item, Options{})
	if err != nil {
		t.Fatalf("Materialise() error = %v", err)
	}
	if msg.UID != imapkit.UID(42) {
		t.Errorf("UID = %d, want 42", msg.UID)
	}
	if len(msg.Flags) != 1 || msg.Flags[0] != "\\Seen" {
		t.Errorf("Flags = %v, want [\\Seen]", msg.Flags)
	}
	if _, ok := msg.Text(); ok {
		t.Error("Text() present for a body-less fetch")
	}
	if msg.HasAttachments() {
		t.Error("HasAttachments() = true for a body-less fetch")
	}
}
