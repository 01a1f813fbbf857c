package message

import "testing"

func TestAttachmentID(t *testing.T) {
	body := []byte("hello world")

	if got := attachmentID("<cid123>", body); got != "<cid123>" {
		t.Errorf("with content-id: got %q", got)
	}

	first := attachmentID("", body)
	second := attachmentID("", body)
	if first != second {
		t.Errorf("hash of the same content should be stable: %q != %q", first, second)
	}
	if attachmentID("", []byte("different")) == first {
		t.Error("hash of different content should differ")
	}
}

func TestNewAttachment(t *testing.T) {
	p := &part{
		path:        "1.2",
		contentType: "application/pdf",
		disposition: "attachment",
		dispParams:  map[string]string{"filename": "report.pdf"},
		contentID:   "abc@example.org",
		body:        []byte("%PDF-1.4"),
	}
	a := newAttachment(p)

	if a.Filename() != "report.pdf" {
		t.Errorf("Filename() = %q", a.Filename())
	}
	if a.ContentType() != "application/pdf" {
		t.Errorf("ContentType() = %q", a.ContentType())
	}
	if a.PartPath() != "1.2" {
		t.Errorf("PartPath() = %q", a.PartPath())
	}
	if a.ID() != "abc@example.org" {
		t.Errorf("ID() = %q", a.ID())
	}
	if string(a.Content()) != "%PDF-1.4" {
		t.Errorf("Content() = %q", a.Content())
	}
	if a.Size() != len("%PDF-1.4") {
		t.Errorf("Size() = %d", a.Size())
	}
}

func TestAttachmentExtension(t *testing.T) {
	testCases := []struct {
		name string
		a    *Attachment
		want string
	}{
		{"from filename", &Attachment{filename: "invoice.PDF"}, "pdf"},
		{"from content type when no filename", &Attachment{contentType: "image/png"}, "png"},
		{"no subtype", &Attachment{contentType: "garbage"}, ""},
	}
	for _, tc := range testCases {
		if got := tc.a.Extension(); got != tc.want {
			t.Errorf("%s: Extension() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestAttachmentEqual(t *testing.T) {
	a := &Attachment{id: "x"}
	b := &Attachment{id: "x"}
	c := &Attachment{id: "y"}

	if !a.Equal(b) {
		t.Error("attachments with the same id should be equal")
	}
	if a.Equal(c) {
		t.Error("attachments with different ids should not be equal")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) should be false")
	}
}
