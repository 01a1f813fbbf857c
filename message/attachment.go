package message

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Attachment is one non-displayable (or explicitly attached) MIME part.
// Its content is decoded while the MIME tree is walked and held in memory
// from then on; decoding is not deferred to the first call to Content.
type Attachment struct {
	id          string
	filename    string
	contentType string
	disposition string
	contentID   string
	size        int
	partPath    string

	raw     []byte
	decoded []byte
}

func newAttachment(p *part) *Attachment {
	a := &Attachment{
		filename:    p.filename(),
		contentType: p.contentType,
		disposition: p.disposition,
		contentID:   p.contentID,
		partPath:    p.path,
		raw:         p.body,
		size:        len(p.body),
	}
	a.id = attachmentID(a.contentID, p.body)
	return a
}

// attachmentID returns contentID unchanged when non-empty (leafPart has
// already stripped its angle brackets), otherwise a stable hash over the
// part's content, per §4.8's
// identity rule: "Two attachments are equal iff their ids match."
func attachmentID(contentID string, body []byte) string {
	if contentID != "" {
		return contentID
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ID is this attachment's stable identity.
func (a *Attachment) ID() string { return a.id }

// Filename is the sanitised, displayable leaf filename, or "" if none was
// advertised.
func (a *Attachment) Filename() string { return a.filename }

// ContentType is the MIME type, lowercased, e.g. "application/pdf".
func (a *Attachment) ContentType() string { return a.contentType }

// Disposition is the Content-Disposition value, lowercased ("attachment",
// "inline", or "" if absent).
func (a *Attachment) Disposition() string { return a.disposition }

// ContentID is the Content-Id header with angle brackets stripped, or "".
func (a *Attachment) ContentID() string { return a.contentID }

// PartPath is the dotted BODYSTRUCTURE-style part path this attachment was
// found at, e.g. "2" or "1.3".
func (a *Attachment) PartPath() string { return a.partPath }

// Size is the decoded content length in bytes.
func (a *Attachment) Size() int { return a.size }

// Extension infers a file extension (without the leading dot) from the
// filename if present, else from the MIME type's subtype.
func (a *Attachment) Extension() string {
	if a.filename != "" {
		if ext := filepath.Ext(a.filename); ext != "" {
			return strings.ToLower(strings.TrimPrefix(ext, "."))
		}
	}
	_, sub, ok := strings.Cut(a.contentType, "/")
	if !ok || sub == "" {
		return ""
	}
	return strings.ToLower(sub)
}

// Content returns the attachment's decoded bytes. go-message has already
// performed the transfer decoding (base64/quoted-printable/...) by the
// time the part was walked, so this is a cheap accessor rather than a
// second decode pass; it exists as a method (not a public field) so a
// future lazier backing store doesn't change the call site.
func (a *Attachment) Content() []byte {
	if a.decoded == nil {
		a.decoded = a.raw
	}
	return a.decoded
}

// Equal reports whether two attachments share the same identity.
func (a *Attachment) Equal(other *Attachment) bool {
	if other == nil {
		return false
	}
	return a.id == other.id
}
