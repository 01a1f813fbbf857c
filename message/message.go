package message

import (
	"time"

	gomessage "github.com/emersion/go-message"
	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/client"
)

// Options controls how Materialise behaves when it cannot decode part of a
// message.
type Options struct {
	// HardFail, when true, aborts Materialise with an error on the first
	// part it cannot decode. The default (false) is soft-fail: the
	// undecodable part is simply omitted from Bodies/Attachments, per
	// spec.md §9's mandate that partial FETCH failures never sink the
	// whole message unless a caller explicitly opts into strict mode.
	HardFail bool
}

// Message is a materialised IMAP message: the envelope-derived fields
// (available from a lightweight ENVELOPE fetch alone), plus the bodies and
// attachments recovered from whichever raw sections were fetched.
type Message struct {
	SeqNum       uint32
	UID          imapkit.UID
	Flags        []string
	InternalDate time.Time
	Size         uint32

	MessageID  string
	Subject    string
	Date       time.Time
	From       []Address
	Sender     []Address
	ReplyTo    []Address
	To         []Address
	Cc         []Address
	Bcc        []Address
	InReplyTo  string

	bodies      map[string]string
	primaryType string
	attachments []*Attachment
}

// Materialise builds a Message from one client.FetchItem, decoding MIME
// structure out of whichever of RFC822 / RFC822Header+RFC822Text / a full
// BODY[] section was fetched. ENVELOPE data, when present, always takes
// precedence for header-derived fields since it's authoritative and
// doesn't require a full raw-message round trip.
func Materialise(item *client.FetchItem, opts Options) (*Message, error) {
	m := &Message{
		SeqNum:       item.SeqNum,
		UID:          item.UID,
		Flags:        item.Flags,
		InternalDate: item.InternalDate,
		Size:         item.Size,
		bodies:       make(map[string]string),
	}

	if item.HasEnvelope {
		if env, ok := parseEnvelope(item.Envelope); ok {
			applyEnvelope(m, env)
		}
	}

	raw := rawMessageBytes(item)
	if len(raw) == 0 {
		return m, nil
	}

	entity, parts, err := parseMIME(raw, opts.HardFail)
	if err != nil {
		return nil, imapkit.NewError("MATERIALISE", imapkit.KindMessage, err)
	}
	if entity != nil {
		applyHeaderFallback(m, entity)
	}
	classifyParts(m, parts)
	return m, nil
}

func rawMessageBytes(item *client.FetchItem) []byte {
	switch {
	case len(item.RFC822) > 0:
		return item.RFC822
	case len(item.RFC822Header) > 0 || len(item.RFC822Text) > 0:
		return append(append([]byte{}, item.RFC822Header...), item.RFC822Text...)
	}
	if b, ok := item.Sections[""]; ok {
		return b
	}
	return nil
}

func applyEnvelope(m *Message, env *envelope) {
	m.Subject = env.subject
	m.From = env.from
	m.Sender = env.sender
	m.ReplyTo = env.replyTo
	m.To = env.to
	m.Cc = env.cc
	m.Bcc = env.bcc
	m.InReplyTo = env.inReplyTo
	m.MessageID = env.messageID
	if t, err := imapkit.ParseMessageDateTime(env.date); err == nil {
		m.Date = t
	}
}

// applyHeaderFallback fills in any header-derived field ENVELOPE didn't
// already supply, from the raw header go-message parsed.
func applyHeaderFallback(m *Message, e *gomessage.Entity) {
	h := e.Header
	if m.Subject == "" {
		m.Subject = decodeWords(h.Get("Subject"))
	}
	if m.MessageID == "" {
		m.MessageID = trimMessageID(h.Get("Message-Id"))
	}
	if m.InReplyTo == "" {
		m.InReplyTo = trimMessageID(h.Get("In-Reply-To"))
	}
	if len(m.From) == 0 {
		m.From = parseAddressList(h.Get("From"))
	}
	if len(m.To) == 0 {
		m.To = parseAddressList(h.Get("To"))
	}
	if len(m.Cc) == 0 {
		m.Cc = parseAddressList(h.Get("Cc"))
	}
	if len(m.Bcc) == 0 {
		m.Bcc = parseAddressList(h.Get("Bcc"))
	}
	if len(m.ReplyTo) == 0 {
		m.ReplyTo = parseAddressList(h.Get("Reply-To"))
	}
	if m.Date.IsZero() {
		if t, err := imapkit.ParseMessageDateTime(h.Get("Date")); err == nil {
			m.Date = t
		}
	}
}

// classifyParts sorts each walked leaf part into Bodies or Attachments per
// §4.7: text/plain and text/html with no attachment disposition and no
// filename are bodies; everything else is an attachment. For
// multipart/alternative siblings, text/html is treated as the richer,
// primary body over text/plain.
func classifyParts(m *Message, parts []*part) {
	for _, p := range parts {
		if p.decodeErr != nil {
			continue
		}
		if p.isAttachment() {
			m.attachments = append(m.attachments, newAttachment(p))
			continue
		}
		m.bodies[p.contentType] = string(p.body)
		if m.primaryType == "" || p.contentType == "text/html" {
			m.primaryType = p.contentType
		}
	}
}

// Text returns the text/plain body, if any was present.
func (m *Message) Text() (string, bool) {
	b, ok := m.bodies["text/plain"]
	return b, ok
}

// HTML returns the text/html body, if any was present.
func (m *Message) HTML() (string, bool) {
	b, ok := m.bodies["text/html"]
	return b, ok
}

// HasHTMLBody reports whether Materialise recovered a text/html body.
func (m *Message) HasHTMLBody() bool {
	_, ok := m.bodies["text/html"]
	return ok
}

// Body returns the body registered under the given content type.
func (m *Message) Body(contentType string) (string, bool) {
	b, ok := m.bodies[contentType]
	return b, ok
}

// PrimaryBody returns the richest displayable body recovered (HTML over
// plain text when multipart/alternative offered both).
func (m *Message) PrimaryBody() (string, bool) {
	if m.primaryType == "" {
		return "", false
	}
	return m.bodies[m.primaryType], true
}

// Attachments returns every non-displayable part recovered.
func (m *Message) Attachments() []*Attachment { return m.attachments }

// HasAttachments reports whether Materialise recovered at least one
// attachment.
func (m *Message) HasAttachments() bool { return len(m.attachments) > 0 }
