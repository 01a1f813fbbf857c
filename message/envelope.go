package message

import (
	"github.com/salvor-hardin/go-imapkit/wire"
)

// envelope is RFC 3501 section 7.4.2's ENVELOPE: a 10-element list,
// present on the wire whenever a FETCH requests ENVELOPE, cheaper than
// downloading and parsing the full header.
type envelope struct {
	date       string
	subject    string
	from       []Address
	sender     []Address
	replyTo    []Address
	to         []Address
	cc         []Address
	bcc        []Address
	inReplyTo  string
	messageID  string
}

func parseEnvelope(tok wire.Token) (*envelope, bool) {
	fields, ok := tok.List()
	if !ok || len(fields) != 10 {
		return nil, false
	}
	e := &envelope{}
	e.date, _ = fields[0].Text()
	e.subject = decodeWords(textOf(fields[1]))
	e.from = parseEnvelopeAddrList(fields[2])
	e.sender = parseEnvelopeAddrList(fields[3])
	e.replyTo = parseEnvelopeAddrList(fields[4])
	e.to = parseEnvelopeAddrList(fields[5])
	e.cc = parseEnvelopeAddrList(fields[6])
	e.bcc = parseEnvelopeAddrList(fields[7])
	e.inReplyTo, _ = fields[8].Text()
	if id, ok := fields[9].Text(); ok {
		e.messageID = trimMessageID(id)
	}
	return e, true
}

func textOf(t wire.Token) string {
	s, _ := t.Text()
	return s
}

// parseEnvelopeAddrList decodes one ENVELOPE address-list field: NIL, or a
// list of 4-tuples (personal-name, SMTP-at-domain-list, mailbox, host).
func parseEnvelopeAddrList(tok wire.Token) []Address {
	if tok.IsNil() {
		return nil
	}
	list, ok := tok.List()
	if !ok {
		return nil
	}
	var out []Address
	for _, entry := range list {
		fields, ok := entry.List()
		if !ok || len(fields) != 4 {
			continue
		}
		name := decodeWords(textOf(fields[0]))
		mailbox := textOf(fields[2])
		host := textOf(fields[3])
		out = append(out, Address{Name: name, Mailbox: mailbox, Host: host})
	}
	return out
}

func trimMessageID(id string) string {
	id = trimPrefixSuffix(id, "<", ">")
	return id
}

func trimPrefixSuffix(s, prefix, suffix string) string {
	if len(s) >= len(prefix)+len(suffix) && s[:len(prefix)] == prefix && s[len(s)-len(suffix):] == suffix {
		return s[len(prefix) : len(s)-len(suffix)]
	}
	return s
}
