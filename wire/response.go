package wire

import "fmt"

// ResponseKind identifies which of the three response-line shapes RFC 3501
// §7 defines a Response carries.
type ResponseKind int

const (
	// Continuation is a "+ ..." continuation request.
	Continuation ResponseKind = iota
	// Tagged is a "TAGn OK/NO/BAD ..." command completion.
	Tagged
	// Untagged is a "* ..." status or mailbox-data response.
	Untagged
)

// Status is the resp-cond-state / resp-cond-bye condition of a tagged or
// untagged response.
type Status string

const (
	StatusOK      Status = "OK"
	StatusNo      Status = "NO"
	StatusBad     Status = "BAD"
	StatusPreAuth Status = "PREAUTH"
	StatusBye     Status = "BYE"
)

// Response is one decoded response line: a continuation request, a tagged
// command completion, or an untagged data/status line. Type is the
// untagged keyword ("EXISTS", "FETCH", "FLAGS", ...) or, for tagged lines,
// the completion Status.
type Response struct {
	Kind ResponseKind

	Tag  string // Tagged only
	Num  uint32 // leading number of an untagged response, e.g. "12 EXISTS"
	Type string // untagged keyword, or mirrors Status for Tagged

	Status Status // Tagged and status-carrying Untagged lines
	Code   string // resp-text-code, e.g. "UIDVALIDITY"
	Args   []Token
	Text   string

	Fields []Token // remaining fields of an untagged data response
}

// ReadResponse decodes exactly one response line.
func ReadResponse(dec *Decoder) (*Response, error) {
	ch, err := dec.readRune()
	if err != nil {
		return nil, err
	}

	if ch == '+' {
		if err := dec.readSp(); err != nil {
			return nil, fmt.Errorf("wire: in continue-req: %w", err)
		}
		text, err := dec.ReadInfo()
		if err != nil {
			return nil, fmt.Errorf("wire: in continue-req: %w", err)
		}
		return &Response{Kind: Continuation, Text: text}, nil
	}

	dec.unread()

	var tag string
	if ch != '*' {
		tok, err := dec.readAtom()
		if err != nil {
			return nil, fmt.Errorf("wire: cannot read tag: %w", err)
		}
		tag, _ = tok.Atom()
	} else {
		dec.readRune()
	}
	if err := dec.readSp(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	typTok, err := dec.readAtom()
	if err != nil {
		return nil, fmt.Errorf("wire: cannot read type: %w", err)
	}
	typ, _ := typTok.Atom()

	var resp *Response
	if tag != "" {
		resp, err = readTagged(dec, tag, typ)
	} else {
		resp, err = readUntagged(dec, typ)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func readRespTextCode(dec *Decoder) (code string, args []Token, err error) {
	return dec.ReadRespCode()
}

func readRespText(dec *Decoder) (code string, args []Token, text string, err error) {
	ch, err := dec.readRune()
	if err != nil {
		return "", nil, "", err
	}
	if ch == respCodeStart {
		dec.unread()
		if code, args, err = readRespTextCode(dec); err != nil {
			return "", nil, "", fmt.Errorf("in resp-text-code: %w", err)
		}
		if err := dec.readSp(); err != nil {
			return "", nil, "", err
		}
	} else {
		dec.unread()
	}
	text, err = dec.ReadInfo()
	return code, args, text, err
}

func readTagged(dec *Decoder, tag, typ string) (*Response, error) {
	if err := dec.readSp(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	status := Status(typ)
	switch status {
	case StatusOK, StatusNo, StatusBad:
	default:
		return nil, fmt.Errorf("wire: tagged response has invalid status %q", typ)
	}

	code, args, text, err := readRespText(dec)
	if err != nil {
		return nil, fmt.Errorf("wire: in resp-text: %w", err)
	}
	return &Response{
		Kind:   Tagged,
		Tag:    tag,
		Type:   typ,
		Status: status,
		Code:   code,
		Args:   args,
		Text:   text,
	}, nil
}

func readUntagged(dec *Decoder, typ string) (*Response, error) {
	var num uint32
	if len(typ) > 0 && typ[0] >= '0' && typ[0] <= '9' {
		n, err := parseUint32(typ)
		if err != nil {
			return nil, fmt.Errorf("wire: bad untagged response number %q: %w", typ, err)
		}
		num = n
		if err := dec.readSp(); err != nil {
			return nil, fmt.Errorf("wire: %w", err)
		}
		tok, err := dec.readAtom()
		if err != nil {
			return nil, fmt.Errorf("wire: %w", err)
		}
		typ, _ = tok.Atom()
	}

	switch Status(typ) {
	case StatusOK, StatusNo, StatusBad, StatusPreAuth, StatusBye:
		if err := dec.readSp(); err != nil {
			return nil, fmt.Errorf("wire: %w", err)
		}
		code, args, text, err := readRespText(dec)
		if err != nil {
			return nil, fmt.Errorf("wire: in resp-text: %w", err)
		}
		return &Response{
			Kind:   Untagged,
			Type:   typ,
			Num:    num,
			Status: Status(typ),
			Code:   code,
			Args:   args,
			Text:   text,
		}, nil
	}

	var fields []Token
	ch, err := dec.readRune()
	if err == nil {
		if ch == cr {
			dec.unread()
		} else {
			dec.unread()
			if err := dec.readSp(); err != nil {
				return nil, fmt.Errorf("wire: %w", err)
			}
			fields, err = dec.ReadFields()
			if err != nil {
				return nil, fmt.Errorf("wire: in response-data %q: %w", typ, err)
			}
			dec.unread()
		}
	}
	// Status lines end inside ReadInfo, which consumes their CRLF; data
	// lines end here.
	if err := dec.readCRLF(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	return &Response{Kind: Untagged, Type: typ, Num: num, Fields: fields}, nil
}

func parseUint32(s string) (uint32, error) {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + uint64(c-'0')
	}
	return uint32(n), nil
}
