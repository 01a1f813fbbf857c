// Package imapkit is an IMAP4rev1 client library: authenticated sessions,
// folder enumeration, search and fetch, and a structured message object
// graph, plus IDLE-based push notification. See the config, client, query
// and message sub-packages for the pieces that build on these core types.
package imapkit

// UID is a message's unique identifier within a mailbox, valid only for as
// long as the mailbox's UIDVALIDITY does not change (RFC 3501 section 2.3.1.1).
type UID uint32

// Flag is a message flag, either a system flag ("\Seen") or a keyword
// (plain atom, no leading backslash).
type Flag string

// System flags defined by RFC 3501 section 2.3.2.
const (
	FlagSeen     Flag = "\\Seen"
	FlagAnswered Flag = "\\Answered"
	FlagFlagged  Flag = "\\Flagged"
	FlagDeleted  Flag = "\\Deleted"
	FlagDraft    Flag = "\\Draft"
	FlagRecent   Flag = "\\Recent"
)

// StoreMode selects how STORE combines the given flags with a message's
// existing flag set.
type StoreMode int

const (
	StoreReplaceFlags StoreMode = iota
	StoreAddFlags
	StoreRemoveFlags
)

// BodySectionKind selects which part of a FETCH BODY[...] section is being
// requested.
type BodySectionKind int

const (
	SectionAll BodySectionKind = iota
	SectionHeader
	SectionText
	SectionMIME
)

// BodySection identifies one BODY[...] fetch item: an optional MIME part
// path (nil for the top-level message) plus what slice of it to return.
type BodySection struct {
	Part    []int
	Kind    BodySectionKind
	Peek    bool // true fetches without setting \Seen (BODY.PEEK)
	Partial *PartialRange
}

// PartialRange requests a byte range of a body section: BODY[...]<Offset.Count>.
type PartialRange struct {
	Offset int64
	Count  int64
}
