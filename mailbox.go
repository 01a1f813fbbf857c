package imapkit

import "strings"

// InboxName is the primary mailbox, case-insensitive per RFC 3501 section 5.1.
const InboxName = "INBOX"

// CanonicalMailboxName folds INBOX to its canonical spelling regardless of
// the case the server or caller used; every other name passes through
// unchanged.
func CanonicalMailboxName(name string) string {
	if strings.EqualFold(name, InboxName) {
		return InboxName
	}
	return name
}

// Mailbox attributes, RFC 3501 section 7.2.2.
const (
	AttrNoInferiors = "\\Noinferiors"
	AttrNoSelect    = "\\Noselect"
	AttrMarked      = "\\Marked"
	AttrUnmarked    = "\\Unmarked"
	AttrHasChildren = "\\HasChildren"
	AttrHasNoChildren = "\\HasNoChildren"
)

// MailboxInfo is one LIST/LSUB reply: a mailbox's attributes, its path
// delimiter, and its UTF-8 name (already decoded from modified UTF-7).
type MailboxInfo struct {
	Attributes []string
	Delimiter  string
	Name       string
}

// HasAttr reports whether the mailbox carries the given attribute,
// case-insensitively.
func (info MailboxInfo) HasAttr(attr string) bool {
	for _, a := range info.Attributes {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// HasChildren reports whether the server advertised \HasChildren for this
// mailbox. Servers that don't support CHILDREN never set either attribute,
// in which case this returns false.
func (info MailboxInfo) HasChildren() bool { return info.HasAttr(AttrHasChildren) }

// Selectable reports whether the mailbox can be the target of SELECT/EXAMINE.
func (info MailboxInfo) Selectable() bool { return !info.HasAttr(AttrNoSelect) }

// MailboxStatus is the set of attributes returned by SELECT, EXAMINE, or
// STATUS: message counts, UID bookkeeping, and the flag vocabulary in use.
type MailboxStatus struct {
	Name     string
	ReadOnly bool

	Flags          []string
	PermanentFlags []string

	NumMessages uint32
	NumRecent   uint32
	NumUnseen   uint32
	UIDNext     UID
	UIDValidity uint32

	// HighestModSeq is non-zero when the server supports CONDSTORE/QRESYNC.
	HighestModSeq uint64
}

// PermitsKeyword reports whether status allows an arbitrary keyword flag to
// be set, i.e. its PermanentFlags contains "\*".
func (status MailboxStatus) PermitsKeyword() bool {
	for _, f := range status.PermanentFlags {
		if f == "\\*" {
			return true
		}
	}
	return false
}
