// Package query implements the fluent SEARCH criteria builder and the
// fetch-and-populate pipeline layered on top of the client package's raw
// Search/Fetch primitives.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	imapkit "github.com/salvor-hardin/go-imapkit"
)

// Criteria accumulates SEARCH keyword/argument pairs and renders them into
// a valid IMAP search program: balanced parentheses, quoted strings,
// DD-Mon-YYYY dates, uppercased keywords. It mutates and returns itself --
// callers that need to share one template across goroutines should Clone
// it first, since nothing here is synchronised.
type Criteria struct {
	terms []string
}

// NewCriteria starts an empty criteria chain.
func NewCriteria() *Criteria {
	return &Criteria{}
}

// Clone copies the accumulated terms so the original is unaffected by
// further chaining on the copy.
func (c *Criteria) Clone() *Criteria {
	terms := make([]string, len(c.terms))
	copy(terms, c.terms)
	return &Criteria{terms: terms}
}

// String renders the accumulated criteria, space-joined, per generate_query().
func (c *Criteria) String() string {
	return strings.Join(c.terms, " ")
}

func (c *Criteria) push(term string) *Criteria {
	c.terms = append(c.terms, term)
	return c
}

func (c *Criteria) pushArg(keyword string, arg string) *Criteria {
	return c.push(keyword + " " + quoteArg(arg))
}

func (c *Criteria) pushDate(keyword string, t time.Time) *Criteria {
	return c.push(keyword + " " + imapkit.FormatDate(t))
}

func (c *Criteria) pushNum(keyword string, n int64) *Criteria {
	return c.push(keyword + " " + strconv.FormatInt(n, 10))
}

// quoteArg renders a string argument per §4.6: quoted, or a literal
// ("{N}\r\n<bytes>", N counting bytes) when it contains non-ASCII bytes a
// quoted-string cannot carry safely. The literal is inlined in the program
// string handed whole to CommandWriter.Raw, so no continuation request is
// awaited before its bytes are sent.
func quoteArg(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return fmt.Sprintf("{%d}\r\n%s", len(s), s)
		}
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// All matches every message in the mailbox.
func (c *Criteria) All() *Criteria { return c.push("ALL") }

// Answered matches messages with the \Answered flag set.
func (c *Criteria) Answered() *Criteria { return c.push("ANSWERED") }

// Bcc matches messages whose envelope Bcc contains substring.
func (c *Criteria) Bcc(substring string) *Criteria { return c.pushArg("BCC", substring) }

// Before matches messages whose internal date is earlier than date.
func (c *Criteria) Before(date time.Time) *Criteria { return c.pushDate("BEFORE", date) }

// Body matches messages whose body contains substring.
func (c *Criteria) Body(substring string) *Criteria { return c.pushArg("BODY", substring) }

// Cc matches messages whose envelope Cc contains substring.
func (c *Criteria) Cc(substring string) *Criteria { return c.pushArg("CC", substring) }

// Deleted matches messages with the \Deleted flag set.
func (c *Criteria) Deleted() *Criteria { return c.push("DELETED") }

// Draft matches messages with the \Draft flag set.
func (c *Criteria) Draft() *Criteria { return c.push("DRAFT") }

// Flagged matches messages with the \Flagged flag set.
func (c *Criteria) Flagged() *Criteria { return c.push("FLAGGED") }

// From matches messages whose envelope From contains substring.
func (c *Criteria) From(substring string) *Criteria { return c.pushArg("FROM", substring) }

// Header matches messages with a header field matching value.
func (c *Criteria) Header(field, value string) *Criteria {
	return c.push("HEADER " + strings.ToUpper(field) + " " + quoteArg(value))
}

// Keyword matches messages with the given user-defined flag set.
func (c *Criteria) Keyword(flag string) *Criteria { return c.pushArg("KEYWORD", flag) }

// Larger matches messages larger than n octets.
func (c *Criteria) Larger(n int64) *Criteria { return c.pushNum("LARGER", n) }

// New matches messages that are both \Recent and not \Seen.
func (c *Criteria) New() *Criteria { return c.push("NEW") }

// Not negates the criterion produced by building with a fresh sub-chain,
// per §4.6: "A NOT or OR prefix applies to the criterion immediately
// following."
func (c *Criteria) Not(build func(*Criteria)) *Criteria {
	inner := NewCriteria()
	build(inner)
	return c.push("NOT (" + inner.String() + ")")
}

// On matches messages whose internal date is exactly date.
func (c *Criteria) On(date time.Time) *Criteria { return c.pushDate("ON", date) }

// Old matches messages that are not \Recent.
func (c *Criteria) Old() *Criteria { return c.push("OLD") }

// Or combines two sub-chains with the SEARCH OR operator.
func (c *Criteria) Or(left, right func(*Criteria)) *Criteria {
	l, r := NewCriteria(), NewCriteria()
	left(l)
	right(r)
	return c.push(fmt.Sprintf("OR (%s) (%s)", l.String(), r.String()))
}

// Recent matches messages with the \Recent flag set.
func (c *Criteria) Recent() *Criteria { return c.push("RECENT") }

// Seen matches messages with the \Seen flag set.
func (c *Criteria) Seen() *Criteria { return c.push("SEEN") }

// SentBefore matches messages whose Date header is earlier than date.
func (c *Criteria) SentBefore(date time.Time) *Criteria { return c.pushDate("SENTBEFORE", date) }

// SentOn matches messages whose Date header is exactly date.
func (c *Criteria) SentOn(date time.Time) *Criteria { return c.pushDate("SENTON", date) }

// SentSince matches messages whose Date header is on or after date.
func (c *Criteria) SentSince(date time.Time) *Criteria { return c.pushDate("SENTSINCE", date) }

// Since matches messages whose internal date is on or after date.
func (c *Criteria) Since(date time.Time) *Criteria { return c.pushDate("SINCE", date) }

// Smaller matches messages smaller than n octets.
func (c *Criteria) Smaller(n int64) *Criteria { return c.pushNum("SMALLER", n) }

// Subject matches messages whose Subject header contains substring.
func (c *Criteria) Subject(substring string) *Criteria { return c.pushArg("SUBJECT", substring) }

// Text matches messages whose header or body contains substring.
func (c *Criteria) Text(substring string) *Criteria { return c.pushArg("TEXT", substring) }

// To matches messages whose envelope To contains substring.
func (c *Criteria) To(substring string) *Criteria { return c.pushArg("TO", substring) }

// UID restricts the search to the given UID set.
func (c *Criteria) UID(set imapkit.UIDSet) *Criteria { return c.push("UID " + set.String()) }

// Unanswered matches messages without the \Answered flag set.
func (c *Criteria) Unanswered() *Criteria { return c.push("UNANSWERED") }

// Undeleted matches messages without the \Deleted flag set.
func (c *Criteria) Undeleted() *Criteria { return c.push("UNDELETED") }

// Undraft matches messages without the \Draft flag set.
func (c *Criteria) Undraft() *Criteria { return c.push("UNDRAFT") }

// Unflagged matches messages without the \Flagged flag set.
func (c *Criteria) Unflagged() *Criteria { return c.push("UNFLAGGED") }

// Unkeyword matches messages without the given user-defined flag set.
func (c *Criteria) Unkeyword(flag string) *Criteria { return c.pushArg("UNKEYWORD", flag) }

// Unseen matches messages without the \Seen flag set.
func (c *Criteria) Unseen() *Criteria { return c.push("UNSEEN") }
