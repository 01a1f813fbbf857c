package wire

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/salvor-hardin/go-imapkit/internal/numset"
)

// Quoted marks a string that must always be sent as a quoted string, never
// as a bare atom or literal, even if it would otherwise qualify as one.
type Quoted string

// Field is anything Encoder.WriteField knows how to render. It accepts the
// same concrete types the teacher's writeField type-switch does, plus this
// library's own SeqSet/UIDSet and Token types.
type Field interface{}

type flusher interface{ Flush() error }

// Encoder writes command fields onto the wire, performing the literal
// continuation-request handshake when literals carry 8-bit or oversized
// data.
type Encoder struct {
	w *bufio.Writer

	// continues receives a bool once a literal's length header has been
	// flushed, mirroring the teacher's writer.continues. nil disables
	// synchronization, appropriate for non-synchronizing literals.
	continues <-chan bool
	err       error
}

// NewEncoder wraps w. continues may be nil when every literal written will
// use the non-synchronizing "{N+}" form (LITERAL+/LITERAL-).
func NewEncoder(w *bufio.Writer, continues <-chan bool) *Encoder {
	return &Encoder{w: w, continues: continues}
}

// Err returns the first error encountered by any Write* call; it is never
// cleared, and later writes on this Encoder do nothing -- following the teacher's
// Client.encMutex-held-single-writer convention rather than returning an
// error from every chained call.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) fail(err error) *Encoder {
	if e.err == nil {
		e.err = err
	}
	return e
}

func (e *Encoder) writeString(s string) *Encoder {
	if e.err != nil {
		return e
	}
	if _, err := e.w.WriteString(s); err != nil {
		return e.fail(err)
	}
	return e
}

// Tag writes "TAGn " as the first field of a command line.
func (e *Encoder) Tag(tag string) *Encoder { return e.writeString(tag).writeString(string(sp)) }

// Atom writes a bare, unquoted atom such as a command name or keyword.
func (e *Encoder) Atom(s string) *Encoder { return e.writeString(s) }

// SP writes a single field separator.
func (e *Encoder) SP() *Encoder { return e.writeString(string(sp)) }

func isAscii(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII || unicode.IsControl(c) {
			return false
		}
	}
	return true
}

// Astring writes s using the shortest representation that round-trips: a
// bare atom when safe, a quoted string when it contains specials, or a
// synchronizing literal when it contains 8-bit data (IMAP forbids non-ASCII
// outside literals).
func (e *Encoder) Astring(s string) *Encoder {
	if e.err != nil {
		return e
	}
	if !isAscii(s) {
		return e.Literal([]byte(s))
	}
	specials := string([]rune{dquote, listStart, listEnd, literalStart, sp})
	if strings.ToUpper(s) == "NIL" || s == "" || strings.ContainsAny(s, specials) {
		return e.Quote(s)
	}
	return e.Atom(s)
}

// Quote writes s as a quoted string, backslash-escaping quotes and
// backslashes.
func (e *Encoder) Quote(s string) *Encoder {
	return e.writeString(strconv.Quote(s))
}

// Number writes an unsigned decimal field.
func (e *Encoder) Number(n uint32) *Encoder {
	return e.writeString(strconv.FormatUint(uint64(n), 10))
}

// DateTime writes a full RFC 3501 date-time, or NIL for the zero time.
func (e *Encoder) DateTime(t time.Time) *Encoder {
	if t.IsZero() {
		return e.Atom("NIL")
	}
	return e.Quote(t.Format("2-Jan-2006 15:04:05 -0700"))
}

// Date writes an RFC 3501 date (no time-of-day component).
func (e *Encoder) Date(t time.Time) *Encoder {
	if t.IsZero() {
		return e.Atom("NIL")
	}
	return e.Quote(t.Format("2-Jan-2006"))
}

// SeqSet writes a sequence-set or uid-set field.
func (e *Encoder) SeqSet(s numset.Set) *Encoder { return e.writeString(s.String()) }

// List writes a parenthesised field list.
func (e *Encoder) List(fields ...Field) *Encoder {
	e.writeString(string(listStart))
	e.writeFields(fields)
	return e.writeString(string(listEnd))
}

func (e *Encoder) writeFields(fields []Field) *Encoder {
	for i, f := range fields {
		if i > 0 {
			e.SP()
		}
		e.WriteField(f)
	}
	return e
}

// Literal writes a synchronizing literal: "{N}\r\n" followed by the raw
// bytes, blocking on the continuation channel (if set) between the header
// and the payload exactly as the teacher's writer.writeLiteral does.
func (e *Encoder) Literal(b []byte) *Encoder {
	if e.err != nil {
		return e
	}
	header := fmt.Sprintf("%c%d%c%s", literalStart, len(b), literalEnd, crlf)
	if e.writeString(header).err != nil {
		return e
	}

	if e.continues != nil {
		if err := e.w.Flush(); err != nil {
			return e.fail(err)
		}
		if ok := <-e.continues; !ok {
			return e.fail(fmt.Errorf("wire: no continuation request received for literal"))
		}
	}

	if _, err := e.w.Write(b); err != nil {
		return e.fail(err)
	}
	return e
}

// NonSyncLiteral writes a LITERAL+ "{N+}" literal, which the server accepts
// without a continuation request.
func (e *Encoder) NonSyncLiteral(b []byte) *Encoder {
	if e.err != nil {
		return e
	}
	header := fmt.Sprintf("%c%d+%c%s", literalStart, len(b), literalEnd, crlf)
	if e.writeString(header).err != nil {
		return e
	}
	if _, err := e.w.Write(b); err != nil {
		return e.fail(err)
	}
	return e
}

// WriteField dispatches on the dynamic type of f the same way the teacher's
// writer.writeField switch does, extended with this library's SeqSet/Token
// types.
func (e *Encoder) WriteField(f Field) *Encoder {
	if f == nil {
		return e.Atom("NIL")
	}
	switch v := f.(type) {
	case string:
		return e.Astring(v)
	case Quoted:
		return e.Quote(string(v))
	case int:
		return e.Number(uint32(v))
	case uint32:
		return e.Number(v)
	case []byte:
		return e.Literal(v)
	case time.Time:
		return e.DateTime(v)
	case numset.Set:
		return e.SeqSet(v)
	case []Field:
		return e.List(v...)
	}
	return e.fail(fmt.Errorf("wire: cannot encode field of type %T", f))
}

// RespCode writes a bracketed response code, e.g. "[TRYCREATE]".
func (e *Encoder) RespCode(code string, args ...Field) *Encoder {
	e.writeString(string(respCodeStart))
	e.Atom(code)
	for _, a := range args {
		e.SP()
		e.WriteField(a)
	}
	return e.writeString(string(respCodeEnd))
}

// Line writes fields separated by spaces, terminated by CRLF, then flushes.
func (e *Encoder) Line(fields ...Field) error {
	e.writeFields(fields)
	e.writeString(crlf)
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}
