// Package client implements the IMAP protocol engine and the session/folder
// API built on top of it: command tagging, the exclusive request/response
// cycle, the connection state machine, authentication, and mailbox
// operations. See the sibling query and message packages for the search
// pipeline and RFC 822 materialisation that are built on this package's
// Fetch/Search primitives.
package client

import (
	"context"
	"fmt"
	"sync"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/internal/numset"
	"github.com/salvor-hardin/go-imapkit/transport"
	"github.com/salvor-hardin/go-imapkit/utf7"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// Engine is the exclusive, single-command-in-flight protocol engine
// described by this library's concurrency model: Execute holds a mutex for
// the whole request/response cycle, so the hard invariant "at most one
// tagged command in flight" holds by construction rather than by the
// teacher's channel-based command bookkeeping.
type Engine struct {
	tr *transport.Transport

	mu sync.Mutex

	tagMu sync.Mutex
	tagN  uint64
}

// NewEngine wraps tr. The caller remains responsible for Transport's
// lifecycle (Dial/Close/StartTLS).
func NewEngine(tr *transport.Transport) *Engine {
	return &Engine{tr: tr}
}

// nextTag has its own lock, distinct from mu, since every caller of
// nextTag already holds mu for the duration of a command (Execute,
// authenticate, idleStart): mu is not reentrant.
func (e *Engine) nextTag() string {
	e.tagMu.Lock()
	e.tagN++
	n := e.tagN
	e.tagMu.Unlock()
	return fmt.Sprintf("A%03d", n)
}

// Response is the bundle returned by Execute: the tagged completion status
// plus every untagged line that arrived before it, in server order, per
// spec.md's "Response object" / "validatedData()" design.
type Response struct {
	Tag  string
	Name string // command name, for diagnostics

	Status   wire.Status
	Code     string
	CodeArgs []wire.Token
	Text     string

	Untagged []*wire.Response
}

// OK reports whether the tagged completion was OK.
func (r *Response) OK() bool { return r.Status == wire.StatusOK }

// Validate returns a *imapkit.ServerError if the command did not complete
// OK, implementing spec.md's validatedData() semantics: OK yields nil,
// anything else raises a runtime error carrying the server text.
func (r *Response) Validate(op string) error {
	if r.OK() {
		return nil
	}
	return &imapkit.ServerError{Op: op, Bad: r.Status == wire.StatusBad, Code: r.Code, Text: r.Text}
}

// CommandWriter is the argument encoder passed to Execute's build callback.
// It wraps wire.Encoder with a Mailbox helper (modified UTF-7 conversion)
// and routes literal writes through the continuation-request handshake.
type CommandWriter struct {
	enc *wire.Encoder
}

func (w *CommandWriter) SP() *CommandWriter            { w.enc.SP(); return w }
func (w *CommandWriter) Atom(s string) *CommandWriter   { w.enc.Atom(s); return w }
func (w *CommandWriter) Astring(s string) *CommandWriter { w.enc.Astring(s); return w }
func (w *CommandWriter) Quote(s string) *CommandWriter  { w.enc.Quote(s); return w }
func (w *CommandWriter) Number(n uint32) *CommandWriter { w.enc.Number(n); return w }
func (w *CommandWriter) Literal(b []byte) *CommandWriter { w.enc.Literal(b); return w }
func (w *CommandWriter) List(fields ...wire.Field) *CommandWriter { w.enc.List(fields...); return w }
func (w *CommandWriter) RespCode(code string, args ...wire.Field) *CommandWriter {
	w.enc.RespCode(code, args...)
	return w
}

// Mailbox writes a mailbox name converted to modified UTF-7 on the wire.
func (w *CommandWriter) Mailbox(name string) *CommandWriter {
	wireName, err := utf7.Encode(name)
	if err != nil {
		w.enc.Astring(name)
		return w
	}
	w.enc.Astring(wireName)
	return w
}

// SeqSet writes a sequence-set or UID-set field.
func (w *CommandWriter) SeqSet(s fmt.Stringer) *CommandWriter {
	w.enc.Atom(s.String())
	return w
}

// Raw writes a pre-formatted token span (e.g. an already-joined SEARCH
// program) verbatim, separated by nothing from surrounding fields.
func (w *CommandWriter) Raw(s string) *CommandWriter { w.enc.Atom(s); return w }

func (w *CommandWriter) Err() error { return w.enc.Err() }

// UntaggedHandler is invoked once per untagged response line, in the order
// received, before the tagged completion arrives.
type UntaggedHandler func(*wire.Response)

// Execute sends "TAGn NAME <build>" and blocks until the matching tagged
// completion, dispatching every untagged line to onUntagged as it arrives
// and also collecting it onto the returned Response. Literal fields written
// by build perform the synchronizing-literal continuation handshake
// in-line: a short-lived goroutine drives the write side (so it can block
// on the continuation channel) while Execute's own goroutine is the only
// reader of the connection, preserving the single-reader/single-writer
// invariant for the duration of one command.
func (e *Engine) Execute(ctx context.Context, name string, build func(*CommandWriter) error, onUntagged UntaggedHandler) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tag := e.nextTag()
	continues := make(chan bool)
	enc := wire.NewEncoder(e.tr.Writer(), continues)
	cw := &CommandWriter{enc: enc}

	writeDone := make(chan error, 1)
	go func() {
		enc.Tag(tag).Atom(name)
		if build != nil {
			if err := build(cw); err != nil {
				writeDone <- err
				return
			}
		}
		writeDone <- enc.Line()
	}()

	dec := wire.NewDecoder(e.tr.Reader(), nil)
	resp := &Response{Tag: tag, Name: name}

	for {
		r, err := wire.ReadResponse(dec)
		if err != nil {
			drainContinues(continues)
			return nil, fmt.Errorf("client: %s: %w", name, err)
		}

		switch r.Kind {
		case wire.Continuation:
			select {
			case continues <- true:
			default:
			}
		case wire.Tagged:
			if r.Tag != tag {
				// Not ours; per spec.md this shouldn't happen under the
				// exclusive engine, but don't wedge the connection.
				continue
			}
			close(continues)
			if err := <-writeDone; err != nil {
				return nil, fmt.Errorf("client: %s: writing command: %w", name, err)
			}
			resp.Status = r.Status
			resp.Code = r.Code
			resp.CodeArgs = r.Args
			resp.Text = r.Text
			return resp, nil
		case wire.Untagged:
			resp.Untagged = append(resp.Untagged, r)
			if onUntagged != nil {
				onUntagged(r)
			}
		}
	}
}

func drainContinues(ch chan bool) {
	select {
	case ch <- false:
	default:
		close(ch)
	}
}

// numSetField adapts a numset.Set for use as a wire.Field.
func numSetField(s numset.Set) wire.Field { return s }
