package imapkit

import "fmt"

// ErrorKind classifies a failure by where and why it happened, so callers
// can branch on errors.Is/errors.As without matching brittle message text.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"       // dial, TLS, read/write I/O
	KindProtocol       ErrorKind = "protocol"        // malformed response, unexpected sequencing
	KindServerNo       ErrorKind = "server_no"        // tagged NO
	KindServerBad      ErrorKind = "server_bad"       // tagged BAD
	KindAuthentication ErrorKind = "authentication"   // AUTHENTICATE/LOGIN failure
	KindState          ErrorKind = "state"            // command not valid in the current session state
	KindCache          ErrorKind = "cache"            // UID cache invalidation/lookup failure
	KindMessage        ErrorKind = "message"          // MIME/header materialisation failure
)

// Error is the concrete error type this library returns from every
// exported operation. Kind is always set; Err, when non-nil, is the
// underlying cause and is preserved for errors.Unwrap.
type Error struct {
	Kind ErrorKind
	Op   string // the operation that failed, e.g. "SELECT", "FETCH"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("imapkit: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("imapkit: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, &imapkit.Error{Kind: imapkit.KindServerNo}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return true
}

// NewError wraps err under op/kind.
func NewError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// ServerError is returned by command execution when the server responds NO
// or BAD, carrying the response text and optional response code
// ("TRYCREATE", "OVERQUOTA"...).
type ServerError struct {
	Op   string
	Bad  bool // true for BAD, false for NO
	Code string
	Text string
}

func (e *ServerError) Error() string {
	status := "NO"
	if e.Bad {
		status = "BAD"
	}
	if e.Code != "" {
		return fmt.Sprintf("imapkit: %s: %s [%s] %s", e.Op, status, e.Code, e.Text)
	}
	return fmt.Sprintf("imapkit: %s: %s %s", e.Op, status, e.Text)
}

// Kind implements the same classification surface as Error.
func (e *ServerError) Kind() ErrorKind {
	if e.Bad {
		return KindServerBad
	}
	return KindServerNo
}

// ErrUIDValidityChanged reports that a folder's UIDVALIDITY no longer
// matches the value a UID cache was populated under. No function in this
// module returns it; the client's UID cache empties itself on a mismatch.
var ErrUIDValidityChanged = fmt.Errorf("imapkit: UIDVALIDITY changed, cache invalidated")

// ErrNotSelected reports that no mailbox is currently selected for a
// message-scoped operation. No function in this module returns it.
var ErrNotSelected = fmt.Errorf("imapkit: %w", &Error{Kind: KindState, Op: "command", Err: fmt.Errorf("no mailbox selected")})

// ErrIdleClosed reports that an IDLE loop has stopped. No function in this
// module returns it; Folder.Idle returns the context's error on
// cancellation.
var ErrIdleClosed = fmt.Errorf("imapkit: idle loop closed")
