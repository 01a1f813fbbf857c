package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/config"
	"github.com/salvor-hardin/go-imapkit/events"
	"github.com/salvor-hardin/go-imapkit/transport"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// State is one point in the session lifecycle spec.md §3 defines: the
// active mailbox, if any, is carried on Client rather than on State itself,
// since Idling and Selected share the same "a mailbox is open" shape.
type State int

const (
	StateDisconnected State = iota
	StateConnected          // greeting received, unauthenticated
	StateAuthenticated
	StateSelected
	StateIdling
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateSelected:
		return "selected"
	case StateIdling:
		return "idling"
	case StateLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// Client owns one IMAP session: its Transport, protocol Engine, connection
// state, capability set, currently selected Folder, UID cache and event
// dispatcher. Clone produces an independent second Client over a fresh
// Transport, sharing only the immutable Config -- used by the IDLE loop so
// it never contends with the primary session's command path.
type Client struct {
	cfg config.Config

	mu         sync.Mutex
	state      State
	tr         *transport.Transport
	eng        *Engine
	caps       map[string]bool
	activeName string // currently selected/examined mailbox, "" if none
	status     *imapkit.MailboxStatus // status of the active folder, nil if none

	uidCache *uidCache
	events   *events.Dispatcher
}

// New constructs a disconnected Client from cfg. Connect must be called
// before any command-issuing method.
func New(cfg config.Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:      cfg,
		state:    StateDisconnected,
		uidCache: newUIDCache(),
		events:   events.NewDispatcher(),
	}
}

// Events returns the dispatcher handlers are registered on (see spec.md §6
// "Event hook surface").
func (c *Client) Events() *events.Dispatcher { return c.events }

// State reports the session's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveFolder returns the name of the currently selected/examined mailbox,
// or "" if none.
func (c *Client) ActiveFolder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeName
}

// Connect opens the transport, reads the greeting, negotiates TLS if the
// config requests STARTTLS, and reads the server's capability list.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	tr, err := transport.Dial(ctx, c.cfg)
	if err != nil {
		return imapkit.NewError("connect", imapkit.KindTransport, err)
	}

	if err := readGreeting(tr); err != nil {
		tr.Close()
		return imapkit.NewError("connect", imapkit.KindTransport, err)
	}

	c.tr = tr
	c.eng = NewEngine(tr)
	c.state = StateConnected

	if c.cfg.Encryption == config.EncryptionStartTLS {
		if err := c.startTLSLocked(ctx); err != nil {
			c.tr.Close()
			c.state = StateDisconnected
			return err
		}
	}

	if _, err := c.capabilityLocked(ctx); err != nil {
		c.tr.Close()
		c.state = StateDisconnected
		return err
	}

	if len(c.cfg.ClientID) > 0 {
		// Best-effort per RFC 2971; a server that doesn't support ID
		// answers NIL and we ignore the error.
		c.idLocked(ctx, c.cfg.ClientID)
	}

	return nil
}

// readGreeting consumes the server's untagged "* OK ..." / "* PREAUTH ..."
// greeting line that precedes any tagged command.
func readGreeting(tr *transport.Transport) error {
	dec := wire.NewDecoder(tr.Reader(), nil)
	r, err := wire.ReadResponse(dec)
	if err != nil {
		return fmt.Errorf("reading greeting: %w", err)
	}
	if r.Kind != wire.Untagged {
		return fmt.Errorf("unexpected greeting response kind")
	}
	switch r.Status {
	case wire.StatusOK, wire.StatusPreAuth:
		return nil
	case wire.StatusBye:
		return fmt.Errorf("server closed connection at greeting: %s", r.Text)
	default:
		return fmt.Errorf("unexpected greeting status %q", r.Status)
	}
}

func (c *Client) startTLSLocked(ctx context.Context) error {
	resp, err := c.eng.Execute(ctx, "STARTTLS", nil, nil)
	if err != nil {
		return imapkit.NewError("STARTTLS", imapkit.KindTransport, err)
	}
	if err := resp.Validate("STARTTLS"); err != nil {
		return err
	}
	if err := c.tr.StartTLS(ctx, c.cfg.TLSConfig); err != nil {
		return imapkit.NewError("STARTTLS", imapkit.KindTransport, err)
	}
	// Capabilities obtained before STARTTLS must be discarded and re-read:
	// a man-in-the-middle could have forged them in clear text.
	c.caps = nil
	return nil
}

func (c *Client) capabilityLocked(ctx context.Context) (map[string]bool, error) {
	caps := make(map[string]bool)
	resp, err := c.eng.Execute(ctx, "CAPABILITY", nil, func(r *wire.Response) {
		if r.Type != "CAPABILITY" {
			return
		}
		for _, tok := range r.Fields {
			if a, ok := tok.Atom(); ok {
				caps[strings.ToUpper(a)] = true
			}
		}
	})
	if err != nil {
		return nil, imapkit.NewError("CAPABILITY", imapkit.KindTransport, err)
	}
	if err := resp.Validate("CAPABILITY"); err != nil {
		return nil, err
	}
	if resp.Code == "CAPABILITY" {
		for _, tok := range resp.CodeArgs {
			if a, ok := tok.Atom(); ok {
				caps[strings.ToUpper(a)] = true
			}
		}
	}
	c.caps = caps
	return caps, nil
}

// Capabilities returns the server's advertised capability set, refreshing
// it with a CAPABILITY command if it has never been read.
func (c *Client) Capabilities(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps != nil {
		return c.caps, nil
	}
	return c.capabilityLocked(ctx)
}

// HasCapability reports whether the server's last-known capability set
// includes name, case-insensitively.
func (c *Client) HasCapability(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps[strings.ToUpper(name)]
}

// Noop sends a NOOP command, the idiomatic way to poll a selected mailbox
// for unsolicited updates without blocking in IDLE.
func (c *Client) Noop(ctx context.Context) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, err := c.eng.Execute(ctx, "NOOP", nil, c.dispatchMailboxUpdates)
	if err != nil {
		return imapkit.NewError("NOOP", imapkit.KindTransport, err)
	}
	return resp.Validate("NOOP")
}

// Disconnect sends LOGOUT if a connection is open (authenticated or not),
// then tears down the transport.
// The active folder is always cleared, even if LOGOUT fails.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked(ctx)
}

func (c *Client) disconnectLocked(ctx context.Context) error {
	var logoutErr error
	if c.state != StateDisconnected && c.state != StateLoggedOut && c.tr != nil {
		resp, err := c.eng.Execute(ctx, "LOGOUT", nil, nil)
		if err == nil {
			logoutErr = resp.Validate("LOGOUT")
		} else {
			logoutErr = err
		}
	}
	if c.tr != nil {
		c.tr.Close()
	}
	c.tr = nil
	c.eng = nil
	c.activeName = ""
	c.status = nil
	c.state = StateLoggedOut
	return logoutErr
}

// Reconnect tears down any existing connection and connects again,
// preserving Config. Used after a fatal I/O error or a stream timeout.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr != nil {
		c.tr.Close()
	}
	c.tr = nil
	c.eng = nil
	c.activeName = ""
	c.status = nil
	c.state = StateDisconnected
	c.uidCache.clear()
	return c.connectLocked(ctx)
}

// CheckConnection reconnects if the session isn't currently connected. Per
// spec.md §4.4 it must be invoked before every command-issuing API; this
// library's command methods all call it first.
func (c *Client) CheckConnection(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateDisconnected || state == StateLoggedOut {
		return c.Reconnect(ctx)
	}
	return nil
}

// Clone returns a second Client sharing Config but with its own Transport
// and connection state, per spec.md §4.4. The IDLE loop runs its clone's
// session so it never blocks the caller's command traffic.
func (c *Client) Clone() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return New(c.cfg)
}

// Config returns the account configuration this Client was constructed
// from.
func (c *Client) Config() config.Config { return c.cfg }
