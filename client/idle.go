package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/events"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// IdleCallback is invoked once per untagged "* n EXISTS" line observed
// while idling: msgNum is the sequence number from the line, sequenceType
// is always "MSN" (IDLE only ever reports sequence numbers, per RFC 2177),
// and nextTTL is how long remains before this library proactively cycles
// the IDLE command.
type IdleCallback func(msgNum uint32, sequenceType string, nextTTL time.Duration)

// IdleOptions tunes the idle loop's timeouts.
type IdleOptions struct {
	// StreamTimeout bounds any single read; exceeding it is treated like a
	// dropped connection and triggers a reconnect + re-IDLE. Zero selects
	// 30 seconds.
	StreamTimeout time.Duration
	// KeepaliveTTL is the longest this library keeps one IDLE command
	// outstanding before sending DONE and re-issuing IDLE on a fresh
	// connection, since some servers silently drop long-lived IDLE
	// sessions. Zero selects 29 minutes, just under RFC 2177's
	// recommended upper bound.
	KeepaliveTTL time.Duration
}

func (o IdleOptions) withDefaults() IdleOptions {
	if o.StreamTimeout <= 0 {
		o.StreamTimeout = 30 * time.Second
	}
	if o.KeepaliveTTL <= 0 {
		o.KeepaliveTTL = 29 * time.Minute
	}
	return o
}

// Idle runs the IDLE loop described by spec.md §4.9 on a cloned Client, so
// it never blocks command traffic on f's own session. It blocks until stop
// is closed, ctx is cancelled, or an unrecoverable error occurs.
func (f *Folder) Idle(ctx context.Context, stop <-chan struct{}, callback IdleCallback, opts IdleOptions) error {
	opts = opts.withDefaults()
	name := f.info.Name

	idleClient := f.client.Clone()
	defer idleClient.Disconnect(context.Background())

	if err := idleClient.Connect(ctx); err != nil {
		return imapkit.NewError("IDLE", imapkit.KindTransport, err)
	}
	if err := idleClient.Authenticate(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := idleClient.OpenFolder(ctx, name, true); err != nil {
			return err
		}

		cycle, err := idleLoopOnce(ctx, idleClient, stop, opts, callback)
		if err != nil {
			return err
		}
		if !cycle {
			return nil
		}

		if err := idleClient.Reconnect(ctx); err != nil {
			return imapkit.NewError("IDLE", imapkit.KindTransport, err)
		}
		if err := idleClient.Authenticate(ctx); err != nil {
			return err
		}
	}
}

// idleLoopOnce runs one IDLE command to completion: either the caller
// asked to stop (returns false, nil), or the keepalive TTL elapsed or the
// stream read timed out / failed (returns true, nil, asking the caller to
// reconnect and start a fresh IDLE), or a protocol error occurred (err).
func idleLoopOnce(ctx context.Context, c *Client, stop <-chan struct{}, opts IdleOptions, callback IdleCallback) (cycle bool, err error) {
	c.mu.Lock()
	sess, err := c.eng.idleStart(ctx)
	c.mu.Unlock()
	if err != nil {
		return false, imapkit.NewError("IDLE", imapkit.KindProtocol, err)
	}

	deadline := time.Now().Add(opts.KeepaliveTTL)

	for {
		select {
		case <-stop:
			sess.done()
			return false, nil
		case <-ctx.Done():
			sess.done()
			return false, ctx.Err()
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			sess.done()
			return true, nil
		}
		readTimeout := opts.StreamTimeout
		if remaining < readTimeout {
			readTimeout = remaining
		}

		r, rerr := sess.readOne(readTimeout)
		if rerr != nil {
			// Stream timeout or the connection dropped: per spec.md §4.9
			// step 5, cycle to a fresh connection rather than surfacing
			// the error to the caller.
			sess.eng.mu.Unlock()
			return true, nil
		}
		if strings.ToUpper(r.Type) == "EXISTS" {
			callback(r.Num, "MSN", time.Until(deadline))
			c.events.Emit(events.SectionMessage, events.MessageNew, &events.MessagePayload{Message: r.Num})
		}
	}
}

// idleSession tracks one outstanding IDLE command: the tag DONE will
// complete and the decoder reading the connection idling pushes updates
// on. Engine.mu is held for its entire lifetime, exactly like Execute holds
// it for one request/response cycle -- an IDLE command is one cycle too,
// just a very long one.
type idleSession struct {
	eng *Engine
	tag string
	dec *wire.Decoder
}

// idleStart sends "TAGn IDLE" and waits for the "+ idling" continuation,
// leaving Engine.mu held until done() releases it.
func (e *Engine) idleStart(ctx context.Context) (*idleSession, error) {
	e.mu.Lock()

	tag := e.nextTag()
	enc := wire.NewEncoder(e.tr.Writer(), nil)
	enc.Tag(tag).Atom("IDLE")
	if err := enc.Line(); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("client: IDLE: %w", err)
	}

	dec := wire.NewDecoder(e.tr.Reader(), nil)
	for {
		r, err := wire.ReadResponse(dec)
		if err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("client: IDLE: %w", err)
		}
		switch r.Kind {
		case wire.Continuation:
			return &idleSession{eng: e, tag: tag, dec: dec}, nil
		case wire.Tagged:
			e.mu.Unlock()
			return nil, fmt.Errorf("client: IDLE: server completed without a continuation: %s", r.Text)
		}
		// Untagged lines arriving before the continuation are rare but
		// legal; this library drops them rather than surfacing them,
		// since the loop callback only fires once idling has begun.
	}
}

// readOne reads the next response line, bounded by timeout.
func (s *idleSession) readOne(timeout time.Duration) (*wire.Response, error) {
	s.eng.tr.SetDeadline(timeout)
	return wire.ReadResponse(s.dec)
}

// done sends DONE, reads up to and including the tagged completion, clears
// the read deadline, and releases Engine.mu. Errors are swallowed: the
// caller is always about to reconnect or return regardless.
func (s *idleSession) done() {
	defer s.eng.mu.Unlock()
	s.eng.tr.SetDeadline(0)

	enc := wire.NewEncoder(s.eng.tr.Writer(), nil)
	enc.Atom("DONE")
	if err := enc.Line(); err != nil {
		return
	}
	for {
		r, err := wire.ReadResponse(s.dec)
		if err != nil {
			return
		}
		if r.Kind == wire.Tagged && r.Tag == s.tag {
			return
		}
	}
}
