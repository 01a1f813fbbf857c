// Package transport dials the network connection an IMAP session runs over:
// plain, implicit TLS, or STARTTLS-upgraded, optionally through an HTTP
// CONNECT or SOCKS5 proxy, wrapped in buffered reader/writer plumbing with
// optional wire tracing.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/salvor-hardin/go-imapkit/config"
)

// Transport is a live connection to an IMAP server: the raw net.Conn plus
// the buffered reader/writer every protocol read/write goes through.
// Upgrade (STARTTLS) replaces the underlying net.Conn and rewraps the
// buffers in place, the way the teacher's Conn.Upgrade does.
type Transport struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	debug io.Writer
	cfg   config.Config
}

// Reader returns the buffered reader commands decode from.
func (t *Transport) Reader() *bufio.Reader { return t.br }

// Writer returns the buffered writer commands encode onto.
func (t *Transport) Writer() *bufio.Writer { return t.bw }

// Conn returns the underlying net.Conn, mainly for deadline management.
func (t *Transport) Conn() net.Conn { return t.conn }

// Dial opens a Transport to cfg.Addr(), performing implicit TLS or deferring
// to an explicit StartTLS call per cfg.Encryption, and honouring
// cfg.ConnTimeout for the whole handshake.
func Dial(ctx context.Context, cfg config.Config) (*Transport, error) {
	cfg = cfg.WithDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	rawConn, err := dialNetwork(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.Addr(), err)
	}

	t := &Transport{conn: rawConn, debug: cfg.DebugWriter, cfg: cfg}

	if cfg.Encryption == config.EncryptionTLS {
		tlsConn := tls.Client(rawConn, cfg.TLSConfig)
		if err := handshakeWithContext(ctx, tlsConn); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("transport: TLS handshake: %w", err)
		}
		t.conn = tlsConn
	}

	t.init()
	return t, nil
}

// NewFromConn wraps an already-established net.Conn, the way the teacher's
// imapclient.New accepts a bare conn rather than always dialing one itself.
// Useful for tests driving the engine over net.Pipe, and for callers that
// manage their own dialing/proxying.
func NewFromConn(conn net.Conn, cfg config.Config) *Transport {
	t := &Transport{conn: conn, debug: cfg.DebugWriter, cfg: cfg.WithDefaults()}
	t.init()
	return t
}

func dialNetwork(ctx context.Context, cfg config.Config) (net.Conn, error) {
	var d net.Dialer
	if cfg.Proxy == nil || cfg.Proxy.Kind == config.ProxyNone {
		return d.DialContext(ctx, "tcp", cfg.Addr())
	}
	return dialProxy(ctx, cfg, &d)
}

func handshakeWithContext(ctx context.Context, conn *tls.Conn) error {
	type result struct{ err error }
	done := make(chan result, 1)
	go func() { done <- result{conn.Handshake()} }()
	select {
	case r := <-done:
		return r.err
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// init (re)wraps the current net.Conn in buffered I/O, splicing in the
// debug tee the same way the teacher's Conn.init does.
func (t *Transport) init() {
	var r io.Reader = t.conn
	var w io.Writer = t.conn
	if t.debug != nil {
		r = io.TeeReader(t.conn, t.debug)
		w = io.MultiWriter(t.conn, t.debug)
	}
	t.br = bufio.NewReader(r)
	t.bw = bufio.NewWriter(w)
}

// StartTLS upgrades a plain-text connection in place: any bytes already
// buffered in the reader ahead of the TLS ClientHello are drained and
// discarded first (there should be none, since the caller must not read
// past the tagged STARTTLS completion before calling this), then the raw
// net.Conn is swapped for a *tls.Conn and the buffers rebuilt.
func (t *Transport) StartTLS(ctx context.Context, tlsConfig *tls.Config) error {
	if tlsConfig == nil {
		tlsConfig = t.cfg.TLSConfig
	}
	// Drop any buffered-but-unread plaintext the way imapclient's
	// upgradeStartTLS does: a compliant server sends nothing more on the
	// plaintext side once the tagged OK is written.
	if t.br.Buffered() > 0 {
		io.CopyN(io.Discard, t.br, int64(t.br.Buffered()))
	}

	tlsConn := tls.Client(t.conn, tlsConfig)
	if err := handshakeWithContext(ctx, tlsConn); err != nil {
		return fmt.Errorf("transport: STARTTLS handshake: %w", err)
	}
	t.conn = tlsConn
	t.init()
	return nil
}

// SetDeadline sets a read deadline d from now for subsequent reads; d <= 0
// clears it. The IDLE loop is its only caller in this module: ordinary
// command round-trips run without a read deadline, and cfg.ReadTimeout is
// not applied.
func (t *Transport) SetDeadline(d time.Duration) error {
	if d <= 0 {
		return t.conn.SetReadDeadline(time.Time{})
	}
	return t.conn.SetReadDeadline(time.Now().Add(d))
}

// Close closes the underlying connection.
func (t *Transport) Close() error { return t.conn.Close() }
