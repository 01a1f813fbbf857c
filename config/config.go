// Package config holds explicit, caller-constructed configuration values
// for go-imapkit. There is no package-level singleton: every client is
// built from a Config value the caller owns, and a ClientManager is an
// explicit container for multiple named accounts, not ambient state.
package config

import (
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"time"
)

// Encryption selects how the transport secures the connection.
type Encryption int

const (
	// EncryptionNone sends everything in clear text (only appropriate for
	// loopback/test servers).
	EncryptionNone Encryption = iota
	// EncryptionTLS dials straight into a TLS handshake ("implicit TLS",
	// typically port 993).
	EncryptionTLS
	// EncryptionStartTLS dials in clear text and issues STARTTLS before any
	// authentication command.
	EncryptionStartTLS
)

// Config describes one IMAP account connection.
type Config struct {
	Host string
	Port int

	Encryption Encryption
	TLSConfig  *tls.Config // nil selects sane defaults (ServerName = Host)

	Username string
	Password string
	// SASLMechanism overrides the AUTHENTICATE mechanism to use. Empty
	// selects XOAUTH2 if OAuthToken is set, otherwise the LOGIN command.
	SASLMechanism string
	// OAuthToken carries a bearer token for XOAUTH2 authentication.
	OAuthToken string

	ConnTimeout time.Duration // dial + full TLS/STARTTLS handshake
	ReadTimeout time.Duration // defaulted by WithDefaults; no read deadline is set from it

	// DebugWriter, if non-nil, receives a copy of every byte sent and
	// received on the wire, matching imapclient.Options.DebugWriter.
	DebugWriter io.Writer

	// Proxy optionally routes the connection through an HTTP CONNECT or
	// SOCKS5 proxy before the IMAP handshake begins.
	Proxy *ProxyConfig

	// ClientID is sent via the ID command (RFC 2971) immediately after
	// connecting, when non-empty.
	ClientID map[string]string

	// SoftFail records the account's soft-fail preference. It is false
	// unless set here or inherited from Options.SoftFail by AddAccount. The
	// client and query packages do not read it; a Query's decode failure
	// handling is set with Query.SoftFail.
	SoftFail bool
}

// ProxyKind selects the proxy protocol ProxyConfig describes.
type ProxyKind int

const (
	ProxyNone ProxyKind = iota
	ProxyHTTPConnect
	ProxySOCKS5
)

// ProxyConfig describes an intermediary the Transport dials through before
// reaching Config.Host:Port.
type ProxyConfig struct {
	Kind     ProxyKind
	Addr     string
	Username string
	Password string
}

// Addr returns the "host:port" dial target.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WithDefaults returns a copy of c with zero-valued timeouts and an absent
// TLS config replaced by the library defaults.
func (c Config) WithDefaults() Config {
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 30 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.TLSConfig == nil && c.Encryption != EncryptionNone {
		c.TLSConfig = &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}
	}
	return c
}

// AccountConfig names a Config within a ClientManager.
type AccountConfig struct {
	Name string
	Config
}

// ClientManager owns a named set of account configurations plus library-
// wide Options. It replaces what the teacher would otherwise keep as
// package-level client state: every method takes an explicit *ClientManager
// receiver and nothing here is a global.
type ClientManager struct {
	Options Options

	accounts map[string]Config
}

// Options are library-wide defaults that apply to every account unless a
// Config field overrides them.
type Options struct {
	// DebugWriter is the default wire-tracing sink for accounts that don't
	// set their own Config.DebugWriter.
	DebugWriter io.Writer
	// SoftFail is the default value of Config.SoftFail for newly added
	// accounts.
	SoftFail bool
}

// NewClientManager constructs an empty manager.
func NewClientManager(opts Options) *ClientManager {
	return &ClientManager{Options: opts, accounts: make(map[string]Config)}
}

// AddAccount registers cfg under name, applying manager-wide Options as
// defaults for any unset Config field.
func (m *ClientManager) AddAccount(name string, cfg Config) {
	if cfg.DebugWriter == nil {
		cfg.DebugWriter = m.Options.DebugWriter
	}
	if !cfg.SoftFail {
		cfg.SoftFail = m.Options.SoftFail
	}
	m.accounts[name] = cfg
}

// Account returns the named account's Config.
func (m *ClientManager) Account(name string) (Config, bool) {
	cfg, ok := m.accounts[name]
	return cfg, ok
}

// Accounts returns the names of every registered account.
func (m *ClientManager) Accounts() []string {
	names := make([]string, 0, len(m.accounts))
	for name := range m.accounts {
		names = append(names, name)
	}
	return names
}

// RemoveAccount deregisters name, if present.
func (m *ClientManager) RemoveAccount(name string) {
	delete(m.accounts, name)
}
