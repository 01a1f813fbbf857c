package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/salvor-hardin/go-imapkit/config"
)

// dialProxy connects through cfg.Proxy before the IMAP server is reachable,
// returning a net.Conn that, from the caller's point of view, behaves
// exactly like a direct connection to cfg.Addr().
func dialProxy(ctx context.Context, cfg config.Config, d *net.Dialer) (net.Conn, error) {
	switch cfg.Proxy.Kind {
	case config.ProxyHTTPConnect:
		return dialHTTPConnect(ctx, cfg, d)
	case config.ProxySOCKS5:
		return dialSOCKS5(ctx, cfg, d)
	default:
		return nil, fmt.Errorf("transport: unknown proxy kind %d", cfg.Proxy.Kind)
	}
}

func dialHTTPConnect(ctx context.Context, cfg config.Config, d *net.Dialer) (net.Conn, error) {
	conn, err := d.DialContext(ctx, "tcp", cfg.Proxy.Addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: dial %s: %w", cfg.Proxy.Addr, err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: cfg.Addr()},
		Host:   cfg.Addr(),
		Header: make(http.Header),
	}
	if cfg.Proxy.Username != "" {
		req.Header.Set("Proxy-Authorization", basicAuth(cfg.Proxy.Username, cfg.Proxy.Password))
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT response: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT failed: %s", resp.Status)
	}

	if br.Buffered() > 0 {
		buffered := make([]byte, br.Buffered())
		br.Read(buffered)
		return &prefixConn{Conn: conn, prefix: buffered}, nil
	}
	return conn, nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// prefixConn replays bytes the proxy handshake buffered past the HTTP
// response before the caller ever gets to read them.
type prefixConn struct {
	net.Conn
	prefix []byte
}

func (c *prefixConn) Read(b []byte) (int, error) {
	if len(c.prefix) > 0 {
		n := copy(b, c.prefix)
		c.prefix = c.prefix[n:]
		return n, nil
	}
	return c.Conn.Read(b)
}

// dialSOCKS5 performs the minimal SOCKS5 handshake (RFC 1928): no-auth or
// username/password negotiation, followed by a CONNECT request.
func dialSOCKS5(ctx context.Context, cfg config.Config, d *net.Dialer) (net.Conn, error) {
	conn, err := d.DialContext(ctx, "tcp", cfg.Proxy.Addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: dial %s: %w", cfg.Proxy.Addr, err)
	}

	methods := []byte{0x00} // no auth
	if cfg.Proxy.Username != "" {
		methods = []byte{0x02, 0x00}
	}
	hello := append([]byte{0x05, byte(len(methods))}, methods...)
	if _, err := conn.Write(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy: SOCKS5 hello: %w", err)
	}

	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy: SOCKS5 hello reply: %w", err)
	}
	if reply[0] != 0x05 {
		conn.Close()
		return nil, fmt.Errorf("proxy: not a SOCKS5 proxy")
	}

	switch reply[1] {
	case 0x00: // no auth
	case 0x02:
		if err := socks5Auth(conn, cfg.Proxy.Username, cfg.Proxy.Password); err != nil {
			conn.Close()
			return nil, err
		}
	default:
		conn.Close()
		return nil, fmt.Errorf("proxy: SOCKS5 server requires unsupported auth method %#x", reply[1])
	}

	if err := socks5Connect(conn, cfg.Host, cfg.Port); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func socks5Auth(conn net.Conn, user, pass string) error {
	req := bytes.NewBuffer([]byte{0x01})
	req.WriteByte(byte(len(user)))
	req.WriteString(user)
	req.WriteByte(byte(len(pass)))
	req.WriteString(pass)
	if _, err := conn.Write(req.Bytes()); err != nil {
		return fmt.Errorf("proxy: SOCKS5 auth: %w", err)
	}
	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		return fmt.Errorf("proxy: SOCKS5 auth reply: %w", err)
	}
	if reply[1] != 0x00 {
		return fmt.Errorf("proxy: SOCKS5 authentication failed")
	}
	return nil
}

func socks5Connect(conn net.Conn, host string, port int) error {
	req := bytes.NewBuffer([]byte{0x05, 0x01, 0x00, 0x03}) // ver, CONNECT, rsv, ATYP=domain
	req.WriteByte(byte(len(host)))
	req.WriteString(host)
	req.WriteByte(byte(port >> 8))
	req.WriteByte(byte(port))
	if _, err := conn.Write(req.Bytes()); err != nil {
		return fmt.Errorf("proxy: SOCKS5 connect: %w", err)
	}

	head := make([]byte, 4)
	if _, err := readFull(conn, head); err != nil {
		return fmt.Errorf("proxy: SOCKS5 connect reply: %w", err)
	}
	if head[1] != 0x00 {
		return fmt.Errorf("proxy: SOCKS5 connect rejected, code %#x", head[1])
	}

	var addrLen int
	switch head[3] {
	case 0x01:
		addrLen = 4
	case 0x03:
		lb := make([]byte, 1)
		if _, err := readFull(conn, lb); err != nil {
			return err
		}
		addrLen = int(lb[0])
	case 0x04:
		addrLen = 16
	default:
		return fmt.Errorf("proxy: SOCKS5 connect reply has unknown address type %#x", head[3])
	}
	rest := make([]byte, addrLen+2) // address + port
	_, err := readFull(conn, rest)
	return err
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
