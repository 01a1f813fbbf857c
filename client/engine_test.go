package client_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/salvor-hardin/go-imapkit/client"
	"github.com/salvor-hardin/go-imapkit/config"
	"github.com/salvor-hardin/go-imapkit/transport"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// fakeServer reads one line at a time off conn and lets the test script a
// canned reply per request, mirroring the teacher's net.Pipe-backed
// imapclient tests.
func fakeServer(t *testing.T, conn net.Conn, handle func(tag, line string) string) {
	t.Helper()
	go func() {
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			var tag string
			fmt.Sscanf(line, "%s", &tag)
			reply := handle(tag, line)
			if reply == "" {
				continue
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
}

func newTestEngine(t *testing.T) (*client.Engine, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	tr := transport.NewFromConn(clientConn, config.Config{})
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })
	return client.NewEngine(tr), serverConn
}

func TestEngineExecuteTagsIncreaseAndMatch(t *testing.T) {
	eng, srv := newTestEngine(t)

	fakeServer(t, srv, func(tag, line string) string {
		return tag + " OK done\r\n"
	})

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		resp, err := eng.Execute(ctx, "NOOP", nil, nil)
		if err != nil {
			t.Fatalf("Execute #%d: %v", i, err)
		}
		wantTag := fmt.Sprintf("A%03d", i)
		if resp.Tag != wantTag {
			t.Errorf("Execute #%d: tag = %q, want %q", i, resp.Tag, wantTag)
		}
		if !resp.OK() {
			t.Errorf("Execute #%d: resp = %+v, want OK", i, resp)
		}
	}
}

func TestEngineExecuteCollectsUntagged(t *testing.T) {
	eng, srv := newTestEngine(t)

	fakeServer(t, srv, func(tag, line string) string {
		return "* 4 EXISTS\r\n* 2 RECENT\r\n" + tag + " OK done\r\n"
	})

	var seen []string
	resp, err := eng.Execute(context.Background(), "NOOP", nil, func(r *wire.Response) {
		seen = append(seen, r.Type)
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.Untagged) != 2 {
		t.Fatalf("Untagged = %d lines, want 2", len(resp.Untagged))
	}
	if len(seen) != 2 || seen[0] != "EXISTS" || seen[1] != "RECENT" {
		t.Errorf("onUntagged saw %v", seen)
	}
}

func TestEngineExecuteNotOK(t *testing.T) {
	eng, srv := newTestEngine(t)

	fakeServer(t, srv, func(tag, line string) string {
		return tag + " NO [CANNOT] busy\r\n"
	})

	resp, err := eng.Execute(context.Background(), "SELECT", nil, nil)
	if err != nil {
		t.Fatalf("Execute returned transport error: %v", err)
	}
	if resp.OK() {
		t.Fatal("resp.OK() = true, want false")
	}
	if err := resp.Validate("SELECT"); err == nil {
		t.Error("Validate() = nil, want an error for a NO completion")
	}
}
