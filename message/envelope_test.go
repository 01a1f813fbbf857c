package message

import (
	"bufio"
	"strings"
	"testing"

	"github.com/salvor-hardin/go-imapkit/wire"
)

func decodeList(t *testing.T, raw string) wire.Token {
	t.Helper()
	dec := wire.NewDecoder(bufio.NewReader(strings.NewReader(raw)), nil)
	tok, err := dec.ReadList()
	if err != nil {
		t.Fatalf("decoding %q: %v", raw, err)
	}
	return tok
}

func TestParseEnvelope(t *testing.T) {
	raw := `("Wed, 17 Jul 1996 02:23:25 -0700 (PDT)" "IMAP4rev1 WG mtg summary and minutes" ` +
		`(("Terry Gray" NIL "gray" "cac.washington.edu")) ` +
		`(("Terry Gray" NIL "gray" "cac.washington.edu")) ` +
		`(("Terry Gray" NIL "gray" "cac.washington.edu")) ` +
		`((NIL NIL "imap" "cac.washington.edu")) ` +
		`NIL NIL NIL "<B27397-0100000@cac.washington.edu>")`

	env, ok := parseEnvelope(decodeList(t, raw))
	if !ok {
		t.Fatal("parseEnvelope reported not ok")
	}

	if env.subject != "IMAP4rev1 WG mtg summary and minutes" {
		t.Errorf("subject = %q", env.subject)
	}
	if env.messageID != "B27397-0100000@cac.washington.edu" {
		t.Errorf("messageID = %q", env.messageID)
	}
	if len(env.from) != 1 || env.from[0].Mailbox != "gray" || env.from[0].Host != "cac.washington.edu" {
		t.Errorf("from = %+v", env.from)
	}
	if len(env.to) != 1 || env.to[0].Name != "" || env.to[0].Mailbox != "imap" {
		t.Errorf("to = %+v", env.to)
	}
	if len(env.cc) != 0 {
		t.Errorf("cc = %+v, want empty (NIL)", env.cc)
	}
}

func TestParseEnvelopeWrongShape(t *testing.T) {
	if _, ok := parseEnvelope(decodeList(t, `("only" "two" "fields")`)); ok {
		t.Error("expected parseEnvelope to reject a list with the wrong field count")
	}
}

func TestTrimMessageID(t *testing.T) {
	testCases := []struct{ in, want string }{
		{"<abc@example.org>", "abc@example.org"},
		{"abc@example.org", "abc@example.org"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := trimMessageID(tc.in); got != tc.want {
			t.Errorf("trimMessageID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTrimPrefixSuffix(t *testing.T) {
	testCases := []struct {
		s, prefix, suffix, want string
	}{
		{"<hi>", "<", ">", "hi"},
		{"hi", "<", ">", "hi"},
		{"<>", "<", ">", ""},
		{"<", "<", ">", "<"},
	}
	for _, tc := range testCases {
		if got := trimPrefixSuffix(tc.s, tc.prefix, tc.suffix); got != tc.want {
			t.Errorf("trimPrefixSuffix(%q, %q, %q) = %q, want %q", tc.s, tc.prefix, tc.suffix, got, tc.want)
		}
	}
}
