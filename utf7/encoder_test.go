package utf7_test

import (
	"testing"

	"github.com/salvor-hardin/go-imapkit/utf7"
)

var encode = []struct {
	in  string
	out string
}{
	{"", ""},
	{"abc", "abc"},
	{"abc&", "abc&-"},
	{"&", "&-"},
	{"a&b&c", "a&-b&-c"},
	{"ÿ", "&AP8-"},
	{"\U0001f60a", "&2D3eCg-"},
}

func TestEncoder(t *testing.T) {
	enc := utf7.Encoding.NewEncoder()

	for _, test := range encode {
		out, err := enc.String(test.in)
		if err != nil {
			t.Errorf("Encode(%+q) unexpected error: %v", test.in, err)
			continue
		}
		if out != test.out {
			t.Errorf("Encode(%+q) = %+q; want %+q", test.in, out, test.out)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"INBOX",
		"Sent Items",
		"Déjà vu",
		"日本語メール",
		"mix & match",
	}
	for _, s := range cases {
		encoded, err := utf7.Encode(s)
		if err != nil {
			t.Fatalf("Encode(%q): %v", s, err)
		}
		decoded, err := utf7.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if decoded != s {
			t.Errorf("round trip %q -> %q -> %q", s, encoded, decoded)
		}
	}
}
