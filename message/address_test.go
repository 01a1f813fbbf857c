package message

import "testing"

func TestParseAddressList(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []Address
	}{
		{
			name: "empty header",
			raw:  "",
			want: nil,
		},
		{
			name: "single mailbox with display name",
			raw:  `"Alice Example" <alice@example.org>`,
			want: []Address{{Name: "Alice Example", Mailbox: "alice", Host: "example.org"}},
		},
		{
			name: "bare mailbox",
			raw:  "bob@example.org",
			want: []Address{{Name: "", Mailbox: "bob", Host: "example.org"}},
		},
		{
			name: "multiple mailboxes",
			raw:  "alice@example.org, bob@example.org",
			want: []Address{
				{Mailbox: "alice", Host: "example.org"},
				{Mailbox: "bob", Host: "example.org"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseAddressList(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d addresses, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("address %d: got %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestAddressString(t *testing.T) {
	testCases := []struct {
		name string
		addr Address
		want string
	}{
		{"with name", Address{Name: "Alice", Mailbox: "alice", Host: "example.org"}, `Alice <alice@example.org>`},
		{"without name", Address{Mailbox: "bob", Host: "example.org"}, "bob@example.org"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.addr.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSplitAddress(t *testing.T) {
	testCases := []struct {
		name, addr string
		want       Address
	}{
		{"Alice", "alice@example.org", Address{Name: "Alice", Mailbox: "alice", Host: "example.org"}},
		{"", "no-at-sign", Address{Mailbox: "no-at-sign", Host: ""}},
		{"", "a@b@example.org", Address{Mailbox: "a@b", Host: "example.org"}},
	}

	for _, tc := range testCases {
		got := splitAddress(tc.name, tc.addr)
		if got != tc.want {
			t.Errorf("splitAddress(%q, %q) = %+v, want %+v", tc.name, tc.addr, got, tc.want)
		}
	}
}
