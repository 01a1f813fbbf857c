package query

import (
	"testing"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/client"
	"github.com/salvor-hardin/go-imapkit/message"
)

func uids(ns ...uint32) []imapkit.UID {
	out := make([]imapkit.UID, len(ns))
	for i, n := range ns {
		out[i] = imapkit.UID(n)
	}
	return out
}

func TestApplyOrder(t *testing.T) {
	in := uids(1, 2, 3)

	q := &Query{order: OrderAsc}
	if got := q.applyOrder(in); !uidsEqual(got, uids(1, 2, 3)) {
		t.Errorf("OrderAsc: got %v", got)
	}

	q = &Query{order: OrderDesc}
	if got := q.applyOrder(in); !uidsEqual(got, uids(3, 2, 1)) {
		t.Errorf("OrderDesc: got %v", got)
	}
}

func TestApplyPage(t *testing.T) {
	testCases := []struct {
		name    string
		perPage int
		page    int
		in      []imapkit.UID
		want    []imapkit.UID
	}{
		{"no paging", 0, 0, uids(1, 2, 3), uids(1, 2, 3)},
		{"first page", 2, 1, uids(1, 2, 3, 4, 5), uids(1, 2)},
		{"second page", 2, 2, uids(1, 2, 3, 4, 5), uids(3, 4)},
		{"partial last page", 2, 3, uids(1, 2, 3, 4, 5), uids(5)},
		{"page beyond range", 2, 10, uids(1, 2, 3), nil},
		{"defaults page to 1", 2, 0, uids(1, 2, 3), uids(1, 2)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := &Query{perPage: tc.perPage, page: tc.page}
			got := q.applyPage(tc.in)
			if !uidsEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKeyFor(t *testing.T) {
	item := &client.FetchItem{SeqNum: 42, UID: 7}

	testCases := []struct {
		name string
		key  MessageKey
		msg  *message.Message
		want string
	}{
		{"by UID", KeyUID, &message.Message{}, "7"},
		{"by sequence number", KeySeqNum, &message.Message{}, "42"},
		{"by list position", KeyListPosition, &message.Message{}, "3"},
		{"by message-id when present", KeyMessageID, &message.Message{MessageID: "abc@example.org"}, "abc@example.org"},
		{"by message-id falls back to UID", KeyMessageID, &message.Message{}, "7"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := &Query{messageKey: tc.key}
			if got := q.keyFor(item, tc.msg, 3); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func uidsEqual(a, b []imapkit.UID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
