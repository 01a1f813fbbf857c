package message

import "testing"

func TestPartIsAttachment(t *testing.T) {
	testCases := []struct {
		name string
		p    *part
		want bool
	}{
		{
			name: "plain text body",
			p:    &part{contentType: "text/plain"},
			want: false,
		},
		{
			name: "html body",
			p:    &part{contentType: "text/html"},
			want: false,
		},
		{
			name: "explicit attachment disposition",
			p:    &part{contentType: "text/plain", disposition: "attachment"},
			want: true,
		},
		{
			name: "text part with a filename is still an attachment",
			p:    &part{contentType: "text/plain", typeParams: map[string]string{"name": "notes.txt"}},
			want: true,
		},
		{
			name: "application part",
			p:    &part{contentType: "application/pdf"},
			want: true,
		},
		{
			name: "nested message/rfc822 is not an attachment",
			p:    &part{contentType: "message/rfc822"},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.isAttachment(); got != tc.want {
				t.Errorf("isAttachment() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPartFilename(t *testing.T) {
	testCases := []struct {
		name string
		p    *part
		want string
	}{
		{
			name: "disposition filename wins over content-type name",
			p: &part{
				dispParams: map[string]string{"filename": "disposition.txt"},
				typeParams: map[string]string{"name": "contenttype.txt"},
			},
			want: "disposition.txt",
		},
		{
			name: "falls back to content-type name",
			p:    &part{typeParams: map[string]string{"name": "fallback.txt"}},
			want: "fallback.txt",
		},
		{
			name: "no filename anywhere",
			p:    &part{},
			want: "",
		},
		{
			name: "path separators are stripped",
			p:    &part{dispParams: map[string]string{"filename": "../../etc/passwd"}},
			want: "passwd",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.filename(); got != tc.want {
				t.Errorf("filename() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPartPathString(t *testing.T) {
	testCases := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{1}, "1"},
		{[]int{1, 2}, "1.2"},
		{[]int{1, 2, 3}, "1.2.3"},
	}
	for _, tc := range testCases {
		if got := partPathString(tc.in); got != tc.want {
			t.Errorf("partPathString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeWords(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain ASCII passes through", "hello", "hello"},
		{"UTF-8 Q-encoded word", "=?UTF-8?Q?h=C3=A9llo?=", "héllo"},
		{"UTF-8 B-encoded word", "=?UTF-8?B?aMOpbGxv?=", "héllo"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := decodeWords(tc.in); got != tc.want {
				t.Errorf("decodeWords(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
