package message

import (
	"io"

	// go-message/charset both registers its decoder as go-message's
	// package-level CharsetReader hook (used internally for header and
	// body transfer decoding) and exposes the same lookup directly, which
	// this package reuses for the one place outside go-message's control:
	// RFC 2047 decoding of attachment filenames via mime.WordDecoder.
	gocharset "github.com/emersion/go-message/charset"
)

// charsetReader adapts go-message's charset table to mime.WordDecoder's
// CharsetReader shape.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	return gocharset.Reader(charset, input)
}
