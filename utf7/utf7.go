// Package utf7 implements the modified UTF-7 encoding RFC 3501 section
// 5.1.3 mandates for IMAP mailbox names: UTF-16 code units, modified
// base64 (',' instead of '/', no padding), shifted in and out of an
// otherwise 7-bit-clean ASCII stream with '&' and '-'.
package utf7

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	shift   = '&'
	unshift = '-'
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,"

var alphabetIndex [256]int8

func init() {
	for i := range alphabetIndex {
		alphabetIndex[i] = -1
	}
	for i, c := range alphabet {
		alphabetIndex[c] = int8(i)
	}
}

// Encoding is the modified UTF-7 text encoding used for IMAP mailbox names.
var Encoding encoding.Encoding = imapUTF7{}

type imapUTF7 struct{}

func (imapUTF7) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: new(utf7Decoder)}
}

func (imapUTF7) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: new(utf7Encoder)}
}

var (
	errIllegalByte    = errors.New("utf7: illegal byte in direct-encoded text")
	errIllegalBase64  = errors.New("utf7: illegal character in base64 run")
	errBadSurrogate   = errors.New("utf7: invalid surrogate pair")
	errShortUnit      = errors.New("utf7: truncated UTF-16 code unit")
	errBadPadding     = errors.New("utf7: non-zero padding bits")
	errImplicitShift  = errors.New("utf7: unterminated shift sequence")
	errRedundantShift = errors.New("utf7: adjacent shift sequences")
	errRedundantASCII = errors.New("utf7: shift sequence encodes only directly-representable text")
)

type utf7Decoder struct {
	shifted       bool
	sawAny        bool
	bits          uint32
	nbits         uint
	pendingHi     uint16
	lastASCII     bool
	afterShift    bool // true right after a content-bearing shift ended
	afterRealOpen bool // true if the shift currently open began right after a content-bearing shift
}

func (d *utf7Decoder) Reset() { *d = utf7Decoder{} }

func (d *utf7Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	var buf [utf8.UTFMax]byte

	emit := func(r rune) bool {
		n := utf8.EncodeRune(buf[:], r)
		if nDst+n > len(dst) {
			return false
		}
		copy(dst[nDst:], buf[:n])
		nDst += n
		return true
	}

	i := 0
	for i < len(src) {
		b := src[i]

		if !d.shifted {
			if b == shift {
				d.afterRealOpen = d.afterShift
				d.afterShift = false
				d.shifted = true
				d.sawAny = false
				d.bits, d.nbits, d.pendingHi, d.lastASCII = 0, 0, 0, false
				i++
				nSrc = i
				continue
			}
			if b < 0x20 || b > 0x7E {
				return nDst, nSrc, errIllegalByte
			}
			if !emit(rune(b)) {
				return nDst, nSrc, transform.ErrShortDst
			}
			d.afterShift = false
			i++
			nSrc = i
			continue
		}

		if b == unshift {
			if !d.sawAny {
				if !emit('&') {
					return nDst, nSrc, transform.ErrShortDst
				}
				d.afterShift = false
			} else {
				if d.pendingHi != 0 {
					return nDst, nSrc, errBadSurrogate
				}
				if d.nbits != 0 && d.nbits != 2 && d.nbits != 4 {
					return nDst, nSrc, errShortUnit
				}
				if d.bits != 0 {
					return nDst, nSrc, errBadPadding
				}
				if d.lastASCII {
					return nDst, nSrc, errRedundantASCII
				}
				if d.afterRealOpen {
					return nDst, nSrc, errRedundantShift
				}
				d.afterShift = true
			}
			d.shifted = false
			i++
			nSrc = i
			continue
		}

		idx := alphabetIndex[b]
		if idx < 0 {
			return nDst, nSrc, errIllegalBase64
		}
		// A short dst must leave the state as it was before b, since b is
		// not consumed and is processed again on the next call.
		saved := *d
		d.sawAny = true
		d.bits = d.bits<<6 | uint32(idx)
		d.nbits += 6

		for d.nbits >= 16 {
			unit := uint16(d.bits >> (d.nbits - 16))
			d.nbits -= 16
			d.bits &= (1 << d.nbits) - 1

			switch {
			case d.pendingHi != 0:
				if unit < 0xDC00 || unit > 0xDFFF {
					return nDst, nSrc, errBadSurrogate
				}
				r := utf16.DecodeRune(rune(d.pendingHi), rune(unit))
				if !emit(r) {
					*d = saved
					return nDst, nSrc, transform.ErrShortDst
				}
				d.pendingHi = 0
				d.lastASCII = false
			case unit >= 0xD800 && unit <= 0xDBFF:
				d.pendingHi = unit
			case unit >= 0xDC00 && unit <= 0xDFFF:
				return nDst, nSrc, errBadSurrogate
			default:
				if !emit(rune(unit)) {
					*d = saved
					return nDst, nSrc, transform.ErrShortDst
				}
				d.lastASCII = unit >= 0x20 && unit <= 0x7E
			}
		}

		i++
		nSrc = i
	}

	if atEOF && d.shifted {
		return nDst, nSrc, errImplicitShift
	}
	return nDst, nSrc, nil
}

type utf7Encoder struct {
	shifted bool
	bits    uint32
	nbits   uint
}

func (e *utf7Encoder) Reset() { *e = utf7Encoder{} }

func (e *utf7Encoder) flush(dst []byte, nDst int) (int, bool) {
	for e.nbits >= 6 {
		c := alphabet[(e.bits>>(e.nbits-6))&0x3F]
		if nDst >= len(dst) {
			return nDst, false
		}
		dst[nDst] = c
		nDst++
		e.nbits -= 6
		e.bits &= (1 << e.nbits) - 1
	}
	return nDst, true
}

func (e *utf7Encoder) endShift(dst []byte, nDst int) (int, bool) {
	if e.nbits > 0 {
		c := alphabet[(e.bits<<(6-e.nbits))&0x3F]
		if nDst >= len(dst) {
			return nDst, false
		}
		dst[nDst] = c
		nDst++
		e.bits, e.nbits = 0, 0
	}
	if nDst >= len(dst) {
		return nDst, false
	}
	dst[nDst] = unshift
	nDst++
	e.shifted = false
	return nDst, true
}

func (e *utf7Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size <= 1 && !atEOF && i+utf8.UTFMax > len(src) {
			break
		}

		if r == shift {
			if e.shifted {
				var ok bool
				if nDst, ok = e.endShift(dst, nDst); !ok {
					return nDst, nSrc, transform.ErrShortDst
				}
			}
			if nDst+2 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst], dst[nDst+1] = shift, unshift
			nDst += 2
			i += size
			nSrc = i
			continue
		}

		if r >= 0x20 && r <= 0x7E {
			if e.shifted {
				var ok bool
				if nDst, ok = e.endShift(dst, nDst); !ok {
					return nDst, nSrc, transform.ErrShortDst
				}
			}
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = byte(r)
			nDst++
			i += size
			nSrc = i
			continue
		}

		if !e.shifted {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = shift
			nDst++
			e.shifted = true
		}

		for _, u := range utf16.Encode([]rune{r}) {
			e.bits = e.bits<<16 | uint32(u)
			e.nbits += 16
			var ok bool
			if nDst, ok = e.flush(dst, nDst); !ok {
				return nDst, nSrc, transform.ErrShortDst
			}
		}
		i += size
		nSrc = i
	}

	if atEOF && e.shifted {
		var ok bool
		if nDst, ok = e.endShift(dst, nDst); !ok {
			return nDst, nSrc, transform.ErrShortDst
		}
	}
	return nDst, nSrc, nil
}

// Encode converts a UTF-8 string to modified UTF-7, for use in mailbox
// names sent on the wire.
func Encode(s string) (string, error) {
	return Encoding.NewEncoder().String(s)
}

// Decode converts a modified-UTF-7 mailbox name received from the server
// into a UTF-8 string.
func Decode(s string) (string, error) {
	return Encoding.NewDecoder().String(s)
}
