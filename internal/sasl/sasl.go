// Package sasl base64-encodes and decodes SASL challenge/response payloads
// exchanged during AUTHENTICATE, per RFC 4954 / RFC 3501 §6.2.2.
package sasl

import "encoding/base64"

// Encode renders b as the base64 payload used on the wire. An empty
// challenge is represented by a bare "=", matching the server convention for
// "no data".
func Encode(b []byte) string {
	if len(b) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode. A bare "=" decodes to a non-nil empty slice,
// because go-sasl's Client.Next treats nil as "no challenge" rather than
// "empty challenge".
func Decode(s string) ([]byte, error) {
	if s == "=" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
