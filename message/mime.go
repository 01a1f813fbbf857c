package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	gomessage "github.com/emersion/go-message"
)

// part is one node of the walked MIME tree: a part path like "1.2", its
// parsed headers, and its decoded body bytes (go-message handles transfer
// decoding and charset conversion to UTF-8 while the body is read).
type part struct {
	path        string
	contentType string
	typeParams  map[string]string
	disposition string
	dispParams  map[string]string
	contentID   string
	description string
	body        []byte
	decodeErr   error
}

func (p *part) filename() string {
	if name, ok := p.dispParams["filename"]; ok && name != "" {
		return sanitiseFilename(name)
	}
	if name, ok := p.typeParams["name"]; ok && name != "" {
		return sanitiseFilename(name)
	}
	return ""
}

func (p *part) isAttachment() bool {
	major, _, _ := strings.Cut(p.contentType, "/")
	if strings.EqualFold(p.disposition, "attachment") {
		return true
	}
	if p.filename() != "" {
		return true
	}
	if strings.EqualFold(major, "text") {
		return false
	}
	return major != "" && !strings.EqualFold(p.contentType, "message/rfc822")
}

// sanitiseFilename strips path separators and RFC 2047 decodes the name,
// so an attachment's filename is always a safe, displayable leaf name.
func sanitiseFilename(raw string) string {
	decoded, err := (&mime.WordDecoder{CharsetReader: charsetReader}).DecodeHeader(raw)
	if err != nil {
		decoded = raw
	}
	decoded = filepath.Base(decoded)
	if decoded == "." || decoded == "/" || decoded == string(filepath.Separator) {
		return ""
	}
	return decoded
}

// walkEntity recursively decomposes e into one part per leaf (and every
// multipart container along the way is skipped, since only leaves carry
// displayable content), assigning dotted part-path numbers the way
// BODYSTRUCTURE does: "1", "1.1", "1.2", "2", ...
func walkEntity(e *gomessage.Entity, path []int, out *[]*part, hardFail bool) error {
	mr := e.MultipartReader()
	if mr == nil {
		p := leafPart(e, partPathString(path))
		*out = append(*out, p)
		if p.decodeErr != nil && hardFail {
			return p.decodeErr
		}
		return nil
	}

	idx := 0
	for {
		child, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if hardFail {
				return fmt.Errorf("message: reading multipart: %w", err)
			}
			break
		}
		idx++
		childPath := append(append([]int{}, path...), idx)
		if err := walkEntity(child, childPath, out, hardFail); err != nil {
			return err
		}
	}
	return nil
}

func partPathString(path []int) string {
	strs := make([]string, len(path))
	for i, n := range path {
		strs[i] = strconv.Itoa(n)
	}
	return strings.Join(strs, ".")
}

func leafPart(e *gomessage.Entity, path string) *part {
	ct, typeParams, _ := e.Header.ContentType()
	disp, dispParams, _ := e.Header.ContentDisposition()

	p := &part{
		path:        path,
		contentType: strings.ToLower(ct),
		typeParams:  typeParams,
		disposition: strings.ToLower(disp),
		dispParams:  dispParams,
		contentID:   strings.Trim(e.Header.Get("Content-Id"), "<>"),
		description: e.Header.Get("Content-Description"),
	}
	if p.contentType == "" {
		p.contentType = "text/plain"
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		p.decodeErr = fmt.Errorf("message: decoding part %s: %w", path, err)
		return p
	}
	p.body = body
	return p
}

// parseMIME parses a full raw message (header + body) into its leaf parts.
func parseMIME(raw []byte, hardFail bool) (*gomessage.Entity, []*part, error) {
	e, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && e == nil {
		return nil, nil, fmt.Errorf("message: parsing MIME structure: %w", err)
	}
	var parts []*part
	if werr := walkEntity(e, nil, &parts, hardFail); werr != nil {
		return e, parts, werr
	}
	return e, parts, nil
}

// decodeWords decodes RFC 2047 encoded-words in a raw header value
// (adjacent encoded-words sharing a charset are joined by go-message's
// WordDecoder without the separating whitespace, per RFC 2047 section 6.2).
// Values that aren't encoded-word text pass through unchanged.
func decodeWords(raw string) string {
	decoded, err := (&mime.WordDecoder{CharsetReader: charsetReader}).DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}
