// Package textenc detects and round-trips the text encodings found in
// mission archives. Descriptors and datafiles written by the game's
// tooling are either UTF-8 (optionally with a byte order mark) or UTF-16
// with a byte order mark.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var ErrEncoding = errors.New("text encoding")

type Encoding int

const (
	UTF8 Encoding = iota
	UTF8BOM
	UTF16LE
	UTF16BE
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF8BOM:
		return "utf-8-bom"
	case UTF16LE:
		return "utf-16le"
	case UTF16BE:
		return "utf-16be"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Detect inspects the byte order mark of data.
func Detect(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return UTF8BOM
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return UTF16LE
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return UTF16BE
	default:
		return UTF8
	}
}

// Decode returns data as a Go string along with the encoding it was found in.
func Decode(data []byte) (string, Encoding, error) {
	enc := Detect(data)
	if enc == UTF8 {
		if !utf8.Valid(data) {
			return "", enc, fmt.Errorf("%w: invalid utf-8", ErrEncoding)
		}
		return string(data), enc, nil
	}

	out, err := codec(enc).NewDecoder().Bytes(data)
	if err != nil {
		return "", enc, fmt.Errorf("%w: decoding %s: %v", ErrEncoding, enc, err)
	}
	if !utf8.Valid(out) {
		return "", enc, fmt.Errorf("%w: invalid %s", ErrEncoding, enc)
	}
	return string(out), enc, nil
}

// Encode writes text back in enc, restoring the byte order mark.
func Encode(text string, enc Encoding) ([]byte, error) {
	if enc == UTF8 {
		return []byte(text), nil
	}
	c := codec(enc)
	if c == nil {
		return nil, fmt.Errorf("%w: unknown %s", ErrEncoding, enc)
	}
	out, err := c.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s: %v", ErrEncoding, enc, err)
	}
	return out, nil
}

func codec(enc Encoding) encoding.Encoding {
	switch enc {
	case UTF8BOM:
		return unicode.UTF8BOM
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	default:
		return nil
	}
}
