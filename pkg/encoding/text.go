package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TextEncoding selects the codec of length-prefixed strings.
type TextEncoding uint8

const (
	UTF16LE TextEncoding = 0 // PMX flag value 0
	UTF8    TextEncoding = 1 // any nonzero PMX flag value
)

// TextEncodingFromFlag maps a PMX header flag byte to a TextEncoding.
func TextEncodingFromFlag(flag byte) TextEncoding {
	if flag == 0 {
		return UTF16LE
	}
	return UTF8
}

// String returns a human-readable encoding name.
func (e TextEncoding) String() string {
	switch e {
	case UTF16LE:
		return "UTF-16LE"
	case UTF8:
		return "UTF-8"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// DecodeText decodes a length-prefixed string payload.
func DecodeText(e TextEncoding, data []byte) (string, bool) {
	if e == UTF8 {
		if utf8.Valid(data) {
			return string(data), false
		}
		return strings.ToValidUTF8(string(data), "�"), true
	}
	return Decode(utf16LE, data)
}

// EncodeText encodes s as a length-prefixed string payload.
func EncodeText(e TextEncoding, s string) ([]byte, bool) {
	if e == UTF8 {
		return []byte(s), false
	}
	return Encode(utf16LE, s)
}
