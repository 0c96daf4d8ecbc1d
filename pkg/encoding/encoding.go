// Package encoding provides text encoding utilities for MMD file formats.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultNarrow is the legacy encoding of fixed-length name fields.
var DefaultNarrow encoding.Encoding = japanese.ShiftJIS

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Lookup returns the encoding registered under name ("shift_jis", "euc-kr", "windows-1252", ...).
func Lookup(name string) (encoding.Encoding, error) {
	if name == "" {
		return DefaultNarrow, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown text encoding %q", name)
	}
	return enc, nil
}

// Name returns the canonical name of enc, or "" if it is not registered.
func Name(enc encoding.Encoding) string {
	name, err := htmlindex.Name(enc)
	if err != nil {
		return ""
	}
	return name
}

// Decode converts data in enc to a UTF-8 string. Undecodable sequences are
// replaced; lossy reports whether that happened.
func Decode(enc encoding.Encoding, data []byte) (s string, lossy bool) {
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		// Return as-is if decoding fails
		return strings.ToValidUTF8(string(data), "�"), true
	}
	return string(result), bytes.ContainsRune(result, utf8.RuneError)
}

// Encode converts a UTF-8 string to enc. Runes enc cannot represent are
// replaced with the encoding's substitute; lossy reports whether that happened.
func Encode(enc encoding.Encoding, s string) (data []byte, lossy bool) {
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err == nil {
		return result, false
	}
	result, _, err = transform.Bytes(encoding.ReplaceUnsupported(enc.NewEncoder()), []byte(s))
	if err != nil {
		return []byte(s), true
	}
	return result, true
}

// FixedStringToUTF8 decodes a fixed-size field. When nullTerminated is set the
// value ends at the first zero byte; the rest of the field is ignored.
func FixedStringToUTF8(enc encoding.Encoding, data []byte, nullTerminated bool) (string, bool) {
	if nullTerminated {
		if nullIdx := bytes.IndexByte(data, 0); nullIdx >= 0 {
			data = data[:nullIdx]
		}
	}
	return Decode(enc, data)
}

// UTF8ToFixedString encodes s into exactly size bytes. Longer values are
// truncated, shorter ones are padded with null bytes.
func UTF8ToFixedString(enc encoding.Encoding, s string, size int) ([]byte, bool) {
	encoded, lossy := Encode(enc, s)
	result := make([]byte, size)
	copy(result, encoded)
	return result, lossy
}
