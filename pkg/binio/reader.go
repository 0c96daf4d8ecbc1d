// Package binio provides a little-endian cursor over in-memory buffers with
// fixed-length and length-prefixed string support.
package binio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	xencoding "golang.org/x/text/encoding"

	"github.com/Faultbox/pmxvmd/pkg/encoding"
)

type options struct {
	narrow xencoding.Encoding
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithNarrowEncoding sets the encoding of fixed-length string fields.
// The default is Shift_JIS.
func WithNarrowEncoding(enc xencoding.Encoding) Option {
	return func(o *options) {
		if enc != nil {
			o.narrow = enc
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{narrow: encoding.DefaultNarrow}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reader is a read cursor over a byte buffer. The position never exceeds the
// buffer length: a read that does not fit fails and leaves the cursor unchanged.
type Reader struct {
	data  []byte
	pos   int
	opts  options
	lossy int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte, opts ...Option) *Reader {
	return &Reader{data: data, opts: buildOptions(opts)}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// LossyStrings returns how many string reads needed replacement characters.
func (r *Reader) LossyStrings() int { return r.lossy }

// Slice consumes n bytes and returns them without copying. The result aliases
// the buffer and must not be retained past the decode.
func (r *Reader) Slice(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, &InsufficientDataError{Offset: r.pos, Requested: n, Available: len(r.data) - r.pos}
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Require fails unless at least n bytes remain. It does not move the cursor.
func (r *Reader) Require(n int) error {
	if n < 0 || n > len(r.data)-r.pos {
		return &InsufficientDataError{Offset: r.pos, Requested: n, Available: len(r.data) - r.pos}
	}
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Slice(n)
	return err
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Slice(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.Slice(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.Slice(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.Slice(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadF32s fills dst with consecutive float32 values.
func (r *Reader) ReadF32s(dst []float32) error {
	b, err := r.Slice(4 * len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return nil
}

// ReadPacked decodes a fixed-size value (struct, array or pointer to numeric)
// the way encoding/binary lays it out.
func (r *Reader) ReadPacked(v any) error {
	size := binary.Size(v)
	if size < 0 {
		return errors.Errorf("binio: %T has no fixed size", v)
	}
	b, err := r.Slice(size)
	if err != nil {
		return err
	}
	err = binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
	return err
}

// ReadIndex reads a width-byte index. Signed indices are sign-extended, so a
// stored -1 stays -1 at every width.
func (r *Reader) ReadIndex(width int, signed bool) (int64, error) {
	switch width {
	case 1:
		v, err := r.ReadU8()
		if signed {
			return int64(int8(v)), err
		}
		return int64(v), err
	case 2:
		v, err := r.ReadU16()
		if signed {
			return int64(int16(v)), err
		}
		return int64(v), err
	case 4:
		v, err := r.ReadU32()
		if signed {
			return int64(int32(v)), err
		}
		return int64(v), err
	}
	return 0, errors.Wrapf(ErrInvalidWidth, "width %d", width)
}

// ReadFixedString reads a length-byte field in the narrow encoding. With
// nullTerminated the value stops at the first zero byte.
func (r *Reader) ReadFixedString(length int, nullTerminated bool) (string, error) {
	b, err := r.Slice(length)
	if err != nil {
		return "", err
	}
	s, lossy := encoding.FixedStringToUTF8(r.opts.narrow, b, nullTerminated)
	if lossy {
		r.lossy++
	}
	return s, nil
}

// DecodeFixedString decodes b like ReadFixedString without moving the
// cursor. It serves decoders that slice whole record blocks at once.
func (r *Reader) DecodeFixedString(b []byte, nullTerminated bool) string {
	s, lossy := encoding.FixedStringToUTF8(r.opts.narrow, b, nullTerminated)
	if lossy {
		r.lossy++
	}
	return s
}

// ReadText reads a u32 byte-length prefix followed by the string payload.
func (r *Reader) ReadText(enc encoding.TextEncoding) (string, error) {
	start := r.pos
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.pos = start
		return "", &InsufficientDataError{Offset: start + 4, Requested: int(n), Available: len(r.data) - start - 4}
	}
	b, _ := r.Slice(int(n))
	s, lossy := encoding.DecodeText(enc, b)
	if lossy {
		r.lossy++
	}
	return s, nil
}
