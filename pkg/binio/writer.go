package binio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/Faultbox/pmxvmd/pkg/encoding"
)

// Writer accumulates a little-endian byte stream.
type Writer struct {
	buf   bytes.Buffer
	opts  options
	lossy int
}

// NewWriter returns an empty Writer.
func NewWriter(opts ...Option) *Writer {
	return &Writer{opts: buildOptions(opts)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return w.buf.Len() }

// LossyStrings returns how many string writes could not be encoded exactly.
func (w *Writer) LossyStrings() int { return w.lossy }

func (w *Writer) WriteBytes(b []byte) { w.buf.Write(b) }

func (w *Writer) WriteU8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) WriteI8(v int8) { w.buf.WriteByte(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *Writer) WriteF32s(vs []float32) {
	for _, v := range vs {
		w.WriteF32(v)
	}
}

// Pack writes fixed-size values in encoding/binary layout.
func (w *Writer) Pack(values ...any) error {
	for _, v := range values {
		if err := binary.Write(&w.buf, binary.LittleEndian, v); err != nil {
			return errors.Wrapf(err, "binio: packing %T", v)
		}
	}
	return nil
}

// WriteIndex writes v using width bytes. Values that do not fit the width
// (given signedness) fail with ErrIndexOutOfRange.
func (w *Writer) WriteIndex(width int, signed bool, v int64) error {
	var lo, hi int64
	switch {
	case width == 1 && signed:
		lo, hi = math.MinInt8, math.MaxInt8
	case width == 1:
		lo, hi = 0, math.MaxUint8
	case width == 2 && signed:
		lo, hi = math.MinInt16, math.MaxInt16
	case width == 2:
		lo, hi = 0, math.MaxUint16
	case width == 4 && signed:
		lo, hi = math.MinInt32, math.MaxInt32
	case width == 4:
		lo, hi = 0, math.MaxUint32
	default:
		return errors.Wrapf(ErrInvalidWidth, "width %d", width)
	}
	if v < lo || v > hi {
		return errors.Wrapf(ErrIndexOutOfRange, "%d does not fit %d bytes", v, width)
	}
	switch width {
	case 1:
		w.WriteU8(uint8(v))
	case 2:
		w.WriteU16(uint16(v))
	default:
		w.WriteU32(uint32(v))
	}
	return nil
}

// WriteFixedString writes s in the narrow encoding into exactly length bytes.
// Longer values are truncated; shorter ones are null-terminated and zero padded.
func (w *Writer) WriteFixedString(s string, length int) {
	b, lossy := encoding.UTF8ToFixedString(w.opts.narrow, s, length)
	if lossy {
		w.lossy++
	}
	w.buf.Write(b)
}

// WriteText writes a u32 byte-length prefix followed by s in enc.
func (w *Writer) WriteText(s string, enc encoding.TextEncoding) {
	b, lossy := encoding.EncodeText(enc, s)
	if lossy {
		w.lossy++
	}
	w.WriteU32(uint32(len(b)))
	w.buf.Write(b)
}
