package binio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/pmxvmd/pkg/encoding"
)

func TestWriter_FixedString(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		length int
		want   []byte
	}{
		{"padded", "ab", 5, []byte{'a', 'b', 0, 0, 0}},
		{"exact", "abcde", 5, []byte("abcde")},
		{"truncated", "abcdefg", 5, []byte("abcde")},
		{"shift_jis", "センター", 10, []byte{0x83, 0x5A, 0x83, 0x93, 0x83, 0x5E, 0x81, 0x5B, 0, 0}},
		{"empty", "", 3, []byte{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			w.WriteFixedString(tt.value, tt.length)
			if !bytes.Equal(w.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", w.Bytes(), tt.want)
			}
		})
	}
}

func TestWriter_FixedString_Unmappable(t *testing.T) {
	w := NewWriter()
	w.WriteFixedString("a😀", 4)
	if w.Len() != 4 {
		t.Fatalf("Len = %d, want 4", w.Len())
	}
	if w.Bytes()[0] != 'a' {
		t.Errorf("first byte = %x, want 'a'", w.Bytes()[0])
	}
	if w.LossyStrings() != 1 {
		t.Errorf("LossyStrings = %d, want 1", w.LossyStrings())
	}
}

func TestWriter_Text_RoundTrip(t *testing.T) {
	for _, enc := range []encoding.TextEncoding{encoding.UTF8, encoding.UTF16LE} {
		t.Run(enc.String(), func(t *testing.T) {
			w := NewWriter()
			w.WriteText("初音ミク", enc)
			w.WriteText("", enc)

			r := NewReader(w.Bytes())
			got, err := r.ReadText(enc)
			if err != nil {
				t.Fatalf("ReadText: %v", err)
			}
			if got != "初音ミク" {
				t.Errorf("got %q", got)
			}
			empty, err := r.ReadText(enc)
			if err != nil || empty != "" {
				t.Errorf("empty string: got %q, %v", empty, err)
			}
			if r.Remaining() != 0 {
				t.Errorf("Remaining = %d, want 0", r.Remaining())
			}
		})
	}
}

func TestWriter_Index(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		signed  bool
		value   int64
		want    []byte
		wantErr error
	}{
		{"i8 sentinel", 1, true, -1, []byte{0xFF}, nil},
		{"u8 max", 1, false, 255, []byte{0xFF}, nil},
		{"i8 overflow", 1, true, 128, nil, ErrIndexOutOfRange},
		{"u8 negative", 1, false, -1, nil, ErrIndexOutOfRange},
		{"i16", 2, true, -300, []byte{0xD4, 0xFE}, nil},
		{"u32 large", 4, false, 4000000000, []byte{0x00, 0x28, 0x6B, 0xEE}, nil},
		{"bad width", 3, true, 0, nil, ErrInvalidWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			err := w.WriteIndex(tt.width, tt.signed, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if w.Len() != 0 {
					t.Errorf("failed write emitted %d bytes", w.Len())
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteIndex: %v", err)
			}
			if !bytes.Equal(w.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", w.Bytes(), tt.want)
			}
		})
	}
}

func TestWriter_Pack(t *testing.T) {
	w := NewWriter()
	if err := w.Pack(uint32(1), [2]float32{1, 2}, uint8(3)); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if w.Len() != 13 {
		t.Errorf("Len = %d, want 13", w.Len())
	}
	if err := w.Pack("not fixed size"); err == nil {
		t.Error("expected error packing a string")
	}
}
