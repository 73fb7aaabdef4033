// Package memfmt implements width-parameterised word/byte access over
// linear byte buffers, little-endian throughout.
package memfmt

import (
	"errors"
	"fmt"

	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// ErrUnsupportedWordSize is returned for the reserved "inf" word size and
// for any word size this implementation can't back with a native
// integer. The Python original raises NotImplementedError for "inf";
// Go's int64 arithmetic caps the useful range at 8 bytes, which is more
// than every scenario in spec.md and the original's own test suite
// needs.
var ErrUnsupportedWordSize = errors.New("unsupported word size")

const MaxWordSize = 8

// Format is a memory format: a word size in bytes, little-endian.
type Format struct {
	WordSize int
	wordMask uint64
}

// New constructs a Format for the given word size in bytes.
func New(wordSize int) (*Format, error) {
	if wordSize <= 0 || wordSize > MaxWordSize {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWordSize, wordSize)
	}
	f := &Format{WordSize: wordSize}
	if wordSize == 8 {
		f.wordMask = ^uint64(0)
	} else {
		f.wordMask = (uint64(1) << (8 * wordSize)) - 1
	}
	return f, nil
}

func (f *Format) boundsCheck(o origin.Origin, buf []byte, addr, width int) error {
	if addr < 0 || addr+width > len(buf) {
		return asmerr.OutOfBoundsf(o, "address %d (width %d) is outside a %d-byte buffer", addr, width, len(buf))
	}
	return nil
}

// ReadWord reads WordSize little-endian bytes at addr.
func (f *Format) ReadWord(buf []byte, addr int) ([]byte, error) {
	if err := f.boundsCheck(origin.Unknown, buf, addr, f.WordSize); err != nil {
		return nil, err
	}
	out := make([]byte, f.WordSize)
	copy(out, buf[addr:addr+f.WordSize])
	return out, nil
}

// WriteWord overwrites WordSize bytes at addr with word (which must be
// exactly WordSize bytes long).
func (f *Format) WriteWord(buf []byte, addr int, word []byte) error {
	if len(word) != f.WordSize {
		return fmt.Errorf("memfmt: word has %d bytes, want %d", len(word), f.WordSize)
	}
	if err := f.boundsCheck(origin.Unknown, buf, addr, f.WordSize); err != nil {
		return err
	}
	copy(buf[addr:addr+f.WordSize], word)
	return nil
}

// ReadByte reads a single byte at addr.
func (f *Format) ReadByte(buf []byte, addr int) (byte, error) {
	if err := f.boundsCheck(origin.Unknown, buf, addr, 1); err != nil {
		return 0, err
	}
	return buf[addr], nil
}

// WriteByte writes a single byte at addr, masked to 8 bits.
func (f *Format) WriteByte(buf []byte, addr int, b int64) error {
	if err := f.boundsCheck(origin.Unknown, buf, addr, 1); err != nil {
		return err
	}
	buf[addr] = byte(b & 0xFF)
	return nil
}

// IntBytes little-endian-encodes value masked to WordSize bytes, without
// writing it anywhere.
func (f *Format) IntBytes(value int64) []byte {
	u := uint64(value) & f.wordMask
	out := make([]byte, f.WordSize)
	for i := 0; i < f.WordSize; i++ {
		out[i] = byte(u >> (8 * i))
	}
	return out
}

// WriteInt masks value to the word and writes it little-endian at addr.
func (f *Format) WriteInt(buf []byte, addr int, value int64) error {
	return f.WriteWord(buf, addr, f.IntBytes(value))
}

// DecodeSigned interprets word (WordSize little-endian bytes) as a
// two's-complement signed integer.
func (f *Format) DecodeSigned(word []byte) int64 {
	u := f.DecodeUnsigned(word)
	signBit := uint64(1) << (8*f.WordSize - 1)
	if u&signBit != 0 {
		return int64(u) - int64(f.wordMask) - 1
	}
	return int64(u)
}

// DecodeUnsigned interprets word as an unsigned integer.
func (f *Format) DecodeUnsigned(word []byte) uint64 {
	var u uint64
	for i := 0; i < f.WordSize && i < len(word); i++ {
		u |= uint64(word[i]) << (8 * i)
	}
	return u
}

// ArrayFromWords serialises a slice of values, each masked and encoded as
// one word, concatenated little-endian.
func (f *Format) ArrayFromWords(values []int64) []byte {
	out := make([]byte, 0, len(values)*f.WordSize)
	for _, v := range values {
		out = append(out, f.IntBytes(v)...)
	}
	return out
}

// IsSafeSigned reports whether n fits in one signed word.
func (f *Format) IsSafeSigned(n int64) bool {
	bits := uint(8 * f.WordSize)
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return n >= lo && n <= hi
}

// IsSafeUnsigned reports whether n fits in one unsigned word.
func (f *Format) IsSafeUnsigned(n int64) bool {
	if n < 0 {
		return false
	}
	return uint64(n) <= f.wordMask
}

// WordMask returns the bitmask for one word (2^(8*WordSize) - 1).
func (f *Format) WordMask() uint64 { return f.wordMask }

// SignedBytesNeeded returns the minimum number of bytes needed to encode
// n as a two's-complement signed integer. Used by Program.Save to pack
// pc compactly.
func SignedBytesNeeded(n int64) int {
	if n >= -128 && n <= 127 {
		return 1
	}
	count := 1
	for n > 127 || n < -128 {
		n >>= 8
		count++
	}
	return count
}
