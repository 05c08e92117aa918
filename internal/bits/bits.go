// Package bits implements the little-endian bit buffer used by the packet codec.
//
// Bit i of a buffer lives in byte i/8 at position i%8, counting from the least
// significant bit. This matches the layout of the LIFX LAN frame, where a 12 bit
// protocol number is followed directly by single-bit flags in the same 16 bit
// word.
package bits

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Bits is an immutable-by-convention sequence of bits. The zero value is an
// empty buffer.
type Bits struct {
	data []byte
	n    int
}

// New returns a zero-filled buffer of n bits.
func New(n int) Bits {
	if n < 0 {
		n = 0
	}
	return Bits{data: make([]byte, (n+7)/8), n: n}
}

// FromBytes returns a buffer holding every bit of b.
func FromBytes(b []byte) Bits {
	data := make([]byte, len(b))
	copy(data, b)
	return Bits{data: data, n: len(b) * 8}
}

// FromHex parses hex text (an optional 0x prefix and whitespace are ignored).
// Text with an odd number of digits is rejected.
func FromHex(s string) (Bits, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 == 1 {
		return Bits{}, fmt.Errorf("invalid hex %q: odd length", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Bits{}, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return Bits{data: b, n: len(b) * 8}, nil
}

// FromUint returns the low n bits of v.
func FromUint(v uint64, n int) Bits {
	b := New(n)
	for i := 0; i < n && i < 64; i++ {
		if v&(1<<uint(i)) != 0 {
			b.data[i/8] |= 1 << uint(i%8)
		}
	}
	return b
}

// Len returns the number of bits held.
func (b Bits) Len() int { return b.n }

// Bit reports whether bit i is set.
func (b Bits) Bit(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.data[i/8]&(1<<uint(i%8)) != 0
}

// Append returns b followed by other.
func (b Bits) Append(other Bits) Bits {
	if b.n%8 == 0 {
		data := make([]byte, len(b.data)+len(other.data))
		copy(data, b.data[:b.n/8])
		copy(data[b.n/8:], other.data)
		return Bits{data: data[:(b.n+other.n+7)/8], n: b.n + other.n}
	}
	out := New(b.n + other.n)
	copy(out.data, b.data)
	for i := 0; i < other.n; i++ {
		if other.Bit(i) {
			j := b.n + i
			out.data[j/8] |= 1 << uint(j%8)
		}
	}
	return out
}

// AppendBool returns b with one extra bit.
func (b Bits) AppendBool(v bool) Bits {
	var one Bits
	if v {
		one = FromUint(1, 1)
	} else {
		one = New(1)
	}
	return b.Append(one)
}

// Slice returns bits [start, end).
func (b Bits) Slice(start, end int) Bits {
	if start < 0 {
		start = 0
	}
	if end > b.n {
		end = b.n
	}
	if start >= end {
		return Bits{}
	}
	if start%8 == 0 {
		out := New(end - start)
		copy(out.data, b.data[start/8:])
		out.clearTail()
		return out
	}
	out := New(end - start)
	for i := start; i < end; i++ {
		if b.Bit(i) {
			j := i - start
			out.data[j/8] |= 1 << uint(j%8)
		}
	}
	return out
}

// Fit returns a buffer of exactly n bits. Shorter buffers are zero padded and
// longer ones truncated, on the left when leftCut is set and on the right
// otherwise.
func (b Bits) Fit(n int, leftCut bool) Bits {
	switch {
	case b.n == n:
		return b
	case b.n < n:
		if leftCut {
			return New(n - b.n).Append(b)
		}
		return b.Append(New(n - b.n))
	case leftCut:
		return b.Slice(b.n-n, b.n)
	default:
		return b.Slice(0, n)
	}
}

// Bytes returns the buffer as bytes, zero padding the final byte.
func (b Bits) Bytes() []byte {
	out := make([]byte, (b.n+7)/8)
	copy(out, b.data)
	if b.n%8 != 0 {
		out[len(out)-1] &= byte(1<<uint(b.n%8)) - 1
	}
	return out
}

// Uint interprets the first 64 bits as a little-endian unsigned integer.
func (b Bits) Uint() uint64 {
	var v uint64
	for i := 0; i < b.n && i < 64; i++ {
		if b.Bit(i) {
			v |= 1 << uint(i)
		}
	}
	return v
}

// Hex renders the bytes of the buffer as lowercase hex.
func (b Bits) Hex() string {
	return hex.EncodeToString(b.Bytes())
}

// Equal reports whether both buffers hold the same bits.
func (b Bits) Equal(other Bits) bool {
	return b.n == other.n && bytes.Equal(b.Bytes(), other.Bytes())
}

// IsZero reports whether no bit is set.
func (b Bits) IsZero() bool {
	for _, c := range b.Bytes() {
		if c != 0 {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (b Bits) String() string {
	return fmt.Sprintf("Bits(%d:%s)", b.n, b.Hex())
}

func (b *Bits) clearTail() {
	if b.n%8 != 0 && len(b.data) > 0 {
		b.data[len(b.data)-1] &= byte(1<<uint(b.n%8)) - 1
	}
}
