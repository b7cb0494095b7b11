package mask

import (
	"fmt"
	"strings"
)

// radix64Alphabet is the digit set of the PicketBox vault encoding. It is not
// the RFC 4648 alphabet and the encoding carries no padding.
const radix64Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz./"

// encodeRadix64 renders data as a big-endian base-64 number: the byte slice is
// right-aligned into 3-byte groups and leading zero digits are dropped.
// A slice with no non-zero bits encodes as "0".
func encodeRadix64(data []byte) string {
	pad := (3 - len(data)%3) % 3
	buf := make([]byte, pad+len(data))
	copy(buf[pad:], data)

	var sb strings.Builder
	leading := true
	for i := 0; i < len(buf); i += 3 {
		group := uint32(buf[i])<<16 | uint32(buf[i+1])<<8 | uint32(buf[i+2])
		for shift := 18; shift >= 0; shift -= 6 {
			digit := (group >> uint(shift)) & 0x3f
			if leading && digit == 0 {
				continue
			}
			leading = false
			sb.WriteByte(radix64Alphabet[digit])
		}
	}

	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

// decodeRadix64 reverses encodeRadix64. Leading zero bytes cannot survive the
// round trip; the result is the minimal big-endian representation and is
// never empty.
func decodeRadix64(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty radix-64 string")
	}

	pad := (4 - len(s)%4) % 4
	digits := make([]byte, pad+len(s))
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(radix64Alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("invalid radix-64 digit %q at offset %d", s[i], i)
		}
		digits[pad+i] = byte(idx)
	}

	out := make([]byte, 0, len(digits)/4*3)
	for i := 0; i < len(digits); i += 4 {
		group := uint32(digits[i])<<18 | uint32(digits[i+1])<<12 | uint32(digits[i+2])<<6 | uint32(digits[i+3])
		out = append(out, byte(group>>16), byte(group>>8), byte(group))
	}

	start := 0
	for start < len(out)-1 && out[start] == 0 {
		start++
	}
	return out[start:], nil
}
