package bundle

import (
	"errors"
	"fmt"
)

// Base64 VLQ, the mappings encoding of revision 3 source maps. Values are
// zig-zag signed: the low bit of the first digit is the sign, the rest of
// each 5-bit digit is payload, and bit 6 marks a continuation.

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqBaseShift    = 5
	vlqBaseMask     = 1<<vlqBaseShift - 1
	vlqContinuation = 1 << vlqBaseShift
)

var base64Index = func() [128]int8 {
	var idx [128]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		idx[base64Chars[i]] = int8(i)
	}
	return idx
}()

// appendVLQ appends the base64 VLQ encoding of value to dst.
func appendVLQ(dst []byte, value int) []byte {
	v := value << 1
	if value < 0 {
		v = -value<<1 | 1
	}
	for {
		digit := v & vlqBaseMask
		v >>= vlqBaseShift
		if v > 0 {
			digit |= vlqContinuation
		}
		dst = append(dst, base64Chars[digit])
		if v == 0 {
			return dst
		}
	}
}

// decodeVLQ reads a single VLQ value from the start of s and returns it
// together with the number of bytes consumed.
func decodeVLQ(s string) (value, n int, err error) {
	var result int
	var shift uint
	for n < len(s) {
		c := s[n]
		if c >= 128 || base64Index[c] < 0 {
			return 0, 0, fmt.Errorf("invalid VLQ character %q", c)
		}
		digit := int(base64Index[c])
		n++
		result |= (digit & vlqBaseMask) << shift
		if digit&vlqContinuation == 0 {
			if result&1 != 0 {
				return -(result >> 1), n, nil
			}
			return result >> 1, n, nil
		}
		shift += vlqBaseShift
	}
	return 0, 0, errors.New("unterminated VLQ sequence")
}
