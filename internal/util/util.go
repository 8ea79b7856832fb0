package util

import "math/bits"

// Align rounds addr up to the next multiple of alignment, which must be a
// power of two.
func Align(addr int, alignment int) int {
	return (addr + alignment - 1) &^ (alignment - 1)
}

// EncodableImm reports whether v fits an ARM operand2 immediate: an 8-bit
// value rotated right by an even amount.
func EncodableImm(v int64) bool {
	if v < 0 || v > 0xffffffff {
		return false
	}
	u := uint32(v)
	for rot := 0; rot < 32; rot += 2 {
		if bits.RotateLeft32(u, rot) <= 0xff {
			return true
		}
	}
	return false
}
