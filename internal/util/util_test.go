package util

import "testing"

func TestAlign(t *testing.T) {
	tests := []struct {
		addr      int
		alignment int
		expected  int
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{9, 8, 16},
		{17, 4, 20},
	}
	for _, tt := range tests {
		if got := Align(tt.addr, tt.alignment); got != tt.expected {
			t.Errorf("Align(%d, %d) = %d, want %d", tt.addr, tt.alignment, got, tt.expected)
		}
	}
}

func TestEncodableImm(t *testing.T) {
	tests := []struct {
		value    int64
		expected bool
	}{
		{0, true},
		{255, true},
		{256, true},      // 1 rotated
		{0xff00, true},   // 8-bit value shifted
		{0x102, false},   // needs 9 bits
		{0xff000000, true},
		{0x101, false},
		{-1, false},
		{1020, true}, // 255 << 2
	}
	for _, tt := range tests {
		if got := EncodableImm(tt.value); got != tt.expected {
			t.Errorf("EncodableImm(%#x) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}
