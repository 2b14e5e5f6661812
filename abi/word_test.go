package abi

import (
	"math"
	"testing"
)

func TestTagIntRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40), MaxInt, MinInt}

	for _, v := range values {
		word := TagInt(v)

		if !word.IsTaggedInt() {
			t.Fatalf("TagInt(%d) is not tagged", v)
		}
		if got := word.Int(); got != v {
			t.Fatalf("TagInt(%d).Int() = %d", v, got)
		}
	}
}

func TestFitsInt(t *testing.T) {
	tests := []struct {
		value int64
		want  bool
	}{
		{0, true},
		{MaxInt, true},
		{MinInt, true},
		{MaxInt + 1, false},
		{MinInt - 1, false},
		{math.MaxInt64, false},
		{math.MinInt64, false},
	}

	for _, tt := range tests {
		if got := FitsInt(tt.value); got != tt.want {
			t.Errorf("FitsInt(%d) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestPointerWords(t *testing.T) {
	const addr uint64 = 0x7f00_1234_5670

	word := FromPointer(addr)
	if word.IsTaggedInt() || word.IsRef() {
		t.Fatalf("owned pointer %#x reads as tagged", addr)
	}
	if word.Pointer() != addr {
		t.Fatalf("Pointer() = %#x, want %#x", word.Pointer(), addr)
	}

	ref := word.Ref()
	if !ref.IsRef() {
		t.Fatal("Ref() did not set the borrow bit")
	}
	if ref.IsTaggedInt() {
		t.Fatal("borrowed pointer reads as tagged int")
	}
	if ref.Pointer() != addr {
		t.Fatalf("borrow changed the address: %#x", ref.Pointer())
	}
}

func TestTaggedNeverLooksLikePointer(t *testing.T) {
	// The integer tag bit survives any value, including ones whose shifted
	// bits resemble addresses.
	for _, v := range []int64{0, 1, math.MaxInt32, MaxInt, MinInt} {
		if TagInt(v)&IntMask != IntMask {
			t.Fatalf("TagInt(%d) lost the tag bit", v)
		}
	}
}

func TestHeaderLayout(t *testing.T) {
	// The header is pointer + kind byte + refcount, padded to 16 bytes.
	if HeaderSize != 16 {
		t.Fatalf("HeaderSize = %d", HeaderSize)
	}
	if ResultOkTag != 0 || ResultErrorTag != 1 {
		t.Fatal("result tags must be 0 (ok) and 1 (error)")
	}
}
