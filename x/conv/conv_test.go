package conv

import "testing"

func TestU32Hex(t *testing.T) {
	var b [8]byte
	if got := string(U32Hex(b[:], 0xDEADBEEF, false)); got != "DEADBEEF" {
		t.Fatalf("upper: got %q", got)
	}
	if got := string(U32Hex(b[:], 0x1a, true)); got != "0000001a" {
		t.Fatalf("lower: got %q", got)
	}
	if got := U32Hex(b[:4], 1, false); len(got) != 0 {
		t.Fatalf("short buffer should yield empty slice, got %q", got)
	}
}

func TestU64HexTrim(t *testing.T) {
	var b [16]byte
	cases := map[uint64]string{0: "0", 0x400000: "400000", 0x2c00000: "2c00000", 0x60: "60"}
	for in, want := range cases {
		if got := string(U64HexTrim(b[:], in)); got != want {
			t.Fatalf("U64HexTrim(%#x) = %q, want %q", in, got, want)
		}
	}
}

func TestHexByte(t *testing.T) {
	if v, ok := HexByte('3', 'f'); !ok || v != 0x3F {
		t.Fatalf("HexByte(3f) = %#x,%v", v, ok)
	}
	if v, ok := HexByte('A', '0'); !ok || v != 0xA0 {
		t.Fatalf("HexByte(A0) = %#x,%v", v, ok)
	}
	if _, ok := HexByte('g', '0'); ok {
		t.Fatal("HexByte accepted non-hex digit")
	}
}

func TestUtoa(t *testing.T) {
	var b [20]byte
	if got := string(Utoa(b[:], 7739)); got != "7739" {
		t.Fatalf("Utoa = %q", got)
	}
	if got := string(Utoa(b[:], 0)); got != "0" {
		t.Fatalf("Utoa(0) = %q", got)
	}
}
