package strx

import "testing"

func TestCoalesce(t *testing.T) {
	if Coalesce("", "Unknown") != "Unknown" || Coalesce("A20", "Unknown") != "A20" {
		t.Fatal("Coalesce mismatch")
	}
}

func TestCStringRoundTrip(t *testing.T) {
	var b [8]byte
	for i := range b {
		b[i] = 0xFF
	}
	PutCString(b[:], "LCD")
	if got := CString(b[:]); got != "LCD" {
		t.Fatalf("CString = %q", got)
	}
	for _, c := range b[3:] {
		if c != 0 {
			t.Fatalf("tail not NUL-filled: %v", b)
		}
	}
	PutCString(b[:], "0123456789")
	if got := CString(b[:]); got != "01234567" {
		t.Fatalf("truncated CString = %q", got)
	}
}
