package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapKeepsCode(t *testing.T) {
	base := New(Duplicate, "fdt.add_child", "partitions")
	err := Wrap("spi-flash", base)
	if Of(err) != Duplicate || !errors.Is(err, Duplicate) {
		t.Fatalf("code lost: %v", err)
	}
	if err.Error() != "spi-flash: duplicate: fdt.add_child: duplicate: partitions" {
		t.Fatalf("%q", err.Error())
	}
	var e *E
	if !errors.As(err, &e) || e.Op != "spi-flash" {
		t.Fatal("not an *E")
	}
	if Wrap("x", nil) != nil {
		t.Fatal("nil wrapped")
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil")
	}
	if Of(NotFound) != NotFound {
		t.Fatal("bare code")
	}
	if Of(fmt.Errorf("ctx: %w", &E{C: Capacity})) != Capacity {
		t.Fatal("wrapped")
	}
	if Of(errors.New("plain")) != Error {
		t.Fatal("fallback")
	}
}
