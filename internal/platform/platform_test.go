package platform

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tinygo.org/x/drivers"
)

func TestSimEEPROMPageWrap(t *testing.T) {
	e := NewSimEEPROM(32, 8)
	// Four bytes from column 6 wrap to the start of the page.
	if err := e.Transfer([]byte{6, 1, 2, 3, 4}, nil); err != nil {
		t.Fatal(err)
	}
	mem := e.Bytes()
	if mem[6] != 1 || mem[7] != 2 || mem[0] != 3 || mem[1] != 4 || mem[8] != 0xFF {
		t.Fatalf("mem=%x", mem)
	}
	if e.PageWrites != 1 {
		t.Fatal("page writes")
	}

	// Sequential read rolls over at the end of the array.
	r := make([]byte, 3)
	e.Transfer([]byte{31}, r)
	if !bytes.Equal(r, []byte{0xFF, 3, 4}) {
		t.Fatalf("read %x", r)
	}
}

func TestHostI2CRouting(t *testing.T) {
	h := NewHostI2C()
	e := NewSimEEPROM(256, 16)
	h.Attach(0x50, e)
	f := NewFactory(map[string]drivers.I2C{"i2c1": h})

	bus, ok := f.ByID("i2c1")
	if !ok {
		t.Fatal("bus missing")
	}
	if _, ok := f.ByID("i2c2"); ok {
		t.Fatal("unexpected bus")
	}
	if err := bus.Tx(0x51, nil, make([]byte, 1)); !errors.Is(err, ErrNACK) {
		t.Fatalf("err=%v", err)
	}
	if err := bus.Tx(0x50, []byte{0, 0xAB}, nil); err != nil {
		t.Fatal(err)
	}
	if h.LastTx.Addr != 0x50 || !bytes.Equal(h.LastTx.W, []byte{0, 0xAB}) || h.Count != 2 {
		t.Fatalf("last=%+v count=%d", h.LastTx, h.Count)
	}

	boom := errors.New("stuck")
	h.Fail = func(uint16, []byte, []byte) error { return boom }
	if err := bus.Tx(0x50, []byte{0}, make([]byte, 1)); err != boom {
		t.Fatalf("err=%v", err)
	}
}

func TestSimEEPROMFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.bin")
	e := NewSimEEPROM(16, 16)
	if err := e.LoadFile(path); err != nil {
		t.Fatal("missing file should load as erased:", err)
	}
	e.Load([]byte{1, 2, 3})
	if err := e.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if len(raw) != 16 || raw[2] != 3 || raw[3] != 0xFF {
		t.Fatalf("saved %x", raw)
	}
	back := NewSimEEPROM(16, 16)
	if err := back.LoadFile(path); err != nil || !bytes.Equal(back.Bytes(), raw) {
		t.Fatalf("reload %x err=%v", back.Bytes(), err)
	}
}
