package platform

import (
	"errors"
	"io/fs"
	"os"
)

// SimEEPROM emulates a single-address-byte serial EEPROM: an internal address
// counter that rolls over at the end of the array, and page writes that wrap
// within the page.
type SimEEPROM struct {
	mem  []byte
	page int
	ptr  int

	// PageWrites counts data-carrying write transactions.
	PageWrites int
}

// NewSimEEPROM returns an erased (all 0xFF) device.
func NewSimEEPROM(size, page int) *SimEEPROM {
	if size <= 0 {
		size = 256
	}
	if page <= 0 || page > size {
		page = 16
	}
	e := &SimEEPROM{mem: make([]byte, size), page: page}
	for i := range e.mem {
		e.mem[i] = 0xFF
	}
	return e
}

func (e *SimEEPROM) Transfer(w, r []byte) error {
	if len(w) > 0 {
		e.ptr = int(w[0]) % len(e.mem)
		if data := w[1:]; len(data) > 0 {
			base := e.ptr - e.ptr%e.page
			col := e.ptr % e.page
			for i, b := range data {
				e.mem[base+(col+i)%e.page] = b
			}
			e.ptr = base + (col+len(data))%e.page
			e.PageWrites++
		}
	}
	for i := range r {
		r[i] = e.mem[e.ptr]
		e.ptr = (e.ptr + 1) % len(e.mem)
	}
	return nil
}

// Bytes returns a copy of the array.
func (e *SimEEPROM) Bytes() []byte { return append([]byte(nil), e.mem...) }

// Load replaces the array contents; b is truncated or 0xFF-padded to size.
func (e *SimEEPROM) Load(b []byte) {
	n := copy(e.mem, b)
	for i := n; i < len(e.mem); i++ {
		e.mem[i] = 0xFF
	}
}

// LoadFile reads an image file. A missing file leaves the device erased.
func (e *SimEEPROM) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	e.Load(b)
	return nil
}

// SaveFile writes the array to path.
func (e *SimEEPROM) SaveFile(path string) error {
	return os.WriteFile(path, e.mem, 0o644)
}
