// Package platform supplies the bus plumbing the boot code runs on: a factory
// resolving bus IDs ("i2c1", "i2c2") to tinygo drivers.I2C values, and host-side
// implementations used by tests and the command-line tool.
package platform

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNACK is returned when no target answers at an address.
var ErrNACK = errors.New("i2c: address not acknowledged")

// I2CFactory resolves a bus by ID.
type I2CFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// Target is a device attached to a HostI2C bus.
// Transfer receives the write and read phases of one transaction.
type Target interface {
	Transfer(w, r []byte) error
}

// HostI2C implements tinygo drivers.I2C by routing transactions to attached
// targets by address.
type HostI2C struct {
	mu      sync.Mutex
	targets map[uint16]Target

	// Fail, when set, is consulted before every transaction; a non-nil
	// result is returned instead of reaching the target.
	Fail func(addr uint16, w, r []byte) error

	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
	Count int
}

func NewHostI2C() *HostI2C {
	return &HostI2C{targets: make(map[uint16]Target)}
}

// Attach places t at addr, replacing any previous target.
func (h *HostI2C) Attach(addr uint16, t Target) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.targets == nil {
		h.targets = make(map[uint16]Target)
	}
	h.targets[addr] = t
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Count++
	h.LastTx.Addr = addr
	h.LastTx.W = append(h.LastTx.W[:0], w...)
	h.LastTx.Rn = len(r)
	if h.Fail != nil {
		if err := h.Fail(addr, w, r); err != nil {
			return err
		}
	}
	t, ok := h.targets[addr]
	if !ok {
		return ErrNACK
	}
	return t.Transfer(w, r)
}

// HostFactory is a fixed set of named buses.
type HostFactory struct {
	buses map[string]drivers.I2C
}

func NewFactory(buses map[string]drivers.I2C) HostFactory {
	m := make(map[string]drivers.I2C, len(buses))
	for k, v := range buses {
		m[k] = v
	}
	return HostFactory{buses: m}
}

func (f HostFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}
