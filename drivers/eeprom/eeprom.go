// Package eeprom provides a minimal driver for small I²C serial EEPROMs that
// take a single word-address byte (24C01/24C02 class parts).
//
// Design notes:
//   - Random read: write the word address, repeated-start, read N bytes. The
//     internal address counter rolls over at the end of the array.
//   - Page write: word address followed by up to one page of data. Writes that
//     cross a page boundary wrap inside the page, so the driver never issues one.
//   - After every page write the part is busy for tWR (5 ms max on the 24C02) and
//     NACKs its address until done. The driver waits SettleDelay after each chunk
//     rather than ACK polling.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package eeprom

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// AddressDefault is the 7-bit address with A2..A0 strapped low.
const AddressDefault = 0x50

const (
	sizeDefault   = 256
	chunkDefault  = 16
	settleDefault = 5 * time.Millisecond
)

var (
	ErrRange  = errors.New("eeprom: access out of range")
	ErrConfig = errors.New("eeprom: chunk size must be between 1 and size")
)

// Config controls the geometry and timing. All fields are optional.
type Config struct {
	// Address defaults to 0x50 if zero.
	Address uint16
	// Size of the array in bytes. Default 256.
	Size int
	// ChunkSize is the number of data bytes per write transaction; it should
	// match (or divide) the device page size. Default 16.
	ChunkSize int
	// SettleDelay is waited after every chunk. Default 5 ms.
	SettleDelay time.Duration
	// Sleep is used for the settle delay. Default time.Sleep.
	Sleep func(time.Duration)
}

// DefaultConfig returns the 24C02 geometry.
func DefaultConfig() Config {
	return Config{
		Address:     AddressDefault,
		Size:        sizeDefault,
		ChunkSize:   chunkDefault,
		SettleDelay: settleDefault,
		Sleep:       time.Sleep,
	}
}

// Device wraps an I²C connection to one EEPROM.
type Device struct {
	bus drivers.I2C
	cfg Config

	// Fixed buffers to avoid per-call heap allocations.
	a [1]byte
	w []byte
}

// New creates a Device. The bus must already be configured.
// It does not touch the device.
func New(bus drivers.I2C, cfg Config) *Device {
	def := DefaultConfig()
	if cfg.Address == 0 {
		cfg.Address = def.Address
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = def.SettleDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = def.Sleep
	}
	return &Device{
		bus: bus,
		cfg: cfg,
		w:   make([]byte, 1+cfg.ChunkSize),
	}
}

// Validate checks the geometry.
func (c Config) Validate() error {
	if c.ChunkSize < 1 || c.ChunkSize > c.Size {
		return ErrConfig
	}
	if c.Size > 256 {
		// One address byte cannot reach past 256.
		return ErrConfig
	}
	return nil
}

func (d *Device) Address() uint16 { return d.cfg.Address }
func (d *Device) Size() int       { return d.cfg.Size }
func (d *Device) ChunkSize() int  { return d.cfg.ChunkSize }

// Probe checks that the device ACKs its address with a one-byte
// current-address read. It moves the internal address counter.
func (d *Device) Probe() error {
	var r [1]byte
	return d.bus.Tx(d.cfg.Address, nil, r[:])
}

// ReadAt fills p from word address off.
func (d *Device) ReadAt(p []byte, off int) error {
	if off < 0 || off+len(p) > d.cfg.Size {
		return ErrRange
	}
	if len(p) == 0 {
		return nil
	}
	d.a[0] = byte(off)
	return d.bus.Tx(d.cfg.Address, d.a[:], p)
}

// WriteAt stores p at word address off in chunk-aligned transactions,
// waiting SettleDelay after each one. The first failing transaction aborts
// the write; bytes before it are already committed.
func (d *Device) WriteAt(p []byte, off int) error {
	if off < 0 || off+len(p) > d.cfg.Size {
		return ErrRange
	}
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	for len(p) > 0 {
		n := d.cfg.ChunkSize - off%d.cfg.ChunkSize
		if n > len(p) {
			n = len(p)
		}
		d.w[0] = byte(off)
		copy(d.w[1:], p[:n])
		if err := d.bus.Tx(d.cfg.Address, d.w[:1+n], nil); err != nil {
			return err
		}
		d.cfg.Sleep(d.cfg.SettleDelay)
		p = p[n:]
		off += n
	}
	return nil
}

// Fill writes v over the whole array.
func (d *Device) Fill(v byte) error {
	buf := make([]byte, d.cfg.Size)
	for i := range buf {
		buf[i] = v
	}
	return d.WriteAt(buf, 0)
}
