// Package identity owns the board identity EEPROM: it probes the device, reads
// and validates the record, and rewrites or erases it with read-back
// verification. The last known record is cached; a record that fails
// validation is never cached, the sentinel from record.Unknown is kept instead.
package identity

import (
	"bytes"
	"log/slog"

	"olinuxino-go/drivers/eeprom"
	"olinuxino-go/errcode"
	"olinuxino-go/internal/platform"
	"olinuxino-go/record"
	"olinuxino-go/x/strx"
)

const (
	BusDefault     = "i2c1"
	AddressDefault = eeprom.AddressDefault
)

// Config selects the bus and device geometry. Zero values take defaults.
type Config struct {
	Bus    string
	EEPROM eeprom.Config
	Logger *slog.Logger
}

func DefaultConfig() Config {
	ec := eeprom.DefaultConfig()
	ec.Address = AddressDefault
	return Config{Bus: BusDefault, EEPROM: ec}
}

// Store is the single owner of the identity EEPROM. It is not safe for
// concurrent use.
type Store struct {
	buses platform.I2CFactory
	cfg   Config
	log   *slog.Logger
	cache record.Record
}

func New(buses platform.I2CFactory, cfg Config) *Store {
	cfg.Bus = strx.Coalesce(cfg.Bus, BusDefault)
	if cfg.EEPROM.Size < record.Size {
		cfg.EEPROM.Size = record.Size
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		buses: buses,
		cfg:   cfg,
		log:   log.With("component", "identity", "bus", cfg.Bus),
		cache: record.Unknown(),
	}
}

// Cached returns the last good record or the sentinel.
func (s *Store) Cached() record.Record { return s.cache }

// Valid reports whether the cache holds a validated record.
func (s *Store) Valid() bool { return s.cache.Valid() }

// open selects the bus and probes the device.
func (s *Store) open(op string) (*eeprom.Device, error) {
	bus, ok := s.buses.ByID(s.cfg.Bus)
	if !ok {
		return nil, &errcode.E{C: errcode.BusUnavailable, Op: op, Msg: "no bus " + s.cfg.Bus}
	}
	d := eeprom.New(bus, s.cfg.EEPROM)
	if err := d.Probe(); err != nil {
		return nil, &errcode.E{C: errcode.BusUnavailable, Op: op, Err: err}
	}
	return d, nil
}

func (s *Store) readRaw(d *eeprom.Device) ([record.Size]byte, error) {
	var b [record.Size]byte
	err := d.ReadAt(b[:], 0)
	return b, err
}

// Read loads and validates the record. Bus and transfer failures leave the
// cache untouched; a corrupt record resets it to the sentinel.
func (s *Store) Read() (record.Record, error) {
	const op = "identity.read"
	d, err := s.open(op)
	if err != nil {
		s.log.Warn("probe failed", "err", err)
		return s.cache, err
	}
	b, err := s.readRaw(d)
	if err != nil {
		s.log.Warn("read failed", "err", err)
		return s.cache, &errcode.E{C: errcode.IO, Op: op, Err: err}
	}
	r := record.Decode(b)
	if !r.Valid() {
		s.cache = record.Unknown()
		s.log.Warn("record invalid", "header", r.Header, "crc", r.CRC)
		return s.cache, errcode.New(errcode.CorruptRecord, op, "magic or checksum mismatch")
	}
	s.cache = r
	s.log.Debug("record loaded", "id", r.ID, "serial", r.Serial)
	return r, nil
}

// Write stamps r with the magic and a fresh CRC, stores it and reads it back.
// The returned record is what the device holds afterwards.
func (s *Store) Write(r record.Record) (record.Record, error) {
	const op = "identity.write"
	d, err := s.open(op)
	if err != nil {
		return s.cache, err
	}
	want := record.Encode(r.Stamp())
	if err := d.WriteAt(want[:], 0); err != nil {
		s.log.Error("write failed", "err", err)
		s.resync(d)
		return s.cache, &errcode.E{C: errcode.IO, Op: op, Err: err}
	}
	got, err := s.readRaw(d)
	if err != nil {
		s.cache = record.Unknown()
		return s.cache, &errcode.E{C: errcode.IO, Op: op, Msg: "read-back", Err: err}
	}
	s.adopt(got)
	if got != want {
		s.log.Error("verify failed")
		return s.cache, errcode.New(errcode.VerifyFailed, op, "read-back differs")
	}
	s.log.Info("record written", "id", s.cache.ID, "serial", s.cache.Serial)
	return s.cache, nil
}

// Erase fills the record with 0xFF and checks every byte.
func (s *Store) Erase() error {
	const op = "identity.erase"
	d, err := s.open(op)
	if err != nil {
		return err
	}
	if err := d.Fill(0xFF); err != nil {
		s.log.Error("erase failed", "err", err)
		s.resync(d)
		return &errcode.E{C: errcode.IO, Op: op, Err: err}
	}
	got, err := s.readRaw(d)
	if err != nil {
		s.cache = record.Unknown()
		return &errcode.E{C: errcode.IO, Op: op, Msg: "read-back", Err: err}
	}
	s.adopt(got)
	if !bytes.Equal(got[:], erased[:]) {
		return errcode.New(errcode.VerifyFailed, op, "not blank after erase")
	}
	s.log.Info("record erased")
	return nil
}

var erased = func() (b [record.Size]byte) {
	for i := range b {
		b[i] = 0xFF
	}
	return
}()

// adopt caches b if it holds a valid record, else the sentinel.
func (s *Store) adopt(b [record.Size]byte) {
	r := record.Decode(b)
	if r.Valid() {
		s.cache = r
		return
	}
	s.cache = record.Unknown()
}

// resync re-reads the device after a failed write so the cache matches what
// was persisted.
func (s *Store) resync(d *eeprom.Device) {
	b, err := s.readRaw(d)
	if err != nil {
		s.cache = record.Unknown()
		return
	}
	s.adopt(b)
}
