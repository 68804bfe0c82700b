package panel

import (
	"encoding/binary"
	"log/slog"

	"olinuxino-go/drivers/eeprom"
	"olinuxino-go/errcode"
	"olinuxino-go/internal/platform"
	"olinuxino-go/record"
	"olinuxino-go/x/strx"
)

const (
	Bus        = "i2c2"
	Address    = 0x50
	Magic      = 0x4F4CB727
	RecordSize = 256
)

// Record is the content of a panel identity EEPROM. Only the first of the
// advertised modes is decoded; it sits at the start of the reserved area.
type Record struct {
	Header   uint32
	ID       uint32
	Revision string
	Serial   uint32
	Info     Info
	NumModes uint32
	Mode     Mode
	CRC      uint32
}

const (
	offRevision = 8
	offSerial   = 12
	offInfo     = 16
	offNumModes = 68
	offModes    = 72
	nameLen     = 32
	revLen      = 4
)

// DecodeRecord parses b and validates magic and CRC.
func DecodeRecord(b [RecordSize]byte) (Record, error) {
	const op = "panel.decode"
	le := binary.LittleEndian
	r := Record{
		Header:   le.Uint32(b[0:]),
		ID:       le.Uint32(b[4:]),
		Revision: strx.CString(b[offRevision : offRevision+revLen]),
		Serial:   le.Uint32(b[offSerial:]),
		Info: Info{
			Name:      strx.CString(b[offInfo : offInfo+nameLen]),
			WidthMM:   le.Uint32(b[offInfo+32:]),
			HeightMM:  le.Uint32(b[offInfo+36:]),
			BPC:       le.Uint32(b[offInfo+40:]),
			BusFormat: le.Uint32(b[offInfo+44:]),
			BusFlag:   le.Uint32(b[offInfo+48:]),
		},
		NumModes: le.Uint32(b[offNumModes:]),
		CRC:      le.Uint32(b[record.CRCOffset:]),
	}
	m := b[offModes:]
	r.Mode = Mode{
		PixelClock: le.Uint32(m[0:]),
		HActive:    le.Uint32(m[4:]),
		HFP:        le.Uint32(m[8:]),
		HBP:        le.Uint32(m[12:]),
		HPW:        le.Uint32(m[16:]),
		VActive:    le.Uint32(m[20:]),
		VFP:        le.Uint32(m[24:]),
		VBP:        le.Uint32(m[28:]),
		VPW:        le.Uint32(m[32:]),
		Refresh:    le.Uint32(m[36:]),
		Flags:      le.Uint32(m[40:]),
	}
	if r.Header != Magic {
		return Record{}, errcode.New(errcode.CorruptRecord, op, "bad magic")
	}
	if r.CRC != record.Checksum(b[:]) {
		return Record{}, errcode.New(errcode.CorruptRecord, op, "bad checksum")
	}
	return r, nil
}

// EncodeRecord lays r out with the magic header and a fresh CRC.
func EncodeRecord(r Record) [RecordSize]byte {
	le := binary.LittleEndian
	var b [RecordSize]byte
	le.PutUint32(b[0:], Magic)
	le.PutUint32(b[4:], r.ID)
	strx.PutCString(b[offRevision:offRevision+revLen], r.Revision)
	le.PutUint32(b[offSerial:], r.Serial)
	strx.PutCString(b[offInfo:offInfo+nameLen], r.Info.Name)
	le.PutUint32(b[offInfo+32:], r.Info.WidthMM)
	le.PutUint32(b[offInfo+36:], r.Info.HeightMM)
	le.PutUint32(b[offInfo+40:], r.Info.BPC)
	le.PutUint32(b[offInfo+44:], r.Info.BusFormat)
	le.PutUint32(b[offInfo+48:], r.Info.BusFlag)
	le.PutUint32(b[offNumModes:], r.NumModes)
	m := r.Mode
	for i, v := range [...]uint32{m.PixelClock, m.HActive, m.HFP, m.HBP, m.HPW, m.VActive, m.VFP, m.VBP, m.VPW, m.Refresh, m.Flags} {
		le.PutUint32(b[offModes+4*i:], v)
	}
	le.PutUint32(b[record.CRCOffset:], record.Checksum(b[:]))
	return b
}

// Config locates the panel EEPROM. Zero values take defaults.
type Config struct {
	Bus     string
	Address uint16
	Logger  *slog.Logger
}

// Detector reads the panel EEPROM.
type Detector struct {
	buses platform.I2CFactory
	cfg   Config
	log   *slog.Logger
}

func NewDetector(buses platform.I2CFactory, cfg Config) *Detector {
	cfg.Bus = strx.Coalesce(cfg.Bus, Bus)
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Detector{buses: buses, cfg: cfg, log: log.With("component", "panel", "bus", cfg.Bus)}
}

// Read probes and reads the panel EEPROM.
func (d *Detector) Read() (Record, error) {
	const op = "panel.read"
	bus, ok := d.buses.ByID(d.cfg.Bus)
	if !ok {
		return Record{}, &errcode.E{C: errcode.BusUnavailable, Op: op, Msg: "no bus " + d.cfg.Bus}
	}
	dev := eeprom.New(bus, eeprom.Config{Address: d.cfg.Address, Size: RecordSize})
	if err := dev.Probe(); err != nil {
		return Record{}, &errcode.E{C: errcode.BusUnavailable, Op: op, Err: err}
	}
	var b [RecordSize]byte
	if err := dev.ReadAt(b[:], 0); err != nil {
		return Record{}, &errcode.E{C: errcode.IO, Op: op, Err: err}
	}
	r, err := DecodeRecord(b)
	if err != nil {
		d.log.Debug("panel eeprom invalid", "err", err)
		return Record{}, err
	}
	d.log.Info("panel detected", "name", r.Info.Name, "rev", r.Revision, "serial", r.Serial)
	return r, nil
}
