// Package record encodes and decodes the 256-byte board identity record kept
// on the OLinuXino configuration EEPROM.
//
// Layout (little-endian, packed):
//
//	0x00  u32   header magic 0x4F4CAA55
//	0x04  u32   board id
//	0x08  2×u8  revision: major letter, minor digit
//	0x0A  u32   serial number
//	0x0E  4×u8  hardware config: storage, size, ram, grade
//	0x12  12×u8 MAC address as ASCII hex
//	0x1E  222   reserved
//	0xFC  u32   CRC-32 (IEEE) over bytes [0x00, 0xFC)
package record

import (
	"encoding/binary"
	"hash/crc32"
	"net"

	"olinuxino-go/x/conv"
)

const (
	Size      = 256
	CRCOffset = 252
	Magic     = 0x4F4CAA55
)

const (
	offHeader   = 0
	offID       = 4
	offRevision = 8
	offSerial   = 10
	offConfig   = 14
	offMAC      = 18
	offReserved = 30
	macLen      = 12
)

// Revision is the board revision, e.g. "C" or "D1".
type Revision struct {
	Major byte
	Minor byte
}

// String drops characters outside A..Z (major) and 1..9 (minor).
func (r Revision) String() string {
	var b []byte
	if r.Major >= 'A' && r.Major <= 'Z' {
		b = append(b, r.Major)
	}
	if r.Minor >= '1' && r.Minor <= '9' {
		b = append(b, r.Minor)
	}
	return string(b)
}

// MAC holds 12 ASCII hex digits, no separators.
type MAC [macLen]byte

// HardwareAddr parses the digits. ok is false if any digit is not hex.
func (m MAC) HardwareAddr() (net.HardwareAddr, bool) {
	hw := make(net.HardwareAddr, 6)
	for i := range hw {
		v, ok := conv.HexByte(m[2*i], m[2*i+1])
		if !ok {
			return nil, false
		}
		hw[i] = v
	}
	return hw, true
}

// String renders "AA:BB:CC:DD:EE:FF" from the raw characters.
func (m MAC) String() string {
	b := make([]byte, 0, 17)
	for i := 0; i < macLen; i += 2 {
		if i > 0 {
			b = append(b, ':')
		}
		b = append(b, m[i], m[i+1])
	}
	return string(b)
}

// Record is the decoded identity record.
type Record struct {
	Header   uint32
	ID       uint32
	Revision Revision
	Serial   uint32
	Config   HardwareConfig
	MAC      MAC
	Reserved [CRCOffset - offReserved]byte
	CRC      uint32
}

// Checksum returns the CRC-32 of b[:CRCOffset].
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b[:CRCOffset])
}

// Decode parses fields at their fixed offsets. It never fails; use Valid.
func Decode(b [Size]byte) Record {
	le := binary.LittleEndian
	var r Record
	r.Header = le.Uint32(b[offHeader:])
	r.ID = le.Uint32(b[offID:])
	r.Revision = Revision{Major: b[offRevision], Minor: b[offRevision+1]}
	r.Serial = le.Uint32(b[offSerial:])
	r.Config = configFromWire(b[offConfig : offConfig+4])
	copy(r.MAC[:], b[offMAC:offMAC+macLen])
	copy(r.Reserved[:], b[offReserved:CRCOffset])
	r.CRC = le.Uint32(b[CRCOffset:])
	return r
}

// Bytes writes every field verbatim, including the stored CRC.
func (r Record) Bytes() [Size]byte {
	le := binary.LittleEndian
	var b [Size]byte
	le.PutUint32(b[offHeader:], r.Header)
	le.PutUint32(b[offID:], r.ID)
	b[offRevision] = r.Revision.Major
	b[offRevision+1] = r.Revision.Minor
	le.PutUint32(b[offSerial:], r.Serial)
	cfg := r.Config.wire()
	copy(b[offConfig:], cfg[:])
	copy(b[offMAC:], r.MAC[:])
	copy(b[offReserved:CRCOffset], r.Reserved[:])
	le.PutUint32(b[CRCOffset:], r.CRC)
	return b
}

// Encode writes the fields and embeds a freshly computed CRC.
// The header is written as stored; callers persisting a record stamp Magic
// first (see Stamp).
func Encode(r Record) [Size]byte {
	b := r.Bytes()
	binary.LittleEndian.PutUint32(b[CRCOffset:], Checksum(b[:]))
	return b
}

// Stamp sets the magic header and the matching CRC.
func (r Record) Stamp() Record {
	r.Header = Magic
	b := Encode(r)
	r.CRC = binary.LittleEndian.Uint32(b[CRCOffset:])
	return r
}

// Valid reports whether the magic matches and the CRC covers the content.
func (r Record) Valid() bool {
	if r.Header != Magic {
		return false
	}
	b := r.Bytes()
	return r.CRC == Checksum(b[:])
}

// Unknown is the all-0xFF sentinel used when no valid record is available.
func Unknown() Record {
	var b [Size]byte
	for i := range b {
		b[i] = 0xFF
	}
	return Decode(b)
}

// IsUnknown reports whether r is the sentinel.
func (r Record) IsUnknown() bool { return r == Unknown() }

func utoa(n uint64) string {
	var b [20]byte
	return string(conv.Utoa(b[:], n))
}
