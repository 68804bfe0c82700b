package record

// Storage is the on-board boot storage kind.
//
// Known kinds map to fixed wire bytes through storageWire. Any other wire byte
// decodes to an unrecognised value that encodes back to the same byte.
type Storage uint16

const (
	StorageNone Storage = iota
	StorageNAND
	StorageEMMC
	StorageSPIFlash
)

const unrecognised = 0x100

var storageWire = [...]struct {
	s    Storage
	b    byte
	name string
}{
	{StorageNone, 0, "none"},
	{StorageNAND, 'n', "nand"},
	{StorageEMMC, 'e', "emmc"},
	{StorageSPIFlash, 's', "spi"},
}

func storageFromWire(b byte) Storage {
	for _, e := range storageWire {
		if e.b == b {
			return e.s
		}
	}
	return unrecognised | Storage(b)
}

func (s Storage) wire() byte {
	if s&unrecognised != 0 {
		return byte(s)
	}
	for _, e := range storageWire {
		if e.s == s {
			return e.b
		}
	}
	return 0
}

// Known reports whether s is one of the named kinds.
func (s Storage) Known() bool { return s&unrecognised == 0 && int(s) < len(storageWire) }

func (s Storage) String() string {
	if s.Known() {
		return storageWire[s].name
	}
	return "unknown"
}

// Grade is the temperature grade.
type Grade uint16

const (
	GradeCommercial Grade = iota
	GradeIndustrial
)

func gradeFromWire(b byte) Grade {
	switch b {
	case 0:
		return GradeCommercial
	case 1:
		return GradeIndustrial
	}
	return unrecognised | Grade(b)
}

func (g Grade) wire() byte { return byte(g) }

func (g Grade) Known() bool { return g == GradeCommercial || g == GradeIndustrial }

func (g Grade) String() string {
	switch g {
	case GradeCommercial:
		return "commercial"
	case GradeIndustrial:
		return "industrial"
	}
	return "unknown"
}

// SizeClass is a power-of-two byte count stored as its exponent:
// 20 is 1 MiB, 30 is 1 GiB. SizeUnset marks "no storage".
type SizeClass uint8

const SizeUnset SizeClass = 0xFF

// Convenience constructors matching the catalog notation.
func MiB(n uint) SizeClass { return SizeClass(20 + log2(n)) }
func GiB(n uint) SizeClass { return SizeClass(30 + log2(n)) }

func log2(n uint) uint8 {
	var e uint8
	for n > 1 {
		n >>= 1
		e++
	}
	return e
}

// Bytes returns the size in bytes, or 0 when unset or out of range.
func (s SizeClass) Bytes() uint64 {
	if s >= 64 {
		return 0
	}
	return 1 << s
}

func (s SizeClass) String() string {
	if s >= 64 {
		return "unset"
	}
	units := [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	return utoa(uint64(1)<<(s%10)) + units[s/10]
}

// HardwareConfig is the 4-byte packed configuration.
type HardwareConfig struct {
	Storage Storage
	Size    SizeClass
	RAM     SizeClass
	Grade   Grade
}

func (c HardwareConfig) wire() [4]byte {
	return [4]byte{c.Storage.wire(), byte(c.Size), byte(c.RAM), c.Grade.wire()}
}

func configFromWire(b []byte) HardwareConfig {
	return HardwareConfig{
		Storage: storageFromWire(b[0]),
		Size:    SizeClass(b[1]),
		RAM:     SizeClass(b[2]),
		Grade:   gradeFromWire(b[3]),
	}
}
