package fixup

import (
	"math"
	"strconv"
	"strings"

	"olinuxino-go/errcode"
	"olinuxino-go/x/conv"
)

// Partition is one fixed flash partition.
type Partition struct {
	Label  string
	Offset uint64
	Length uint64
}

const (
	mib = 1 << 20
	gib = 1 << 30
)

// NANDPartitions is the raw NAND layout, by ascending offset.
var NANDPartitions = []Partition{
	{"NAND.SPL", 0x00000000, 4 * mib},
	{"NAND.SPL.backup", 0x00400000, 4 * mib},
	{"NAND.u-boot", 0x00800000, 4 * mib},
	{"NAND.u-boot.backup", 0x00C00000, 4 * mib},
	{"NAND.u-boot-env", 0x01000000, 4 * mib},
	{"NAND.u-boot-env.backup", 0x01400000, 4 * mib},
	{"NAND.dtb", 0x01800000, 4 * mib},
	{"NAND.kernel", 0x01C00000, 16 * mib},
	// Sized for 4 GiB regardless of the fitted part.
	{"NAND.rootfs", 0x02C00000, 0xFD400000},
}

// Layouts in U-Boot mtdparts syntax.
const (
	NANDMTDParts       = "mtdparts=nand.0:4m(NAND.SPL),4m(NAND.SPL.backup),4m(NAND.u-boot),4m(NAND.u-boot.backup),4m(NAND.u-boot-env),4m(NAND.u-boot-env.backup),4m(NAND.dtb),16m(NAND.kernel),-(NAND.rootfs)"
	DefaultSPIMTDParts = "mtdparts=flash.0:1m(SPI.u-boot),128k(SPI.u-boot-env),128k(SPI.u-boot-env.backup),-(SPI.user)"
)

// ParseMTDParts decodes a single-device mtdparts string. A "-" size fills
// up to total. Partitions without an explicit "@offset" follow the previous
// one.
func ParseMTDParts(s string, total uint64) ([]Partition, error) {
	const op = "fixup.parse_mtdparts"
	bad := func(msg string) error { return errcode.New(errcode.BadValue, op, msg) }

	s = strings.TrimPrefix(s, "mtdparts=")
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return nil, bad("missing device id")
	}
	var out []Partition
	var next uint64
	for _, part := range strings.Split(s[i+1:], ",") {
		open := strings.IndexByte(part, '(')
		if open < 0 || !strings.HasSuffix(part, ")") {
			return nil, bad("missing partition name in " + part)
		}
		label := part[open+1 : len(part)-1]
		spec := part[:open]
		off := next
		if at := strings.IndexByte(spec, '@'); at >= 0 {
			o, err := parseSize(spec[at+1:])
			if err != nil {
				return nil, bad(err.Error())
			}
			off, spec = o, spec[:at]
		}
		var size uint64
		if spec == "-" {
			if off > total {
				return nil, bad(label + " starts past the end")
			}
			size = total - off
		} else {
			n, err := parseSize(spec)
			if err != nil {
				return nil, bad(err.Error())
			}
			size = n
		}
		if off+size < off || off+size > total {
			return nil, bad(label + " exceeds the device")
		}
		out = append(out, Partition{Label: label, Offset: off, Length: size})
		next = off + size
	}
	return out, nil
}

func parseSize(s string) (uint64, error) {
	mult := uint64(1)
	if s != "" {
		switch s[len(s)-1] {
		case 'k', 'K':
			mult = 1 << 10
		case 'm', 'M':
			mult = 1 << 20
		case 'g', 'G':
			mult = 1 << 30
		}
		if mult != 1 {
			s = s[:len(s)-1]
		}
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint64/mult {
		return 0, strconv.ErrRange
	}
	return n * mult, nil
}

func partitionNode(off uint64) string {
	var buf [16]byte
	return "partition@" + string(conv.U64HexTrim(buf[:], off))
}
