package conv

const (
	hexUpper = "0123456789ABCDEF"
	hexLower = "0123456789abcdef"
)

// U32Hex writes 8-digit hex without 0x, zero-padded, into the tail of buf.
// Uppercase unless lower is set.
func U32Hex(buf []byte, n uint32, lower bool) []byte {
	if len(buf) < 8 {
		return buf[:0]
	}
	hexd := hexUpper
	if lower {
		hexd = hexLower
	}
	i := len(buf)
	for j := 0; j < 8; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// U64HexTrim writes lowercase hex with no leading zeros (printf "%x").
func U64HexTrim(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
		return buf[i:]
	}
	for n > 0 && i > 0 {
		i--
		buf[i] = hexLower[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// Nibble decodes one hex digit of either case.
func Nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// HexByte decodes two hex digits.
func HexByte(hi, lo byte) (byte, bool) {
	h, ok1 := Nibble(hi)
	l, ok2 := Nibble(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

// HexDigit returns the uppercase digit for the low nibble of v.
func HexDigit(v byte) byte { return hexUpper[v&0xF] }
