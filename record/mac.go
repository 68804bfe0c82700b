package record

import (
	"errors"

	"olinuxino-go/x/conv"
)

var (
	ErrMACChar   = errors.New("record: invalid MAC character")
	ErrMACLength = errors.New("record: MAC must have 12 hex digits")
)

// ParseMAC accepts "aa:bb:cc:dd:ee:ff" or "aabbccddeeff" (any case) and
// returns the uppercase wire form.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' {
			continue
		}
		v, ok := conv.Nibble(c)
		if !ok {
			return MAC{}, ErrMACChar
		}
		if n == macLen {
			return MAC{}, ErrMACLength
		}
		m[n] = conv.HexDigit(v)
		n++
	}
	if n != macLen {
		return MAC{}, ErrMACLength
	}
	return m, nil
}
