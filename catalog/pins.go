package catalog

import (
	"errors"

	"olinuxino-go/x/conv"
)

var ErrPin = errors.New("catalog: malformed pin name")

// Pin is an SoC GPIO: bank letter index (A=0) and number within the bank.
type Pin struct {
	Bank uint8
	Num  uint8
}

// GPIO returns the global line number, 32 per bank.
func (p Pin) GPIO() int { return int(p.Bank)*32 + int(p.Num) }

func (p Pin) String() string {
	var buf [3]byte
	return "P" + string(rune('A'+p.Bank)) + string(conv.Utoa(buf[:], uint64(p.Num)))
}

// ParsePin decodes names like "PH8" or "PC24".
func ParsePin(s string) (Pin, error) {
	if len(s) < 3 || len(s) > 4 || s[0] != 'P' || s[1] < 'A' || s[1] > 'Z' {
		return Pin{}, ErrPin
	}
	n := 0
	for i := 2; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return Pin{}, ErrPin
		}
		n = n*10 + int(c-'0')
	}
	if n > 31 {
		return Pin{}, ErrPin
	}
	return Pin{Bank: s[1] - 'A', Num: uint8(n)}, nil
}

func pin(bank byte, num uint8) Pin { return Pin{Bank: bank - 'A', Num: num} }

// LCDPowerPin drives the panel enable line.
func LCDPowerPin(id uint32) Pin {
	switch Classify(id) {
	case FamilySOM:
		return pin('H', 7)
	case FamilySOM204:
		return pin('C', 24)
	default:
		return pin('H', 8)
	}
}

// LCDPWMPin is the backlight PWM output.
func LCDPWMPin(uint32) Pin { return pin('B', 2) }

// LCDIRQPin is the touch controller interrupt. ok is false where the carrier
// does not route one.
func LCDIRQPin(id uint32) (p Pin, ok bool) {
	switch Classify(id) {
	case FamilySOM204:
		return pin('H', 2), true
	case FamilySOM:
		return Pin{}, false
	case FamilyLime2:
		return pin('H', 10), true
	default:
		return pin('H', 12), true
	}
}

// LCDResetPin is the touch controller reset.
func LCDResetPin(id uint32) (p Pin, ok bool) {
	switch Classify(id) {
	case FamilySOM204:
		return pin('I', 1), true
	case FamilySOM:
		return Pin{}, false
	case FamilyLime2:
		return pin('H', 11), true
	default:
		return pin('B', 13), true
	}
}

// USBVBusPin is the VBUS enable for ports 0..2.
func USBVBusPin(id uint32, port int) (p Pin, ok bool) {
	switch port {
	case 0:
		switch Classify(id) {
		case FamilySOM204, FamilyLime2:
			return pin('C', 17), true
		default:
			return pin('B', 9), true
		}
	case 1:
		return pin('H', 6), true
	case 2:
		return pin('H', 3), true
	}
	return Pin{}, false
}

func USBVBusDetectPin(uint32) Pin { return pin('H', 5) }

func USBIDPin(uint32) Pin { return pin('H', 4) }

// NamedPin labels a board signal.
type NamedPin struct {
	Signal string
	Pin    Pin
}

// Pins lists the routed carrier signals of board id, LCD lines first.
func Pins(id uint32) []NamedPin {
	out := []NamedPin{
		{"lcd-power", LCDPowerPin(id)},
		{"lcd-pwm", LCDPWMPin(id)},
	}
	if p, ok := LCDIRQPin(id); ok {
		out = append(out, NamedPin{"touch-irq", p})
	}
	if p, ok := LCDResetPin(id); ok {
		out = append(out, NamedPin{"touch-reset", p})
	}
	for port := 0; ; port++ {
		p, ok := USBVBusPin(id, port)
		if !ok {
			break
		}
		out = append(out, NamedPin{"usb" + string(rune('0'+port)) + "-vbus", p})
	}
	return append(out,
		NamedPin{"usb-vbus-detect", USBVBusDetectPin(id)},
		NamedPin{"usb-id", USBIDPin(id)},
	)
}
