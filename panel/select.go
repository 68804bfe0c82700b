package panel

import "olinuxino-go/errcode"

// Source tells where a Selection came from.
type Source uint8

const (
	SourceNone Source = iota
	SourceOverride
	SourceEEPROM
)

// Interface is the electrical link to the panel.
type Interface uint8

const (
	Parallel Interface = iota
	LVDS
)

func (i Interface) String() string {
	if i == LVDS {
		return "lvds"
	}
	return "parallel"
}

// Panel ids whose EEPROM announces a Goodix capacitive controller.
const (
	ID7CTS  = 9278
	ID10CTS = 9284
)

// Selection is the panel the boot code drives.
type Selection struct {
	Source Source
	// Override is the requested catalog name, "" if none.
	Override string
	// ID is the panel EEPROM id, zero for overrides.
	ID   uint32
	Info Info
	Mode Mode
}

// Reader yields the panel EEPROM content.
type Reader interface {
	Read() (Record, error)
}

// Resolve picks the catalog entry named by override, or the panel found by r
// when override is empty or unknown.
func Resolve(override string, r Reader) (Selection, error) {
	if override != "" {
		if p, ok := Lookup(override); ok {
			return Selection{Source: SourceOverride, Override: override, Info: p.Info, Mode: p.Mode}, nil
		}
	}
	if r == nil {
		return Selection{}, errcode.New(errcode.NotFound, "panel.resolve", "no panel")
	}
	rec, err := r.Read()
	if err != nil {
		return Selection{}, errcode.Wrap("panel.resolve", err)
	}
	return Selection{Source: SourceEEPROM, ID: rec.ID, Info: rec.Info, Mode: rec.Mode}, nil
}

func (s Selection) Present() bool { return s.Source != SourceNone }

// VideoMode returns "" when no panel is selected.
func (s Selection) VideoMode() string {
	if !s.Present() {
		return ""
	}
	return VideoMode(s.Info, s.Mode)
}

// Compatible is the kernel panel driver binding.
func (s Selection) Compatible() string {
	switch s.Override {
	case "LCD-OLinuXino-4.3TS":
		return "olimex,lcd-olinuxino-4.3"
	case "LCD-OLinuXino-5":
		return "olimex,lcd-olinuxino-5"
	case "LCD-OLinuXino-7":
		return "olimex,lcd-olinuxino-7"
	case "LCD-OLinuXino-7CTS", "LCD-OLinuXino-10":
		// The 7CTS shares the 10" timing.
		return "olimex,lcd-olinuxino-10"
	}
	return "olimex,lcd-olinuxino"
}

func (s Selection) Interface() Interface {
	switch s.Override {
	case "LCD-OLinuXino-15.6", "LCD-OLinuXino-15.6FHD":
		return LVDS
	}
	return Parallel
}

// Touch describes a capacitive touch controller on the panel's I²C bus.
type Touch struct {
	Node       string
	Compatible string
	Reg        uint32
	SizeX      uint32
	SizeY      uint32
	// ResetFlags is the GPIO flags cell of reset-gpios.
	ResetFlags uint32
	SwappedXY  bool
}

// Touch reports the capacitive controller, if the panel has one. Panels
// without one use the SoC resistive touch controller.
func (s Selection) Touch() (Touch, bool) {
	switch {
	case s.Override == "LCD-OLinuXino-5":
		return Touch{
			Node:       "ft5306@38",
			Compatible: "edt,edt-ft5306",
			Reg:        0x38,
			SizeX:      800,
			SizeY:      480,
			ResetFlags: 1,
		}, true
	case s.Source == SourceEEPROM && (s.ID == ID7CTS || s.ID == ID10CTS):
		return Touch{
			Node:       "gt911@14",
			Compatible: "goodix,gt911",
			Reg:        0x14,
			SwappedXY:  s.ID == ID7CTS,
		}, true
	}
	return Touch{}, false
}
