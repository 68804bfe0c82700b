// Package panel describes LCD-OLinuXino display panels: the built-in timing
// catalog, the identity EEPROM carried on the panel, and the selection
// between a user override and the detected panel.
package panel

import "olinuxino-go/x/conv"

// Media bus formats (linux/media-bus-format.h).
const (
	BusFormatRGB666 = 0x1009
	BusFormatRGB888 = 0x100a
)

// Mode is one video timing. Clock is in kHz, everything else in pixels or
// lines.
type Mode struct {
	PixelClock uint32
	HActive    uint32
	HFP        uint32
	HBP        uint32
	HPW        uint32
	VActive    uint32
	VFP        uint32
	VBP        uint32
	VPW        uint32
	Refresh    uint32
	Flags      uint32
}

// Info is the static description of a panel.
type Info struct {
	Name      string
	WidthMM   uint32
	HeightMM  uint32
	BPC       uint32
	BusFormat uint32
	BusFlag   uint32
}

// Depth is the colour depth for the videomode string.
func (i Info) Depth() int {
	if i.BusFormat == BusFormatRGB888 {
		return 24
	}
	return 18
}

type Panel struct {
	Info Info
	Mode Mode
}

var (
	mode480x272  = Mode{PixelClock: 12000, HActive: 480, HFP: 8, HBP: 23, HPW: 20, VActive: 272, VFP: 4, VBP: 13, VPW: 10, Refresh: 60}
	mode800x480  = Mode{PixelClock: 33000, HActive: 800, HFP: 210, HBP: 26, HPW: 20, VActive: 480, VFP: 22, VBP: 13, VPW: 10, Refresh: 60}
	mode1024x600 = Mode{PixelClock: 51000, HActive: 1024, HFP: 154, HBP: 150, HPW: 10, VActive: 600, VFP: 12, VBP: 21, VPW: 2, Refresh: 60}
)

var panels = []Panel{
	{Info{Name: "LCD-OLinuXino-4.3TS", BusFormat: BusFormatRGB888}, mode480x272},
	{Info{Name: "LCD-OLinuXino-5", BusFormat: BusFormatRGB888}, mode800x480},
	{Info{Name: "LCD-OLinuXino-7", BusFormat: BusFormatRGB888}, mode800x480},
	{Info{Name: "LCD-OLinuXino-7CTS", BusFormat: BusFormatRGB888}, mode1024x600},
	{Info{Name: "LCD-OLinuXino-10", BusFormat: BusFormatRGB888}, mode1024x600},
	{Info{Name: "LCD-OLinuXino-15.6"}, Mode{PixelClock: 70000, HActive: 1366, HFP: 20, HBP: 54, VActive: 768, VFP: 17, VBP: 23, Refresh: 60}},
	{Info{Name: "LCD-OLinuXino-15.6FHD"}, Mode{PixelClock: 152000, HActive: 1920, HFP: 150, HBP: 246, HPW: 60, VActive: 1080, VFP: 15, VBP: 53, VPW: 9, Refresh: 60}},
}

// Panels returns the catalog in declaration order.
func Panels() []Panel { return append([]Panel(nil), panels...) }

// Lookup finds a catalog panel by its exact name.
func Lookup(name string) (Panel, bool) {
	for _, p := range panels {
		if p.Info.Name == name {
			return p, true
		}
	}
	return Panel{}, false
}

// VideoMode renders the "videomode" string consumed by the boot video
// driver.
func VideoMode(info Info, m Mode) string {
	var b []byte
	field := func(key string, v uint64) {
		var buf [20]byte
		if len(b) > 0 {
			b = append(b, ',')
		}
		b = append(b, key...)
		b = append(b, ':')
		b = append(b, conv.Utoa(buf[:], v)...)
	}
	field("x", uint64(m.HActive))
	field("y", uint64(m.VActive))
	field("depth", uint64(info.Depth()))
	field("pclk_khz", uint64(m.PixelClock))
	field("le", uint64(m.HBP))
	field("ri", uint64(m.HFP))
	field("up", uint64(m.VBP))
	field("lo", uint64(m.VFP))
	field("hs", uint64(m.HPW))
	field("vs", uint64(m.VPW))
	field("sync", 3)
	field("vmode", 0)
	return string(b)
}
