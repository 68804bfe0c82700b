// Package fixup patches the kernel device tree for the detected board.
//
// A Pipeline runs a fixed list of named fixups in order. Each fixup has a
// predicate on the Context; the first failing fixup aborts the run and its
// error is returned wrapped with the fixup name. Changes made before the
// failure stay in the tree.
package fixup

import (
	"log/slog"
	"strings"

	"olinuxino-go/catalog"
	"olinuxino-go/errcode"
	"olinuxino-go/fdt"
	"olinuxino-go/panel"
	"olinuxino-go/record"
)

// GrowBy is the free space reserved in the blob before any fixup runs.
const GrowBy = 65535

// Context is everything a fixup may consult.
type Context struct {
	Record record.Record
	// Monitor is the "monitor" environment value.
	Monitor string
	Panel   panel.Selection
	// SPIMTDParts overrides the SPI flash layout; DefaultSPIMTDParts if empty.
	SPIMTDParts string
	Logger      *slog.Logger
}

func (c *Context) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Fixup is one named tree mutation.
type Fixup struct {
	Name    string
	Applies func(*Context) bool
	Apply   func(*fdt.Tree, *Context) error
}

type Pipeline struct {
	Fixups []Fixup
}

// Default is the board fixup list: storage overlays first, the panel last.
func Default() *Pipeline {
	return &Pipeline{Fixups: []Fixup{
		{Name: "spi-flash", Applies: hasSPIFlash, Apply: applySPIFlash},
		{Name: "atecc508a", Applies: hasATECC508A, Apply: applyATECC508A},
		{Name: "nand", Applies: hasNAND, Apply: applyNAND},
		{Name: "lcd", Applies: wantsLCD, Apply: applyLCD},
	}}
}

// Names lists the fixups in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.Fixups))
	for i, f := range p.Fixups {
		out[i] = f.Name
	}
	return out
}

// Run grows the blob by GrowBy, then applies every fixup whose predicate
// holds.
func (p *Pipeline) Run(t *fdt.Tree, ctx *Context) error {
	if ctx == nil {
		ctx = &Context{Record: record.Unknown()}
	}
	log := ctx.log()
	if err := t.EnsureCapacity(GrowBy); err != nil {
		return errcode.Wrap("fixup", err)
	}
	for _, f := range p.Fixups {
		if f.Applies != nil && !f.Applies(ctx) {
			log.Debug("fixup skipped", "fixup", f.Name)
			continue
		}
		if err := f.Apply(t, ctx); err != nil {
			log.Error("fixup failed", "fixup", f.Name, "err", err)
			return errcode.Wrap(f.Name, err)
		}
		log.Info("fixup applied", "fixup", f.Name)
	}
	return nil
}

// Board id with eMMC storage and an additional SPI flash and crypto chip.
const boardSOM204MC = 8958

func hasSPIFlash(c *Context) bool {
	return c.Record.Config.Storage == record.StorageSPIFlash || c.Record.ID == boardSOM204MC
}

func hasATECC508A(c *Context) bool { return c.Record.ID == boardSOM204MC }

func hasNAND(c *Context) bool { return c.Record.Config.Storage == record.StorageNAND }

// wantsLCD needs both an "lcd" monitor and a resolved panel.
func wantsLCD(c *Context) bool { return strings.HasPrefix(c.Monitor, "lcd") && c.Panel.Present() }

type prop struct {
	name string
	val  fdt.Value
}

func setAll(t *fdt.Tree, n fdt.Node, props ...prop) error {
	for _, p := range props {
		if err := t.SetProperty(n, p.name, p.val); err != nil {
			return err
		}
	}
	return nil
}

// pinGroup adds a pin function node under the pin controller and returns its
// phandle.
func pinGroup(t *fdt.Tree, name, function string, pins []string) (uint32, error) {
	for _, p := range pins {
		if _, err := catalog.ParsePin(p); err != nil {
			return 0, errcode.New(errcode.BadValue, "fixup.pin_group", name+": bad pin "+p)
		}
	}
	pio, err := t.NodeByCompatible(compatPinctrl)
	if err != nil {
		return 0, err
	}
	n, err := t.AddChild(pio, name)
	if err != nil {
		return 0, err
	}
	ph, err := t.AllocPhandle(n)
	if err != nil {
		return 0, err
	}
	if err := t.SetProperty(n, "function", fdt.String(function)); err != nil {
		return 0, err
	}
	for _, p := range pins {
		if err := t.AppendProperty(n, "pins", fdt.String(p)); err != nil {
			return 0, err
		}
	}
	return ph, nil
}
