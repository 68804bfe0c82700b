// Package fdtfixture builds a reduced A20 board device tree holding the nodes
// the board fixups touch.
package fdtfixture

import (
	"olinuxino-go/fdt"
)

// Options vary the generated tree.
type Options struct {
	// Padded writes SoC unit addresses zero-padded to 8 digits
	// (soc@01c00000) as older kernels do.
	Padded bool
	// Ethernet2 adds an ethernet2 alias.
	Ethernet2 bool
	// NoPWMPins leaves out the pwm0@0 pin group.
	NoPWMPins bool
}

type builder struct {
	t   *fdt.Tree
	err error
}

func (b *builder) child(parent fdt.Node, name string) fdt.Node {
	if b.err != nil {
		return 0
	}
	n, err := b.t.AddChild(parent, name)
	b.err = err
	return n
}

func (b *builder) set(n fdt.Node, name string, v fdt.Value) {
	if b.err != nil {
		return
	}
	b.err = b.t.SetProperty(n, name, v)
}

func (b *builder) phandle(n fdt.Node) {
	if b.err != nil {
		return
	}
	_, b.err = b.t.AllocPhandle(n)
}

func unit(addr string, padded bool) string {
	if padded {
		return addr
	}
	for len(addr) > 1 && addr[0] == '0' {
		addr = addr[1:]
	}
	return addr
}

// A20 returns the tree.
func A20(o Options) (*fdt.Tree, error) {
	b := &builder{t: fdt.New(8192)}
	root := b.t.Root()
	b.set(root, "model", fdt.String("Olimex A20-OLinuXino"))
	b.set(root, "compatible", fdt.Strings("olimex,a20-olinuxino", "allwinner,sun7i-a20"))
	b.set(root, "#address-cells", fdt.U32(1))
	b.set(root, "#size-cells", fdt.U32(1))

	socName := "soc@" + unit("01c00000", o.Padded)
	dev := func(name, addr string) string { return name + "@" + unit(addr, o.Padded) }

	soc := b.child(root, socName)
	b.set(soc, "compatible", fdt.String("simple-bus"))
	b.set(soc, "ranges", fdt.Empty())

	eth := b.child(soc, dev("ethernet", "01c50000"))
	b.set(eth, "status", fdt.String("okay"))

	rtp := b.child(soc, dev("rtp", "01c25000"))
	b.set(rtp, "compatible", fdt.String("allwinner,sun5i-a13-ts"))

	i2c := b.child(soc, dev("i2c", "01c2b400"))
	b.set(i2c, "compatible", fdt.String("allwinner,sun7i-a20-i2c"))
	b.set(i2c, "#address-cells", fdt.U32(1))
	b.set(i2c, "#size-cells", fdt.U32(0))
	b.set(i2c, "status", fdt.String("okay"))

	pwm := b.child(soc, dev("pwm", "01c20e00"))
	b.set(pwm, "compatible", fdt.String("allwinner,sun7i-a20-pwm"))
	b.set(pwm, "#pwm-cells", fdt.U32(3))
	b.set(pwm, "status", fdt.String("disabled"))

	pio := b.child(soc, dev("pinctrl", "01c20800"))
	b.set(pio, "compatible", fdt.String("allwinner,sun7i-a20-pinctrl"))
	b.set(pio, "gpio-controller", fdt.Empty())
	b.set(pio, "#gpio-cells", fdt.U32(3))
	b.phandle(pio)
	if !o.NoPWMPins {
		pp := b.child(pio, "pwm0@0")
		b.set(pp, "pins", fdt.String("PB2"))
		b.set(pp, "function", fdt.String("pwm"))
	}

	tcon := b.child(soc, dev("lcd-controller", "01c0c000"))
	b.set(tcon, "compatible", fdt.String("allwinner,sun7i-a20-tcon"))
	ports := b.child(tcon, "ports")
	b.set(ports, "#address-cells", fdt.U32(1))
	b.set(ports, "#size-cells", fdt.U32(0))
	out := b.child(ports, "port@1")
	b.set(out, "reg", fdt.U32(1))
	in := b.child(ports, "port@0")
	b.set(in, "reg", fdt.U32(0))

	spi := b.child(soc, dev("spi", "01c05000"))
	b.set(spi, "compatible", fdt.String("allwinner,sun4i-a10-spi"))
	b.set(spi, "status", fdt.String("disabled"))

	nand := b.child(soc, dev("nand", "01c03000"))
	b.set(nand, "compatible", fdt.String("allwinner,sun4i-a10-nand"))
	b.set(nand, "status", fdt.String("disabled"))

	vcc := b.child(root, "vcc5v0")
	b.set(vcc, "compatible", fdt.String("regulator-fixed"))
	b.set(vcc, "regulator-name", fdt.String("vcc5v0"))
	b.phandle(vcc)

	aliases := b.child(root, "aliases")
	b.set(aliases, "ethernet0", fdt.String("/"+socName+"/"+dev("ethernet", "01c50000")))
	if o.Ethernet2 {
		b.set(aliases, "ethernet2", fdt.String("/"+socName+"/"+dev("ethernet", "01c50000")))
	}

	if b.err != nil {
		return nil, b.err
	}
	return b.t, nil
}

// Blob is A20 serialised.
func Blob(o Options) ([]byte, error) {
	t, err := A20(o)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), t.Bytes()...), nil
}
