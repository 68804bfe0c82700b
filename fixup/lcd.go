package fixup

import (
	"olinuxino-go/catalog"
	"olinuxino-go/fdt"
	"olinuxino-go/panel"
	"olinuxino-go/x/conv"
)

const (
	pwmPeriodNS       = 50000
	irqEdgeFalling    = 2
	defaultBrightness = 10
)

// lcdPins is the full RGB888 parallel bus, PD0..PD27.
var lcdPins = func() []string {
	out := make([]string, 28)
	for i := range out {
		var buf [2]byte
		out[i] = "PD" + string(conv.Utoa(buf[:], uint64(i)))
	}
	return out
}()

// gpioSpec is a <&pio bank pin flags> specifier.
func gpioSpec(pio uint32, p catalog.Pin, flags uint32) fdt.Value {
	return fdt.Cells32(pio, uint32(p.Bank), uint32(p.Num), flags)
}

// applyLCD enables the PWM backlight, the RGB pin group, a panel node and the
// TCON0 endpoint pair, then the touch controller.
func applyLCD(t *fdt.Tree, c *Context) error {
	id := c.Record.ID
	sel := c.Panel
	power, pwmPin := catalog.LCDPowerPin(id), catalog.LCDPWMPin(id)
	c.log().Debug("lcd lines", "panel", sel.Info.Name, "interface", sel.Interface(),
		"power", power, "power_gpio", power.GPIO(), "pwm", pwmPin, "pwm_gpio", pwmPin.GPIO())

	vcc, err := t.PathOffset("/vcc5v0")
	if err != nil {
		return err
	}
	supply, err := t.AllocPhandle(vcc)
	if err != nil {
		return err
	}

	pio, err := t.NodeByCompatible(compatPinctrl)
	if err != nil {
		return err
	}
	pioPh, err := t.AllocPhandle(pio)
	if err != nil {
		return err
	}

	// PWM controller with its existing pin group.
	pwmPins, err := t.Subnode(pio, "pwm0@0")
	if err != nil {
		return err
	}
	pwmPinsPh, err := t.AllocPhandle(pwmPins)
	if err != nil {
		return err
	}
	pwm, err := t.FindDevice(devPWM.name, devPWM.addr)
	if err != nil {
		return err
	}
	if err := t.SetStatus(pwm, fdt.StatusOkay); err != nil {
		return err
	}
	err = setAll(t, pwm,
		prop{"pinctrl-0", fdt.U32(pwmPinsPh)},
		prop{"pinctrl-names", fdt.String("default")},
	)
	if err != nil {
		return err
	}
	pwmPh, err := t.AllocPhandle(pwm)
	if err != nil {
		return err
	}

	// Backlight.
	bl, err := t.AddChild(t.Root(), "backlight")
	if err != nil {
		return err
	}
	levels := make([]uint32, 11)
	for i := range levels {
		levels[i] = uint32(i * 10)
	}
	err = setAll(t, bl,
		prop{"pwms", fdt.Cells32(pwmPh, 0, pwmPeriodNS, 1)},
		prop{"brightness-levels", fdt.Cells32(levels...)},
		prop{"default-brightness-level", fdt.U32(defaultBrightness)},
		prop{"power-supply", fdt.U32(supply)},
		prop{"compatible", fdt.String("pwm-backlight")},
	)
	if err != nil {
		return err
	}
	blPh, err := t.AllocPhandle(bl)
	if err != nil {
		return err
	}

	rgbPh, err := pinGroup(t, "lcd0_rgb888_pins@0", "lcd0", lcdPins)
	if err != nil {
		return err
	}

	// Panel: on the panel EEPROM's bus when detected, at the root when forced.
	var pnl fdt.Node
	if sel.Source == panel.SourceOverride {
		pnl, err = t.AddChild(t.Root(), "panel@0")
	} else {
		var i2c fdt.Node
		if i2c, err = t.FindDevice(devI2C.name, devI2C.addr); err != nil {
			return err
		}
		pnl, err = t.AddChild(i2c, "panel@50")
	}
	if err != nil {
		return err
	}
	props := []prop{
		{"compatible", fdt.String(sel.Compatible())},
		{"#address-cells", fdt.U32(1)},
		{"#size-cells", fdt.U32(0)},
	}
	if sel.Source != panel.SourceOverride {
		props = append(props, prop{"reg", fdt.U32(0x50)})
	}
	props = append(props,
		prop{"pinctrl-names", fdt.String("default")},
		prop{"pinctrl-0", fdt.U32(rgbPh)},
		prop{"power-supply", fdt.U32(supply)},
		prop{"backlight", fdt.U32(blPh)},
		prop{"enable-gpios", gpioSpec(pioPh, catalog.LCDPowerPin(id), 0)},
	)
	if err := setAll(t, pnl, props...); err != nil {
		return err
	}
	if err := t.SetStatus(pnl, fdt.StatusOkay); err != nil {
		return err
	}

	port, err := t.AddChild(pnl, "port@0")
	if err != nil {
		return err
	}
	if err := setAll(t, port, graphCells...); err != nil {
		return err
	}
	panelEP, err := t.AddChild(port, "endpoint@0")
	if err != nil {
		return err
	}
	if err := setAll(t, panelEP, graphCells...); err != nil {
		return err
	}
	panelEPPh, err := t.AllocPhandle(panelEP)
	if err != nil {
		return err
	}

	// TCON0 output endpoint pointing back at the panel.
	tcon, err := t.FindDevice(devTCON0.name, devTCON0.addr)
	if err != nil {
		return err
	}
	ports, err := t.Subnode(tcon, "ports")
	if err != nil {
		return err
	}
	out, err := t.Subnode(ports, "port@1")
	if err != nil {
		return err
	}
	tconEP, err := t.AddChild(out, "endpoint@0")
	if err != nil {
		return err
	}
	err = setAll(t, tconEP, append([]prop{
		{"allwinner,tcon-channel", fdt.U32(0)},
		{"remote-endpoint", fdt.U32(panelEPPh)},
	}, graphCells...)...)
	if err != nil {
		return err
	}
	tconEPPh, err := t.AllocPhandle(tconEP)
	if err != nil {
		return err
	}
	if err := t.SetProperty(panelEP, "remote-endpoint", fdt.U32(tconEPPh)); err != nil {
		return err
	}

	return applyTouch(t, c, pioPh)
}

// graphCells are the reg/#cells properties shared by ports and endpoints.
var graphCells = []prop{
	{"reg", fdt.U32(0)},
	{"#size-cells", fdt.U32(0)},
	{"#address-cells", fdt.U32(1)},
}

func applyTouch(t *fdt.Tree, c *Context, pioPh uint32) error {
	id := c.Record.ID
	tc, ok := c.Panel.Touch()
	irq, hasIRQ := catalog.LCDIRQPin(id)
	rst, hasRst := catalog.LCDResetPin(id)
	if ok && (!hasIRQ || !hasRst) {
		c.log().Warn("touch controller lines not routed on this board", "board", id, "touch", tc.Compatible)
		ok = false
	}
	if !ok {
		rtp, err := t.FindDevice(devRTP.name, devRTP.addr)
		if err != nil {
			return err
		}
		return t.SetProperty(rtp, "allwinner,ts-attached", fdt.Empty())
	}

	i2c, err := t.FindDevice(devI2C.name, devI2C.addr)
	if err != nil {
		return err
	}
	n, err := t.AddChild(i2c, tc.Node)
	if err != nil {
		return err
	}
	props := []prop{
		{"compatible", fdt.String(tc.Compatible)},
		{"reg", fdt.U32(tc.Reg)},
	}
	if tc.SizeX != 0 {
		props = append(props,
			prop{"touchscreen-size-x", fdt.U32(tc.SizeX)},
			prop{"touchscreen-size-y", fdt.U32(tc.SizeY)},
		)
	}
	props = append(props,
		prop{"interrupt-parent", fdt.U32(pioPh)},
		prop{"interrupts", fdt.Cells(irq.Bank, irq.Num, irqEdgeFalling)},
		prop{"irq-gpios", gpioSpec(pioPh, irq, 0)},
		prop{"reset-gpios", gpioSpec(pioPh, rst, tc.ResetFlags)},
	)
	if tc.SwappedXY {
		props = append(props, prop{"touchscreen-swapped-x-y", fdt.Empty()})
	}
	return setAll(t, n, props...)
}
