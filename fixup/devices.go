package fixup

const compatPinctrl = "allwinner,sun7i-a20-pinctrl"

// A20 on-SoC devices touched by the fixups, by node name and MMIO base.
type device struct {
	name string
	addr uint32
}

var (
	devI2C   = device{"i2c", 0x01c2b400}
	devNAND  = device{"nand", 0x01c03000}
	devSPI   = device{"spi", 0x01c05000}
	devPWM   = device{"pwm", 0x01c20e00}
	devTCON0 = device{"lcd-controller", 0x01c0c000}
	devRTP   = device{"rtp", 0x01c25000}
)
