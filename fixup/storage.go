package fixup

import (
	"olinuxino-go/fdt"
	"olinuxino-go/record"
)

const (
	spiMaxFrequency = 20000000
	spiFlashSize    = 16 * mib
)

var (
	spiPins  = []string{"PC0", "PC1", "PC2", "PC23"}
	nandPins = []string{"PC0", "PC1", "PC2", "PC4", "PC5", "PC6", "PC8",
		"PC9", "PC10", "PC11", "PC12", "PC13", "PC14", "PC15", "PC16"}
)

// spiLayout resolves the SPI flash partitions. The flash is 16 MiB unless the
// record says SPI storage of at least 1 MiB.
func spiLayout(c *Context) ([]Partition, error) {
	size := uint64(spiFlashSize)
	if cfg := c.Record.Config; cfg.Storage == record.StorageSPIFlash && cfg.Size.Bytes() >= mib {
		size = cfg.Size.Bytes()
	}
	s := c.SPIMTDParts
	if s == "" {
		s = DefaultSPIMTDParts
	}
	return ParseMTDParts(s, size)
}

func applySPIFlash(t *fdt.Tree, c *Context) error {
	parts, err := spiLayout(c)
	if err != nil {
		return err
	}
	ph, err := pinGroup(t, "spi0@1", "spi0", spiPins)
	if err != nil {
		return err
	}

	spi, err := t.FindDevice(devSPI.name, devSPI.addr)
	if err != nil {
		return err
	}
	if err := t.SetStatus(spi, fdt.StatusOkay); err != nil {
		return err
	}
	err = setAll(t, spi,
		prop{"spi-max-frequency", fdt.U32(spiMaxFrequency)},
		prop{"pinctrl-0", fdt.U32(ph)},
		prop{"pinctrl-names", fdt.String("default")},
	)
	if err != nil {
		return err
	}

	nor, err := t.AddChild(spi, "spi-nor@0")
	if err != nil {
		return err
	}
	if err := t.SetStatus(nor, fdt.StatusOkay); err != nil {
		return err
	}
	err = setAll(t, nor,
		prop{"spi-max-frequency", fdt.U32(spiMaxFrequency)},
		prop{"reg", fdt.U32(0)},
		prop{"#size-cells", fdt.U32(1)},
		prop{"#address-cells", fdt.U32(1)},
		prop{"compatible", fdt.Strings("winbond,w25q128", "jedec,spi-nor", "spi-flash")},
	)
	if err != nil {
		return err
	}

	pn, err := t.AddChild(nor, "partitions")
	if err != nil {
		return err
	}
	err = setAll(t, pn,
		prop{"#size-cells", fdt.U32(1)},
		prop{"#address-cells", fdt.U32(1)},
		prop{"compatible", fdt.String("fixed-partitions")},
	)
	if err != nil {
		return err
	}
	if err := addPartitions(t, pn, parts, reg32); err != nil {
		return err
	}

	path, err := t.Path(spi)
	if err != nil {
		return err
	}
	aliases, err := t.PathOffset("/aliases")
	if err != nil {
		return err
	}
	return t.SetProperty(aliases, "spi0", fdt.String(path))
}

func applyATECC508A(t *fdt.Tree, _ *Context) error {
	i2c, err := t.FindDevice(devI2C.name, devI2C.addr)
	if err != nil {
		return err
	}
	n, err := t.AddChild(i2c, "atecc508a@60")
	if err != nil {
		return err
	}
	return setAll(t, n,
		prop{"reg", fdt.U32(0x60)},
		prop{"compatible", fdt.String("atmel,atecc508a")},
	)
}

func applyNAND(t *fdt.Tree, _ *Context) error {
	ph, err := pinGroup(t, "nand0@0", "nand0", nandPins)
	if err != nil {
		return err
	}

	nfc, err := t.FindDevice(devNAND.name, devNAND.addr)
	if err != nil {
		return err
	}
	if err := t.SetStatus(nfc, fdt.StatusOkay); err != nil {
		return err
	}
	err = setAll(t, nfc,
		prop{"#size-cells", fdt.U32(0)},
		prop{"#address-cells", fdt.U32(1)},
		prop{"pinctrl-0", fdt.U32(ph)},
		prop{"pinctrl-names", fdt.String("default")},
	)
	if err != nil {
		return err
	}

	chip, err := t.AddChild(nfc, "nand@0")
	if err != nil {
		return err
	}
	err = setAll(t, chip,
		prop{"nand-on-flash-bbt", fdt.Empty()},
		prop{"nand-ecc-mode", fdt.String("hw")},
		prop{"allwinner,rb", fdt.U32(0)},
		prop{"reg", fdt.U32(0)},
	)
	if err != nil {
		return err
	}

	pn, err := t.AddChild(chip, "partitions")
	if err != nil {
		return err
	}
	err = setAll(t, pn,
		prop{"compatible", fdt.String("fixed-partitions")},
		prop{"#size-cells", fdt.U32(2)},
		prop{"#address-cells", fdt.U32(2)},
	)
	if err != nil {
		return err
	}
	return addPartitions(t, pn, NANDPartitions, reg64)
}

// reg encoders for one- and two-cell address/size pairs.
func reg32(off, n uint64) fdt.Value { return fdt.Cells(off, n) }
func reg64(off, n uint64) fdt.Value { return fdt.Cells64(off, n) }

// addPartitions adds one child per partition. New children go in front of
// their siblings, so the list is walked backwards to keep offset order.
func addPartitions(t *fdt.Tree, parent fdt.Node, parts []Partition, reg func(off, n uint64) fdt.Value) error {
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		n, err := t.AddChild(parent, partitionNode(p.Offset))
		if err != nil {
			return err
		}
		err = setAll(t, n,
			prop{"label", fdt.String(p.Label)},
			prop{"reg", reg(p.Offset, p.Length)},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
