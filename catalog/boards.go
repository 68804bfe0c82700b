// Package catalog is the static table of known OLinuXino boards, the family
// classifier built on it, and the per-family pin assignments.
package catalog

import "olinuxino-go/record"

// Board describes one product variant.
type Board struct {
	ID     uint32
	Name   string
	FDT    string
	Config record.HardwareConfig
}

const (
	dtbLime       = "sun7i-a20-olinuxino-lime.dtb"
	dtbLimeEMMC   = "sun7i-a20-olinuxino-lime-emmc.dtb"
	dtbLime2      = "sun7i-a20-olinuxino-lime2.dtb"
	dtbLime2EMMC  = "sun7i-a20-olinuxino-lime2-emmc.dtb"
	dtbMicro      = "sun7i-a20-olinuxino-micro.dtb"
	dtbMicroEMMC  = "sun7i-a20-olinuxino-micro-emmc.dtb"
	dtbSOM        = "sun7i-a20-olimex-som-evb.dtb"
	dtbSOMEMMC    = "sun7i-a20-olimex-som-evb-emmc.dtb"
	dtbSOM204     = "sun7i-a20-olimex-som204-evb.dtb"
	dtbSOM204EMMC = "sun7i-a20-olimex-som204-evb-emmc.dtb"
)

func cfg(st record.Storage, size, ram record.SizeClass, g record.Grade) record.HardwareConfig {
	return record.HardwareConfig{Storage: st, Size: size, RAM: ram, Grade: g}
}

const (
	none  = record.StorageNone
	nand  = record.StorageNAND
	emmc  = record.StorageEMMC
	spi   = record.StorageSPIFlash
	com   = record.GradeCommercial
	ind   = record.GradeIndustrial
	unset = record.SizeUnset
)

var (
	mb16  = record.MiB(16)
	mb512 = record.MiB(512)
	gb1   = record.GiB(1)
	gb4   = record.GiB(4)
	gb8   = record.GiB(8)
	gb16  = record.GiB(16)
)

var boards = []Board{
	// A20-OLinuXino-LIME
	{7739, "A20-OLinuXino-LIME", dtbLime, cfg(none, unset, mb512, com)},
	{7743, "A20-OLinuXino-LIME-n4GB", dtbLime, cfg(nand, gb4, mb512, com)},
	{8934, "A20-OLinuXino-LIME-n8GB", dtbLime, cfg(nand, gb8, mb512, com)},
	{9076, "A20-OLinuXino-LIME-s16MB", dtbLime, cfg(spi, mb16, mb512, com)},
	{9211, "T2-OLinuXino-LIME-IND", dtbLime, cfg(none, unset, mb512, ind)},
	{9215, "T2-OLinuXino-LIME-s16MB-IND", dtbLime, cfg(spi, mb16, mb512, ind)},
	{9219, "T2-OLinuXino-LIME-e4GB-IND", dtbLimeEMMC, cfg(emmc, gb4, mb512, ind)},

	// A20-OLinuXino-LIME2
	{7701, "A20-OLinuXino-LIME2", dtbLime2, cfg(none, unset, gb1, com)},
	{8340, "A20-OLinuXino-LIME2-e4GB", dtbLime2EMMC, cfg(emmc, gb4, gb1, com)},
	{9166, "A20-OLinuXino-LIME2-e16GB", dtbLime2EMMC, cfg(emmc, gb16, gb1, com)},
	{7624, "A20-OLinuXino-LIME2-n4GB", dtbLime2, cfg(nand, gb4, gb1, com)},
	{8910, "A20-OLinuXino-LIME2-n8GB", dtbLime2, cfg(nand, gb8, gb1, com)},
	{8946, "A20-OLinuXino-LIME2-s16MB", dtbLime2, cfg(spi, mb16, gb1, com)},
	{9239, "T2-OLinuXino-LIME2-IND", dtbLime2, cfg(none, unset, gb1, ind)},
	{9247, "T2-OLinuXino-LIME2-s16MB-IND", dtbLime2, cfg(spi, mb16, gb1, ind)},
	{9243, "T2-OLinuXino-LIME2-e4GB-IND", dtbLime2EMMC, cfg(emmc, gb4, gb1, ind)},

	// A20-OLinuXino-MICRO
	{4614, "A20-OLinuXino-MICRO", dtbMicro, cfg(none, unset, gb1, com)},
	{8832, "A20-OLinuXino-MICRO-e4GB", dtbMicroEMMC, cfg(emmc, gb4, gb1, com)},
	{9042, "A20-OLinuXino-MICRO-e16GB", dtbMicroEMMC, cfg(emmc, gb16, gb1, com)},
	{8661, "A20-OLinuXino-MICRO-e4GB-IND", dtbMicroEMMC, cfg(emmc, gb4, gb1, ind)},
	{8828, "A20-OLinuXino-MICRO-IND", dtbMicro, cfg(none, unset, gb1, ind)},
	{4615, "A20-OLinuXino-MICRO-n4GB", dtbMicro, cfg(nand, gb4, gb1, com)},
	{8918, "A20-OLinuXino-MICRO-n8GB", dtbMicro, cfg(nand, gb8, gb1, com)},
	{9231, "A20-OLinuXino-MICRO-s16MB", dtbMicro, cfg(spi, mb16, gb1, com)},
	{9223, "T2-OLinuXino-MICRO-IND", dtbMicro, cfg(none, unset, gb1, ind)},
	{9235, "T2-OLinuXino-MICRO-s16MB-IND", dtbMicro, cfg(spi, mb16, gb1, ind)},
	{9227, "T2-OLinuXino-MICRO-e4GB-IND", dtbMicroEMMC, cfg(emmc, gb4, gb1, ind)},

	// A20-SOM
	{4673, "A20-SOM-n4GB", dtbSOM, cfg(nand, gb4, gb1, com)},
	{7664, "A20-SOM", dtbSOM, cfg(none, unset, gb1, com)},
	{8849, "A20-SOM-IND", dtbSOM, cfg(none, unset, gb1, ind)},
	{8922, "A20-SOM-n8GB", dtbSOM, cfg(nand, gb8, gb1, com)},
	{9155, "A20-SOM-e16GB", dtbSOMEMMC, cfg(emmc, gb16, gb1, com)},
	{9148, "A20-SOM-e16GB-IND", dtbSOMEMMC, cfg(emmc, gb16, gb1, ind)},
	{9259, "T2-SOM-IND", dtbSOM, cfg(none, unset, gb1, ind)},

	// A20-SOM204
	{8991, "A20-SOM204-1G", dtbSOM204, cfg(none, unset, gb1, com)},
	{8958, "A20-SOM204-1Gs16Me16G-MC", dtbSOM204EMMC, cfg(emmc, gb16, gb1, com)},
}

var byID = func() map[uint32]int {
	m := make(map[uint32]int, len(boards))
	for i, b := range boards {
		m[b.ID] = i
	}
	return m
}()

// Lookup finds a board by id.
func Lookup(id uint32) (Board, bool) {
	i, ok := byID[id]
	if !ok {
		return Board{}, false
	}
	return boards[i], true
}

// Name returns the display name, or "" for unknown ids.
func Name(id uint32) string {
	b, _ := Lookup(id)
	return b.Name
}

// FDTFile returns the device-tree file name, or "" for unknown ids.
func FDTFile(id uint32) string {
	b, _ := Lookup(id)
	return b.FDT
}

// Boards returns a copy of the table in declaration order.
func Boards() []Board {
	return append([]Board(nil), boards...)
}
