// Package boot drives the board-specific boot steps: the early identity read,
// environment publication, the board banner and the device-tree hand-off hook.
package boot

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"olinuxino-go/catalog"
	"olinuxino-go/env"
	"olinuxino-go/errcode"
	"olinuxino-go/fdt"
	"olinuxino-go/fixup"
	"olinuxino-go/identity"
	"olinuxino-go/panel"
	"olinuxino-go/record"
)

// Environment variable names published by the boot stage.
const (
	VarBoardID   = "board_id"
	VarBoardName = "board_name"
	VarBoardRev  = "board_rev"
	VarSerial    = "serial#"
	VarEthAddr   = "ethaddr"
	VarEth2Addr  = "eth2addr"
	VarFDTFile   = "fdtfile"
	VarLCD       = "lcd_olinuxino"
	VarMonitor   = "monitor"
	VarVideoMode = "videomode"
)

// SIDFunc returns the four words of the SoC security id.
type SIDFunc func() ([4]uint32, error)

// Aliases resolves /aliases entries; *fdt.Tree implements it.
type Aliases interface {
	Alias(name string) (string, bool)
}

type Config struct {
	Store *identity.Store
	Env   env.Env
	// Console receives the user-facing banner lines. Defaults to io.Discard.
	Console io.Writer
	// Panel reads the panel EEPROM. Nil means no panel EEPROM is wired.
	Panel panel.Reader
	// SID is optional; without it no fallback MAC addresses are derived.
	SID      SIDFunc
	Pipeline *fixup.Pipeline
	// SPIMTDParts is passed to the spi-flash fixup.
	SPIMTDParts string
	Logger      *slog.Logger
}

// Stage holds the identity store for the lifetime of one boot.
type Stage struct {
	store   *identity.Store
	env     env.Env
	out     io.Writer
	panel   panel.Reader
	sid     SIDFunc
	fixups  *fixup.Pipeline
	mtd     string
	log     *slog.Logger
	started bool
}

func New(cfg Config) *Stage {
	if cfg.Console == nil {
		cfg.Console = io.Discard
	}
	if cfg.Env == nil {
		cfg.Env = env.NewMap()
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = fixup.Default()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		store:  cfg.Store,
		env:    cfg.Env,
		out:    cfg.Console,
		panel:  cfg.Panel,
		sid:    cfg.SID,
		fixups: cfg.Pipeline,
		mtd:    cfg.SPIMTDParts,
		log:    log.With("component", "boot"),
	}
}

// Record is the cached identity record, or the sentinel.
func (s *Stage) Record() record.Record {
	if s.store == nil {
		return record.Unknown()
	}
	return s.store.Cached()
}

// Init performs the early identity read. Errors are reported on the console
// and absorbed: boot continues with the sentinel record.
func (s *Stage) Init() record.Record {
	s.started = true
	if s.store == nil {
		fmt.Fprintln(s.out, "EEPROM: Error")
		return record.Unknown()
	}
	r, err := s.store.Read()
	switch errcode.Of(err) {
	case errcode.OK:
		fmt.Fprintln(s.out, "EEPROM: Ready")
	case errcode.CorruptRecord:
		fmt.Fprintln(s.out, "EEPROM: Corrupted!")
	default:
		fmt.Fprintln(s.out, "EEPROM: Error")
	}
	if err != nil {
		s.log.Warn("identity unavailable, continuing", "err", err)
	}
	return r
}

// BoardInfo prints the model banner.
func (s *Stage) BoardInfo() { WriteBanner(s.out, s.Record()) }

// WriteBanner prints model, serial and MAC of a valid record, or
// "Model: Unknown".
func WriteBanner(w io.Writer, r record.Record) {
	if !r.Valid() {
		fmt.Fprintln(w, "Model: Unknown")
		return
	}
	fmt.Fprintf(w, "Model: %s Rev.%s\n", catalog.Name(r.ID), r.Revision)
	fmt.Fprintf(w, "Serial:%08X\n", r.Serial)
	fmt.Fprintf(w, "MAC:   %s\n", r.MAC)
}

// WritePinout prints the board family and its routed signals with their
// GPIO line numbers. Nothing is printed for an invalid record.
func WritePinout(w io.Writer, r record.Record) {
	if !r.Valid() {
		return
	}
	f := catalog.Classify(r.ID)
	fmt.Fprintf(w, "Family: %s (%s)\n", f, f.FormFactor())
	for _, np := range catalog.Pins(r.ID) {
		fmt.Fprintf(w, "  %-16s %-5s gpio %d\n", np.Signal, np.Pin, np.Pin.GPIO())
	}
}

// SetupEnvironment publishes the identity into the environment. It may run
// more than once and never changes a variable that is already set.
func (s *Stage) SetupEnvironment(a Aliases) error {
	r := s.Record()
	var pending []envVar

	if r.Valid() {
		pending = append(pending,
			envVar{VarBoardID, strconv.FormatUint(uint64(r.ID), 10)},
			envVar{VarBoardName, catalog.Name(r.ID)},
			envVar{VarBoardRev, r.Revision.String()},
		)
		if hw, ok := r.MAC.HardwareAddr(); ok {
			if hasAlias(a, "ethernet0") {
				pending = append(pending, envVar{VarEthAddr, hw.String()})
			}
			if hasAlias(a, "ethernet2") {
				if strings.HasPrefix(string(r.MAC[:]), "301F9AD") {
					hw[0] |= 0x02
				}
				pending = append(pending, envVar{VarEth2Addr, hw.String()})
			}
		} else {
			s.log.Warn("record MAC is not hex", "mac", r.MAC.String())
		}
	}

	pending = append(pending, s.sidAddrs(a)...)
	pending = append(pending,
		envVar{VarSerial, fmt.Sprintf("%08x", r.Serial)},
		envVar{VarFDTFile, catalog.FDTFile(r.ID)},
	)

	for _, v := range pending {
		wrote, err := env.SetDefault(s.env, v.name, v.value)
		if err != nil {
			return errcode.Wrap("boot.env", err)
		}
		if wrote {
			s.log.Debug("env set", "name", v.name, "value", v.value)
		}
	}
	return nil
}

type envVar struct{ name, value string }

func hasAlias(a Aliases, name string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Alias(name)
	return ok
}

// sidAddrs derives locally administered addresses from the SoC id for every
// ethernetN alias. They only fill variables the record left unset.
func (s *Stage) sidAddrs(a Aliases) []envVar {
	if s.sid == nil {
		return nil
	}
	sid, err := s.sid()
	if err != nil || sid[0] == 0 {
		return nil
	}
	if sid[3]&0xffffff == 0 {
		sid[3] |= 0x800000
	}
	var out []envVar
	for i := range 4 {
		if !hasAlias(a, "ethernet"+strconv.Itoa(i)) {
			continue
		}
		name := VarEthAddr
		if i > 0 {
			name = "eth" + strconv.Itoa(i) + "addr"
		}
		hw := net.HardwareAddr{
			byte(i<<4) | 0x02,
			byte(sid[0]),
			byte(sid[3] >> 24),
			byte(sid[3] >> 16),
			byte(sid[3] >> 8),
			byte(sid[3]),
		}
		out = append(out, envVar{name, hw.String()})
	}
	return out
}

// Panel resolves the panel the "lcd_olinuxino" override or the panel EEPROM
// names, and publishes its video mode. A missing panel is not an error.
func (s *Stage) Panel() panel.Selection {
	override, _ := s.env.Get(VarLCD)
	sel, err := panel.Resolve(override, s.panel)
	if err != nil {
		s.log.Debug("no panel", "err", err)
		return panel.Selection{}
	}
	if _, err := env.SetDefault(s.env, VarVideoMode, sel.VideoMode()); err != nil {
		s.log.Warn("videomode not published", "err", err)
	}
	return sel
}

// SystemSetup is the hand-off hook: it runs the fixup pipeline on t and
// publishes the environment again. The first fixup error is returned; the
// tree keeps whatever the earlier fixups changed.
func (s *Stage) SystemSetup(t *fdt.Tree) error {
	if !s.started {
		s.Init()
	}
	monitor, _ := s.env.Get(VarMonitor)
	ctx := &fixup.Context{
		Record:      s.Record(),
		Monitor:     monitor,
		SPIMTDParts: s.mtd,
		Logger:      s.log,
	}
	if strings.HasPrefix(monitor, "lcd") {
		ctx.Panel = s.Panel()
	}
	if err := s.fixups.Run(t, ctx); err != nil {
		return err
	}
	return s.SetupEnvironment(t)
}

var _ Aliases = (*fdt.Tree)(nil)
