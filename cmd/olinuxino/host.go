package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"tinygo.org/x/drivers"

	"olinuxino-go/boot"
	"olinuxino-go/console"
	"olinuxino-go/env"
	"olinuxino-go/identity"
	"olinuxino-go/internal/config"
	"olinuxino-go/internal/platform"
	"olinuxino-go/panel"
	"olinuxino-go/record"
)

// host wires image-backed EEPROMs onto simulated buses.
type host struct {
	cfg   *config.Config
	log   *slog.Logger
	out   io.Writer
	id    *platform.SimEEPROM
	panel *platform.SimEEPROM
	env   *env.Map
	store *identity.Store
	det   *panel.Detector
}

func newHost(cfg *config.Config, log *slog.Logger, out io.Writer) (*host, error) {
	h := &host{cfg: cfg, log: log, out: out, env: env.NewMap()}

	buses := map[string]*platform.HostI2C{}
	bus := func(id string) *platform.HostI2C {
		b, ok := buses[id]
		if !ok {
			b = platform.NewHostI2C()
			buses[id] = b
		}
		return b
	}

	h.id = platform.NewSimEEPROM(record.Size, 16)
	if err := h.id.LoadFile(cfg.Identity.Image); err != nil {
		return nil, err
	}
	bus(cfg.Identity.Bus).Attach(cfg.Identity.Address, h.id)

	if cfg.Panel.Image != "" {
		h.panel = platform.NewSimEEPROM(panel.RecordSize, 16)
		if err := h.panel.LoadFile(cfg.Panel.Image); err != nil {
			return nil, err
		}
		bus(cfg.Panel.Bus).Attach(cfg.Panel.Address, h.panel)
	}

	if err := h.loadEnv(); err != nil {
		return nil, err
	}

	all := make(map[string]drivers.I2C, len(buses))
	for id, b := range buses {
		all[id] = b
	}
	factory := platform.NewFactory(all)

	ic := identity.DefaultConfig()
	ic.Bus = cfg.Identity.Bus
	ic.EEPROM.Address = cfg.Identity.Address
	ic.EEPROM.SettleDelay = cfg.Identity.Settle
	ic.Logger = log
	h.store = identity.New(factory, ic)

	h.det = panel.NewDetector(factory, panel.Config{Bus: cfg.Panel.Bus, Address: cfg.Panel.Address, Logger: log})
	return h, nil
}

func (h *host) loadEnv() error {
	if h.cfg.EnvFile == "" {
		return nil
	}
	f, err := os.Open(h.cfg.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = h.env.ReadFrom(f)
	return err
}

// save writes the identity image and the environment back.
func (h *host) save() error {
	if err := h.id.SaveFile(h.cfg.Identity.Image); err != nil {
		return err
	}
	if h.cfg.EnvFile == "" {
		return nil
	}
	f, err := os.Create(h.cfg.EnvFile)
	if err != nil {
		return err
	}
	if _, err := h.env.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (h *host) stage() *boot.Stage {
	cfg := boot.Config{
		Store:       h.store,
		Env:         h.env,
		Console:     h.out,
		SPIMTDParts: h.cfg.FDT.SPIMTDParts,
		Logger:      h.log,
	}
	if h.panel != nil {
		cfg.Panel = h.det
	}
	if len(h.cfg.SID) == 4 {
		sid := [4]uint32(h.cfg.SID)
		cfg.SID = func() ([4]uint32, error) { return sid, nil }
	}
	return boot.New(cfg)
}

func (h *host) console() *console.Console {
	return console.New(console.Config{Store: h.store, Env: h.env, Out: h.out, Logger: h.log})
}
