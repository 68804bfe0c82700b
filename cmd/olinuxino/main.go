// olinuxino is a host tool for the OLinuXino board identity EEPROM and the
// device-tree fixups applied at boot. EEPROMs are simulated by image files
// attached to in-process I²C buses, so the same code paths the boot loader
// runs can be exercised against real dtb files.
package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"olinuxino-go/boot"
	"olinuxino-go/console"
	"olinuxino-go/fdt"
	"olinuxino-go/internal/config"
	"olinuxino-go/panel"
)

type exitError int

func (e exitError) Error() string { return "exit status " + strconv.Itoa(int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	var (
		configPath string
		idImage    string
		panelImage string
		envFile    string
		logLevel   string
		limit      int
	)
	flagSet := pflag.NewFlagSet("olinuxino", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flagSet.StringVar(&idImage, "identity", "", "identity EEPROM image (overrides config)")
	flagSet.StringVar(&panelImage, "panel", "", "panel EEPROM image (overrides config)")
	flagSet.StringVar(&envFile, "env", "", "environment file (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flagSet.IntVar(&limit, "fdt-limit", -1, "maximum dtb size after growth, 0 for no cap")
	flagSet.SetInterspersed(false)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	cfg := config.Defaults()
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	if idImage != "" {
		cfg.Identity.Image = idImage
	}
	if panelImage != "" {
		cfg.Panel.Image = panelImage
	}
	if envFile != "" {
		cfg.EnvFile = envFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if limit >= 0 {
		cfg.FDT.Limit = limit
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	h, err := newHost(cfg, log, os.Stdout)
	if err != nil {
		return err
	}
	if err := dispatch(h, flagSet.Args()); err != nil {
		return err
	}
	return h.save()
}

func dispatch(h *host, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case console.Name:
		return result(h.console().Run(args))
	case "config", "lcd":
		return result(h.console().Run(append([]string{console.Name}, args...)))
	case "info":
		s := h.stage()
		s.Init()
		s.BoardInfo()
		boot.WritePinout(h.out, s.Record())
		return nil
	case "boot":
		return bootCmd(h, rest)
	case "fdt-fixup":
		if len(rest) != 2 {
			return fmt.Errorf("usage: fdt-fixup <in.dtb> <out.dtb>")
		}
		return bootCmd(h, rest)
	case "fdt-dump":
		if len(rest) != 1 {
			return fmt.Errorf("usage: fdt-dump <in.dtb>")
		}
		t, err := openTree(h, rest[0])
		if err != nil {
			return err
		}
		return t.Format(os.Stdout)
	case "panel-program":
		return panelProgram(h, rest)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func result(r console.Result) error {
	switch r {
	case console.Success:
		return nil
	case console.Usage:
		return exitError(2)
	}
	return exitError(1)
}

func openTree(h *host, path string) (*fdt.Tree, error) {
	blob, err := readBlob(path)
	if err != nil {
		return nil, err
	}
	return fdt.Open(blob, fdt.WithLimit(h.cfg.FDT.Limit))
}

// bootCmd runs the board boot sequence. With a dtb it also applies the fixups
// and writes the patched tree.
func bootCmd(h *host, args []string) error {
	s := h.stage()
	s.Init()
	s.BoardInfo()
	if len(args) == 0 {
		return s.SetupEnvironment(nil)
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: boot [<in.dtb> <out.dtb>]")
	}
	t, err := openTree(h, args[0])
	if err != nil {
		return err
	}
	if err := s.SystemSetup(t); err != nil {
		return err
	}
	h.log.Info("dtb patched", "in", args[0], "out", args[1], "size", t.Size(), "free", t.Free())
	return writeBlob(args[1], t.Bytes())
}

// panelProgram writes a catalog panel into the panel EEPROM image.
func panelProgram(h *host, args []string) error {
	if len(args) < 1 || len(args) > 2 || h.cfg.Panel.Image == "" {
		return fmt.Errorf("usage: --panel <image> panel-program <name> [id]")
	}
	p, ok := panel.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown panel %q", args[0])
	}
	rec := panel.Record{Revision: "A", Info: p.Info, NumModes: 1, Mode: p.Mode}
	if len(args) == 2 {
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad panel id: %w", err)
		}
		rec.ID = uint32(id)
	}
	b := panel.EncodeRecord(rec)
	h.panel.Load(b[:])
	if err := h.panel.SaveFile(h.cfg.Panel.Image); err != nil {
		return err
	}
	got, err := h.det.Read()
	if err != nil {
		return err
	}
	if !bytes.Equal(h.panel.Bytes(), b[:]) {
		return fmt.Errorf("panel image mismatch")
	}
	fmt.Fprintf(h.out, "Panel: %s id %d\n", got.Info.Name, got.ID)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `olinuxino - OLinuXino board identity and device-tree fixup tool.

Usage:
  olinuxino [flags] <command> [args]

Commands:
  info                           Print the board banner
  boot [<in.dtb> <out.dtb>]      Run the boot sequence, optionally patching a dtb
  fdt-fixup <in.dtb> <out.dtb>   Same as boot with a dtb
  fdt-dump <in.dtb>              Print a dtb as text
  config ...                     Identity EEPROM commands (see "config help")
  lcd ...                        LCD panel selection commands
  panel-program <name> [id]      Write a catalog panel into the panel image

Input dtb files may be zstd compressed; output is compressed when the name
ends in .zst.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
