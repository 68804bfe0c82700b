// Package console implements the "olinuxino" board configuration command.
//
//	olinuxino config info
//	olinuxino config list
//	olinuxino config erase
//	olinuxino config write <id> <revision> [serial] [mac]
//	olinuxino lcd list
//	olinuxino lcd set <name>
//	olinuxino lcd clear
package console

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"olinuxino-go/boot"
	"olinuxino-go/catalog"
	"olinuxino-go/env"
	"olinuxino-go/errcode"
	"olinuxino-go/identity"
	"olinuxino-go/panel"
	"olinuxino-go/record"
)

// Result is the command outcome.
type Result uint8

const (
	Success Result = iota
	Usage
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Usage:
		return "usage"
	default:
		return "failure"
	}
}

const Name = "olinuxino"

const usageText = `olinuxino config info                - Print current configuration: ID, serial, ram, storage, grade...
olinuxino config list                - Print supported boards and their IDs
olinuxino config erase               - Erase currently stored configuration
olinuxino config write <id> <revision> [serial] [mac]
  arguments:
    <id>        - Specific board ID
    <revision>  - Board revision: C, D1, etc...
    [serial]    - New serial number for the board, hex
    [mac]       - New MAC address for the board
                  Format can be:
                    aa:bb:cc:dd:ee:ff
                    FF:FF:FF:FF:FF:FF
                    aabbccddeeff
olinuxino lcd list                   - Print supported LCD panels
olinuxino lcd set <name>             - Force a panel, ignoring the panel EEPROM
olinuxino lcd clear                  - Return to panel autodetection
`

type Config struct {
	Store  *identity.Store
	Env    env.Env
	Out    io.Writer
	Logger *slog.Logger
}

type Console struct {
	store *identity.Store
	env   env.Env
	out   io.Writer
	log   *slog.Logger
}

func New(cfg Config) *Console {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Env == nil {
		cfg.Env = env.NewMap()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Console{store: cfg.Store, env: cfg.Env, out: cfg.Out, log: log.With("component", "console")}
}

// Usage writes the help text.
func (c *Console) Usage() { io.WriteString(c.out, usageText) }

// RunLine splits line with shell quoting rules and runs it.
func (c *Console) RunLine(line string) Result {
	args, err := shlex.Split(line)
	if err != nil {
		c.printf("%v\n", err)
		return Usage
	}
	return c.Run(args)
}

// Run executes argv; argv[0] must be "olinuxino".
func (c *Console) Run(argv []string) Result {
	if len(argv) < 3 || argv[0] != Name {
		return Usage
	}
	args := argv[2:]
	var res Result
	switch argv[1] {
	case "config":
		res = c.config(args)
	case "lcd":
		res = c.lcd(args)
	default:
		res = Usage
	}
	if res == Usage {
		c.Usage()
	}
	c.log.Debug("command done", "args", argv, "result", res)
	return res
}

func (c *Console) printf(format string, a ...any) { fmt.Fprintf(c.out, format, a...) }

func (c *Console) config(args []string) Result {
	sub, rest := args[0], args[1:]
	switch {
	case sub == "info" && len(rest) == 0:
		return c.configInfo()
	case sub == "list" && len(rest) == 0:
		return c.configList()
	case sub == "erase" && len(rest) == 0:
		return c.configErase()
	case sub == "write":
		return c.configWrite(rest)
	}
	return Usage
}

func (c *Console) configInfo() Result {
	if c.store == nil {
		c.printf("Failed to read the current EEPROM configuration!\n")
		return Failure
	}
	r, err := c.store.Read()
	switch errcode.Of(err) {
	case errcode.OK:
	case errcode.CorruptRecord:
		c.printf("Current configuration in the EEPROM is not valid!\n" +
			"Run \"olinuxino config write\" to restore it.\n")
		return Success
	default:
		c.printf("Failed to read the current EEPROM configuration!\n")
		return Failure
	}
	boot.WriteBanner(c.out, r)
	cfg := r.Config
	c.printf("ID:    %d\n", r.ID)
	c.printf("Storage: %s %s, RAM: %s, Grade: %s\n", cfg.Storage, cfg.Size, cfg.RAM, cfg.Grade)
	return Success
}

func (c *Console) configList() Result {
	c.printf("Supported boards:\n")
	c.printf("----------------------------------------\n")
	for _, b := range catalog.Boards() {
		c.printf("%-30s - %-10d\n", b.Name, b.ID)
	}
	return Success
}

func (c *Console) configErase() Result {
	if c.store == nil {
		return Failure
	}
	c.printf("Erasing configuration EEPROM...\n")
	if err := c.store.Erase(); err != nil {
		c.printf("Erase failed: %v\n", err)
		return Failure
	}
	return Success
}

// parseRevision accepts a major letter (either case) and an optional minor
// digit 1..9.
func parseRevision(s string) (record.Revision, bool) {
	if len(s) == 0 || len(s) > 2 {
		return record.Revision{}, false
	}
	major := s[0]
	if major >= 'a' && major <= 'z' {
		major -= 'a' - 'A'
	}
	if major < 'A' || major > 'Z' {
		return record.Revision{}, false
	}
	rev := record.Revision{Major: major}
	if len(s) == 2 {
		if s[1] < '1' || s[1] > '9' {
			return record.Revision{}, false
		}
		rev.Minor = s[1]
	}
	return rev, true
}

func (c *Console) configWrite(args []string) Result {
	if len(args) < 2 || len(args) > 4 {
		return Usage
	}
	if c.store == nil {
		c.printf("No configuration EEPROM available!\n")
		return Failure
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	board, ok := catalog.Lookup(uint32(id))
	if err != nil || !ok {
		c.printf("%s is not valid ID!\n"+
			"Run olinuxino config list to get supported IDs.\n", args[0])
		return Failure
	}
	rev, ok := parseRevision(args[1])
	if !ok {
		c.printf("%s is not valid revision!\n"+
			"Revision should be one character: A, C, J, etc...\n", args[1])
		return Failure
	}

	// Serial and MAC carry over from the record on the device when not given.
	r, err := c.store.Read()
	if err != nil || !r.Valid() {
		c.log.Debug("no valid record to carry over", "err", err)
		r = record.Record{}
		r.MAC, _ = record.ParseMAC("000000000000")
	}
	r.ID = board.ID
	r.Revision = rev
	r.Config = board.Config

	if len(args) > 2 {
		serial, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(args[2]), "0x"), 16, 32)
		if err != nil {
			c.printf("Invalid serial: %s!\n", args[2])
			return Failure
		}
		r.Serial = uint32(serial)
	}
	if len(args) > 3 {
		mac, err := record.ParseMAC(args[3])
		if err != nil {
			c.printf("Invalid MAC address %s: %v!\n", args[3], err)
			return Failure
		}
		r.MAC = mac
	}

	c.printf("Erasing previous configuration...\n")
	if err := c.store.Erase(); err != nil {
		c.printf("Erase failed: %v\n", err)
		return Failure
	}
	c.printf("Writing configuration EEPROM...\n")
	if _, err := c.store.Write(r); err != nil {
		c.printf("Write failed: %v\n", err)
		return Failure
	}
	return Success
}

func (c *Console) lcd(args []string) Result {
	sub, rest := args[0], args[1:]
	switch {
	case sub == "list" && len(rest) == 0:
		cur, _ := c.env.Get(boot.VarLCD)
		c.printf("Supported panels:\n")
		c.printf("----------------------------------------\n")
		for _, p := range panel.Panels() {
			mark := " "
			if p.Info.Name == cur {
				mark = "*"
			}
			c.printf("%s %s\n", mark, p.Info.Name)
		}
		return Success
	case sub == "set" && len(rest) == 1:
		if _, ok := panel.Lookup(rest[0]); !ok {
			c.printf("%s is not a supported panel!\n"+
				"Run olinuxino lcd list to get supported panels.\n", rest[0])
			return Failure
		}
		return c.setEnv(boot.VarLCD, rest[0])
	case sub == "clear" && len(rest) == 0:
		return c.setEnv(boot.VarLCD, "")
	}
	return Usage
}

func (c *Console) setEnv(name, value string) Result {
	if err := c.env.Set(name, value); err != nil {
		c.printf("%v\n", err)
		return Failure
	}
	return Success
}
