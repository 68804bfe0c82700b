package console

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"olinuxino-go/boot"
	"olinuxino-go/env"
	"olinuxino-go/identity"
	"olinuxino-go/internal/platform"
	"olinuxino-go/record"

	"tinygo.org/x/drivers"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type rig struct {
	mem   *platform.SimEEPROM
	bus   *platform.HostI2C
	env   *env.Map
	out   bytes.Buffer
	store *identity.Store
	con   *Console
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{mem: platform.NewSimEEPROM(256, 16), bus: platform.NewHostI2C(), env: env.NewMap()}
	r.bus.Attach(identity.AddressDefault, r.mem)
	ic := identity.DefaultConfig()
	ic.EEPROM.Sleep = func(time.Duration) {}
	ic.Logger = quiet
	r.store = identity.New(platform.NewFactory(map[string]drivers.I2C{"i2c1": r.bus}), ic)
	r.con = New(Config{Store: r.store, Env: r.env, Out: &r.out, Logger: quiet})
	return r
}

func (r *rig) run(t *testing.T, line string, want Result) string {
	t.Helper()
	r.out.Reset()
	if got := r.con.RunLine(line); got != want {
		t.Fatalf("%q: result %v want %v\n%s", line, got, want, r.out.String())
	}
	return r.out.String()
}

func TestWriteThenInfo(t *testing.T) {
	r := newRig(t)
	out := r.run(t, "olinuxino config write 8946 c 1e240 30:1f:9a:d0:00:01", Success)
	if !strings.Contains(out, "Erasing previous configuration...") || !strings.Contains(out, "Writing configuration EEPROM...") {
		t.Fatalf("write output %q", out)
	}

	got, err := r.store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 8946 || got.Revision.Major != 'C' || got.Serial != 0x1e240 {
		t.Fatalf("record %+v", got)
	}
	if got.Config.Storage != record.StorageSPIFlash || got.Config.Size != record.MiB(16) {
		t.Fatalf("config from catalog not applied: %+v", got.Config)
	}

	out = r.run(t, "olinuxino config info", Success)
	want := "Model: A20-OLinuXino-LIME2-s16MB Rev.C\nSerial:0001E240\nMAC:   30:1F:9A:D0:00:01\n"
	if !strings.HasPrefix(out, want) {
		t.Fatalf("info %q", out)
	}
	if !strings.Contains(out, "Storage: spi 16MB, RAM: 1GB, Grade: commercial") {
		t.Fatalf("info %q", out)
	}
}

func TestWriteKeepsSerialAndMAC(t *testing.T) {
	r := newRig(t)
	r.run(t, "olinuxino config write 7739 A 00000042 0011223344AA", Success)
	r.run(t, "olinuxino config write 7701 D1", Success)
	got := r.store.Cached()
	if got.ID != 7701 || got.Serial != 0x42 || got.MAC.String() != "00:11:22:33:44:AA" {
		t.Fatalf("record %+v", got)
	}
	if got.Revision != (record.Revision{Major: 'D', Minor: '1'}) {
		t.Fatalf("revision %+v", got.Revision)
	}
}

func TestWriteKeepsSerialAndMACAcrossStores(t *testing.T) {
	r := newRig(t)
	r.run(t, "olinuxino config write 7739 A 42 0011223344AA", Success)

	ic := identity.DefaultConfig()
	ic.EEPROM.Sleep = func(time.Duration) {}
	ic.Logger = quiet
	fresh := identity.New(platform.NewFactory(map[string]drivers.I2C{"i2c1": r.bus}), ic)
	con := New(Config{Store: fresh, Env: r.env, Out: io.Discard, Logger: quiet})
	if res := con.RunLine("olinuxino config write 7701 D1"); res != Success {
		t.Fatalf("second write: %v", res)
	}

	got, err := identity.New(platform.NewFactory(map[string]drivers.I2C{"i2c1": r.bus}), ic).Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 7701 || got.Serial != 0x42 || got.MAC.String() != "00:11:22:33:44:AA" {
		t.Fatalf("record %+v", got)
	}
}

func TestWriteWithoutStore(t *testing.T) {
	var out bytes.Buffer
	con := New(Config{Env: env.NewMap(), Out: &out, Logger: quiet})
	if res := con.RunLine("olinuxino config write 7739 A"); res != Failure {
		t.Fatalf("result %v\n%s", res, out.String())
	}
	if res := con.RunLine("olinuxino config write 7739"); res != Usage {
		t.Fatalf("short args: %v", res)
	}
}

func TestWriteRejects(t *testing.T) {
	r := newRig(t)
	for _, tc := range []struct {
		line string
		want Result
		msg  string
	}{
		{"olinuxino config write 1234 A", Failure, "1234 is not valid ID!"},
		{"olinuxino config write abc A", Failure, "abc is not valid ID!"},
		{"olinuxino config write 7739 7", Failure, "7 is not valid revision!"},
		{"olinuxino config write 7739 A0", Failure, "A0 is not valid revision!"},
		{"olinuxino config write 7739 A xyz", Failure, "Invalid serial"},
		{"olinuxino config write 7739 A 1 00:11:22:33:44", Failure, "Invalid MAC"},
		{"olinuxino config write 7739 A 1 00:11:22:33:44:GG", Failure, "Invalid MAC"},
		{"olinuxino config write 7739", Usage, "olinuxino config list"},
		{"olinuxino config write 7739 A 1 001122334455 extra", Usage, "olinuxino config list"},
	} {
		out := r.run(t, tc.line, tc.want)
		if !strings.Contains(out, tc.msg) {
			t.Errorf("%q: output %q lacks %q", tc.line, out, tc.msg)
		}
	}
	if r.mem.PageWrites != 0 {
		t.Fatalf("rejected writes touched the eeprom: %d page writes", r.mem.PageWrites)
	}
}

func TestInfoStates(t *testing.T) {
	r := newRig(t)
	out := r.run(t, "olinuxino config info", Success)
	if !strings.HasPrefix(out, "Current configuration in the EEPROM is not valid!") {
		t.Fatalf("%q", out)
	}

	con := New(Config{Store: identity.New(platform.NewFactory(nil), identity.Config{Logger: quiet}), Out: io.Discard, Logger: quiet})
	if res := con.RunLine("olinuxino config info"); res != Failure {
		t.Fatalf("missing bus: %v", res)
	}
}

func TestErase(t *testing.T) {
	r := newRig(t)
	r.run(t, "olinuxino config write 7739 A", Success)
	out := r.run(t, "olinuxino config erase", Success)
	if out != "Erasing configuration EEPROM...\n" {
		t.Fatalf("%q", out)
	}
	if r.store.Valid() {
		t.Fatal("record survived erase")
	}
}

func TestList(t *testing.T) {
	r := newRig(t)
	out := r.run(t, "olinuxino config list", Success)
	if !strings.Contains(out, "A20-OLinuXino-LIME2-e16GB      - 9166") {
		t.Fatalf("%q", out)
	}
}

func TestLCD(t *testing.T) {
	r := newRig(t)
	r.run(t, `olinuxino lcd set "LCD-OLinuXino-10"`, Success)
	if v, _ := r.env.Get(boot.VarLCD); v != "LCD-OLinuXino-10" {
		t.Fatalf("lcd_olinuxino=%q", v)
	}
	out := r.run(t, "olinuxino lcd list", Success)
	if !strings.Contains(out, "* LCD-OLinuXino-10\n") || !strings.Contains(out, "  LCD-OLinuXino-7\n") {
		t.Fatalf("%q", out)
	}
	r.run(t, "olinuxino lcd set LCD-OLinuXino-99", Failure)
	r.run(t, "olinuxino lcd clear", Success)
	if _, ok := r.env.Get(boot.VarLCD); ok {
		t.Fatal("not cleared")
	}
}

func TestUsage(t *testing.T) {
	r := newRig(t)
	for _, line := range []string{
		"olinuxino",
		"olinuxino config",
		"olinuxino config bogus",
		"olinuxino config info extra",
		"olinuxino lcd set",
		"olinuxino mmc info",
		"other config info",
		`olinuxino config "unterminated`,
	} {
		r.run(t, line, Usage)
	}
}
