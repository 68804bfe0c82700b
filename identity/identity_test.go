package identity

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"olinuxino-go/errcode"
	"olinuxino-go/internal/platform"
	"olinuxino-go/record"

	"tinygo.org/x/drivers"
)

type rig struct {
	bus    *platform.HostI2C
	mem    *platform.SimEEPROM
	store  *Store
	sleeps []time.Duration
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{bus: platform.NewHostI2C(), mem: platform.NewSimEEPROM(256, 16)}
	r.bus.Attach(AddressDefault, r.mem)
	cfg := DefaultConfig()
	cfg.EEPROM.Sleep = func(d time.Duration) { r.sleeps = append(r.sleeps, d) }
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r.store = New(platform.NewFactory(map[string]drivers.I2C{"i2c1": r.bus}), cfg)
	return r
}

func board() record.Record {
	mac, _ := record.ParseMAC("301F9AD00001")
	return record.Record{
		ID:       8958,
		Revision: record.Revision{Major: 'A'},
		Serial:   42,
		Config: record.HardwareConfig{
			Storage: record.StorageEMMC,
			Size:    record.GiB(16),
			RAM:     record.GiB(1),
			Grade:   record.GradeCommercial,
		},
		MAC: mac,
	}
}

func TestWriteThenRead(t *testing.T) {
	r := newRig(t)
	got, err := r.store.Write(board())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if got.ID != 8958 || !got.Valid() {
		t.Fatalf("write returned %+v", got)
	}
	if r.mem.PageWrites != 16 {
		t.Fatalf("page writes=%d want 16", r.mem.PageWrites)
	}
	if len(r.sleeps) != 16 || r.sleeps[0] != 5*time.Millisecond {
		t.Fatalf("sleeps=%v", r.sleeps)
	}

	back, err := r.store.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if back != got {
		t.Fatalf("read %+v\nwant %+v", back, got)
	}
	if !r.store.Valid() || r.store.Cached() != got {
		t.Fatal("cache not updated")
	}
}

func TestReadBlankIsCorrupt(t *testing.T) {
	r := newRig(t)
	rec, err := r.store.Read()
	if errcode.Of(err) != errcode.CorruptRecord {
		t.Fatalf("err=%v", err)
	}
	if !rec.IsUnknown() || r.store.Valid() {
		t.Fatal("cache should hold the sentinel")
	}
}

func TestCorruptionResetsCache(t *testing.T) {
	r := newRig(t)
	if _, err := r.store.Write(board()); err != nil {
		t.Fatal(err)
	}
	img := r.mem.Bytes()
	img[100] ^= 0x40
	r.mem.Load(img)

	if _, err := r.store.Read(); !errors.Is(err, errcode.CorruptRecord) {
		t.Fatalf("err=%v", err)
	}
	if !r.store.Cached().IsUnknown() {
		t.Fatal("cache not reset")
	}
}

func TestUnknownBus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bus = "i2c9"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(platform.NewFactory(nil), cfg)
	if _, err := s.Read(); errcode.Of(err) != errcode.BusUnavailable {
		t.Fatalf("err=%v", err)
	}
}

func TestProbeFailureKeepsCache(t *testing.T) {
	r := newRig(t)
	want, err := r.store.Write(board())
	if err != nil {
		t.Fatal(err)
	}
	r.bus.Fail = func(addr uint16, w, rd []byte) error {
		return platform.ErrNACK
	}
	_, err = r.store.Read()
	if errcode.Of(err) != errcode.BusUnavailable || !errors.Is(err, platform.ErrNACK) {
		t.Fatalf("err=%v", err)
	}
	if r.store.Cached() != want {
		t.Fatal("cache changed on probe failure")
	}
}

func TestTransferFailureKeepsCache(t *testing.T) {
	r := newRig(t)
	want, err := r.store.Write(board())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("arbitration lost")
	r.bus.Fail = func(addr uint16, w, rd []byte) error {
		if len(w) == 1 && len(rd) > 1 {
			return boom
		}
		return nil
	}
	_, err = r.store.Read()
	if errcode.Of(err) != errcode.IO || !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if r.store.Cached() != want {
		t.Fatal("cache changed on read failure")
	}
}

func TestPartialWriteResyncsCache(t *testing.T) {
	r := newRig(t)
	if _, err := r.store.Write(board()); err != nil {
		t.Fatal(err)
	}
	next := board()
	next.Serial = 43
	r.bus.Fail = func(addr uint16, w, rd []byte) error {
		if len(w) > 1 && w[0] == 0x80 {
			return errors.New("nack")
		}
		return nil
	}
	_, err := r.store.Write(next)
	if errcode.Of(err) != errcode.IO {
		t.Fatalf("err=%v", err)
	}
	// First half new, second half old: the CRC no longer matches.
	if !r.store.Cached().IsUnknown() {
		t.Fatalf("cache=%+v", r.store.Cached())
	}
}

// readOnly drops data writes but still moves the address pointer.
type readOnly struct{ *platform.SimEEPROM }

func (ro readOnly) Transfer(w, r []byte) error {
	if len(w) > 1 {
		w = w[:1]
	}
	return ro.SimEEPROM.Transfer(w, r)
}

func TestWriteVerifyFailure(t *testing.T) {
	r := newRig(t)
	r.bus.Attach(AddressDefault, readOnly{r.mem})
	_, err := r.store.Write(board())
	if errcode.Of(err) != errcode.VerifyFailed {
		t.Fatalf("err=%v", err)
	}
	if !r.store.Cached().IsUnknown() {
		t.Fatal("cache should reflect the blank device")
	}
}

func TestErase(t *testing.T) {
	r := newRig(t)
	if _, err := r.store.Write(board()); err != nil {
		t.Fatal(err)
	}
	if err := r.store.Erase(); err != nil {
		t.Fatalf("erase: %v", err)
	}
	for i, b := range r.mem.Bytes() {
		if b != 0xFF {
			t.Fatalf("byte %d = %02x", i, b)
		}
	}
	if r.store.Valid() {
		t.Fatal("cache still valid after erase")
	}
}

func TestEraseVerifyFailure(t *testing.T) {
	r := newRig(t)
	if _, err := r.store.Write(board()); err != nil {
		t.Fatal(err)
	}
	r.bus.Attach(AddressDefault, readOnly{r.mem})
	if err := r.store.Erase(); errcode.Of(err) != errcode.VerifyFailed {
		t.Fatalf("err=%v", err)
	}
	if !r.store.Valid() {
		t.Fatal("old record should still be cached")
	}
}
