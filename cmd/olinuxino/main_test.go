package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"olinuxino-go/fdt"
	"olinuxino-go/internal/fdtfixture"
	"olinuxino-go/record"
)

func TestBlobCompression(t *testing.T) {
	blob, err := fdtfixture.Blob(fdtfixture.Options{})
	if err != nil {
		t.Fatal(err)
	}
	z, err := encodeBlob(blob, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(z, zstdMagic) {
		t.Fatal("not a zstd frame")
	}
	back, err := decodeBlob(z)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, blob) {
		t.Fatal("round trip differs")
	}
	plain, _ := decodeBlob(blob)
	if !bytes.Equal(plain, blob) {
		t.Fatal("plain blob altered")
	}
}

func TestWriteThenFixup(t *testing.T) {
	dir := t.TempDir()
	id := filepath.Join(dir, "identity.bin")
	envFile := filepath.Join(dir, "uboot.env")
	in := filepath.Join(dir, "in.dtb")
	out := filepath.Join(dir, "out.dtb.zst")

	blob, err := fdtfixture.Blob(fdtfixture.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(in, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	flags := []string{"--identity", id, "--env", envFile, "--log-level", "error"}
	if err := run(append(flags, "config", "write", "7743", "C", "1e240", "301F9AD00001")); err != nil {
		t.Fatalf("config write: %v", err)
	}
	if fi, err := os.Stat(id); err != nil || fi.Size() != 256 {
		t.Fatalf("identity image: %v", err)
	}
	if err := run(append(flags, "fdt-fixup", in, out)); err != nil {
		t.Fatalf("fdt-fixup: %v", err)
	}

	patched, err := readBlob(out)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := fdt.Open(patched)
	if err != nil {
		t.Fatal(err)
	}
	nand, err := tr.FindDevice("nand", 0x01c03000)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := tr.StringValue(nand, "status"); s != "okay" {
		t.Fatalf("nand status %q", s)
	}

	saved, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"board_id=7743\n", "ethaddr=30:1f:9a:d0:00:01\n", "serial#=0001e240\n"} {
		if !strings.Contains(string(saved), want) {
			t.Errorf("env file lacks %q:\n%s", want, saved)
		}
	}
}

func TestRewriteKeepsSerialAndMAC(t *testing.T) {
	dir := t.TempDir()
	id := filepath.Join(dir, "identity.bin")
	flags := []string{"--identity", id, "--env", filepath.Join(dir, "uboot.env"), "--log-level", "error"}
	if err := run(append(flags, "config", "write", "7739", "A", "42", "0011223344AA")); err != nil {
		t.Fatal(err)
	}
	if err := run(append(flags, "config", "write", "7701", "D1")); err != nil {
		t.Fatal(err)
	}

	img, err := os.ReadFile(id)
	if err != nil {
		t.Fatal(err)
	}
	var b [record.Size]byte
	copy(b[:], img)
	got := record.Decode(b)
	if !got.Valid() || got.ID != 7701 || got.Serial != 0x42 || got.MAC.String() != "00:11:22:33:44:AA" {
		t.Fatalf("record %+v", got)
	}
}

func TestConsoleExitCodes(t *testing.T) {
	dir := t.TempDir()
	flags := []string{"--identity", filepath.Join(dir, "id.bin"), "--env", filepath.Join(dir, "env"), "--log-level", "error"}
	err := run(append(flags, "config", "write", "1"))
	if e, ok := err.(exitError); !ok || e.ExitCode() != 2 {
		t.Fatalf("usage: %v", err)
	}
	err = run(append(flags, "config", "write", "1", "A"))
	if e, ok := err.(exitError); !ok || e.ExitCode() != 1 {
		t.Fatalf("failure: %v", err)
	}
}
