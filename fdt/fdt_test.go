package fdt

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"olinuxino-go/errcode"
)

func mustChild(t *testing.T, tr *Tree, parent Node, name string) Node {
	t.Helper()
	n, err := tr.AddChild(parent, name)
	if err != nil {
		t.Fatalf("AddChild(%q): %v", name, err)
	}
	return n
}

func mustSet(t *testing.T, tr *Tree, n Node, name string, v Value) {
	t.Helper()
	if err := tr.SetProperty(n, name, v); err != nil {
		t.Fatalf("SetProperty(%q): %v", name, err)
	}
}

func names(t *testing.T, tr *Tree, n Node) []string {
	t.Helper()
	cs, err := tr.Children(n)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, c := range cs {
		s, _ := tr.Name(c)
		out = append(out, s)
	}
	return out
}

func TestNewIsValidBlob(t *testing.T) {
	tr := New(256)
	re, err := Open(tr.Bytes())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if re.Size() != tr.Size() || re.Free() != 256 {
		t.Fatalf("size=%d free=%d", re.Size(), re.Free())
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	good := New(64).Bytes()
	cases := map[string][]byte{
		"short":     good[:10],
		"magic":     append([]byte{0, 0, 0, 0}, good[4:]...),
		"truncated": good[:len(good)-70],
	}
	for name, b := range cases {
		if _, err := Open(b); errcode.Of(err) != errcode.BadValue {
			t.Fatalf("%s: err=%v", name, err)
		}
	}
	bad := bytes.Clone(good)
	// Replace the root's END_NODE with an unknown token.
	h := readHeader(bad)
	be.PutUint32(bad[h.offStruct+8:], 0x77)
	if _, err := Open(bad); errcode.Of(err) != errcode.BadValue {
		t.Fatalf("token: err=%v", err)
	}
}

func TestAddChildInsertsFirst(t *testing.T) {
	tr := New(1024)
	root := tr.Root()
	mustSet(t, tr, root, "model", String("x"))
	mustChild(t, tr, root, "a")
	mustChild(t, tr, root, "b")
	mustChild(t, tr, root, "c")
	if got := names(t, tr, root); !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Fatalf("order %v", got)
	}
	// Properties still precede children.
	if _, err := tr.StringValue(root, "model"); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(tr.Bytes()); err != nil {
		t.Fatalf("blob no longer valid: %v", err)
	}
}

func TestAddChildDuplicate(t *testing.T) {
	tr := New(512)
	mustChild(t, tr, tr.Root(), "spi-nor@0")
	_, err := tr.AddChild(tr.Root(), "spi-nor@0")
	if !errors.Is(err, errcode.Duplicate) {
		t.Fatalf("err=%v", err)
	}
	// Bare name collides with a unit-addressed sibling.
	if _, err := tr.AddChild(tr.Root(), "spi-nor"); errcode.Of(err) != errcode.Duplicate {
		t.Fatalf("bare err=%v", err)
	}
	if _, err := tr.AddChild(tr.Root(), "spi-nor@1"); err != nil {
		t.Fatalf("different unit: %v", err)
	}
}

func TestHandlesSurviveMutation(t *testing.T) {
	tr := New(4096)
	root := tr.Root()
	soc := mustChild(t, tr, root, "soc@1c00000")
	i2c := mustChild(t, tr, soc, "i2c@1c2b400")
	spi := mustChild(t, tr, soc, "spi@1c05000")

	// Grow a property before both nodes, then insert more nodes in front.
	mustSet(t, tr, root, "compatible", Strings("olimex,a20", "allwinner,sun7i-a20"))
	mustSet(t, tr, soc, "ranges", Empty())
	mustChild(t, tr, soc, "pwm@1c20e00")
	mustSet(t, tr, i2c, "status", String("okay"))
	mustSet(t, tr, root, "compatible", String("x"))

	for n, want := range map[Node]string{soc: "/soc@1c00000", i2c: "/soc@1c00000/i2c@1c2b400", spi: "/soc@1c00000/spi@1c05000"} {
		p, err := tr.Path(n)
		if err != nil || p != want {
			t.Fatalf("path %q %v want %q", p, err, want)
		}
	}
	if s, _ := tr.StringValue(i2c, "status"); s != "okay" {
		t.Fatal("status lost")
	}
	if par, err := tr.Parent(spi); err != nil || par != soc {
		t.Fatalf("parent %v %v", par, err)
	}
}

func TestSetPropertyResizes(t *testing.T) {
	tr := New(512)
	n := mustChild(t, tr, tr.Root(), "node")
	mustSet(t, tr, n, "p", String("a"))
	mustSet(t, tr, n, "q", U32(7))
	mustSet(t, tr, n, "p", String("a much longer value"))
	mustSet(t, tr, n, "q", Cells64(1, 2))
	mustSet(t, tr, n, "p", Empty())

	if v, _ := tr.Property(n, "p"); len(v) != 0 {
		t.Fatalf("p=%q", v)
	}
	if c, _ := tr.Cells(n, "q"); !slices.Equal(c, []uint32{0, 1, 0, 2}) {
		t.Fatalf("q=%v", c)
	}
	if ns, _ := tr.PropertyNames(n); !slices.Equal(ns, []string{"p", "q"}) {
		t.Fatalf("names %v", ns)
	}
	if _, err := Open(tr.Bytes()); err != nil {
		t.Fatal(err)
	}
}

func TestAppendProperty(t *testing.T) {
	tr := New(512)
	n := mustChild(t, tr, tr.Root(), "pins")
	for _, p := range []string{"PC0", "PC1", "PC2"} {
		if err := tr.AppendProperty(n, "pins", String(p)); err != nil {
			t.Fatal(err)
		}
	}
	if ss, _ := tr.Strings(n, "pins"); !slices.Equal(ss, []string{"PC0", "PC1", "PC2"}) {
		t.Fatalf("pins %v", ss)
	}
	if err := tr.AppendProperty(n, "pins", U32(1)); errcode.Of(err) != errcode.BadValue {
		t.Fatalf("u32 append: %v", err)
	}
	mustSet(t, tr, n, "reg", U32(1))
	if err := tr.AppendProperty(n, "reg", String("x")); errcode.Of(err) != errcode.BadValue {
		t.Fatalf("append onto cells: %v", err)
	}
}

func TestCapacity(t *testing.T) {
	tr := New(16, WithLimit(200))
	n := mustChild(t, tr, tr.Root(), "a")
	free := tr.Free()
	err := tr.SetProperty(n, "big", Bytes(make([]byte, 64)))
	if !errors.Is(err, errcode.Capacity) {
		t.Fatalf("err=%v", err)
	}
	if tr.Free() != free {
		t.Fatalf("failed insert leaked %d bytes", free-tr.Free())
	}
	if _, err := Open(tr.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := tr.EnsureCapacity(1000); errcode.Of(err) != errcode.Capacity {
		t.Fatalf("limit err=%v", err)
	}
	if err := tr.EnsureCapacity(80); err != nil {
		t.Fatal(err)
	}
	mustSet(t, tr, n, "big", Bytes(make([]byte, 64)))
}

func TestEnsureCapacityOverflow(t *testing.T) {
	tr := New(16)
	size := tr.Size()
	if err := tr.EnsureCapacity(math.MaxUint32); errcode.Of(err) != errcode.Capacity {
		t.Fatalf("err=%v", err)
	}
	if tr.Size() != size {
		t.Fatalf("size %d, want %d", tr.Size(), size)
	}
}

func TestPhandles(t *testing.T) {
	tr := New(1024)
	a := mustChild(t, tr, tr.Root(), "a")
	b := mustChild(t, tr, tr.Root(), "b")
	c := mustChild(t, tr, tr.Root(), "c")
	mustSet(t, tr, b, "linux,phandle", U32(41))

	pa, err := tr.AllocPhandle(a)
	if err != nil || pa != 42 {
		t.Fatalf("a=%d %v", pa, err)
	}
	again, _ := tr.AllocPhandle(a)
	if again != pa {
		t.Fatal("allocation not idempotent")
	}
	pb, _ := tr.AllocPhandle(b)
	if pb != 41 {
		t.Fatalf("b=%d", pb)
	}
	pc, _ := tr.AllocPhandle(c)
	if pc != 43 {
		t.Fatalf("c=%d", pc)
	}
	if n, err := tr.NodeByPhandle(42); err != nil || n != a {
		t.Fatalf("lookup %v %v", n, err)
	}
	if _, ok := tr.Phandle(tr.Root()); ok {
		t.Fatal("root has no phandle")
	}
}

func TestLookups(t *testing.T) {
	tr := New(2048)
	root := tr.Root()
	soc := mustChild(t, tr, root, "soc@01c00000")
	pinctrl := mustChild(t, tr, soc, "pinctrl@01c20800")
	mustSet(t, tr, pinctrl, "compatible", Strings("vendor,other", "allwinner,sun7i-a20-pinctrl"))
	i2c := mustChild(t, tr, soc, "i2c@01c2b400")
	aliases := mustChild(t, tr, root, "aliases")
	mustSet(t, tr, aliases, "i2c1", String("/soc@01c00000/i2c@01c2b400"))

	if n, err := tr.FindDevice("i2c", 0x1c2b400); err != nil || n != i2c {
		t.Fatalf("find padded: %v %v", n, err)
	}
	if _, err := tr.FindDevice("spi", 0x1c05000); errcode.Of(err) != errcode.NotFound {
		t.Fatalf("missing device: %v", err)
	}
	if n, err := tr.NodeByCompatible("allwinner,sun7i-a20-pinctrl"); err != nil || n != pinctrl {
		t.Fatalf("compatible: %v %v", n, err)
	}
	if n, err := tr.PathOffset("i2c1"); err != nil || n != i2c {
		t.Fatalf("alias path: %v %v", n, err)
	}
	if n, err := tr.PathOffset("/soc/i2c"); err != nil || n != i2c {
		t.Fatalf("unit-less path: %v %v", n, err)
	}
	if n, err := tr.PathOffset("/"); err != nil || n != root {
		t.Fatalf("root: %v %v", n, err)
	}
	if _, err := tr.PathOffset("nope/x"); errcode.Of(err) != errcode.NotFound {
		t.Fatalf("bad alias: %v", err)
	}

	tr2 := New(1024)
	s2 := mustChild(t, tr2, tr2.Root(), "soc@1c00000")
	n2 := mustChild(t, tr2, s2, "i2c@1c2b400")
	if n, err := tr2.FindDevice("i2c", 0x1c2b400); err != nil || n != n2 {
		t.Fatalf("find short: %v %v", n, err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	tr := New(1024)
	a := mustChild(t, tr, tr.Root(), "a")
	snap := tr.Snapshot()
	before := bytes.Clone(tr.Bytes())

	b := mustChild(t, tr, a, "b")
	mustSet(t, tr, a, "x", U32(1))
	tr.Restore(snap)

	if !bytes.Equal(tr.Bytes(), before) {
		t.Fatal("blob not restored")
	}
	if _, err := tr.Name(b); errcode.Of(err) != errcode.NotFound {
		t.Fatalf("handle from after snapshot: %v", err)
	}
	if n, _ := tr.Name(a); n != "a" {
		t.Fatal("older handle broken")
	}
}

func TestSetStatusAndFormat(t *testing.T) {
	tr := New(1024)
	n := mustChild(t, tr, tr.Root(), "nand@1c03000")
	if err := tr.SetStatus(n, StatusOkay); err != nil {
		t.Fatal(err)
	}
	mustSet(t, tr, n, "reg", Cells(0, 0x400000))
	mustSet(t, tr, n, "nand-on-flash-bbt", Empty())

	var buf bytes.Buffer
	if err := tr.Format(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"nand@1c03000 {",
		`status = "okay";`,
		"reg = <0x0 0x400000>;",
		"nand-on-flash-bbt;",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestCellsGeneric(t *testing.T) {
	v := Cells(int8(-1), 2)
	if !bytes.Equal(v.Raw(), []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 2}) {
		t.Fatalf("% x", v.Raw())
	}
	if !bytes.Equal(Cells64(0x100000000).Raw(), []byte{0, 0, 0, 1, 0, 0, 0, 0}) {
		t.Fatal("cells64")
	}
}
