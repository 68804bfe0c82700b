package fdt

import (
	"strings"

	"olinuxino-go/errcode"
)

const (
	propPhandle      = "phandle"
	propLinuxPhandle = "linux,phandle"
	phandleMax       = 0xFFFFFFFE
)

// setRaw writes name=val on the node at off, resizing or inserting the
// property as needed.
func (t *Tree) setRaw(op string, off int, name string, val []byte) error {
	if p, ok := t.findProp(off, name); ok {
		region, err := t.splice(op, p.val, align(p.n, 4), align(len(val), 4))
		if err != nil {
			return err
		}
		copy(region, val)
		be.PutUint32(t.structBlock()[p.off+4:], uint32(len(val)))
		return nil
	}
	strsLen := t.h.sizeStrings
	nameOff, err := t.stringOffset(op, name)
	if err != nil {
		return err
	}
	_, at := t.props(off)
	region, err := t.splice(op, at, 0, 12+align(len(val), 4))
	if err != nil {
		t.truncateStrings(strsLen)
		return err
	}
	be.PutUint32(region[0:], tokProp)
	be.PutUint32(region[4:], uint32(len(val)))
	be.PutUint32(region[8:], uint32(nameOff))
	copy(region[12:], val)
	return nil
}

// SetProperty creates or replaces a property.
func (t *Tree) SetProperty(n Node, name string, v Value) error {
	const op = "fdt.set_property"
	off, err := t.offset(op, n)
	if err != nil {
		return err
	}
	if name == "" {
		return errcode.New(errcode.InvalidParams, op, "empty property name")
	}
	return t.setRaw(op, off, name, v.b)
}

// AppendProperty appends a string or string list to a string-shaped
// property, creating it if absent.
func (t *Tree) AppendProperty(n Node, name string, v Value) error {
	const op = "fdt.append_property"
	off, err := t.offset(op, n)
	if err != nil {
		return err
	}
	if !v.stringShaped() {
		return errcode.New(errcode.BadValue, op, "only strings can be appended")
	}
	var val []byte
	if p, ok := t.findProp(off, name); ok {
		old := t.value(p)
		if len(old) == 0 || old[len(old)-1] != 0 {
			return errcode.New(errcode.BadValue, op, name+" is not a string list")
		}
		val = append(val, old...)
	}
	val = append(val, v.b...)
	return t.setRaw(op, off, name, val)
}

// AddChild creates an empty child node placed before any existing
// children.
func (t *Tree) AddChild(parent Node, name string) (Node, error) {
	const op = "fdt.add_child"
	off, err := t.offset(op, parent)
	if err != nil {
		return 0, err
	}
	if name == "" || strings.IndexByte(name, '/') >= 0 {
		return 0, errcode.New(errcode.InvalidParams, op, "bad node name")
	}
	if _, ok := t.subnodeOff(off, name); ok {
		return 0, errcode.New(errcode.Duplicate, op, name)
	}
	_, at := t.props(off)
	nameLen := align(len(name)+1, 4)
	region, err := t.splice(op, at, 0, 4+nameLen+4)
	if err != nil {
		return 0, err
	}
	be.PutUint32(region[0:], tokBeginNode)
	copy(region[4:], name)
	be.PutUint32(region[4+nameLen:], tokEndNode)
	return t.handle(at), nil
}

func (t *Tree) phandleAt(off int) (uint32, bool) {
	for _, name := range [...]string{propPhandle, propLinuxPhandle} {
		if p, ok := t.findProp(off, name); ok && p.n == 4 {
			v := be.Uint32(t.value(p))
			if v != 0 && v != 0xFFFFFFFF {
				return v, true
			}
		}
	}
	return 0, false
}

// Phandle returns the phandle of n, if it has one.
func (t *Tree) Phandle(n Node) (uint32, bool) {
	off, err := t.offset("fdt.phandle", n)
	if err != nil {
		return 0, false
	}
	return t.phandleAt(off)
}

func (t *Tree) maxPhandle() uint32 {
	var m uint32
	for off := 0; ; {
		tok, nxt := t.next(off)
		if tok == tokEnd {
			return m
		}
		if tok == tokBeginNode {
			if v, ok := t.phandleAt(off); ok && v > m {
				m = v
			}
		}
		off = nxt
	}
}

// AllocPhandle returns the phandle of n, assigning the next free one if n
// has none.
func (t *Tree) AllocPhandle(n Node) (uint32, error) {
	const op = "fdt.alloc_phandle"
	off, err := t.offset(op, n)
	if err != nil {
		return 0, err
	}
	if v, ok := t.phandleAt(off); ok {
		return v, nil
	}
	m := t.maxPhandle()
	if m >= phandleMax {
		return 0, errcode.New(errcode.Capacity, op, "phandles exhausted")
	}
	if err := t.setRaw(op, off, propPhandle, be.AppendUint32(nil, m+1)); err != nil {
		return 0, err
	}
	return m + 1, nil
}

// SetStatus writes the "status" property.
func (t *Tree) SetStatus(n Node, s Status) error {
	return t.SetProperty(n, "status", String(s.String()))
}
