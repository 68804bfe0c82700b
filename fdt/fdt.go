// Package fdt edits a flattened device tree blob in place.
//
// A Tree keeps the blob in canonical order (header, reservation map, structure
// block, strings block, free space). Mutations splice the structure block and
// consume free space; they never grow the blob. EnsureCapacity grows it up to
// the configured limit.
//
// Nodes are referred to by Node handles. A handle stays valid across every
// mutation of the same Tree; Restore invalidates handles taken after the
// snapshot.
package fdt

import (
	"encoding/binary"
	"math"

	"olinuxino-go/errcode"
)

const (
	Magic   = 0xd00dfeed
	Version = 17

	lastCompVersion = 16
	headerSize      = 40
)

const (
	tokBeginNode = 1
	tokEndNode   = 2
	tokProp      = 3
	tokNop       = 4
	tokEnd       = 9
)

var be = binary.BigEndian

type header struct {
	totalSize   uint32
	offStruct   uint32
	offStrings  uint32
	offRsvmap   uint32
	version     uint32
	lastComp    uint32
	bootCPU     uint32
	sizeStrings uint32
	sizeStruct  uint32
}

func readHeader(b []byte) header {
	return header{
		totalSize:   be.Uint32(b[4:]),
		offStruct:   be.Uint32(b[8:]),
		offStrings:  be.Uint32(b[12:]),
		offRsvmap:   be.Uint32(b[16:]),
		version:     be.Uint32(b[20:]),
		lastComp:    be.Uint32(b[24:]),
		bootCPU:     be.Uint32(b[28:]),
		sizeStrings: be.Uint32(b[32:]),
		sizeStruct:  be.Uint32(b[36:]),
	}
}

func (h header) put(b []byte) {
	be.PutUint32(b[0:], Magic)
	be.PutUint32(b[4:], h.totalSize)
	be.PutUint32(b[8:], h.offStruct)
	be.PutUint32(b[12:], h.offStrings)
	be.PutUint32(b[16:], h.offRsvmap)
	be.PutUint32(b[20:], h.version)
	be.PutUint32(b[24:], h.lastComp)
	be.PutUint32(b[28:], h.bootCPU)
	be.PutUint32(b[32:], h.sizeStrings)
	be.PutUint32(b[36:], h.sizeStruct)
}

// Node is a handle to a node of one Tree.
type Node int

// Tree is a mutable device tree. It is not safe for concurrent use.
type Tree struct {
	buf   []byte
	h     header
	limit int

	// nodes maps handles to structure-block offsets of BEGIN_NODE tokens.
	nodes []int
}

type Option func(*Tree)

// WithLimit caps the blob size EnsureCapacity may grow to. Zero means no cap.
func WithLimit(n int) Option {
	return func(t *Tree) { t.limit = n }
}

func align(n, a int) int { return (n + a - 1) &^ (a - 1) }

func openErr(msg string) error {
	return errcode.New(errcode.BadValue, "fdt.open", msg)
}

// Open validates blob and copies it into a Tree. blob is not retained.
func Open(blob []byte, opts ...Option) (*Tree, error) {
	if len(blob) < headerSize {
		return nil, openErr("short header")
	}
	if be.Uint32(blob) != Magic {
		return nil, openErr("bad magic")
	}
	h := readHeader(blob)
	if h.version < Version || h.lastComp > Version {
		return nil, openErr("unsupported version")
	}
	if int(h.totalSize) > len(blob) || h.totalSize < headerSize {
		return nil, openErr("truncated blob")
	}
	in := blob[:h.totalSize]
	within := func(off, n uint32) bool {
		return uint64(off)+uint64(n) <= uint64(len(in))
	}
	if !within(h.offStruct, h.sizeStruct) || !within(h.offStrings, h.sizeStrings) ||
		!within(h.offRsvmap, 16) || h.offStruct%4 != 0 || h.offRsvmap%8 != 0 {
		return nil, openErr("block out of range")
	}

	// Reservation map runs up to and including the 0,0 terminator.
	rsvEnd := int(h.offRsvmap)
	for {
		if rsvEnd+16 > len(in) {
			return nil, openErr("unterminated reservation map")
		}
		addr, size := be.Uint64(in[rsvEnd:]), be.Uint64(in[rsvEnd+8:])
		rsvEnd += 16
		if addr == 0 && size == 0 {
			break
		}
	}
	rsv := in[h.offRsvmap:rsvEnd]
	st := in[h.offStruct : h.offStruct+h.sizeStruct]
	strs := in[h.offStrings : h.offStrings+h.sizeStrings]

	t := &Tree{}
	for _, o := range opts {
		o(t)
	}
	offRsv := align(headerSize, 8)
	offStruct := align(offRsv+len(rsv), 4)
	offStrings := offStruct + len(st)
	used := offStrings + len(strs)
	total := int(h.totalSize)
	if total < used {
		total = used
	}
	t.buf = make([]byte, total)
	copy(t.buf[offRsv:], rsv)
	copy(t.buf[offStruct:], st)
	copy(t.buf[offStrings:], strs)
	t.h = header{
		totalSize:   uint32(total),
		offStruct:   uint32(offStruct),
		offStrings:  uint32(offStrings),
		offRsvmap:   uint32(offRsv),
		version:     Version,
		lastComp:    lastCompVersion,
		bootCPU:     h.bootCPU,
		sizeStrings: uint32(len(strs)),
		sizeStruct:  uint32(len(st)),
	}
	t.sync()
	if err := t.check(); err != nil {
		return nil, err
	}
	return t, nil
}

// New returns a tree holding only an empty root node and free bytes of
// free space.
func New(free int, opts ...Option) *Tree {
	var st []byte
	st = be.AppendUint32(st, tokBeginNode)
	st = append(st, 0, 0, 0, 0)
	st = be.AppendUint32(st, tokEndNode)
	st = be.AppendUint32(st, tokEnd)

	offRsv := align(headerSize, 8)
	offStruct := offRsv + 16
	offStrings := offStruct + len(st)
	t := &Tree{buf: make([]byte, offStrings+free)}
	for _, o := range opts {
		o(t)
	}
	copy(t.buf[offStruct:], st)
	t.h = header{
		totalSize:  uint32(len(t.buf)),
		offStruct:  uint32(offStruct),
		offStrings: uint32(offStrings),
		offRsvmap:  uint32(offRsv),
		version:    Version,
		lastComp:   lastCompVersion,
		sizeStruct: uint32(len(st)),
	}
	t.sync()
	return t
}

func (t *Tree) sync() { t.h.put(t.buf) }

// Bytes returns the blob. It aliases the tree's storage until the next
// mutation.
func (t *Tree) Bytes() []byte { return t.buf[:t.h.totalSize] }

// Size is the blob's total size.
func (t *Tree) Size() int { return int(t.h.totalSize) }

// Free is the number of unused bytes at the end of the blob.
func (t *Tree) Free() int {
	return int(t.h.totalSize) - int(t.h.offStrings) - int(t.h.sizeStrings)
}

// EnsureCapacity grows the blob by extra bytes of free space.
func (t *Tree) EnsureCapacity(extra int) error {
	if extra <= 0 {
		return nil
	}
	n := int(t.h.totalSize) + extra
	if n < extra || uint64(n) > math.MaxUint32 {
		return errcode.New(errcode.Capacity, "fdt.ensure_capacity", "blob size overflows")
	}
	if t.limit > 0 && n > t.limit {
		return errcode.New(errcode.Capacity, "fdt.ensure_capacity", "limit exceeded")
	}
	nb := make([]byte, n)
	copy(nb, t.buf)
	t.buf = nb
	t.h.totalSize = uint32(n)
	t.sync()
	return nil
}

// Snapshot is a saved copy of a Tree.
type Snapshot struct {
	buf   []byte
	h     header
	nodes []int
}

func (t *Tree) Snapshot() Snapshot {
	return Snapshot{
		buf:   append([]byte(nil), t.buf...),
		h:     t.h,
		nodes: append([]int(nil), t.nodes...),
	}
}

// Restore rolls the tree back to s.
func (t *Tree) Restore(s Snapshot) {
	t.buf = append(t.buf[:0:0], s.buf...)
	t.h = s.h
	t.nodes = append(t.nodes[:0:0], s.nodes...)
}

func (t *Tree) structBlock() []byte {
	return t.buf[t.h.offStruct : t.h.offStruct+t.h.sizeStruct]
}

func (t *Tree) stringsBlock() []byte {
	return t.buf[t.h.offStrings : t.h.offStrings+t.h.sizeStrings]
}

func noSpace(op string) error {
	return errcode.New(errcode.Capacity, op, "out of free space")
}

// splice replaces oldLen bytes at structure offset p with newLen zero bytes
// and returns the new region. Tracked node offsets past the replaced range
// move with the data.
func (t *Tree) splice(op string, p, oldLen, newLen int) ([]byte, error) {
	delta := newLen - oldLen
	if delta > t.Free() {
		return nil, noSpace(op)
	}
	start := int(t.h.offStruct) + p
	end := int(t.h.offStrings) + int(t.h.sizeStrings)
	copy(t.buf[start+newLen:end+delta], t.buf[start+oldLen:end])
	if delta < 0 {
		clear(t.buf[end+delta : end])
	}
	region := t.buf[start : start+newLen]
	clear(region)

	t.h.sizeStruct = uint32(int(t.h.sizeStruct) + delta)
	t.h.offStrings = uint32(int(t.h.offStrings) + delta)
	t.sync()
	for i, o := range t.nodes {
		if o >= p+oldLen {
			t.nodes[i] = o + delta
		}
	}
	return region, nil
}

// stringOffset returns the offset of s in the strings block, adding it if
// absent.
func (t *Tree) stringOffset(op, s string) (int, error) {
	strs := t.stringsBlock()
	for i := 0; i < len(strs); {
		j := i
		for j < len(strs) && strs[j] != 0 {
			j++
		}
		if string(strs[i:j]) == s {
			return i, nil
		}
		i = j + 1
	}
	need := len(s) + 1
	if need > t.Free() {
		return 0, noSpace(op)
	}
	off := int(t.h.sizeStrings)
	at := int(t.h.offStrings) + off
	copy(t.buf[at:], s)
	t.buf[at+len(s)] = 0
	t.h.sizeStrings += uint32(need)
	t.sync()
	return off, nil
}

// truncateStrings drops strings appended after the block had size n.
func (t *Tree) truncateStrings(n uint32) {
	if n >= t.h.sizeStrings {
		return
	}
	start := int(t.h.offStrings)
	clear(t.buf[start+int(n) : start+int(t.h.sizeStrings)])
	t.h.sizeStrings = n
	t.sync()
}

func (t *Tree) stringAt(off int) string {
	strs := t.stringsBlock()
	if off < 0 || off >= len(strs) {
		return ""
	}
	j := off
	for j < len(strs) && strs[j] != 0 {
		j++
	}
	return string(strs[off:j])
}
