package fdt

import (
	"bytes"
	"strings"

	"olinuxino-go/errcode"
	"olinuxino-go/x/conv"
)

// next returns the token at structure offset off and the offset of the
// token after it.
func (t *Tree) next(off int) (uint32, int) {
	s := t.structBlock()
	if off < 0 || off+4 > len(s) {
		return tokEnd, len(s)
	}
	tok := be.Uint32(s[off:])
	p := off + 4
	switch tok {
	case tokBeginNode:
		for p < len(s) && s[p] != 0 {
			p++
		}
		p = align(p+1, 4)
	case tokProp:
		if p+8 > len(s) {
			return tokEnd, len(s)
		}
		p = align(p+8+int(be.Uint32(s[p:])), 4)
	}
	return tok, p
}

// check walks the whole structure block once.
func (t *Tree) check() error {
	s := t.structBlock()
	depth, roots := 0, 0
	for off := 0; ; {
		if off+4 > len(s) {
			return openErr("structure block truncated")
		}
		switch be.Uint32(s[off:]) {
		case tokBeginNode:
			if bytes.IndexByte(s[off+4:], 0) < 0 {
				return openErr("unterminated node name")
			}
			if depth == 0 {
				roots++
				if roots > 1 {
					return openErr("more than one root node")
				}
			}
			depth++
		case tokEndNode:
			if depth == 0 {
				return openErr("unbalanced END_NODE")
			}
			depth--
		case tokProp:
			if depth == 0 {
				return openErr("property outside a node")
			}
			if off+12 > len(s) {
				return openErr("truncated property")
			}
			n := int(be.Uint32(s[off+4:]))
			if off+12+n > len(s) {
				return openErr("property value out of range")
			}
			if be.Uint32(s[off+8:]) >= t.h.sizeStrings {
				return openErr("property name out of range")
			}
		case tokNop:
		case tokEnd:
			if depth != 0 || roots != 1 {
				return openErr("unbalanced structure block")
			}
			return nil
		default:
			return openErr("unknown token")
		}
		_, off = t.next(off)
	}
}

func (t *Tree) nameAt(off int) string {
	s := t.structBlock()[off+4:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		return string(s[:i])
	}
	return ""
}

type prop struct {
	off  int // PROP token
	name string
	val  int // value offset
	n    int
}

func (t *Tree) value(p prop) []byte { return t.structBlock()[p.val : p.val+p.n] }

// props lists the properties of the node at off and returns the offset just
// past them, where new properties and children are inserted.
func (t *Tree) props(off int) ([]prop, int) {
	s := t.structBlock()
	var list []prop
	_, p := t.next(off)
	for {
		tok, nxt := t.next(p)
		switch tok {
		case tokProp:
			list = append(list, prop{
				off:  p,
				name: t.stringAt(int(be.Uint32(s[p+8:]))),
				val:  p + 12,
				n:    int(be.Uint32(s[p+4:])),
			})
		case tokNop:
		default:
			return list, p
		}
		p = nxt
	}
}

func (t *Tree) findProp(off int, name string) (prop, bool) {
	list, _ := t.props(off)
	for _, p := range list {
		if p.name == name {
			return p, true
		}
	}
	return prop{}, false
}

// nodeEnd returns the offset just past the END_NODE matching off.
func (t *Tree) nodeEnd(off int) int {
	depth := 0
	for {
		tok, nxt := t.next(off)
		switch tok {
		case tokBeginNode:
			depth++
		case tokEndNode:
			depth--
			if depth == 0 {
				return nxt
			}
		case tokEnd:
			return off
		}
		off = nxt
	}
}

func (t *Tree) childOffsets(off int) []int {
	var out []int
	_, p := t.props(off)
	for {
		tok, nxt := t.next(p)
		switch tok {
		case tokBeginNode:
			out = append(out, p)
			p = t.nodeEnd(p)
		case tokNop:
			p = nxt
		default:
			return out
		}
	}
}

// nameMatches accepts "name" for "name@unit" when want carries no unit
// address.
func nameMatches(full, want string) bool {
	if full == want {
		return true
	}
	return strings.IndexByte(want, '@') < 0 &&
		len(full) > len(want) && full[len(want)] == '@' && strings.HasPrefix(full, want)
}

func (t *Tree) subnodeOff(off int, name string) (int, bool) {
	for _, c := range t.childOffsets(off) {
		if nameMatches(t.nameAt(c), name) {
			return c, true
		}
	}
	return 0, false
}

func (t *Tree) rootOff() int {
	for off := 0; ; {
		tok, nxt := t.next(off)
		switch tok {
		case tokBeginNode:
			return off
		case tokNop:
			off = nxt
		default:
			return 0
		}
	}
}

// handle returns the handle for a node offset, reusing an existing one.
func (t *Tree) handle(off int) Node {
	for i, o := range t.nodes {
		if o == off {
			return Node(i)
		}
	}
	t.nodes = append(t.nodes, off)
	return Node(len(t.nodes) - 1)
}

func (t *Tree) offset(op string, n Node) (int, error) {
	if n < 0 || int(n) >= len(t.nodes) {
		return 0, errcode.New(errcode.NotFound, op, "stale node handle")
	}
	return t.nodes[n], nil
}

func notFound(op, what string) error {
	return errcode.New(errcode.NotFound, op, what)
}

// Root returns the root node.
func (t *Tree) Root() Node { return t.handle(t.rootOff()) }

// Name returns the node name including any unit address. The root is "".
func (t *Tree) Name(n Node) (string, error) {
	off, err := t.offset("fdt.name", n)
	if err != nil {
		return "", err
	}
	return t.nameAt(off), nil
}

// Subnode finds a direct child by name.
func (t *Tree) Subnode(parent Node, name string) (Node, error) {
	const op = "fdt.subnode"
	off, err := t.offset(op, parent)
	if err != nil {
		return 0, err
	}
	c, ok := t.subnodeOff(off, name)
	if !ok {
		return 0, notFound(op, name)
	}
	return t.handle(c), nil
}

// Children lists direct children in blob order.
func (t *Tree) Children(parent Node) ([]Node, error) {
	off, err := t.offset("fdt.children", parent)
	if err != nil {
		return nil, err
	}
	offs := t.childOffsets(off)
	out := make([]Node, len(offs))
	for i, c := range offs {
		out[i] = t.handle(c)
	}
	return out, nil
}

// lineage returns the offsets from the root down to off.
func (t *Tree) lineage(off int) []int {
	cur := t.rootOff()
	chain := []int{cur}
	for cur != off {
		found := false
		for _, c := range t.childOffsets(cur) {
			if c <= off && off < t.nodeEnd(c) {
				cur = c
				chain = append(chain, c)
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return chain
}

// Path returns the absolute path of n.
func (t *Tree) Path(n Node) (string, error) {
	const op = "fdt.path"
	off, err := t.offset(op, n)
	if err != nil {
		return "", err
	}
	chain := t.lineage(off)
	if chain == nil {
		return "", notFound(op, "node not reachable")
	}
	if len(chain) == 1 {
		return "/", nil
	}
	var b strings.Builder
	for _, c := range chain[1:] {
		b.WriteByte('/')
		b.WriteString(t.nameAt(c))
	}
	return b.String(), nil
}

// Parent returns the parent of n. The root has no parent.
func (t *Tree) Parent(n Node) (Node, error) {
	const op = "fdt.parent"
	off, err := t.offset(op, n)
	if err != nil {
		return 0, err
	}
	chain := t.lineage(off)
	if len(chain) < 2 {
		return 0, notFound(op, "no parent")
	}
	return t.handle(chain[len(chain)-2]), nil
}

// Alias resolves an entry of /aliases.
func (t *Tree) Alias(name string) (string, bool) {
	a, ok := t.subnodeOff(t.rootOff(), "aliases")
	if !ok {
		return "", false
	}
	p, ok := t.findProp(a, name)
	if !ok {
		return "", false
	}
	v := t.value(p)
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v), true
}

// PathOffset resolves an absolute path, or a path starting with an alias.
func (t *Tree) PathOffset(path string) (Node, error) {
	const op = "fdt.path_offset"
	if path == "" {
		return 0, errcode.New(errcode.InvalidParams, op, "empty path")
	}
	if path[0] != '/' {
		alias, rest := path, ""
		if i := strings.IndexByte(path, '/'); i >= 0 {
			alias, rest = path[:i], path[i:]
		}
		target, ok := t.Alias(alias)
		if !ok || target == "" || target[0] != '/' {
			return 0, notFound(op, "alias "+alias)
		}
		path = target + rest
	}
	off := t.rootOff()
	for _, comp := range strings.Split(path, "/") {
		if comp == "" {
			continue
		}
		c, ok := t.subnodeOff(off, comp)
		if !ok {
			return 0, notFound(op, path)
		}
		off = c
	}
	return t.handle(off), nil
}

// devicePaths are tried in order by FindDevice. Blobs differ in whether unit
// addresses of the SoC bus are zero-padded.
var devicePaths = []func(name string, addr uint32) string{
	func(name string, addr uint32) string {
		var buf [16]byte
		return "/soc@1c00000/" + name + "@" + string(conv.U64HexTrim(buf[:], uint64(addr)))
	},
	func(name string, addr uint32) string {
		var buf [8]byte
		return "/soc@01c00000/" + name + "@" + string(conv.U32Hex(buf[:], addr, true))
	},
}

// FindDevice locates an on-SoC device node by name and MMIO address.
func (t *Tree) FindDevice(name string, addr uint32) (Node, error) {
	for _, f := range devicePaths {
		if n, err := t.PathOffset(f(name, addr)); err == nil {
			return n, nil
		}
	}
	var buf [16]byte
	return 0, notFound("fdt.find_device", name+"@"+string(conv.U64HexTrim(buf[:], uint64(addr))))
}

// NodeByCompatible returns the first node, in blob order, whose compatible
// list contains compat.
func (t *Tree) NodeByCompatible(compat string) (Node, error) {
	for off := 0; ; {
		tok, nxt := t.next(off)
		switch tok {
		case tokBeginNode:
			if p, ok := t.findProp(off, "compatible"); ok {
				for _, c := range splitStrings(t.value(p)) {
					if c == compat {
						return t.handle(off), nil
					}
				}
			}
		case tokEnd:
			return 0, notFound("fdt.node_by_compatible", compat)
		}
		off = nxt
	}
}

// NodeByPhandle finds the node carrying phandle ph.
func (t *Tree) NodeByPhandle(ph uint32) (Node, error) {
	if ph != 0 && ph != 0xFFFFFFFF {
		for off := 0; ; {
			tok, nxt := t.next(off)
			if tok == tokEnd {
				break
			}
			if tok == tokBeginNode {
				if v, ok := t.phandleAt(off); ok && v == ph {
					return t.handle(off), nil
				}
			}
			off = nxt
		}
	}
	return 0, notFound("fdt.node_by_phandle", "no such phandle")
}

func splitStrings(v []byte) []string {
	if len(v) == 0 {
		return nil
	}
	v = bytes.TrimSuffix(v, []byte{0})
	return strings.Split(string(v), "\x00")
}

// Property returns a copy of a property value.
func (t *Tree) Property(n Node, name string) ([]byte, error) {
	const op = "fdt.property"
	off, err := t.offset(op, n)
	if err != nil {
		return nil, err
	}
	p, ok := t.findProp(off, name)
	if !ok {
		return nil, notFound(op, name)
	}
	return append([]byte{}, t.value(p)...), nil
}

// PropertyNames lists property names in blob order.
func (t *Tree) PropertyNames(n Node) ([]string, error) {
	off, err := t.offset("fdt.property_names", n)
	if err != nil {
		return nil, err
	}
	list, _ := t.props(off)
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.name
	}
	return out, nil
}

// U32 reads a single-cell property.
func (t *Tree) U32(n Node, name string) (uint32, error) {
	v, err := t.Property(n, name)
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, errcode.New(errcode.BadValue, "fdt.u32", name+" is not one cell")
	}
	return be.Uint32(v), nil
}

// Cells reads a property as big-endian 32-bit cells.
func (t *Tree) Cells(n Node, name string) ([]uint32, error) {
	v, err := t.Property(n, name)
	if err != nil {
		return nil, err
	}
	if len(v)%4 != 0 {
		return nil, errcode.New(errcode.BadValue, "fdt.cells", name+" is not cell aligned")
	}
	out := make([]uint32, len(v)/4)
	for i := range out {
		out[i] = be.Uint32(v[4*i:])
	}
	return out, nil
}

// Strings reads a string-list property.
func (t *Tree) Strings(n Node, name string) ([]string, error) {
	v, err := t.Property(n, name)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 || v[len(v)-1] != 0 {
		return nil, errcode.New(errcode.BadValue, "fdt.strings", name+" is not a string list")
	}
	return splitStrings(v), nil
}

// StringValue reads the first string of a property.
func (t *Tree) StringValue(n Node, name string) (string, error) {
	ss, err := t.Strings(n, name)
	if err != nil {
		return "", err
	}
	return ss[0], nil
}
