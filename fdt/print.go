package fdt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Format writes the tree in device-tree source syntax. Value types are
// guessed from their bytes.
func (t *Tree) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "/dts-v1/;")
	fmt.Fprintln(bw)
	t.formatNode(bw, t.rootOff(), 0)
	return bw.Flush()
}

func (t *Tree) formatNode(w *bufio.Writer, off, depth int) {
	ind := strings.Repeat("\t", depth)
	name := t.nameAt(off)
	if depth == 0 {
		name = "/"
	}
	fmt.Fprintf(w, "%s%s {\n", ind, name)
	list, _ := t.props(off)
	for _, p := range list {
		v := t.value(p)
		if len(v) == 0 {
			fmt.Fprintf(w, "%s\t%s;\n", ind, p.name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s = %s;\n", ind, p.name, formatValue(v))
	}
	for _, c := range t.childOffsets(off) {
		fmt.Fprintln(w)
		t.formatNode(w, c, depth+1)
	}
	fmt.Fprintf(w, "%s};\n", ind)
}

func printable(v []byte) bool {
	if len(v) == 0 || v[len(v)-1] != 0 || v[0] == 0 {
		return false
	}
	for i, c := range v {
		if c == 0 {
			if i > 0 && v[i-1] == 0 {
				return false
			}
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func formatValue(v []byte) string {
	var b strings.Builder
	switch {
	case printable(v):
		for i, s := range splitStrings(v) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q", s)
		}
	case len(v)%4 == 0:
		b.WriteByte('<')
		for i := 0; i < len(v); i += 4 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "0x%x", be.Uint32(v[i:]))
		}
		b.WriteByte('>')
	default:
		b.WriteByte('[')
		for i, c := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02x", c)
		}
		b.WriteByte(']')
	}
	return b.String()
}
