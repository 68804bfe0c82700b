// Package env is the boot environment seen by this code: a flat set of named
// string variables owned by the boot loader.
package env

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"olinuxino-go/errcode"
)

// Env is the variable store.
type Env interface {
	Get(name string) (string, bool)
	// Set stores value; an empty value deletes the variable.
	Set(name, value string) error
}

// SetDefault sets name only if it is not already set. It reports whether it
// wrote.
func SetDefault(e Env, name, value string) (bool, error) {
	if _, ok := e.Get(name); ok {
		return false, nil
	}
	if value == "" {
		return false, nil
	}
	return true, e.Set(name, value)
}

// Map is an in-memory Env.
type Map struct {
	vars map[string]string
}

func NewMap() *Map { return &Map{vars: make(map[string]string)} }

func (m *Map) Get(name string) (string, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *Map) Set(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=\n") {
		return errcode.New(errcode.InvalidParams, "env.set", "bad variable name")
	}
	if strings.ContainsRune(value, '\n') {
		return errcode.New(errcode.InvalidParams, "env.set", "newline in value")
	}
	if m.vars == nil {
		m.vars = make(map[string]string)
	}
	if value == "" {
		delete(m.vars, name)
		return nil
	}
	m.vars[name] = value
	return nil
}

// Names returns the variable names in sorted order.
func (m *Map) Names() []string {
	out := make([]string, 0, len(m.vars))
	for k := range m.vars {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// WriteTo writes "name=value" lines in name order.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, k := range m.Names() {
		c, err := io.WriteString(w, k+"="+m.vars[k]+"\n")
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFrom loads "name=value" lines. Blank lines and lines starting with '#'
// are skipped.
func (m *Map) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	sc := bufio.NewScanner(cr)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return cr.n, errcode.New(errcode.BadValue, "env.read", "missing '=' in "+line)
		}
		if err := m.Set(k, v); err != nil {
			return cr.n, err
		}
	}
	return cr.n, sc.Err()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
