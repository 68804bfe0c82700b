package fdt

import "golang.org/x/exp/constraints"

type kind uint8

const (
	kindEmpty kind = iota
	kindU32
	kindString
	kindStrings
	kindBytes
	kindCells32
	kindCells64
)

// Value is an encoded property value.
type Value struct {
	k kind
	b []byte
}

// Raw returns the encoded bytes.
func (v Value) Raw() []byte { return v.b }

func (v Value) stringShaped() bool { return v.k == kindString || v.k == kindStrings }

// Empty is a boolean (present/absent) property.
func Empty() Value { return Value{k: kindEmpty} }

func U32(x uint32) Value { return Value{k: kindU32, b: be.AppendUint32(nil, x)} }

func String(s string) Value {
	return Value{k: kindString, b: append([]byte(s), 0)}
}

// Strings is a NUL-separated string list.
func Strings(ss ...string) Value {
	var b []byte
	for _, s := range ss {
		b = append(b, s...)
		b = append(b, 0)
	}
	return Value{k: kindStrings, b: b}
}

func Bytes(b []byte) Value { return Value{k: kindBytes, b: append([]byte(nil), b...)} }

func Cells32(v ...uint32) Value { return Value{k: kindCells32, b: encodeCells(4, v)} }

func Cells64(v ...uint64) Value { return Value{k: kindCells64, b: encodeCells(8, v)} }

// Cells encodes any integers as 32-bit cells. Values are truncated to 32 bits.
func Cells[T constraints.Integer](v ...T) Value {
	return Value{k: kindCells32, b: encodeCells(4, v)}
}

func encodeCells[T constraints.Integer](width int, vals []T) []byte {
	b := make([]byte, 0, width*len(vals))
	for _, v := range vals {
		x := uint64(v)
		for i := width - 1; i >= 0; i-- {
			b = append(b, byte(x>>(8*i)))
		}
	}
	return b
}

// Status is the standard "status" property.
type Status uint8

const (
	StatusOkay Status = iota
	StatusDisabled
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOkay:
		return "okay"
	case StatusDisabled:
		return "disabled"
	default:
		return "fail"
	}
}
