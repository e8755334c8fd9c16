// Package candid hand-rolls the narrow slice of the Candid wire format the
// profiling/query endpoints need to reply with (spec.md §4.3.6): a handful
// of primitive types plus record/vec/opt constructors. No example repo in
// the retrieval pack imports a Candid codec (Candid only exists on the
// Internet Computer), so this is deliberately minimal and built directly
// from the public wire-format grammar rather than adapted from any library
// -- see DESIGN.md for why no Candid library is used. LEB128 varints come
// from wabin/leb128.
package candid

import (
	"bytes"

	"github.com/tetratelabs/wabin/leb128"
)

// Primitive type opcodes, as negative SLEB128 values per the Candid spec.
const (
	primNull     int64 = -1
	primBool     int64 = -2
	primNat      int64 = -3
	primInt      int64 = -4
	primNat8     int64 = -5
	primNat16    int64 = -6
	primNat32    int64 = -7
	primNat64    int64 = -8
	primInt8     int64 = -9
	primInt16    int64 = -10
	primInt32    int64 = -11
	primInt64    int64 = -12
	primFloat32  int64 = -13
	primFloat64  int64 = -14
	primText     int64 = -15
	primReserved int64 = -16
	primEmpty    int64 = -17

	ctorOpt     int64 = -18
	ctorVec     int64 = -19
	ctorRecord  int64 = -20
	ctorVariant int64 = -21
)

func sleb(v int64) []byte { return leb128.EncodeInt64(v) }
func uleb(v uint64) []byte { return leb128.EncodeUint64(v) }

// Field is one record field: a Candid field id (normally the hash of the
// field's name, but a plain small integer is valid and is all the fixed
// endpoints here ever use) and its type reference.
type Field struct {
	ID   uint32
	Type int64 // primitive (negative) or table index (non-negative)
}

// table accumulates constructed-type definitions in declaration order; its
// index space is what non-negative type references point into.
type table struct {
	defs [][]byte
}

func (t *table) add(def []byte) int64 {
	t.defs = append(t.defs, def)
	return int64(len(t.defs) - 1)
}

func (t *table) defineRecord(fields []Field) int64 {
	var b bytes.Buffer
	b.Write(sleb(ctorRecord))
	b.Write(uleb(uint64(len(fields))))
	for _, f := range fields {
		b.Write(uleb(uint64(f.ID)))
		b.Write(sleb(f.Type))
	}
	return t.add(b.Bytes())
}

func (t *table) defineVec(elem int64) int64 {
	var b bytes.Buffer
	b.Write(sleb(ctorVec))
	b.Write(sleb(elem))
	return t.add(b.Bytes())
}

func (t *table) defineOpt(inner int64) int64 {
	var b bytes.Buffer
	b.Write(sleb(ctorOpt))
	b.Write(sleb(inner))
	return t.add(b.Bytes())
}

func (t *table) encode() []byte {
	var b bytes.Buffer
	b.Write(uleb(uint64(len(t.defs))))
	for _, d := range t.defs {
		b.Write(d)
	}
	return b.Bytes()
}

func header() []byte { return []byte("DIDL") }

// EmptyReply is the zero-argument Candid message every toggle endpoint
// replies with: no type table, no arguments.
func EmptyReply() []byte {
	out := header()
	out = append(out, uleb(0)...) // 0 constructed types
	out = append(out, uleb(0)...) // 0 arguments
	return out
}

// CyclesReply encodes the single-int64-argument reply __get_cycles sends
// back: no constructed types needed since int64 is primitive.
func CyclesReply(totalCounter uint64) []byte {
	out := header()
	out = append(out, uleb(0)...)            // 0 constructed types
	out = append(out, uleb(1)...)            // 1 argument
	out = append(out, sleb(primInt64)...)    // its type: int64
	out = append(out, fixedLE(totalCounter, 8)...)
	return out
}

// ProfilingHeader encodes the fixed 18-byte Candid type header __get_profiling
// replies with, ahead of its two arguments: `vec record { 0:int32; 1:int64 }`
// and `opt nat32`. Both arguments are variable-length (the vector's length
// depends on how many log entries are returned, the opt depends on whether
// the result was truncated), so only the type side of the encoding is fixed
// at compile time -- the instrumented module itself appends the LEB128
// vector length, the raw entry bytes, and the opt tag/payload at call time.
func ProfilingHeader() []byte {
	t := &table{}
	rec := t.defineRecord([]Field{{ID: 0, Type: primInt32}, {ID: 1, Type: primInt64}})
	vec := t.defineVec(rec)
	opt := t.defineOpt(primNat32)

	out := header()
	out = append(out, t.encode()...)
	out = append(out, uleb(2)...) // 2 arguments
	out = append(out, sleb(vec)...)
	out = append(out, sleb(opt)...)
	return out
}

// NameEntry pairs a function index with its demangled name for the
// `icp:public name` custom section.
type NameEntry struct {
	Index uint16
	Name  string
}

// NameTableReply encodes `vec record { 0:nat16; 1:text }`, the payload
// instrumentation stores in the `icp:public name` custom section.
func NameTableReply(entries []NameEntry) []byte {
	t := &table{}
	rec := t.defineRecord([]Field{{ID: 0, Type: primNat16}, {ID: 1, Type: primText}})
	vec := t.defineVec(rec)

	out := header()
	out = append(out, t.encode()...)
	out = append(out, uleb(1)...)
	out = append(out, sleb(vec)...)
	out = append(out, uleb(uint64(len(entries)))...)
	for _, e := range entries {
		out = append(out, fixedLE(uint64(e.Index), 2)...)
		out = append(out, uleb(uint64(len(e.Name)))...)
		out = append(out, []byte(e.Name)...)
	}
	return out
}

// fixedLE encodes v as n little-endian bytes, the representation Candid
// uses for all fixed-width numeric types (intN/natN/floatN), as opposed to
// the variable-width nat/int primitives which are LEB128.
func fixedLE(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
