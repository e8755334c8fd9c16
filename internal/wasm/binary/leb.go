package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wabin/leb128"
)

// reader is a minimal byte cursor used throughout the decoder. It panics on
// underflow, which the top-level Decode recovers from and turns into an
// *icerr.Error{Kind: Parse} -- per spec.md §7, malformed input is a Parse
// error, not a crash the caller has to guard every call site against.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) byte() byte {
	if r.pos >= len(r.b) {
		panic(fmt.Errorf("unexpected end of input at offset %d", r.pos))
	}
	b := r.b[r.pos]
	r.pos++
	return b
}

func (r *reader) bytes(n uint32) []byte {
	if r.pos+int(n) > len(r.b) {
		panic(fmt.Errorf("unexpected end of input at offset %d (want %d bytes)", r.pos, n))
	}
	out := r.b[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out
}

func (r *reader) remaining() []byte { return r.b[r.pos:] }

func (r *reader) eof() bool { return r.pos >= len(r.b) }

func (r *reader) u32() uint32 {
	v, n, err := leb128.DecodeUint32(bytes.NewReader(r.b[r.pos:]))
	if err != nil {
		panic(fmt.Errorf("leb128 u32 at offset %d: %w", r.pos, err))
	}
	r.pos += int(n)
	return v
}

func (r *reader) u64() uint64 {
	v, n, err := leb128.DecodeUint64(bytes.NewReader(r.b[r.pos:]))
	if err != nil {
		panic(fmt.Errorf("leb128 u64 at offset %d: %w", r.pos, err))
	}
	r.pos += int(n)
	return v
}

func (r *reader) i32() int32 {
	v, n, err := leb128.DecodeInt32(bytes.NewReader(r.b[r.pos:]))
	if err != nil {
		panic(fmt.Errorf("leb128 s32 at offset %d: %w", r.pos, err))
	}
	r.pos += int(n)
	return v
}

func (r *reader) i64() int64 {
	v, n, err := leb128.DecodeInt64(bytes.NewReader(r.b[r.pos:]))
	if err != nil {
		panic(fmt.Errorf("leb128 s64 at offset %d: %w", r.pos, err))
	}
	r.pos += int(n)
	return v
}

// s33 decodes a signed 33-bit LEB128, used only by Wasm's blocktype
// encoding. wabin's leb128 package tops out at 32/64-bit helpers, so
// blocktype (which never legitimately needs bit 33 for the type-index case
// in any module this tool handles) is decoded with the 64-bit signed path
// and narrowed.
func (r *reader) s33() int64 {
	return r.i64()
}

func (r *reader) name() string {
	n := r.u32()
	return string(r.bytes(n))
}

func (r *reader) f32bits() uint32 {
	b := r.bytes(4)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (r *reader) f64bits() uint64 {
	b := r.bytes(8)
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// writer accumulates encoded bytes.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) { w.buf.WriteByte(b) }

func (w *writer) bytes(b []byte) { w.buf.Write(b) }

func (w *writer) u32(v uint32) { w.bytes(leb128.EncodeUint32(v)) }

func (w *writer) u64(v uint64) { w.bytes(leb128.EncodeUint64(v)) }

func (w *writer) i32(v int32) { w.bytes(leb128.EncodeInt32(v)) }

func (w *writer) i64(v int64) { w.bytes(leb128.EncodeInt64(v)) }

func (w *writer) s33(v int64) { w.bytes(leb128.EncodeInt64(v)) }

func (w *writer) f32bits(v uint32) {
	w.byte(byte(v))
	w.byte(byte(v >> 8))
	w.byte(byte(v >> 16))
	w.byte(byte(v >> 24))
}

func (w *writer) f64bits(v uint64) {
	for i := 0; i < 8; i++ {
		w.byte(byte(v >> (8 * i)))
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.bytes([]byte(s))
}

// vec writes a u32 count prefix, then calls emit(i) for i in [0,n).
func vec(w *writer, n int, emit func(i int)) {
	w.u32(uint32(n))
	for i := 0; i < n; i++ {
		emit(i)
	}
}

func (w *writer) Bytes() []byte { return w.buf.Bytes() }
