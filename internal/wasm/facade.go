package wasm

import "github.com/dfinity/ic-wasm/internal/demangle"

// icImportSig describes one ic0 system API import's fixed signature, keyed
// by method name. Mirrors utils.rs's hardcoded catalogue: every method this
// tool ever needs to call (to meter, trace, or neutralize) is enumerated
// once here rather than re-derived from an imported type section.
var icImportSig = map[string]FuncType{
	"stable_write":           {Params: []ValType{ValTypeI32, ValTypeI32, ValTypeI32}},
	"stable64_write":         {Params: []ValType{ValTypeI64, ValTypeI64, ValTypeI64}},
	"stable_read":            {Params: []ValType{ValTypeI32, ValTypeI32, ValTypeI32}},
	"stable64_read":          {Params: []ValType{ValTypeI64, ValTypeI64, ValTypeI64}},
	"stable_grow":            {Params: []ValType{ValTypeI32}, Results: []ValType{ValTypeI32}},
	"stable64_grow":          {Params: []ValType{ValTypeI64}, Results: []ValType{ValTypeI64}},
	"stable_size":            {Results: []ValType{ValTypeI32}},
	"stable64_size":          {Results: []ValType{ValTypeI64}},
	"call_cycles_add":        {Params: []ValType{ValTypeI64}},
	"call_cycles_add128":     {Params: []ValType{ValTypeI64, ValTypeI64}},
	"cycles_burn128":         {Params: []ValType{ValTypeI64, ValTypeI64, ValTypeI32}},
	"debug_print":            {Params: []ValType{ValTypeI32, ValTypeI32}},
	"trap":                   {Params: []ValType{ValTypeI32, ValTypeI32}},
	"msg_reply_data_append":  {Params: []ValType{ValTypeI32, ValTypeI32}},
	"msg_reply":              {},
	"msg_arg_data_size":      {Results: []ValType{ValTypeI32}},
	"msg_arg_data_copy":      {Params: []ValType{ValTypeI32, ValTypeI32, ValTypeI32}},
	"call_new": {Params: []ValType{
		ValTypeI32, ValTypeI32, // callee_src, callee_size
		ValTypeI32, ValTypeI32, // name_src, name_size
		ValTypeI32, ValTypeI32, // reply_fun, reply_env
		ValTypeI32, ValTypeI32, // reject_fun, reject_env
	}},
}

// IcImport finds or creates the ic0 import for method, returning its
// FunctionID. Grounded on utils.rs's get_ic_func_id: callers never need to
// know whether the host module already imported the symbol.
func (m *Module) IcImport(method string) FunctionID {
	if id, ok := m.FindImportFunc("ic0", method); ok {
		return id
	}
	sig, ok := icImportSig[method]
	if !ok {
		panic("wasm: unknown ic0 method " + method)
	}
	typeIdx := m.AddType(sig.Params, sig.Results)
	return m.AddImportFunc("ic0", method, typeIdx)
}

// MemoryID returns the module's single linear memory, panicking if there is
// none or more than one -- per utils.rs's get_memory_id, this tool only ever
// targets single-memory canister modules.
func (m *Module) MemoryID() MemoryID {
	if len(m.Memories) != 1 {
		panic("wasm: exactly one memory is supported")
	}
	return 0
}

// FuncName returns a demangled, human-readable name for id, falling back to
// "func_N" when the function carries no name -- per utils.rs's get_func_name.
func (m *Module) FuncName(id FunctionID) string {
	name := m.Funcs[id].Name
	if name == "" {
		return syntheticFuncName(id)
	}
	return demangle.Name(name)
}

func syntheticFuncName(id FunctionID) string {
	return "func_" + itoa(uint32(id))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Prepend inserts instrs at the start of seq's body, preserving their given
// order -- per utils.rs's inject_top, which repeatedly does instr_at(0, ..)
// in reverse; here we just splice the slice directly since Go has no walrus
// InstrSeqBuilder position cursor to fight with.
func Prepend(seq *InstrSeq, instrs ...Instr) {
	seq.Instrs = append(append([]Instr{}, instrs...), seq.Instrs...)
}

// motokoEmbeddedMagic is the 4-byte Motoko "blob of wasm" framing tag, per
// utils.rs's is_motoko_wasm_data_section: 0x11 0x00 0x00 0x00.
var motokoEmbeddedMagic = [4]byte{0x11, 0x00, 0x00, 0x00}

// IsMotokoWasmDataSection reports whether a data segment's bytes are a
// length-framed embedded Wasm module, the shape Motoko emits for an
// actor class's installed-at-runtime companion module.
func IsMotokoWasmDataSection(b []byte) bool {
	if len(b) < 8 {
		return false
	}
	if b[0] != motokoEmbeddedMagic[0] || b[1] != motokoEmbeddedMagic[1] || b[2] != motokoEmbeddedMagic[2] || b[3] != motokoEmbeddedMagic[3] {
		return false
	}
	declaredLen := uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24
	if len(b) < 8+4 {
		return false
	}
	if b[8] != 0x00 || b[9] != 0x61 || b[10] != 0x73 || b[11] != 0x6D {
		return false
	}
	return int(declaredLen)+8 == len(b)
}

// EncodeEmbedded re-frames inner's raw bytes in the Motoko embedded-module
// layout, the inverse of IsMotokoWasmDataSection's unwrap.
func EncodeEmbedded(inner []byte) []byte {
	out := make([]byte, 0, 8+len(inner))
	out = append(out, motokoEmbeddedMagic[:]...)
	n := uint32(len(inner))
	out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	out = append(out, inner...)
	return out
}

// IsMotokoCanister reports whether m was compiled by the Motoko compiler,
// per utils.rs's is_motoko_canister: either a "motoko:compiler" custom
// section, or the __motoko_async_helper export marker.
func (m *Module) IsMotokoCanister() bool {
	for _, c := range m.Customs {
		if c.Name == "icp:public motoko:compiler" || c.Name == "icp:private motoko:compiler" {
			return true
		}
	}
	_, ok := m.FindExportFunc("canister_update __motoko_async_helper")
	return ok
}
