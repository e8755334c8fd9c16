// Package binary implements the Wasm binary codec for internal/wasm's
// object model: Decode parses module bytes into a *wasm.Module (building the
// structured control-flow tree spec.md §9 calls for); Encode rebuilds bytes
// from a mutated Module. Grounded on github.com/tetratelabs/wabin/leb128 for
// varint primitives -- the same dependency tetratelabs/wazerolift pulls in
// to touch raw Wasm bytes from outside wazero's unexported internals.
package binary

import (
	"fmt"

	"github.com/dfinity/ic-wasm/internal/icerr"
	icwasm "github.com/dfinity/ic-wasm/internal/wasm"
)

const (
	wasmMagic   = 0x6D736100 // "\0asm" read little-endian as u32
	wasmVersion = 1
)

func (r *reader) peek() byte {
	if r.pos >= len(r.b) {
		panic(fmt.Errorf("unexpected end of input at offset %d", r.pos))
	}
	return r.b[r.pos]
}

// Decode parses a raw Wasm binary (magic + version + sections) into a
// *wasm.Module. Input must already be gzip-decompressed; see Unwrap.
func Decode(data []byte) (m *icwasm.Module, err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = icerr.WrapParse(e, "parse wasm module")
			} else {
				err = icerr.NewParse("parse wasm module: %v", p)
			}
			m = nil
		}
	}()

	r := newReader(data)
	if len(data) < 8 {
		return nil, icerr.NewParse("input too short to be a wasm module")
	}
	magic := uint32(r.byte()) | uint32(r.byte())<<8 | uint32(r.byte())<<16 | uint32(r.byte())<<24
	if magic != wasmMagic {
		return nil, icerr.NewParse("bad magic header")
	}
	version := uint32(r.byte()) | uint32(r.byte())<<8 | uint32(r.byte())<<16 | uint32(r.byte())<<24
	if version != wasmVersion {
		return nil, icerr.NewParse("unsupported wasm version %d", version)
	}

	d := &decoder{m: icwasm.New()}
	var funcTypeIdxs []uint32 // function section: local func -> type idx, matched with code section in order

	for !r.eof() {
		id := r.byte()
		size := r.u32()
		sectionBytes := r.bytes(size)
		sr := newReader(sectionBytes)
		switch id {
		case 0:
			name := sr.name()
			d.m.AddCustom(name, append([]byte(nil), sr.remaining()...))
		case 1: // Type
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				form := sr.byte()
				if form != 0x60 {
					panic(fmt.Errorf("expected func type tag 0x60, got %#x", form))
				}
				params := decodeValTypeVec(sr)
				results := decodeValTypeVec(sr)
				d.m.Types = append(d.m.Types, icwasm.FuncType{Params: params, Results: results})
			}
		case 2: // Import
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				d.decodeImport(sr)
			}
		case 3: // Function
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				funcTypeIdxs = append(funcTypeIdxs, sr.u32())
			}
		case 4: // Table
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				et := decodeValType(sr.byte())
				lim := decodeLimits(sr)
				d.m.Tables = append(d.m.Tables, icwasm.Table{ElemType: et, Limits: lim})
			}
		case 5: // Memory
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				lim := decodeLimits(sr)
				d.m.Memories = append(d.m.Memories, icwasm.Memory{Limits: lim})
			}
		case 6: // Global
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				vt := decodeValType(sr.byte())
				mut := sr.byte() == 1
				init := decodeConstExpr(sr)
				init.ValType = vt
				d.m.Globals = append(d.m.Globals, icwasm.Global{Type: vt, Mutable: mut, Init: init})
			}
		case 7: // Export
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				name := sr.name()
				kindByte := sr.byte()
				idx := sr.u32()
				var kind icwasm.ExportKind
				switch kindByte {
				case 0x00:
					kind = icwasm.ExportFunc
				case 0x01:
					kind = icwasm.ExportTable
				case 0x02:
					kind = icwasm.ExportMemory
				case 0x03:
					kind = icwasm.ExportGlobal
				default:
					panic(fmt.Errorf("unknown export kind %#x", kindByte))
				}
				d.m.AddExport(name, kind, idx)
			}
		case 8: // Start
			idx := icwasm.FunctionID(sr.u32())
			d.m.Start = &idx
		case 9: // Element
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				d.decodeElem(sr)
			}
		case 10: // Code
			n := sr.u32()
			if int(n) != len(funcTypeIdxs) {
				panic(fmt.Errorf("code section count %d does not match function section count %d", n, len(funcTypeIdxs)))
			}
			for i := uint32(0); i < n; i++ {
				bodySize := sr.u32()
				bodyBytes := sr.bytes(bodySize)
				br := newReader(bodyBytes)
				localCount := br.u32()
				var locals []icwasm.ValType
				for j := uint32(0); j < localCount; j++ {
					cnt := br.u32()
					vt := decodeValType(br.byte())
					for k := uint32(0); k < cnt; k++ {
						locals = append(locals, vt)
					}
				}
				typeIdx := funcTypeIdxs[i]
				sig := d.m.Types[typeIdx]
				body := decodeFuncBody(br, &sig)
				d.m.AddLocalFunc(typeIdx, locals, body)
			}
		case 11: // Data
			n := sr.u32()
			for i := uint32(0); i < n; i++ {
				d.decodeData(sr)
			}
		case 12: // DataCount
			d.m.DataCount = true
			_ = sr.u32()
		default:
			panic(fmt.Errorf("unknown section id %d", id))
		}
	}
	return d.m, nil
}

type decoder struct {
	m *icwasm.Module
}

func decodeValType(b byte) icwasm.ValType { return icwasm.ValType(b) }

func decodeValTypeVec(r *reader) []icwasm.ValType {
	n := r.u32()
	out := make([]icwasm.ValType, n)
	for i := uint32(0); i < n; i++ {
		out[i] = decodeValType(r.byte())
	}
	return out
}

func decodeLimits(r *reader) icwasm.Limits {
	flags := r.byte()
	lim := icwasm.Limits{}
	hasMax := flags&0x01 != 0
	is64 := flags&0x04 != 0 // memory64 proposal flag bit
	lim.Is64Bit = is64
	if is64 {
		lim.Min = r.u64()
		if hasMax {
			lim.Max = r.u64()
			lim.HasMax = true
		}
	} else {
		lim.Min = uint64(r.u32())
		if hasMax {
			lim.Max = uint64(r.u32())
			lim.HasMax = true
		}
	}
	return lim
}

func decodeConstExpr(r *reader) icwasm.GlobalInit {
	op := r.byte()
	var init icwasm.GlobalInit
	switch op {
	case byte(icwasm.OpI32Const):
		init.I32 = r.i32()
	case byte(icwasm.OpI64Const):
		init.I64 = r.i64()
	case byte(icwasm.OpF32Const):
		init.F32 = r.f32bits()
	case byte(icwasm.OpF64Const):
		init.F64 = r.f64bits()
	case byte(icwasm.OpGlobalGet):
		_ = r.u32() // imported global index; not needed for the offsets we rewrite
	case byte(icwasm.OpRefNull):
		_ = r.byte()
		init.IsRefNull = true
	case byte(icwasm.OpRefFunc):
		idx := icwasm.FunctionID(r.u32())
		init.RefFunc = &idx
	default:
		panic(fmt.Errorf("unsupported const expr opcode %#x", op))
	}
	end := r.byte()
	if end != 0x0B {
		panic(fmt.Errorf("expected end (0x0b) after const expr, got %#x", end))
	}
	return init
}

func (d *decoder) decodeImport(r *reader) {
	module := r.name()
	name := r.name()
	kindByte := r.byte()
	imp := icwasm.Import{Module: module, Name: name}
	switch kindByte {
	case 0x00:
		imp.Kind = icwasm.ImportFunc
		imp.TypeIdx = r.u32()
		d.m.Imports = append(d.m.Imports, imp)
		d.m.Funcs = append(d.m.Funcs, icwasm.Function{TypeIdx: imp.TypeIdx, ImportModule: module, ImportName: name})
	case 0x01:
		imp.Kind = icwasm.ImportTable
		imp.TableType = decodeValType(r.byte())
		imp.TableLimits = decodeLimits(r)
		d.m.Imports = append(d.m.Imports, imp)
		d.m.Tables = append(d.m.Tables, icwasm.Table{ElemType: imp.TableType, Limits: imp.TableLimits})
	case 0x02:
		imp.Kind = icwasm.ImportMemory
		imp.MemoryLimits = decodeLimits(r)
		d.m.Imports = append(d.m.Imports, imp)
		d.m.Memories = append(d.m.Memories, icwasm.Memory{Limits: imp.MemoryLimits})
	case 0x03:
		imp.Kind = icwasm.ImportGlobal
		imp.GlobalType = decodeValType(r.byte())
		imp.GlobalMutable = r.byte() == 1
		d.m.Imports = append(d.m.Imports, imp)
		d.m.Globals = append(d.m.Globals, icwasm.Global{Type: imp.GlobalType, Mutable: imp.GlobalMutable})
	default:
		panic(fmt.Errorf("unknown import kind %#x", kindByte))
	}
}

func (d *decoder) decodeElem(r *reader) {
	flags := r.u32()
	el := icwasm.Elem{}
	switch flags {
	case 0:
		el.Active = true
		el.Table = 0
		el.Offset = decodeConstExpr(r)
		n := r.u32()
		for i := uint32(0); i < n; i++ {
			el.FuncIdx = append(el.FuncIdx, icwasm.FunctionID(r.u32()))
		}
	case 1:
		_ = r.byte() // elemkind
		n := r.u32()
		for i := uint32(0); i < n; i++ {
			el.FuncIdx = append(el.FuncIdx, icwasm.FunctionID(r.u32()))
		}
	case 2:
		el.Active = true
		el.Table = icwasm.TableID(r.u32())
		el.Offset = decodeConstExpr(r)
		_ = r.byte()
		n := r.u32()
		for i := uint32(0); i < n; i++ {
			el.FuncIdx = append(el.FuncIdx, icwasm.FunctionID(r.u32()))
		}
	default:
		panic(fmt.Errorf("unsupported element segment flags %d", flags))
	}
	d.m.Elems = append(d.m.Elems, el)
}

func (d *decoder) decodeData(r *reader) {
	flags := r.u32()
	data := icwasm.Data{}
	switch flags {
	case 0:
		data.Mode = icwasm.DataActive
		data.Memory = 0
		data.Offset = decodeConstExpr(r)
		n := r.u32()
		data.Bytes = append([]byte(nil), r.bytes(n)...)
	case 1:
		data.Mode = icwasm.DataPassive
		n := r.u32()
		data.Bytes = append([]byte(nil), r.bytes(n)...)
	case 2:
		data.Mode = icwasm.DataActive
		data.Memory = icwasm.MemoryID(r.u32())
		data.Offset = decodeConstExpr(r)
		n := r.u32()
		data.Bytes = append([]byte(nil), r.bytes(n)...)
	default:
		panic(fmt.Errorf("unsupported data segment flags %d", flags))
	}
	d.m.Datas = append(d.m.Datas, data)
}

// decodeBlockType implements the special-cased blocktype encoding: 0x40 is
// void, a single valtype byte is a one-result block, anything else is a
// signed LEB128 type index.
func decodeBlockType(r *reader) icwasm.InstrSeqType {
	b := r.peek()
	switch b {
	case 0x40:
		r.byte()
		return icwasm.VoidSeqType()
	case byte(icwasm.ValTypeI32), byte(icwasm.ValTypeI64), byte(icwasm.ValTypeF32),
		byte(icwasm.ValTypeF64), byte(icwasm.ValTypeV128), byte(icwasm.ValTypeFuncref), byte(icwasm.ValTypeExternref):
		r.byte()
		return icwasm.SingleSeqType(icwasm.ValType(b))
	default:
		idx := r.s33()
		return icwasm.InstrSeqType{Kind: icwasm.SeqMulti, TypeIdx: uint32(idx)}
	}
}

// decodeFuncBody decodes a function's instruction bytes (after the locals
// prefix has already been consumed) into the structured InstrSeq tree,
// resolving every branch target eagerly against the currently open control
// stack, per spec.md §9's "InstrSeqId references resolved eagerly" approach.
func decodeFuncBody(r *reader, sig *icwasm.FuncType) *icwasm.InstrSeq {
	bodyType := icwasm.VoidSeqType()
	if len(sig.Results) == 1 {
		bodyType = icwasm.SingleSeqType(sig.Results[0])
	} else if len(sig.Results) > 1 {
		bodyType = icwasm.InstrSeqType{Kind: icwasm.SeqMulti}
	}
	root := icwasm.NewInstrSeq(bodyType)
	decodeInstrsInto(r, root, []*icwasm.InstrSeq{root})
	return root
}

// decodeInstrsInto decodes instructions into seq until a matching `end` (or,
// for an `if`, an `else`) is consumed. ctrl is the control stack with seq as
// its top entry, used to resolve br/br_if/br_table targets by relative depth.
// It returns true if the terminator consumed was `else` rather than `end`.
func decodeInstrsInto(r *reader, seq *icwasm.InstrSeq, ctrl []*icwasm.InstrSeq) bool {
	for {
		op := r.byte()
		switch op {
		case 0x0B: // end
			return false
		case 0x05: // else
			return true
		case byte(icwasm.OpUnreachable):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpUnreachable})
		case byte(icwasm.OpNop):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpNop})
		case byte(icwasm.OpBlock):
			bt := decodeBlockType(r)
			inner := icwasm.NewInstrSeq(bt)
			decodeInstrsInto(r, inner, append(ctrl, inner))
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpBlock, Block: inner})
		case byte(icwasm.OpLoop):
			bt := decodeBlockType(r)
			inner := icwasm.NewInstrSeq(bt)
			decodeInstrsInto(r, inner, append(ctrl, inner))
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpLoop, Block: inner})
		case byte(icwasm.OpIf):
			bt := decodeBlockType(r)
			then := icwasm.NewInstrSeq(bt)
			hadElse := decodeInstrsInto(r, then, append(ctrl, then))
			var els *icwasm.InstrSeq
			if hadElse {
				els = icwasm.NewInstrSeq(bt)
				decodeInstrsInto(r, els, append(ctrl, els))
			}
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpIf, Then: then, Else: els})
		case byte(icwasm.OpBr):
			depth := r.u32()
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpBr, BrTarget: resolveDepth(ctrl, depth)})
		case byte(icwasm.OpBrIf):
			depth := r.u32()
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpBrIf, BrTarget: resolveDepth(ctrl, depth)})
		case byte(icwasm.OpBrTable):
			n := r.u32()
			targets := make([]*icwasm.InstrSeq, n)
			for i := uint32(0); i < n; i++ {
				targets[i] = resolveDepth(ctrl, r.u32())
			}
			def := resolveDepth(ctrl, r.u32())
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpBrTable, BrTargets: targets, BrDefault: def})
		case byte(icwasm.OpReturn):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpReturn})
		case byte(icwasm.OpCall):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpCall, FuncIdx: icwasm.FunctionID(r.u32())})
		case byte(icwasm.OpCallInd):
			typeIdx := r.u32()
			tableIdx := r.u32()
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpCallInd, CallIndTypeIdx: typeIdx, CallIndTableIdx: tableIdx})
		case byte(icwasm.OpDrop):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpDrop})
		case byte(icwasm.OpSelect):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpSelect})
		case byte(icwasm.OpSelectT):
			types := decodeValTypeVec(r)
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpSelectT, SelectTypes: types})
		case byte(icwasm.OpLocalGet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpLocalGet, LocalIdx: r.u32()})
		case byte(icwasm.OpLocalSet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpLocalSet, LocalIdx: r.u32()})
		case byte(icwasm.OpLocalTee):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpLocalTee, LocalIdx: r.u32()})
		case byte(icwasm.OpGlobalGet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpGlobalGet, GlobalIdx: r.u32()})
		case byte(icwasm.OpGlobalSet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpGlobalSet, GlobalIdx: r.u32()})
		case byte(icwasm.OpTableGet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableGet, TableIdx: r.u32()})
		case byte(icwasm.OpTableSet):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableSet, TableIdx: r.u32()})
		case byte(icwasm.OpMemorySize):
			_ = r.byte() // reserved memidx byte, always 0 for single-memory modules
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpMemorySize})
		case byte(icwasm.OpMemoryGrow):
			_ = r.byte()
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpMemoryGrow})
		case byte(icwasm.OpI32Const):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpI32Const, I32: r.i32()})
		case byte(icwasm.OpI64Const):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpI64Const, I64: r.i64()})
		case byte(icwasm.OpF32Const):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpF32Const, F32: r.f32bits()})
		case byte(icwasm.OpF64Const):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpF64Const, F64: r.f64bits()})
		case byte(icwasm.OpRefNull):
			rt := decodeValType(r.byte())
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpRefNull, RefType: rt})
		case byte(icwasm.OpRefIsNull):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpRefIsNull})
		case byte(icwasm.OpRefFunc):
			seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpRefFunc, RefFuncIdx: icwasm.FunctionID(r.u32())})
		case 0xFC:
			decodeFC(r, seq)
		case 0xFD:
			decodeFD(r, seq)
		default:
			if op >= 0x28 && op <= 0x3E {
				align := r.u32()
				offset := r.u32()
				seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.Opcode(op), MemArg: icwasm.MemArg{Align: align, Offset: offset}})
			} else if op >= 0x45 && op <= 0xC4 {
				seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpNumeric, NumOp: op})
			} else {
				panic(fmt.Errorf("unsupported opcode %#x", op))
			}
		}
	}
}

func resolveDepth(ctrl []*icwasm.InstrSeq, depth uint32) *icwasm.InstrSeq {
	idx := len(ctrl) - 1 - int(depth)
	if idx < 0 || idx >= len(ctrl) {
		panic(fmt.Errorf("branch depth %d out of range (stack depth %d)", depth, len(ctrl)))
	}
	return ctrl[idx]
}

func decodeFC(r *reader, seq *icwasm.InstrSeq) {
	sub := r.u32()
	switch sub {
	case 0, 1, 2, 3, 4, 5, 6, 7: // *.trunc_sat_* family, no immediate
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpI32TruncSatF32S, NumOp: byte(sub)})
	case 8: // memory.init
		dataIdx := r.u32()
		_ = r.byte() // memidx
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpMemoryInit, DataIdx: dataIdx})
	case 9: // data.drop
		dataIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpDataDrop, DataIdx: dataIdx})
	case 10: // memory.copy
		_ = r.byte()
		_ = r.byte()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpMemoryCopy})
	case 11: // memory.fill
		_ = r.byte()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpMemoryFill})
	case 12: // table.init
		elemIdx := r.u32()
		tableIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableInit, ElemIdx: elemIdx, TableIdx: tableIdx})
	case 13: // elem.drop
		elemIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpElemDrop, ElemIdx: elemIdx})
	case 14: // table.copy
		dstTable := r.u32()
		srcTable := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableCopy, TableIdx: dstTable, SrcTable: srcTable})
	case 15: // table.grow
		tableIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableGrow, TableIdx: tableIdx})
	case 16: // table.size
		tableIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableSize, TableIdx: tableIdx})
	case 17: // table.fill
		tableIdx := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpTableFill, TableIdx: tableIdx})
	default:
		panic(fmt.Errorf("unsupported 0xFC sub-opcode %d", sub))
	}
}

// decodeFD handles the SIMD prefix narrowly: v128.load, v128.store and
// v128.const round-trip; anything else panics. See SPEC_FULL.md Non-goals.
func decodeFD(r *reader, seq *icwasm.InstrSeq) {
	sub := r.u32()
	switch sub {
	case 0: // v128.load
		align := r.u32()
		offset := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpV128Load, MemArg: icwasm.MemArg{Align: align, Offset: offset}})
	case 11: // v128.store
		align := r.u32()
		offset := r.u32()
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpV128Store, MemArg: icwasm.MemArg{Align: align, Offset: offset}})
	case 12: // v128.const
		raw := append([]byte(nil), r.bytes(16)...)
		seq.Instrs = append(seq.Instrs, icwasm.Instr{Op: icwasm.OpV128Const, RawImmediate: raw})
	default:
		panic(fmt.Errorf("unsupported SIMD opcode 0xFD %d (not modeled; see SPEC_FULL.md Non-goals)", sub))
	}
}
