package binary

import (
	icwasm "github.com/dfinity/ic-wasm/internal/wasm"
)

// Encode re-serializes a *wasm.Module to a Wasm binary, emitting every
// section a validator expects in canonical order even when a section is
// empty-but-present is unnecessary (empty sections are simply omitted).
func Encode(m *icwasm.Module) []byte {
	w := &writer{}
	w.byte(0x00)
	w.byte(0x61)
	w.byte(0x73)
	w.byte(0x6D)
	w.byte(1)
	w.byte(0)
	w.byte(0)
	w.byte(0)

	encodeTypeSection(w, m)
	encodeImportSection(w, m)
	encodeFunctionSection(w, m)
	encodeTableSection(w, m)
	encodeMemorySection(w, m)
	encodeGlobalSection(w, m)
	encodeExportSection(w, m)
	encodeStartSection(w, m)
	encodeElementSection(w, m)
	if m.DataCount {
		encodeDataCountSection(w, m)
	}
	encodeCodeSection(w, m)
	encodeDataSection(w, m)
	for _, c := range m.Customs {
		encodeCustomSection(w, c)
	}

	return w.Bytes()
}

// writeSection writes id, then a u32 length prefix, then body.
func writeSection(w *writer, id byte, body []byte) {
	w.byte(id)
	w.u32(uint32(len(body)))
	w.bytes(body)
}

func encodeValType(w *writer, vt icwasm.ValType) { w.byte(byte(vt)) }

func encodeValTypeVec(w *writer, types []icwasm.ValType) {
	vec(w, len(types), func(i int) { encodeValType(w, types[i]) })
}

func encodeLimits(w *writer, lim icwasm.Limits) {
	flags := byte(0)
	if lim.HasMax {
		flags |= 0x01
	}
	if lim.Is64Bit {
		flags |= 0x04
	}
	w.byte(flags)
	if lim.Is64Bit {
		w.u64(lim.Min)
		if lim.HasMax {
			w.u64(lim.Max)
		}
	} else {
		w.u32(uint32(lim.Min))
		if lim.HasMax {
			w.u32(uint32(lim.Max))
		}
	}
}

func encodeConstExpr(w *writer, g icwasm.GlobalInit) {
	switch {
	case g.RefFunc != nil:
		w.byte(byte(icwasm.OpRefFunc))
		w.u32(uint32(*g.RefFunc))
	case g.IsRefNull:
		w.byte(byte(icwasm.OpRefNull))
		encodeValType(w, g.ValType)
	default:
		switch g.ValType {
		case icwasm.ValTypeI64:
			w.byte(byte(icwasm.OpI64Const))
			w.i64(g.I64)
		case icwasm.ValTypeF32:
			w.byte(byte(icwasm.OpF32Const))
			w.f32bits(g.F32)
		case icwasm.ValTypeF64:
			w.byte(byte(icwasm.OpF64Const))
			w.f64bits(g.F64)
		default:
			w.byte(byte(icwasm.OpI32Const))
			w.i32(g.I32)
		}
	}
	w.byte(0x0B)
}

func encodeTypeSection(w *writer, m *icwasm.Module) {
	if len(m.Types) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(m.Types), func(i int) {
		t := m.Types[i]
		body.byte(0x60)
		encodeValTypeVec(body, t.Params)
		encodeValTypeVec(body, t.Results)
	})
	writeSection(w, 1, body.Bytes())
}

func encodeImportSection(w *writer, m *icwasm.Module) {
	if len(m.Imports) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(m.Imports), func(i int) {
		imp := m.Imports[i]
		body.name(imp.Module)
		body.name(imp.Name)
		switch imp.Kind {
		case icwasm.ImportFunc:
			body.byte(0x00)
			body.u32(imp.TypeIdx)
		case icwasm.ImportTable:
			body.byte(0x01)
			encodeValType(body, imp.TableType)
			encodeLimits(body, imp.TableLimits)
		case icwasm.ImportMemory:
			body.byte(0x02)
			encodeLimits(body, imp.MemoryLimits)
		case icwasm.ImportGlobal:
			body.byte(0x03)
			encodeValType(body, imp.GlobalType)
			if imp.GlobalMutable {
				body.byte(1)
			} else {
				body.byte(0)
			}
		}
	})
	writeSection(w, 2, body.Bytes())
}

// localFuncs returns the FunctionIDs of locally defined functions, in order.
func localFuncs(m *icwasm.Module) []icwasm.FunctionID {
	var out []icwasm.FunctionID
	for i := range m.Funcs {
		if m.Funcs[i].Local != nil {
			out = append(out, icwasm.FunctionID(i))
		}
	}
	return out
}

func encodeFunctionSection(w *writer, m *icwasm.Module) {
	ids := localFuncs(m)
	if len(ids) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(ids), func(i int) { body.u32(m.Funcs[ids[i]].TypeIdx) })
	writeSection(w, 3, body.Bytes())
}

func encodeTableSection(w *writer, m *icwasm.Module) {
	// Only locally declared tables (not imported) belong in this section; we
	// don't currently synthesize tables, so all of m.Tables minus imported
	// ones in order would need tracking -- in practice no pass adds tables,
	// so this mirrors however many entries weren't sourced from an import.
	importedTables := 0
	for _, imp := range m.Imports {
		if imp.Kind == icwasm.ImportTable {
			importedTables++
		}
	}
	local := m.Tables[importedTables:]
	if len(local) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(local), func(i int) {
		encodeValType(body, local[i].ElemType)
		encodeLimits(body, local[i].Limits)
	})
	writeSection(w, 4, body.Bytes())
}

func encodeMemorySection(w *writer, m *icwasm.Module) {
	importedMem := 0
	for _, imp := range m.Imports {
		if imp.Kind == icwasm.ImportMemory {
			importedMem++
		}
	}
	local := m.Memories[importedMem:]
	if len(local) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(local), func(i int) { encodeLimits(body, local[i].Limits) })
	writeSection(w, 5, body.Bytes())
}

func encodeGlobalSection(w *writer, m *icwasm.Module) {
	importedGlobals := 0
	for _, imp := range m.Imports {
		if imp.Kind == icwasm.ImportGlobal {
			importedGlobals++
		}
	}
	local := m.Globals[importedGlobals:]
	if len(local) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(local), func(i int) {
		g := local[i]
		encodeValType(body, g.Type)
		if g.Mutable {
			body.byte(1)
		} else {
			body.byte(0)
		}
		init := g.Init
		init.ValType = g.Type
		encodeConstExpr(body, init)
	})
	writeSection(w, 6, body.Bytes())
}

func encodeExportSection(w *writer, m *icwasm.Module) {
	if len(m.Exports) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(m.Exports), func(i int) {
		e := m.Exports[i]
		body.name(e.Name)
		switch e.Kind {
		case icwasm.ExportFunc:
			body.byte(0x00)
		case icwasm.ExportTable:
			body.byte(0x01)
		case icwasm.ExportMemory:
			body.byte(0x02)
		case icwasm.ExportGlobal:
			body.byte(0x03)
		}
		body.u32(e.Idx)
	})
	writeSection(w, 7, body.Bytes())
}

func encodeStartSection(w *writer, m *icwasm.Module) {
	if m.Start == nil {
		return
	}
	body := &writer{}
	body.u32(uint32(*m.Start))
	writeSection(w, 8, body.Bytes())
}

func encodeElementSection(w *writer, m *icwasm.Module) {
	if len(m.Elems) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(m.Elems), func(i int) {
		el := m.Elems[i]
		if el.Active && el.Table == 0 {
			body.u32(0)
			encodeConstExpr(body, el.Offset)
			vec(body, len(el.FuncIdx), func(j int) { body.u32(uint32(el.FuncIdx[j])) })
		} else if el.Active {
			body.u32(2)
			body.u32(uint32(el.Table))
			encodeConstExpr(body, el.Offset)
			body.byte(0x00) // elemkind funcref
			vec(body, len(el.FuncIdx), func(j int) { body.u32(uint32(el.FuncIdx[j])) })
		} else {
			body.u32(1)
			body.byte(0x00)
			vec(body, len(el.FuncIdx), func(j int) { body.u32(uint32(el.FuncIdx[j])) })
		}
	})
	writeSection(w, 9, body.Bytes())
}

func encodeDataCountSection(w *writer, m *icwasm.Module) {
	body := &writer{}
	body.u32(uint32(len(m.Datas)))
	writeSection(w, 12, body.Bytes())
}

func encodeCodeSection(w *writer, m *icwasm.Module) {
	ids := localFuncs(m)
	if len(ids) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(ids), func(i int) {
		lf := m.Funcs[ids[i]].Local
		fb := &writer{}
		encodeLocalsDecl(fb, lf.Locals)
		encodeInstrs(fb, lf.Body.Instrs, []*icwasm.InstrSeq{lf.Body})
		fb.byte(0x0B) // end
		body.u32(uint32(len(fb.Bytes())))
		body.bytes(fb.Bytes())
	})
	writeSection(w, 10, body.Bytes())
}

// encodeLocalsDecl groups consecutive identical-typed locals into runs, the
// way every real encoder does to keep the locals vector small.
func encodeLocalsDecl(w *writer, locals []icwasm.ValType) {
	type run struct {
		vt  icwasm.ValType
		cnt uint32
	}
	var runs []run
	for _, vt := range locals {
		if len(runs) > 0 && runs[len(runs)-1].vt == vt {
			runs[len(runs)-1].cnt++
		} else {
			runs = append(runs, run{vt: vt, cnt: 1})
		}
	}
	vec(w, len(runs), func(i int) {
		w.u32(runs[i].cnt)
		encodeValType(w, runs[i].vt)
	})
}

func encodeDataSection(w *writer, m *icwasm.Module) {
	if len(m.Datas) == 0 {
		return
	}
	body := &writer{}
	vec(body, len(m.Datas), func(i int) {
		d := m.Datas[i]
		switch {
		case d.Mode == icwasm.DataActive && d.Memory == 0:
			body.u32(0)
			encodeConstExpr(body, d.Offset)
			body.u32(uint32(len(d.Bytes)))
			body.bytes(d.Bytes)
		case d.Mode == icwasm.DataActive:
			body.u32(2)
			body.u32(uint32(d.Memory))
			encodeConstExpr(body, d.Offset)
			body.u32(uint32(len(d.Bytes)))
			body.bytes(d.Bytes)
		default:
			body.u32(1)
			body.u32(uint32(len(d.Bytes)))
			body.bytes(d.Bytes)
		}
	})
	writeSection(w, 11, body.Bytes())
}

func encodeCustomSection(w *writer, c icwasm.CustomSection) {
	body := &writer{}
	body.name(c.Name)
	body.bytes(c.Bytes)
	writeSection(w, 0, body.Bytes())
}

// encodeBlockType is the inverse of decodeBlockType.
func encodeBlockType(w *writer, t icwasm.InstrSeqType) {
	switch t.Kind {
	case icwasm.SeqVoid:
		w.byte(0x40)
	case icwasm.SeqSingle:
		encodeValType(w, t.Single)
	default:
		w.s33(int64(t.TypeIdx))
	}
}

// encodeInstrs emits a flat instruction list (a function body or block
// contents); the trailing `end`/`else` marker is the caller's responsibility.
// ctrl is the stack of enclosing InstrSeqs (innermost last), used to compute
// relative branch depths the same way decodeInstrsInto resolves them.
func encodeInstrs(w *writer, instrs []icwasm.Instr, ctrl []*icwasm.InstrSeq) {
	for i := range instrs {
		encodeInstr(w, &instrs[i], ctrl)
	}
}

func encodeInstr(w *writer, in *icwasm.Instr, ctrl []*icwasm.InstrSeq) {
	switch in.Op {
	case icwasm.OpUnreachable, icwasm.OpNop, icwasm.OpReturn, icwasm.OpDrop, icwasm.OpSelect,
		icwasm.OpRefIsNull:
		w.byte(byte(in.Op))
	case icwasm.OpBlock:
		w.byte(byte(icwasm.OpBlock))
		encodeBlockType(w, in.Block.Type)
		encodeInstrs(w, in.Block.Instrs, append(ctrl, in.Block))
		w.byte(0x0B)
	case icwasm.OpLoop:
		w.byte(byte(icwasm.OpLoop))
		encodeBlockType(w, in.Block.Type)
		encodeInstrs(w, in.Block.Instrs, append(ctrl, in.Block))
		w.byte(0x0B)
	case icwasm.OpIf:
		w.byte(byte(icwasm.OpIf))
		encodeBlockType(w, in.Then.Type)
		encodeInstrs(w, in.Then.Instrs, append(ctrl, in.Then))
		if in.Else != nil {
			w.byte(0x05)
			encodeInstrs(w, in.Else.Instrs, append(ctrl, in.Else))
		}
		w.byte(0x0B)
	case icwasm.OpBr:
		w.byte(byte(icwasm.OpBr))
		w.u32(depthOf(ctrl, in.BrTarget))
	case icwasm.OpBrIf:
		w.byte(byte(icwasm.OpBrIf))
		w.u32(depthOf(ctrl, in.BrTarget))
	case icwasm.OpBrTable:
		w.byte(byte(icwasm.OpBrTable))
		vec(w, len(in.BrTargets), func(i int) { w.u32(depthOf(ctrl, in.BrTargets[i])) })
		w.u32(depthOf(ctrl, in.BrDefault))
	case icwasm.OpCall:
		w.byte(byte(icwasm.OpCall))
		w.u32(uint32(in.FuncIdx))
	case icwasm.OpCallInd:
		w.byte(byte(icwasm.OpCallInd))
		w.u32(in.CallIndTypeIdx)
		w.u32(in.CallIndTableIdx)
	case icwasm.OpSelectT:
		w.byte(byte(icwasm.OpSelectT))
		encodeValTypeVec(w, in.SelectTypes)
	case icwasm.OpLocalGet, icwasm.OpLocalSet, icwasm.OpLocalTee:
		w.byte(byte(in.Op))
		w.u32(in.LocalIdx)
	case icwasm.OpGlobalGet, icwasm.OpGlobalSet:
		w.byte(byte(in.Op))
		w.u32(in.GlobalIdx)
	case icwasm.OpTableGet, icwasm.OpTableSet:
		w.byte(byte(in.Op))
		w.u32(in.TableIdx)
	case icwasm.OpMemorySize, icwasm.OpMemoryGrow:
		w.byte(byte(in.Op))
		w.byte(0x00)
	case icwasm.OpI32Const:
		w.byte(byte(icwasm.OpI32Const))
		w.i32(in.I32)
	case icwasm.OpI64Const:
		w.byte(byte(icwasm.OpI64Const))
		w.i64(in.I64)
	case icwasm.OpF32Const:
		w.byte(byte(icwasm.OpF32Const))
		w.f32bits(in.F32)
	case icwasm.OpF64Const:
		w.byte(byte(icwasm.OpF64Const))
		w.f64bits(in.F64)
	case icwasm.OpRefNull:
		w.byte(byte(icwasm.OpRefNull))
		encodeValType(w, in.RefType)
	case icwasm.OpRefFunc:
		w.byte(byte(icwasm.OpRefFunc))
		w.u32(uint32(in.RefFuncIdx))
	case icwasm.OpMemoryInit:
		w.byte(0xFC)
		w.u32(8)
		w.u32(in.DataIdx)
		w.byte(0x00)
	case icwasm.OpDataDrop:
		w.byte(0xFC)
		w.u32(9)
		w.u32(in.DataIdx)
	case icwasm.OpMemoryCopy:
		w.byte(0xFC)
		w.u32(10)
		w.byte(0x00)
		w.byte(0x00)
	case icwasm.OpMemoryFill:
		w.byte(0xFC)
		w.u32(11)
		w.byte(0x00)
	case icwasm.OpTableInit:
		w.byte(0xFC)
		w.u32(12)
		w.u32(in.ElemIdx)
		w.u32(in.TableIdx)
	case icwasm.OpElemDrop:
		w.byte(0xFC)
		w.u32(13)
		w.u32(in.ElemIdx)
	case icwasm.OpTableCopy:
		w.byte(0xFC)
		w.u32(14)
		w.u32(in.TableIdx)
		w.u32(in.SrcTable)
	case icwasm.OpTableGrow:
		w.byte(0xFC)
		w.u32(15)
		w.u32(in.TableIdx)
	case icwasm.OpTableSize:
		w.byte(0xFC)
		w.u32(16)
		w.u32(in.TableIdx)
	case icwasm.OpTableFill:
		w.byte(0xFC)
		w.u32(17)
		w.u32(in.TableIdx)
	case icwasm.OpI32TruncSatF32S:
		w.byte(0xFC)
		w.u32(uint32(in.NumOp))
	case icwasm.OpV128Load:
		w.byte(0xFD)
		w.u32(0)
		w.u32(in.MemArg.Align)
		w.u32(in.MemArg.Offset)
	case icwasm.OpV128Store:
		w.byte(0xFD)
		w.u32(11)
		w.u32(in.MemArg.Align)
		w.u32(in.MemArg.Offset)
	case icwasm.OpV128Const:
		w.byte(0xFD)
		w.u32(12)
		w.bytes(in.RawImmediate)
	case icwasm.OpNumeric:
		w.byte(in.NumOp)
	default:
		if byte(in.Op) >= 0x28 && byte(in.Op) <= 0x3E {
			w.byte(byte(in.Op))
			w.u32(in.MemArg.Align)
			w.u32(in.MemArg.Offset)
		} else {
			panic(errUnencodableOp(in.Op))
		}
	}
}

type errUnencodableOp icwasm.Opcode

func (e errUnencodableOp) Error() string { return "binary: unencodable opcode" }

// depthOf computes the relative branch depth (innermost enclosing sequence is
// depth 0) from ctrl to target, the inverse of decode's resolveDepth.
func depthOf(ctrl []*icwasm.InstrSeq, target *icwasm.InstrSeq) uint32 {
	for i := len(ctrl) - 1; i >= 0; i-- {
		if ctrl[i] == target {
			return uint32(len(ctrl) - 1 - i)
		}
	}
	panic(errBadBranchTarget{})
}

type errBadBranchTarget struct{}

func (errBadBranchTarget) Error() string {
	return "binary: branch target is not an enclosing InstrSeq"
}
