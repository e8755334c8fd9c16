package limiter

import "github.com/dfinity/ic-wasm/internal/wasm"

// limitHeapGrowth caps memory.grow at limit pages, cumulatively. Unlike
// limitStableGrowth this traps on overflow rather than returning -1: the
// retained upstream behavior (a quiet failure return) lets a canister treat
// "the tool capped you" identically to "the host is genuinely out of
// memory" and keep running past a boundary the operator meant to be hard,
// which is exactly the gap spec.md's safety invariant calls out. Grounded on
// limit_resource.rs's limit_heap_memory_page, redesigned per that invariant.
func limitHeapGrowth(m *wasm.Module, limit uint32, skip map[wasm.FunctionID]bool) {
	clampMemoryDeclaration(m, limit)

	guard := buildHeapGuard(m, limit)
	skip[guard] = true

	for i := range m.Funcs {
		id := wasm.FunctionID(i)
		if skip[id] {
			continue
		}
		lf := m.Funcs[i].Local
		if lf == nil {
			continue
		}
		replaceMemoryGrow(lf.Body, guard)
	}
}

// clampMemoryDeclaration shrinks the module's own declared memory limits to
// match, the way limit_resource.rs's limit_heap_memory does: engines refuse a
// memory.grow past the declared maximum on their own, so this is a second,
// static line of defense alongside buildHeapGuard's explicit trap.
func clampMemoryDeclaration(m *wasm.Module, limit uint32) {
	if len(m.Memories) == 0 {
		return
	}
	mem := &m.Memories[0]
	if mem.Limits.Min > uint64(limit) {
		mem.Limits.Min = uint64(limit)
	}
	mem.Limits.Max = uint64(limit)
	mem.Limits.HasMax = true
}

func buildHeapGuard(m *wasm.Module, limit uint32) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(m, []wasm.ValType{wasm.ValTypeI32}, []wasm.ValType{wasm.ValTypeI32})
	delta := uint32(0)
	b := fb.Body()

	b.MemorySize()
	b.LocalGet(delta)
	b.Numeric(numOpI32Add)
	b.I32Const(int32(limit))
	b.Numeric(numOpI32GtU)
	b.IfElse(wasm.SingleSeqType(wasm.ValTypeI32), func(tb *wasm.InstrSeqBuilder) {
		tb.Unreachable()
	}, func(eb *wasm.InstrSeqBuilder) {
		eb.LocalGet(delta)
		eb.MemoryGrow()
	})

	return fb.Finish()
}

func replaceMemoryGrow(seq *wasm.InstrSeq, guard wasm.FunctionID) {
	for i := range seq.Instrs {
		in := &seq.Instrs[i]
		switch in.Op {
		case wasm.OpMemoryGrow:
			*in = wasm.Instr{Op: wasm.OpCall, FuncIdx: guard}
		case wasm.OpBlock, wasm.OpLoop:
			replaceMemoryGrow(in.Block, guard)
		case wasm.OpIf:
			replaceMemoryGrow(in.Then, guard)
			if in.Else != nil {
				replaceMemoryGrow(in.Else, guard)
			}
		}
	}
}
