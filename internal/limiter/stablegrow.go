package limiter

import "github.com/dfinity/ic-wasm/internal/wasm"

// limitStableGrowth caps stable_grow/stable64_grow at limit pages,
// cumulatively: any call that would push the canister's stable memory past
// that ceiling fails exactly the way an out-of-memory stable_grow already
// can, returning -1, rather than trapping. Grounded on limit_resource.rs's
// limit_stable_memory_page.
func limitStableGrowth(m *wasm.Module, limit uint32, skip map[wasm.FunctionID]bool) {
	if id, sizeID, ok := growAndSize(m, "stable_grow", "stable_size"); ok {
		wrapper := build32Wrapper(m, id, sizeID, limit)
		skip[wrapper] = true
		redirect(m, id, wrapper, skip)
	}
	if id, sizeID, ok := growAndSize(m, "stable64_grow", "stable64_size"); ok {
		wrapper := build64Wrapper(m, id, sizeID, uint64(limit))
		skip[wrapper] = true
		redirect(m, id, wrapper, skip)
	}
}

func growAndSize(m *wasm.Module, growName, sizeName string) (grow, size wasm.FunctionID, ok bool) {
	grow, ok = m.FindImportFunc("ic0", growName)
	if !ok {
		return 0, 0, false
	}
	size = m.IcImport(sizeName)
	return grow, size, true
}

// build32Wrapper synthesizes `(delta i32) -> i32`: grants the grow only if
// stable_size() + delta stays within limit.
func build32Wrapper(m *wasm.Module, grow, size wasm.FunctionID, limit uint32) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(m, []wasm.ValType{wasm.ValTypeI32}, []wasm.ValType{wasm.ValTypeI32})
	delta := uint32(0)
	b := fb.Body()

	b.Call(size)
	b.LocalGet(delta)
	b.Numeric(numOpI32Add)
	b.I32Const(int32(limit))
	b.Numeric(numOpI32GtS)
	b.IfElse(wasm.SingleSeqType(wasm.ValTypeI32), func(tb *wasm.InstrSeqBuilder) {
		tb.I32Const(-1)
	}, func(eb *wasm.InstrSeqBuilder) {
		eb.LocalGet(delta)
		eb.Call(grow)
	})

	return fb.Finish()
}

// build64Wrapper is build32Wrapper's i64 counterpart for stable64_grow.
func build64Wrapper(m *wasm.Module, grow, size wasm.FunctionID, limit uint64) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(m, []wasm.ValType{wasm.ValTypeI64}, []wasm.ValType{wasm.ValTypeI64})
	delta := uint32(0)
	b := fb.Body()

	b.Call(size)
	b.LocalGet(delta)
	b.Numeric(numOpI64Add)
	b.I64Const(int64(limit))
	b.Numeric(numOpI64GtS)
	b.IfElse(wasm.SingleSeqType(wasm.ValTypeI64), func(tb *wasm.InstrSeqBuilder) {
		tb.I64Const(-1)
	}, func(eb *wasm.InstrSeqBuilder) {
		eb.LocalGet(delta)
		eb.Call(grow)
	})

	return fb.Finish()
}

// redirect rewrites every call to from into a call to to, across every
// function not in skip.
func redirect(m *wasm.Module, from, to wasm.FunctionID, skip map[wasm.FunctionID]bool) {
	r := &wasm.CallRewriter{
		Rewrite: func(target wasm.FunctionID) ([]wasm.Instr, bool) {
			if target != from {
				return nil, false
			}
			return []wasm.Instr{{Op: wasm.OpCall, FuncIdx: to}}, true
		},
	}
	r.Apply(m, skip)
}
