package instrument

import "github.com/dfinity/ic-wasm/internal/wasm"

// wireUpgradeHooks amends canister_init to clear is_init once it has run to
// completion, and installs (or extends) canister_pre_upgrade/
// canister_post_upgrade so the five bookkeeping globals -- and therefore the
// log itself -- survive a code upgrade, which otherwise resets every global
// back to its declared initializer (spec.md §4.3.5). Grounded on
// instrumentation.rs's inject_pre_post_upgrade_funcs.
func (s *state) wireUpgradeHooks() {
	s.clearIsInitAtEndOfCanisterInit()
	s.appendToOrCreateExport("canister_pre_upgrade", s.buildPreUpgrade())
	s.appendToOrCreateExport("canister_post_upgrade", s.buildPostUpgrade())
}

// clearIsInitAtEndOfCanisterInit appends `is_init = 0` to the end of
// canister_init's body (creating a no-op canister_init if the module had
// none), so printer calls made after init completes are no longer skipped.
func (s *state) clearIsInitAtEndOfCanisterInit() {
	clearIsInit := func(b *wasm.InstrSeqBuilder) {
		b.I32Const(0)
		b.GlobalSet(uint32(s.isInit))
	}

	if id, ok := s.m.FindExportFunc("canister_init"); ok {
		lf := s.m.Func(id).Local
		if lf != nil {
			clearIsInit(wasm.Builder(lf.Body))
			return
		}
	}

	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	clearIsInit(fb.Body())
	id := fb.Finish()
	s.m.AddExport("canister_init", wasm.ExportFunc, uint32(id))
}

// appendToOrCreateExport splices fn's body into the named export's body if it
// already exists as a local function, or registers fn as a brand-new export
// under that name otherwise.
func (s *state) appendToOrCreateExport(name string, fn wasm.FunctionID) {
	if id, ok := s.m.FindExportFunc(name); ok {
		// The pre-existing export keeps its index; canister_post_upgrade gets
		// the header restore ahead of its own body, every other hook gets the
		// synthesized body appended. fn itself is left unexported.
		if lf := s.m.Func(id).Local; lf != nil {
			extra := s.m.Func(fn).Local.Body.Instrs
			if name == "canister_post_upgrade" {
				wasm.Prepend(lf.Body, extra...)
			} else {
				lf.Body.Instrs = append(lf.Body.Instrs, extra...)
			}
		}
		return
	}
	s.m.AddExport(name, wasm.ExportFunc, uint32(fn))
}

// buildPreUpgrade synthesizes canister_pre_upgrade: it ensures at least one
// stable page is allocated, stages the five-global header into the same
// low-heap scratch region the writer/printer use, and writes it to stable
// offset 0.
func (s *state) buildPreUpgrade() wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	b := fb.Body()

	// Allocate the first stable page lazily, the same way buildWriter does,
	// in case nothing has ever grown stable memory yet.
	b.GlobalGet(uint32(s.pageSize))
	b.Numeric(numOpI32Eqz)
	b.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.I64Const(1)
		tb.Call(s.stableGrow)
		tb.Drop()
		tb.I32Const(1)
		tb.GlobalSet(uint32(s.pageSize))
	}, func(*wasm.InstrSeqBuilder) {})

	b.I32Const(0)
	b.GlobalGet(uint32(s.totalCounter))
	b.MemStore(wasm.Opcode(0x37), 3, 0) // i64.store scratch[0..8) = total_counter

	b.I32Const(0)
	b.GlobalGet(uint32(s.logSize))
	b.MemStore(wasm.Opcode(0x36), 2, 8) // i32.store scratch[8..12) = log_size

	b.I32Const(0)
	b.GlobalGet(uint32(s.pageSize))
	b.MemStore(wasm.Opcode(0x36), 2, 12) // i32.store scratch[12..16) = page_size

	b.I32Const(0)
	b.GlobalGet(uint32(s.isInit))
	b.MemStore(wasm.Opcode(0x36), 2, 16) // i32.store scratch[16..20) = is_init

	b.I32Const(0)
	b.GlobalGet(uint32(s.isEntry))
	b.MemStore(wasm.Opcode(0x36), 2, 20) // i32.store scratch[20..24) = is_entry

	b.I64Const(0) // stable offset
	b.I64Const(0) // heap scratch pointer
	b.I64Const(headerSize)
	b.Call(s.stableWrite)

	return fb.Finish()
}

// buildPostUpgrade synthesizes canister_post_upgrade: the mirror image of
// buildPreUpgrade, reading the persisted header back from stable offset 0
// into the five globals. stable64_read is resolved through IcImport, which
// adds the import when the module does not have it yet.
func (s *state) buildPostUpgrade() wasm.FunctionID {
	stableRead := s.m.IcImport("stable64_read")

	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	b := fb.Body()

	b.I64Const(0) // heap scratch pointer
	b.I64Const(0) // stable offset
	b.I64Const(headerSize)
	b.Call(stableRead)

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x29), 3, 0) // i64.load scratch[0..8)
	b.GlobalSet(uint32(s.totalCounter))

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x28), 2, 8) // i32.load scratch[8..12)
	b.GlobalSet(uint32(s.logSize))

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x28), 2, 12) // i32.load scratch[12..16)
	b.GlobalSet(uint32(s.pageSize))

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x28), 2, 16) // i32.load scratch[16..20)
	b.GlobalSet(uint32(s.isInit))

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x28), 2, 20) // i32.load scratch[20..24)
	b.GlobalSet(uint32(s.isEntry))

	return fb.Finish()
}
