package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpgradeState(t *testing.T) *state {
	t.Helper()
	m := wasm.New()
	s := &state{m: m}
	s.totalCounter = m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	s.logSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.pageSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.isInit = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32, I32: 1})
	s.isEntry = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.stableGrow = m.IcImport("stable64_grow")
	s.stableWrite = m.IcImport("stable64_write")
	return s
}

func TestClearIsInitAtEndOfCanisterInitCreatesExportWhenMissing(t *testing.T) {
	s := newUpgradeState(t)
	s.clearIsInitAtEndOfCanisterInit()

	id, ok := s.m.FindExportFunc("canister_init")
	require.True(t, ok)
	instrs := s.m.Funcs[id].Local.Body.Instrs
	require.Len(t, instrs, 2)
	assert.Equal(t, wasm.OpI32Const, instrs[0].Op)
	assert.Equal(t, int32(0), instrs[0].I32)
	assert.Equal(t, wasm.OpGlobalSet, instrs[1].Op)
	assert.Equal(t, uint32(s.isInit), instrs[1].GlobalIdx)
}

func TestClearIsInitAtEndOfCanisterInitAppendsToExisting(t *testing.T) {
	s := newUpgradeState(t)

	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	fb.Body().I32Const(42).Drop()
	existing := fb.Finish()
	s.m.AddExport("canister_init", wasm.ExportFunc, uint32(existing))

	s.clearIsInitAtEndOfCanisterInit()

	instrs := s.m.Funcs[existing].Local.Body.Instrs
	require.Len(t, instrs, 4, "the original body's two instructions plus the appended clear")
	assert.Equal(t, wasm.OpGlobalSet, instrs[3].Op)
	assert.Equal(t, uint32(s.isInit), instrs[3].GlobalIdx)
}

func TestAppendToOrCreateExportLeavesPreExistingHookInPlace(t *testing.T) {
	s := newUpgradeState(t)

	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	fb.Body().I32Const(1).Drop()
	existing := fb.Finish()
	s.m.AddExport("canister_pre_upgrade", wasm.ExportFunc, uint32(existing))

	synthesized := s.buildPreUpgrade()
	s.appendToOrCreateExport("canister_pre_upgrade", synthesized)

	id, ok := s.m.FindExportFunc("canister_pre_upgrade")
	require.True(t, ok)
	assert.Equal(t, existing, id, "a canister-supplied upgrade hook must not be displaced")
}

func TestWireUpgradeHooksPersistsAllFiveGlobals(t *testing.T) {
	s := newUpgradeState(t)
	s.wireUpgradeHooks()

	preID, ok := s.m.FindExportFunc("canister_pre_upgrade")
	require.True(t, ok)
	preInstrs := s.m.Funcs[preID].Local.Body.Instrs

	var storeOffsets []uint32
	for _, in := range preInstrs {
		if in.Op == wasm.Opcode(0x36) || in.Op == wasm.Opcode(0x37) {
			storeOffsets = append(storeOffsets, in.MemArg.Offset)
		}
	}
	assert.Contains(t, storeOffsets, uint32(0), "total_counter")
	assert.Contains(t, storeOffsets, uint32(8), "log_size")
	assert.Contains(t, storeOffsets, uint32(12), "page_size")
	assert.Contains(t, storeOffsets, uint32(16), "is_init")
	assert.Contains(t, storeOffsets, uint32(20), "is_entry")

	postID, ok := s.m.FindExportFunc("canister_post_upgrade")
	require.True(t, ok)
	var globalSets int
	for _, in := range s.m.Funcs[postID].Local.Body.Instrs {
		if in.Op == wasm.OpGlobalSet {
			globalSets++
		}
	}
	assert.Equal(t, 5, globalSets, "post_upgrade must restore all five bookkeeping globals")
}
