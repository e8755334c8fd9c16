package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectEntryCountingDedupesAliasedExports(t *testing.T) {
	m := wasm.New()
	isEntry := m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	logSize := m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	fb.Body().I32Const(0).Drop()
	fn := fb.Finish()

	// two canister_* exports aliasing the same function, plus a non-canister
	// export that must be left untouched.
	m.AddExport("canister_update foo", wasm.ExportFunc, uint32(fn))
	m.AddExport("canister_query bar", wasm.ExportFunc, uint32(fn))
	other := wasm.NewFunctionBuilder(m, nil, nil)
	other.Body().I32Const(0).Drop()
	otherFn := other.Finish()
	m.AddExport("not_a_canister_entry", wasm.ExportFunc, uint32(otherFn))

	s := &state{m: m, isEntry: isEntry, logSize: logSize}
	s.injectEntryCounting()

	body := m.Funcs[fn].Local.Body.Instrs
	require.Len(t, body, 6+2, "prepended 6 instructions plus the original I32Const/Drop")
	assert.Equal(t, wasm.OpGlobalGet, body[0].Op)
	assert.Equal(t, uint32(isEntry), body[0].GlobalIdx)
	assert.Equal(t, wasm.OpNumeric, body[2].Op)
	assert.Equal(t, numOpI32Mul, body[2].NumOp)
	assert.Equal(t, wasm.OpGlobalSet, body[5].Op)
	assert.Equal(t, uint32(isEntry), body[5].GlobalIdx)

	otherBody := m.Funcs[otherFn].Local.Body.Instrs
	assert.Len(t, otherBody, 2, "non-canister export must be untouched")
}
