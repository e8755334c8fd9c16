package limiter

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitStableGrowthRedirects(t *testing.T) {
	m := wasm.New()
	m.Memories = append(m.Memories, wasm.Memory{Limits: wasm.Limits{Min: 1}})
	grow := m.IcImport("stable_grow")
	m.IcImport("stable_size")
	grow64 := m.IcImport("stable64_grow")
	m.IcImport("stable64_size")

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	b := fb.Body()
	b.I32Const(4)
	b.Call(grow)
	b.Drop()
	caller := fb.Finish()

	skip := map[wasm.FunctionID]bool{}
	limitStableGrowth(m, 16, skip)

	instrs := m.Funcs[caller].Local.Body.Instrs
	var calledID wasm.FunctionID
	for _, in := range instrs {
		if in.Op == wasm.OpCall {
			calledID = in.FuncIdx
		}
	}
	assert.NotEqual(t, grow, calledID, "the caller must no longer call the raw import directly")
	require.NotNil(t, m.Funcs[calledID].Local, "the redirect target must be a synthesized wrapper, not another import")

	// the wrapper itself must still call the real import on its
	// under-the-limit branch, or growth could never actually happen.
	wrapperInstrs := m.Funcs[calledID].Local.Body.Instrs
	sawRealGrow := false
	for _, in := range wrapperInstrs {
		if in.Op == wasm.OpIf {
			for _, sub := range in.Else.Instrs {
				if sub.Op == wasm.OpCall && sub.FuncIdx == grow {
					sawRealGrow = true
				}
			}
		}
	}
	assert.True(t, sawRealGrow, "wrapper must delegate to the real stable_grow when under the limit")
	_ = grow64
}
