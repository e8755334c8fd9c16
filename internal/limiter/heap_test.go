package limiter

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitHeapGrowthClampsAndGuards(t *testing.T) {
	m := wasm.New()
	m.Memories = append(m.Memories, wasm.Memory{Limits: wasm.Limits{Min: 20}})

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	b := fb.Body()
	b.I32Const(2)
	b.MemoryGrow()
	b.Drop()
	caller := fb.Finish()

	skip := map[wasm.FunctionID]bool{}
	limitHeapGrowth(m, 10, skip)

	mem := m.Memories[0]
	assert.Equal(t, uint64(10), mem.Limits.Min, "declared minimum must shrink to fit under the cap")
	assert.True(t, mem.Limits.HasMax)
	assert.Equal(t, uint64(10), mem.Limits.Max)

	instrs := m.Funcs[caller].Local.Body.Instrs
	for _, in := range instrs {
		assert.NotEqual(t, wasm.OpMemoryGrow, in.Op, "memory.grow must be fully replaced by a guarded call")
	}

	var guard wasm.FunctionID
	for _, in := range instrs {
		if in.Op == wasm.OpCall {
			guard = in.FuncIdx
		}
	}
	require.NotNil(t, m.Funcs[guard].Local)
	guardInstrs := m.Funcs[guard].Local.Body.Instrs
	trapsOnOverflow := false
	for _, in := range guardInstrs {
		if in.Op == wasm.OpIf {
			for _, sub := range in.Then.Instrs {
				if sub.Op == wasm.OpUnreachable {
					trapsOnOverflow = true
				}
			}
		}
	}
	assert.True(t, trapsOnOverflow, "the guard must trap rather than silently fail when the limit would be exceeded")
}
