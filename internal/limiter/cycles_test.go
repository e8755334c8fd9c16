package limiter

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralizeCycles(t *testing.T) {
	for _, c := range []struct {
		name   string
		method string
		push   func(b *wasm.InstrSeqBuilder)
		drops  int
	}{
		{"call_cycles_add", "call_cycles_add", func(b *wasm.InstrSeqBuilder) { b.I64Const(1) }, 1},
		{"call_cycles_add128", "call_cycles_add128", func(b *wasm.InstrSeqBuilder) { b.I64Const(1); b.I64Const(2) }, 2},
		{"cycles_burn128", "cycles_burn128", func(b *wasm.InstrSeqBuilder) { b.I64Const(1); b.I64Const(2); b.I32Const(0) }, 3},
	} {
		t.Run(c.name, func(t *testing.T) {
			m := wasm.New()
			m.Memories = append(m.Memories, wasm.Memory{Limits: wasm.Limits{Min: 1}})
			method := m.IcImport(c.method)

			fb := wasm.NewFunctionBuilder(m, nil, nil)
			b := fb.Body()
			c.push(b)
			b.Call(method)
			fn := fb.Finish()

			skip := map[wasm.FunctionID]bool{}
			neutralizeCycles(m, skip)

			instrs := m.Funcs[fn].Local.Body.Instrs
			require.NotEmpty(t, instrs)
			gotDrops := 0
			for _, in := range instrs {
				if in.Op == wasm.OpDrop {
					gotDrops++
				}
				assert.NotEqual(t, wasm.OpCall, in.Op, "the neutralized call must not survive")
			}
			assert.Equal(t, c.drops, gotDrops)
		})
	}
}

func TestNeutralizeCyclesNoOpWithoutImports(t *testing.T) {
	m := wasm.New()
	m.Memories = append(m.Memories, wasm.Memory{Limits: wasm.Limits{Min: 1}})
	skip := map[wasm.FunctionID]bool{}
	neutralizeCycles(m, skip)
	assert.Empty(t, m.Imports)
}
