package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMeteringState(t *testing.T) (*state, *wasm.Module) {
	t.Helper()
	m := wasm.New()
	totalCounter := m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	return &state{m: m, totalCounter: totalCounter}, m
}

// countFlushes reports how many total_counter flush sequences (the
// GlobalGet/I64Const/Add/GlobalSet quartet) appear in instrs, and the sum of
// every I64Const operand flushed -- the running "pending cost charged" total.
func countFlushes(instrs []wasm.Instr) (flushes int, totalCharged int64) {
	for i := 0; i+3 < len(instrs); i++ {
		if instrs[i].Op == wasm.OpGlobalGet &&
			instrs[i+1].Op == wasm.OpI64Const &&
			instrs[i+2].Op == wasm.OpNumeric && instrs[i+2].NumOp == numOpI64Add &&
			instrs[i+3].Op == wasm.OpGlobalSet {
			flushes++
			totalCharged += instrs[i+1].I64
		}
	}
	return flushes, totalCharged
}

func TestInjectMeteringChargesControlFlowBoundaryDefaultCost(t *testing.T) {
	tests := []struct {
		name string
		op   wasm.Opcode
	}{
		{"br", wasm.OpBr},
		{"br_if", wasm.OpBrIf},
		{"return", wasm.OpReturn},
		{"unreachable", wasm.OpUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newMeteringState(t)
			loop := wasm.NewInstrSeq(wasm.VoidSeqType())

			body := wasm.NewInstrSeq(wasm.VoidSeqType())
			in := wasm.Instr{Op: tt.op}
			if tt.op == wasm.OpBr || tt.op == wasm.OpBrIf {
				in.BrTarget = loop
			}
			body.Instrs = []wasm.Instr{in}

			fb := wasm.NewFunctionBuilder(m, nil, nil)
			fb.Body().Seq().Instrs = body.Instrs
			id := fb.Finish()

			s.injectMetering(id)

			_, charged := countFlushes(m.Funcs[id].Local.Body.Instrs)
			assert.Equal(t, int64(1), charged, "a lone control-flow boundary instruction must still charge its own default cost of 1")
		})
	}
}

func TestInjectMeteringIfChargesOwnCostAfterBranches(t *testing.T) {
	s, m := newMeteringState(t)

	then := wasm.NewInstrSeq(wasm.VoidSeqType())
	wasm.Builder(then).I32Const(1).Drop()

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	b := fb.Body()
	b.I32Const(1)
	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpIf, Then: then})
	id := fb.Finish()

	s.injectMetering(id)

	instrs := m.Funcs[id].Local.Body.Instrs
	var sawIf bool
	for _, in := range instrs {
		if in.Op == wasm.OpIf {
			sawIf = true
		}
	}
	require.True(t, sawIf)

	_, charged := countFlushes(instrs)
	assert.Equal(t, int64(2), charged, "i32.const(1) costs 1, and the if itself costs its own default 1")
}
