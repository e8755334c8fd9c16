package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracingState(t *testing.T, m *wasm.Module) *state {
	t.Helper()
	totalCounter := m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	printerFb := wasm.NewFunctionBuilder(m, []wasm.ValType{wasm.ValTypeI32, wasm.ValTypeI64}, nil)
	printerFb.Body().Drop()
	printer := printerFb.Finish()
	return &state{m: m, totalCounter: totalCounter, printer: printer}
}

// findPrinterArgs returns every I32Const value immediately preceding a call to
// s.printer, in traversal order -- the func index argument of each entry/exit
// trace call.
func findPrinterArgs(s *state, instrs []wasm.Instr) []int32 {
	var out []int32
	for i := 0; i+2 < len(instrs); i++ {
		if instrs[i].Op == wasm.OpI32Const &&
			instrs[i+1].Op == wasm.OpGlobalGet &&
			instrs[i+2].Op == wasm.OpCall && instrs[i+2].FuncIdx == s.printer {
			out = append(out, instrs[i].I32)
		}
	}
	return out
}

func TestInjectTracingEntryAndExitSigns(t *testing.T) {
	m := wasm.New()
	s := newTracingState(t, m)

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	fb.Body().I32Const(1).Drop()
	id := fb.Finish()

	s.injectTracing(id)

	args := findPrinterArgs(s, m.Funcs[id].Local.Body.Instrs)
	require.Len(t, args, 2, "expected one entry and one exit printer call")
	assert.Equal(t, int32(id), args[0], "entry call must log +func_idx")
	assert.Equal(t, -int32(id), args[1], "exit call must log -func_idx")
}

func TestInjectTracingRewritesReturnToBranch(t *testing.T) {
	m := wasm.New()
	s := newTracingState(t, m)

	fb := wasm.NewFunctionBuilder(m, nil, nil)
	b := fb.Body()
	b.I32Const(1)
	b.Return()
	id := fb.Finish()

	s.injectTracing(id)

	// The exit printer call must still run: a bare `return` within the
	// instrumented body would otherwise skip it entirely.
	args := findPrinterArgs(s, m.Funcs[id].Local.Body.Instrs)
	require.Len(t, args, 2)
	assert.Equal(t, -int32(id), args[1])

	var sawReturn bool
	var walk func(seq *wasm.InstrSeq)
	walk = func(seq *wasm.InstrSeq) {
		for _, in := range seq.Instrs {
			if in.Op == wasm.OpReturn {
				sawReturn = true
			}
			if in.Block != nil {
				walk(in.Block)
			}
			if in.Then != nil {
				walk(in.Then)
			}
			if in.Else != nil {
				walk(in.Else)
			}
		}
	}
	walk(m.Funcs[id].Local.Body)
	assert.False(t, sawReturn, "every return must be rewritten to a branch")
}

func TestRewriteReturnsToBranchRetargetsStaleBranches(t *testing.T) {
	original := wasm.NewInstrSeq(wasm.VoidSeqType())
	target := wasm.NewInstrSeq(wasm.VoidSeqType())

	inner := wasm.NewInstrSeq(wasm.VoidSeqType())
	inner.Instrs = []wasm.Instr{
		{Op: wasm.OpBr, BrTarget: original},
		{Op: wasm.OpBrIf, BrTarget: original},
		{Op: wasm.OpBrTable, BrDefault: original, BrTargets: []*wasm.InstrSeq{original, target}},
		{Op: wasm.OpReturn},
	}

	rewriteReturnsToBranch(inner, original, target)

	assert.Equal(t, target, inner.Instrs[0].BrTarget, "br targeting the detached sequence must retarget")
	assert.Equal(t, target, inner.Instrs[1].BrTarget, "br_if targeting the detached sequence must retarget")
	assert.Equal(t, target, inner.Instrs[2].BrDefault, "br_table default targeting the detached sequence must retarget")
	assert.Equal(t, target, inner.Instrs[2].BrTargets[0], "br_table label targeting the detached sequence must retarget")
	assert.Equal(t, target, inner.Instrs[2].BrTargets[1], "br_table label already pointing elsewhere must be left alone")
	assert.Equal(t, wasm.OpBr, inner.Instrs[3].Op, "return must be rewritten to an unconditional branch")
	assert.Equal(t, target, inner.Instrs[3].BrTarget)
}
