package instrument

import (
	"github.com/dfinity/ic-wasm/internal/icwasm"
	"github.com/dfinity/ic-wasm/internal/wasm"
)

// injectMetering splices cost-accounting into a function's body per spec.md
// §4.3.1: walk every instruction, accumulate a flat per-instruction/per-call
// cost, and flush the accumulator into the total_counter global at every
// control-flow boundary (so total_counter is always accurate at the moment
// execution might leave the current straight-line run). Grounded on
// instrumentation.rs's inject_metering.
func (s *state) injectMetering(id wasm.FunctionID) {
	lf := s.m.Func(id).Local
	s.meterSeq(lf.Body)
}

func (s *state) meterSeq(seq *wasm.InstrSeq) {
	var out []wasm.Instr
	pending := int64(0)

	flush := func() {
		if pending == 0 {
			return
		}
		out = append(out,
			wasm.Instr{Op: wasm.OpGlobalGet, GlobalIdx: uint32(s.totalCounter)},
			wasm.Instr{Op: wasm.OpI64Const, I64: pending},
			wasm.Instr{Op: wasm.OpNumeric, NumOp: numOpI64Add},
			wasm.Instr{Op: wasm.OpGlobalSet, GlobalIdx: uint32(s.totalCounter)},
		)
		pending = 0
	}

	for i := range seq.Instrs {
		in := seq.Instrs[i]

		switch in.Op {
		case wasm.OpBlock, wasm.OpLoop:
			s.meterSeq(in.Block)
			out = append(out, in)
			if in.IsControlFlowBoundary(s.m) {
				flush()
			}
		case wasm.OpIf:
			s.meterSeq(in.Then)
			if in.Else != nil {
				s.meterSeq(in.Else)
			}
			out = append(out, in)
			pending += wasm.ClassOf(&in).Cost()
			flush()
		case wasm.OpBr, wasm.OpBrIf, wasm.OpBrTable, wasm.OpReturn, wasm.OpUnreachable:
			pending += wasm.ClassOf(&in).Cost()
			flush()
			out = append(out, in)
		case wasm.OpCall:
			out = s.meterCall(out, &pending, in)
		default:
			pending += wasm.ClassOf(&in).Cost()
			out = append(out, in)
		}
	}
	flush()
	seq.Instrs = out
}

// meterCall handles a single `call` instruction: plain (non-ic0) calls are
// flat-costed like any other instruction; ic0 calls are
// looked up in the active cost schedule, with Dynamic/Dynamic64 costs
// spliced as a call to the shared counter helper immediately before the
// call itself, operating on the size argument already sitting on the stack.
func (s *state) meterCall(out []wasm.Instr, pending *int64, in wasm.Instr) []wasm.Instr {
	fc, ok := icwasm.Lookup(s.m, in.FuncIdx, s.cfg.Schedule)
	if !ok {
		*pending += wasm.ClassOf(&in).Cost()
		return append(out, in)
	}
	switch fc.Kind {
	case icwasm.CostStatic:
		*pending += fc.Static
		return append(out, in)
	case icwasm.CostDynamic:
		*pending += fc.Static
		out = append(out,
			wasm.Instr{Op: wasm.OpI64Const, I64: fc.PerByte},
			wasm.Instr{Op: wasm.OpCall, FuncIdx: s.dynamicCounter},
		)
		return append(out, in)
	default: // CostDynamic64
		*pending += fc.Static
		out = append(out,
			wasm.Instr{Op: wasm.OpI64Const, I64: fc.PerByte},
			wasm.Instr{Op: wasm.OpCall, FuncIdx: s.dynamicCounter64},
		)
		return append(out, in)
	}
}
