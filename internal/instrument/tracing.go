package instrument

import "github.com/dfinity/ic-wasm/internal/wasm"

// injectTracing wraps a function's body so entry and exit both call the
// printer with (function index, current total_counter), per spec.md §4.3.2.
// The original body is moved into a fresh inner block; any `return` inside
// it (at any nesting depth) is rewritten to branch to that block instead, so
// the exit trace still runs on every early return, and any `br`/`br_if`/
// `br_table` that targeted the old entry block is retargeted the same way.
// The exit call is logged with the function index negated so a flat trace
// log can tell entry and exit records apart. Grounded on
// instrumentation.rs's inject_profiling_prints.
func (s *state) injectTracing(id wasm.FunctionID) {
	lf := s.m.Func(id).Local
	original := lf.Body

	inner := wasm.NewInstrSeq(original.Type)
	inner.Instrs = original.Instrs
	rewriteReturnsToBranch(inner, original, inner)

	newBody := wasm.NewInstrSeq(original.Type)
	b := wasm.Builder(newBody)
	b.I32Const(int32(id))
	b.GlobalGet(uint32(s.totalCounter))
	b.Call(s.printer)
	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpBlock, Block: inner})
	b.I32Const(-int32(id))
	b.GlobalGet(uint32(s.totalCounter))
	b.Call(s.printer)

	lf.Body = newBody
}

// rewriteReturnsToBranch replaces every `return` reachable from seq (without
// descending into a nested function, which cannot happen here) with a branch
// to target, and retargets any `br`/`br_if`/`br_table` still pointing at
// original -- the function's old top-level sequence, which injectTracing has
// just detached from the tree and can no longer be resolved to a valid
// branch depth by the encoder.
func rewriteReturnsToBranch(seq *wasm.InstrSeq, original, target *wasm.InstrSeq) {
	for i := range seq.Instrs {
		in := &seq.Instrs[i]
		switch in.Op {
		case wasm.OpReturn:
			*in = wasm.Instr{Op: wasm.OpBr, BrTarget: target}
		case wasm.OpBr, wasm.OpBrIf:
			if in.BrTarget == original {
				in.BrTarget = target
			}
		case wasm.OpBrTable:
			if in.BrDefault == original {
				in.BrDefault = target
			}
			for j, t := range in.BrTargets {
				if t == original {
					in.BrTargets[j] = target
				}
			}
		case wasm.OpBlock, wasm.OpLoop:
			rewriteReturnsToBranch(in.Block, original, target)
		case wasm.OpIf:
			rewriteReturnsToBranch(in.Then, original, target)
			if in.Else != nil {
				rewriteReturnsToBranch(in.Else, original, target)
			}
		}
	}
}
