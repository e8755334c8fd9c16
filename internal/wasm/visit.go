package wasm

// CallRewriter rewrites every `call` instruction reachable from a function's
// body, in place. Mirrors limit_resource.rs's Replacer (a VisitorMut that
// only overrides visit_instr_mut for the Call case). skip lets the resource
// limiter avoid rewriting the very replacement wrappers it just synthesized.
type CallRewriter struct {
	// Rewrite is consulted once per `call` instruction naming target; when ok
	// is true the call is replaced with replacement, zero or more
	// instructions (e.g. a run of Drops matching the callee's arity, to
	// neutralize a call while still popping every operand it pushed; or a
	// single Call, to redirect to a synthesized wrapper).
	Rewrite func(target FunctionID) (replacement []Instr, ok bool)
}

// Apply walks every local function's body except those in skip, rewriting
// Call instructions per r.Rewrite.
func (r *CallRewriter) Apply(m *Module, skip map[FunctionID]bool) {
	for i := range m.Funcs {
		id := FunctionID(i)
		if skip[id] {
			continue
		}
		lf := m.Funcs[i].Local
		if lf == nil {
			continue
		}
		r.visitSeq(lf.Body)
	}
}

func (r *CallRewriter) visitSeq(seq *InstrSeq) {
	var out []Instr
	for i := range seq.Instrs {
		in := seq.Instrs[i]
		switch in.Op {
		case OpCall:
			if repl, ok := r.Rewrite(in.FuncIdx); ok {
				out = append(out, repl...)
				continue
			}
		case OpBlock, OpLoop:
			r.visitSeq(in.Block)
		case OpIf:
			r.visitSeq(in.Then)
			if in.Else != nil {
				r.visitSeq(in.Else)
			}
		}
		out = append(out, in)
	}
	seq.Instrs = out
}

// DropN returns n Drop instructions, the stack-neutral replacement for a
// call whose every argument must simply be discarded.
func DropN(n int) []Instr {
	out := make([]Instr, n)
	for i := range out {
		out[i] = Instr{Op: OpDrop}
	}
	return out
}
