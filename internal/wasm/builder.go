package wasm

// InstrSeqBuilder is a small fluent helper for appending instructions to an
// InstrSeq, mirroring walrus's InstrSeqBuilder: every synthesized helper
// function in internal/instrument and internal/limiter is built by chaining
// calls on one of these rather than constructing Instr{} literals by hand.
type InstrSeqBuilder struct {
	seq *InstrSeq
}

// Builder returns a builder appending to seq's instruction list.
func Builder(seq *InstrSeq) *InstrSeqBuilder { return &InstrSeqBuilder{seq: seq} }

func (b *InstrSeqBuilder) push(i Instr) *InstrSeqBuilder {
	b.seq.Instrs = append(b.seq.Instrs, i)
	return b
}

func (b *InstrSeqBuilder) I32Const(v int32) *InstrSeqBuilder { return b.push(Instr{Op: OpI32Const, I32: v}) }
func (b *InstrSeqBuilder) I64Const(v int64) *InstrSeqBuilder { return b.push(Instr{Op: OpI64Const, I64: v}) }

func (b *InstrSeqBuilder) LocalGet(idx uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: OpLocalGet, LocalIdx: idx})
}
func (b *InstrSeqBuilder) LocalSet(idx uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: OpLocalSet, LocalIdx: idx})
}
func (b *InstrSeqBuilder) LocalTee(idx uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: OpLocalTee, LocalIdx: idx})
}
func (b *InstrSeqBuilder) GlobalGet(idx uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: OpGlobalGet, GlobalIdx: idx})
}
func (b *InstrSeqBuilder) GlobalSet(idx uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: OpGlobalSet, GlobalIdx: idx})
}

func (b *InstrSeqBuilder) Call(id FunctionID) *InstrSeqBuilder {
	return b.push(Instr{Op: OpCall, FuncIdx: id})
}

func (b *InstrSeqBuilder) Drop() *InstrSeqBuilder   { return b.push(Instr{Op: OpDrop}) }
func (b *InstrSeqBuilder) Return() *InstrSeqBuilder { return b.push(Instr{Op: OpReturn}) }
func (b *InstrSeqBuilder) Unreachable() *InstrSeqBuilder {
	return b.push(Instr{Op: OpUnreachable})
}

// Numeric appends a raw single-byte numeric/comparison opcode (e.g. i64.add
// is 0x7C) the way instrument/limiter splice arithmetic into synthesized
// bodies without needing a named constant for every opcode this IR folds
// into OpNumeric.
func (b *InstrSeqBuilder) Numeric(op byte) *InstrSeqBuilder {
	return b.push(Instr{Op: OpNumeric, NumOp: op})
}

func (b *InstrSeqBuilder) MemLoad(op Opcode, align, offset uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: op, MemArg: MemArg{Align: align, Offset: offset}})
}
func (b *InstrSeqBuilder) MemStore(op Opcode, align, offset uint32) *InstrSeqBuilder {
	return b.push(Instr{Op: op, MemArg: MemArg{Align: align, Offset: offset}})
}

func (b *InstrSeqBuilder) MemorySize() *InstrSeqBuilder { return b.push(Instr{Op: OpMemorySize}) }
func (b *InstrSeqBuilder) MemoryGrow() *InstrSeqBuilder  { return b.push(Instr{Op: OpMemoryGrow}) }

// Block appends a `block` with the given result type, invoking build to
// populate its body, and returns the inner sequence for later reference
// (e.g. as a branch target computed by the caller).
func (b *InstrSeqBuilder) Block(t InstrSeqType, build func(*InstrSeqBuilder)) *InstrSeq {
	inner := NewInstrSeq(t)
	build(Builder(inner))
	b.push(Instr{Op: OpBlock, Block: inner})
	return inner
}

func (b *InstrSeqBuilder) Loop(t InstrSeqType, build func(*InstrSeqBuilder)) *InstrSeq {
	inner := NewInstrSeq(t)
	build(Builder(inner))
	b.push(Instr{Op: OpLoop, Block: inner})
	return inner
}

// IfElse appends a full if/then/else. Helpers that need a one-armed `if`
// (buildWriter and buildPrinter in internal/instrument) append an OpIf
// Instr with a nil Else directly instead.
func (b *InstrSeqBuilder) IfElse(t InstrSeqType, then, els func(*InstrSeqBuilder)) *InstrSeqBuilder {
	thenSeq := NewInstrSeq(t)
	then(Builder(thenSeq))
	elseSeq := NewInstrSeq(t)
	els(Builder(elseSeq))
	return b.push(Instr{Op: OpIf, Then: thenSeq, Else: elseSeq})
}

func (b *InstrSeqBuilder) Br(target *InstrSeq) *InstrSeqBuilder {
	return b.push(Instr{Op: OpBr, BrTarget: target})
}
func (b *InstrSeqBuilder) BrIf(target *InstrSeq) *InstrSeqBuilder {
	return b.push(Instr{Op: OpBrIf, BrTarget: target})
}

// Seq returns the sequence this builder is appending to.
func (b *InstrSeqBuilder) Seq() *InstrSeq { return b.seq }

// FunctionBuilder assembles a brand-new local function (its type, locals and
// body) the way walrus's FunctionBuilder lets instrumentation synthesize the
// counters, writer, printer and Candid-reply getters from scratch.
type FunctionBuilder struct {
	m       *Module
	params  []ValType
	results []ValType
	locals  []ValType
	body    *InstrSeq
}

// NewFunctionBuilder starts building a function of the given signature
// against module m (used to intern the FuncType).
func NewFunctionBuilder(m *Module, params, results []ValType) *FunctionBuilder {
	bodyType := VoidSeqType()
	if len(results) == 1 {
		bodyType = SingleSeqType(results[0])
	} else if len(results) > 1 {
		panic("FunctionBuilder: multi-value results require an explicit module type; not needed by any synthesized helper here")
	}
	return &FunctionBuilder{m: m, params: params, results: results, body: NewInstrSeq(bodyType)}
}

// AddLocal declares an additional local of type vt, returning its index
// (params occupy indices [0, len(params))).
func (fb *FunctionBuilder) AddLocal(vt ValType) uint32 {
	fb.locals = append(fb.locals, vt)
	return uint32(len(fb.params) + len(fb.locals) - 1)
}

// Body returns a builder appending to the function's entry sequence.
func (fb *FunctionBuilder) Body() *InstrSeqBuilder { return Builder(fb.body) }

// Finish interns the signature and registers the function in m, returning its
// FunctionID.
func (fb *FunctionBuilder) Finish() FunctionID {
	typeIdx := fb.m.AddType(fb.params, fb.results)
	return fb.m.AddLocalFunc(typeIdx, fb.locals, fb.body)
}
