package wasm

// Opcode is a single-byte (or 0xFC/0xFD-prefixed) Wasm instruction opcode.
// The prefixed families are folded into the same numeric space by adding a
// bias so that every Instr.Op value still fits a uint16 and switches stay
// flat: a 0xFC- or 0xFD-prefixed opcode is 0xFC00 or 0xFD00 plus its
// sub-opcode (see the constants below).
type Opcode uint16

const (
	OpUnreachable Opcode = 0x00
	OpNop         Opcode = 0x01
	OpBlock       Opcode = 0x02
	OpLoop        Opcode = 0x03
	OpIf          Opcode = 0x04
	// OpElse/OpEnd never appear as standalone Instr values; they are
	// structural markers consumed entirely by the decoder.
	OpBr       Opcode = 0x0C
	OpBrIf     Opcode = 0x0D
	OpBrTable  Opcode = 0x0E
	OpReturn   Opcode = 0x0F
	OpCall     Opcode = 0x10
	OpCallInd  Opcode = 0x11
	OpDrop     Opcode = 0x1A
	OpSelect   Opcode = 0x1B
	OpSelectT  Opcode = 0x1C
	OpLocalGet Opcode = 0x20
	OpLocalSet Opcode = 0x21
	OpLocalTee Opcode = 0x22
	OpGlobalGet Opcode = 0x23
	OpGlobalSet Opcode = 0x24
	OpTableGet  Opcode = 0x25
	OpTableSet  Opcode = 0x26

	// Memory loads/stores, 0x28..0x3E, handled generically via MemArg.
	OpMemoryLoadFirst  Opcode = 0x28
	OpMemoryStoreLast  Opcode = 0x3E
	OpMemorySize       Opcode = 0x3F
	OpMemoryGrow       Opcode = 0x40

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42
	OpF32Const Opcode = 0x43
	OpF64Const Opcode = 0x44

	// Numeric comparison/arithmetic/conversion opcodes 0x45..0xC4: modeled
	// generically as OpNumeric with the raw byte preserved in Instr.NumOp,
	// since no pass needs their individual semantics beyond cost-class
	// lookup (see ClassOf in opcodes.go).
	OpNumeric Opcode = 0xE000

	// 0xFC-prefixed: saturating truncation + bulk memory/table. The FC
	// sub-opcode is stored in Instr.NumOp; Op itself distinguishes the ones
	// the passes care about (the bulk memory/table family is a dynamic
	// injection point per spec.md §4.3.1, and memory.init/table.init need
	// their segment index preserved across rewrites).
	OpI32TruncSatF32S Opcode = 0xFC00
	OpMemoryInit      Opcode = 0xFC08
	OpDataDrop        Opcode = 0xFC09
	OpMemoryCopy      Opcode = 0xFC0A
	OpMemoryFill      Opcode = 0xFC0B
	OpTableInit       Opcode = 0xFC0C
	OpElemDrop        Opcode = 0xFC0D
	OpTableCopy       Opcode = 0xFC0E
	OpTableGrow       Opcode = 0xFC0F
	OpTableSize       Opcode = 0xFC10
	OpTableFill       Opcode = 0xFC11

	// Reference types.
	OpRefNull   Opcode = 0xD0
	OpRefIsNull Opcode = 0xD1
	OpRefFunc   Opcode = 0xD2

	// 0xFD-prefixed SIMD: only the handful needed to round-trip correctly.
	// See SPEC_FULL.md's Non-goals note.
	OpV128Load  Opcode = 0xFD00
	OpV128Store Opcode = 0xFD0B
	OpV128Const Opcode = 0xFD0C
	// OpSimdRaw names any other 0xFD opcode. The decoder rejects those
	// opcodes, so no decoded module contains it, and Encode does not accept it.
	OpSimdRaw Opcode = 0xFDFF
)

// MemArg is the alignment/offset pair carried by load/store instructions.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// SeqTypeKind discriminates the three shapes a block/loop/if/function body's
// type can take, mirroring spec.md §3's InstrSequence.
type SeqTypeKind int

const (
	SeqVoid SeqTypeKind = iota
	SeqSingle
	SeqMulti
)

// InstrSeqType is a structured-control-flow block signature.
type InstrSeqType struct {
	Kind    SeqTypeKind
	Single  ValType
	TypeIdx uint32 // valid when Kind == SeqMulti; indexes Module.Types
}

func VoidSeqType() InstrSeqType { return InstrSeqType{Kind: SeqVoid} }

func SingleSeqType(vt ValType) InstrSeqType { return InstrSeqType{Kind: SeqSingle, Single: vt} }

// Results returns the block's result arity/types given the owning module
// (needed to resolve SeqMulti against the type section).
func (t InstrSeqType) Results(m *Module) []ValType {
	switch t.Kind {
	case SeqVoid:
		return nil
	case SeqSingle:
		return []ValType{t.Single}
	default:
		return m.Types[t.TypeIdx].Results
	}
}

// seqCounter assigns process-unique ids to InstrSeq values so that branch
// targets and block nesting can be compared by identity even across
// functions; it does not need to be stable across runs (module equality is
// judged by re-encoding to bytes, not by id values), so a simple global
// counter is sufficient despite emit requiring deterministic bytes --- ids
// themselves are never serialized, only used as a resolution key in memory.
var seqCounter uint64

// InstrSeqID is an identity tag for an InstrSeq, unique within a module build.
type InstrSeqID uint64

func nextSeqID() InstrSeqID {
	seqCounter++
	return InstrSeqID(seqCounter)
}

// InstrSeq is a structured instruction sequence: the body of a function,
// or the inner sequence owned by a block/loop/if-branch.
type InstrSeq struct {
	ID     InstrSeqID
	Type   InstrSeqType
	Instrs []Instr
}

// NewInstrSeq allocates a fresh, empty sequence with the given type.
func NewInstrSeq(t InstrSeqType) *InstrSeq {
	return &InstrSeq{ID: nextSeqID(), Type: t}
}

// Instr is a single instruction. Only the fields relevant to Op are valid;
// the rest are zero. Structured instructions (Block/Loop/If) own their inner
// InstrSeq(s) directly rather than via index, per spec.md §9's "enumerate
// injection points, rebuild fresh lists" guidance: mutation never needs to
// chase an id back into a side table for these since the Instr already is
// the owning pointer the same way walrus.Instr owns by id.
type Instr struct {
	Op Opcode

	// OpBlock / OpLoop
	Block *InstrSeq
	// OpIf
	Then *InstrSeq
	Else *InstrSeq // nil if the if had no else clause

	// OpBr / OpBrIf
	BrTarget *InstrSeq
	// OpBrTable
	BrTargets []*InstrSeq
	BrDefault *InstrSeq

	// OpCall
	FuncIdx FunctionID
	// OpCallInd
	CallIndTypeIdx  uint32
	CallIndTableIdx uint32

	// OpI32Const / OpI64Const / OpF32Const / OpF64Const (floats as raw bits)
	I32 int32
	I64 int64
	F32 uint32
	F64 uint64

	// OpLocalGet/Set/Tee
	LocalIdx uint32
	// OpGlobalGet/Set
	GlobalIdx uint32
	// OpTableGet/Set, call_indirect table, table.* family
	TableIdx uint32

	// memory/table loads, stores, memory.grow/size and the bulk family.
	MemArg   MemArg
	MemIdx   uint32
	DataIdx  uint32
	ElemIdx  uint32
	SrcTable uint32 // table.copy source

	// OpNumeric: the raw single-byte opcode (0x45..0xC4, including the
	// 0xC0..0xC4 sign-extension ops). OpI32TruncSatF32S: the 0xFC sub-opcode (0..7).
	NumOp byte

	// OpV128Const: the 16 immediate bytes following the sub-opcode, copied
	// through unmodified on encode.
	RawImmediate []byte

	// SelectTypes: valtypes for the typed `select t*` form (OpSelectT).
	SelectTypes []ValType

	// RefFuncIdx / RefType: for ref.func / ref.null.
	RefFuncIdx FunctionID
	RefType    ValType
}

// IsControlFlowBoundary reports whether instr is one of the boundaries that
// flush a pending metering injection point per spec.md §4.3.1 step 2:
// non-void block/loop close, if/else, any branch, return, unreachable.
func (i *Instr) IsControlFlowBoundary(m *Module) bool {
	switch i.Op {
	case OpBlock:
		return i.Block.Type.Kind != SeqVoid
	case OpLoop:
		return i.Block.Type.Kind != SeqVoid
	case OpIf:
		return true
	case OpBr, OpBrIf, OpBrTable, OpReturn, OpUnreachable:
		return true
	default:
		return false
	}
}

// IsBulkMemoryOrTable reports the dynamic-cost bulk instructions of
// spec.md §4.3.1 step 2's last sentence.
func (i *Instr) IsBulkMemoryOrTable() bool {
	switch i.Op {
	case OpMemoryFill, OpMemoryCopy, OpMemoryInit, OpTableCopy, OpTableInit:
		return true
	default:
		return false
	}
}
