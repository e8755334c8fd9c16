package instrument

import "github.com/dfinity/ic-wasm/internal/wasm"

const (
	numOpI64Add        byte = 0x7C
	numOpI64Mul        byte = 0x7E
	numOpI32Add        byte = 0x6A
	numOpI32Sub        byte = 0x6B
	numOpI32Eq         byte = 0x46
	numOpI32GtU        byte = 0x4B
	numOpI32GeU        byte = 0x4F
	numOpI64GtU        byte = 0x56
	numOpI64ExtendI32U byte = 0xAD
	numOpI32Eqz        byte = 0x45
	numOpI32Mul        byte = 0x6C
	numOpI32And        byte = 0x71
	numOpI32Or         byte = 0x72
	numOpI32Xor        byte = 0x73
	numOpI32ShrU       byte = 0x76
	numOpI32WrapI64    byte = 0xA7
	numOpI64DivU       byte = 0x80

	opI32Store8 wasm.Opcode = 0x3A
)

// lebScratchOffset is the heap address the synthesized LEB128 encoder below
// writes its output bytes to; it shares the low "icwasm bookkeeping" region
// with the log-entry/header scratch at [0, headerSize) but starts right
// after it so the two never alias.
const lebScratchOffset = headerSize

// buildDynamicCounter synthesizes the generic "add size*weight to
// total_counter, then hand the size back" interposer metering splices in
// front of an ic0 call whose cost scales with a byte count (spec.md §4.2's
// Dynamic/Dynamic64 kinds). Grounded on instrumentation.rs's
// make_dynamic_counter/make_dynamic_counter64 "pop-add-push" description;
// the weight is supplied by the call site rather than baked into the
// function so one helper serves every dynamically-costed ic0 method.
func (s *state) buildDynamicCounter(is64 bool) wasm.FunctionID {
	sizeType := wasm.ValTypeI32
	if is64 {
		sizeType = wasm.ValTypeI64
	}
	fb := wasm.NewFunctionBuilder(s.m, []wasm.ValType{sizeType, wasm.ValTypeI64}, []wasm.ValType{sizeType})
	b := fb.Body()
	b.GlobalGet(uint32(s.totalCounter))
	b.LocalGet(0)
	if !is64 {
		b.Numeric(numOpI64ExtendI32U)
	}
	b.LocalGet(1)
	b.Numeric(numOpI64Mul)
	b.Numeric(numOpI64Add)
	b.GlobalSet(uint32(s.totalCounter))
	b.LocalGet(0)
	return fb.Finish()
}

// buildWriter synthesizes the stable-memory log-append helper: given a
// function index and the total_counter value to record, it appends a
// logEntrySize-byte record right after the persisted header region, growing
// stable memory by one page at a time up to DefaultPageLimit, and silently
// dropping the write once that ceiling is reached (spec.md §4.3.3) rather
// than trapping -- metering must never make a canister call fail.
func (s *state) buildWriter() wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, []wasm.ValType{wasm.ValTypeI32, wasm.ValTypeI64}, nil)
	funcIdx := uint32(0)
	counter := uint32(1)
	offset := fb.AddLocal(wasm.ValTypeI64) // byte offset the entry will be written at

	b := fb.Body()

	// offset = headerSize + log_size * logEntrySize
	b.GlobalGet(uint32(s.logSize))
	b.Numeric(numOpI64ExtendI32U)
	b.I64Const(logEntrySize)
	b.Numeric(numOpI64Mul)
	b.I64Const(headerSize)
	b.Numeric(numOpI64Add)
	b.LocalSet(offset)

	// if offset + logEntrySize > page_size * 65536: either grow by one page
	// (if under DefaultPageLimit) or return without writing.
	b.LocalGet(offset)
	b.I64Const(logEntrySize)
	b.Numeric(numOpI64Add)
	b.GlobalGet(uint32(s.pageSize))
	b.Numeric(numOpI64ExtendI32U)
	b.I64Const(65536)
	b.Numeric(numOpI64Mul)
	b.Numeric(numOpI64GtU)

	growOrDrop := wasm.NewInstrSeq(wasm.VoidSeqType())
	gb := wasm.Builder(growOrDrop)
	gb.GlobalGet(uint32(s.pageSize))
	gb.I32Const(DefaultPageLimit)
	gb.Numeric(numOpI32GeU)
	atCeiling := wasm.NewInstrSeq(wasm.VoidSeqType())
	wasm.Builder(atCeiling).Return()
	canGrow := wasm.NewInstrSeq(wasm.VoidSeqType())
	cgb := wasm.Builder(canGrow)
	cgb.I64Const(1)
	cgb.Call(s.stableGrow)
	cgb.Drop()
	cgb.GlobalGet(uint32(s.pageSize))
	cgb.I32Const(1)
	cgb.Numeric(numOpI32Add)
	cgb.GlobalSet(uint32(s.pageSize))
	growOrDrop.Instrs = append(growOrDrop.Instrs, wasm.Instr{Op: wasm.OpIf, Then: atCeiling, Else: canGrow})

	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpIf, Then: growOrDrop})

	// Stage the entry in the low-heap scratch region the printer also uses,
	// then stable-write it out. Heap loads/stores always take an i32
	// address, unlike the i64 offsets stable64_write itself uses.
	b.I32Const(0)
	b.LocalGet(funcIdx)
	b.MemStore(wasm.Opcode(0x36), 2, 0) // i32.store scratch[0..4) = func_idx
	b.I32Const(0)
	b.LocalGet(counter)
	b.MemStore(wasm.Opcode(0x37), 3, 4) // i64.store scratch[4..12) = counter

	b.LocalGet(offset)
	b.I64Const(0) // scratch pointer
	b.I64Const(logEntrySize)
	b.Call(s.stableWrite)

	b.GlobalGet(uint32(s.logSize))
	b.I32Const(1)
	b.Numeric(numOpI32Add)
	b.GlobalSet(uint32(s.logSize))

	return fb.Finish()
}

// buildPrinter synthesizes the entry/exit tracer's logging call: it backs up
// the 12 scratch heap bytes the writer borrows, stages and writes the
// record, then restores whatever the canister had there, so this never
// corrupts the canister's own heap use (instrumentation.rs's make_printer).
// Calls made while is_init is still set (i.e. during canister_init itself)
// are skipped, since the log is only meaningful for post-init activity.
func (s *state) buildPrinter() wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, []wasm.ValType{wasm.ValTypeI32, wasm.ValTypeI64}, nil)
	funcIdx := uint32(0)
	counter := uint32(1)
	backup0 := fb.AddLocal(wasm.ValTypeI32)
	backup1 := fb.AddLocal(wasm.ValTypeI64)

	b := fb.Body()

	b.GlobalGet(uint32(s.isInit))
	skipWhileInit := wasm.NewInstrSeq(wasm.VoidSeqType())
	wasm.Builder(skipWhileInit).Return()
	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpIf, Then: skipWhileInit})

	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x28), 2, 0)
	b.LocalSet(backup0)
	b.I32Const(0)
	b.MemLoad(wasm.Opcode(0x29), 3, 4)
	b.LocalSet(backup1)

	b.LocalGet(funcIdx)
	b.LocalGet(counter)
	b.Call(s.writer)

	b.I32Const(0)
	b.LocalGet(backup0)
	b.MemStore(wasm.Opcode(0x36), 2, 0)
	b.I32Const(0)
	b.LocalGet(backup1)
	b.MemStore(wasm.Opcode(0x37), 3, 4)

	return fb.Finish()
}

// buildLeb128Encoder synthesizes `(value i32) -> (length i32)`, writing
// value's unsigned LEB128 encoding to lebScratchOffset and returning how
// many bytes it took. __get_profiling needs this to encode the Candid
// vector length of a log whose size is only known at call time; nothing in
// the internal/icwasm/candid package can help here since that package only
// ever runs host-side, never inside the instrumented module itself.
func (s *state) buildLeb128Encoder() wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, []wasm.ValType{wasm.ValTypeI32}, []wasm.ValType{wasm.ValTypeI32})
	value := uint32(0)
	length := fb.AddLocal(wasm.ValTypeI32)
	byteVal := fb.AddLocal(wasm.ValTypeI32)

	loop := wasm.NewInstrSeq(wasm.VoidSeqType())
	lb := wasm.Builder(loop)

	lb.LocalGet(value)
	lb.I32Const(0x7F)
	lb.Numeric(numOpI32And)
	lb.LocalSet(byteVal)

	lb.LocalGet(value)
	lb.I32Const(7)
	lb.Numeric(numOpI32ShrU)
	lb.LocalSet(value)

	lb.LocalGet(value)
	lb.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.LocalGet(byteVal)
		tb.I32Const(0x80)
		tb.Numeric(numOpI32Or)
		tb.LocalSet(byteVal)
	}, func(*wasm.InstrSeqBuilder) {})

	lb.I32Const(lebScratchOffset)
	lb.LocalGet(length)
	lb.Numeric(numOpI32Add)
	lb.LocalGet(byteVal)
	lb.MemStore(opI32Store8, 0, 0)

	lb.LocalGet(length)
	lb.I32Const(1)
	lb.Numeric(numOpI32Add)
	lb.LocalSet(length)

	lb.LocalGet(value)
	lb.BrIf(loop)

	b := fb.Body()
	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpLoop, Block: loop})
	b.LocalGet(length)

	return fb.Finish()
}
