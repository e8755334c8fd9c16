package instrument

import (
	"github.com/dfinity/ic-wasm/internal/icwasm/candid"
	"github.com/dfinity/ic-wasm/internal/wasm"
)

// profilingHeapPages is the heap size buildEndpoints guarantees so that
// __get_profiling can stage its reply in linear memory. maxProfilingItems,
// computed in buildEndpoints, bounds how many log entries a single
// __get_profiling call returns: the number of 12-byte entries that fit
// between profilingBufferOffset and the end of these pages, which keeps one
// reply within the 2MiB message-size ceiling. The static scratch data ahead
// of the buffer takes 74 bytes, so the count is 174756 rather than the
// 174758 a 40-byte header would leave.
const profilingHeapPages = 32
const profilingHeapBytes = profilingHeapPages * 65536

// buildEndpoints synthesizes the Candid query surface spec.md §4.3.6
// describes: __get_cycles, __get_profiling, plus the two debug toggles, each
// exported as a canister_query/canister_update. Grounded on
// instrumentation.rs's inject_getter_funcs, generalized since none of that
// reply data (apart from the profiling type header) is known until call time
// here -- only the static Candid framing is.
func (s *state) buildEndpoints() {
	memID := s.memory
	mem := &s.m.Memories[memID]
	// __get_profiling stages up to maxProfilingItems*12 bytes of log entries
	// in heap scratch before replying with them; guarantee the memory is
	// never smaller than that from the moment the module is instantiated
	// (memory only ever grows), which is equivalent to the spec's "grows
	// heap memory by 32 pages if the current size is under 32" runtime check
	// without needing a memory.grow instruction in every endpoint body.
	if mem.Limits.Min < profilingHeapPages {
		mem.Limits.Min = profilingHeapPages
	}
	if mem.Limits.HasMax && mem.Limits.Max < mem.Limits.Min {
		mem.Limits.Max = mem.Limits.Min
	}

	cyclesFull := candid.CyclesReply(0)
	cyclesPrefix := cyclesFull[:len(cyclesFull)-8]
	profPrefix := candid.ProfilingHeader()
	emptyReplyBytes := candid.EmptyReply()

	// Scratch layout, all within the leading handful of bytes of page 0:
	// leb encoder output, the copied 11-byte request argument, then the
	// static Candid prefixes, then the profiling entries buffer -- which
	// consumes essentially the rest of the guaranteed profilingHeapBytes.
	argScratchOffset := uint32(lebScratchOffset) + 8
	cyclesOff := argScratchOffset + 11
	profOff := cyclesOff + uint32(len(cyclesPrefix))
	emptyOff := profOff + uint32(len(profPrefix))
	profilingBufferOffset := emptyOff + uint32(len(emptyReplyBytes))

	maxProfilingItems := uint32((profilingHeapBytes - int64(profilingBufferOffset)) / logEntrySize)

	s.addStaticData(cyclesOff, cyclesPrefix)
	s.addStaticData(profOff, profPrefix)
	s.addStaticData(emptyOff, emptyReplyBytes)

	s.registerQuery("__get_cycles", s.buildGetCycles(cyclesOff, uint32(len(cyclesPrefix))))
	s.registerQuery("__get_profiling", s.buildGetProfiling(profOff, uint32(len(profPrefix)), argScratchOffset, profilingBufferOffset, maxProfilingItems))
	s.registerUpdate("__toggle_entry", s.buildToggleEntry(emptyOff, uint32(len(emptyReplyBytes))))
	s.registerUpdate("__toggle_tracing", s.buildToggleTracing(emptyOff, uint32(len(emptyReplyBytes))))
}

func (s *state) addStaticData(offset uint32, bytes []byte) {
	s.m.Datas = append(s.m.Datas, wasm.Data{
		Mode:   wasm.DataActive,
		Memory: s.memory,
		Offset: wasm.GlobalInit{ValType: wasm.ValTypeI32, I32: int32(offset)},
		Bytes:  append([]byte(nil), bytes...),
	})
}

func (s *state) registerQuery(name string, id wasm.FunctionID) {
	s.m.AddExport("canister_query "+name, wasm.ExportFunc, uint32(id))
}

func (s *state) registerUpdate(name string, id wasm.FunctionID) {
	s.m.AddExport("canister_update "+name, wasm.ExportFunc, uint32(id))
}

// buildGetCycles synthesizes __get_cycles: the static prefix plus the live
// total_counter value, stored into scratch as its natural little-endian i64
// representation (which is exactly Candid's fixed-width int64 encoding).
func (s *state) buildGetCycles(prefixOffset, prefixLen uint32) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	b := fb.Body()

	b.I32Const(int32(prefixOffset))
	b.I32Const(int32(prefixLen))
	b.Call(s.msgReplyAdd)

	b.I32Const(int32(lebScratchOffset))
	b.GlobalGet(uint32(s.totalCounter))
	b.MemStore(wasm.Opcode(0x37), 3, 0)

	b.I32Const(int32(lebScratchOffset))
	b.I32Const(8)
	b.Call(s.msgReplyAdd)

	b.Call(s.msgReply)
	return fb.Finish()
}

// buildGetProfiling synthesizes __get_profiling: it reads the request's
// nat32 `idx` argument, replies with up to maxItems log entries starting at
// idx, and -- if the log extends past that -- an `opt nat32` naming where a
// follow-up call should resume. Per spec.md §4.3.6, the request is expected
// to be exactly 11 bytes (a DIDL header framing a single nat32), with idx
// occupying bytes 7..11; a differently-shaped request is treated as idx=0
// rather than trapping, since a getter must never fail a well-formed query
// just because a future caller sends a different argument shape.
func (s *state) buildGetProfiling(prefixOffset, prefixLen, argOffset, bufferOffset, maxItems uint32) wasm.FunctionID {
	i32 := wasm.ValTypeI32
	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	idx := fb.AddLocal(i32)
	remain := fb.AddLocal(i32)
	entries := fb.AddLocal(i32)
	nextIdx := fb.AddLocal(i32)
	hasMore := fb.AddLocal(i32)
	lebLen := fb.AddLocal(i32)
	stableOff := fb.AddLocal(wasm.ValTypeI64)
	copyBytes := fb.AddLocal(wasm.ValTypeI64)

	b := fb.Body()

	b.I32Const(0)
	b.LocalSet(idx)

	b.Call(s.msgArgSize)
	b.I32Const(11)
	b.Numeric(numOpI32Eq)
	b.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.I32Const(int32(argOffset))
		tb.I32Const(0)
		tb.I32Const(11)
		tb.Call(s.msgArgCopy)

		tb.I32Const(int32(argOffset) + 7)
		tb.MemLoad(wasm.Opcode(0x28), 2, 0)
		tb.LocalSet(idx)
	}, func(*wasm.InstrSeqBuilder) {})

	// entries/hasMore/nextIdx: clamp [idx, log_size) to at most maxItems.
	b.LocalGet(idx)
	b.GlobalGet(uint32(s.logSize))
	b.Numeric(numOpI32GeU)
	b.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.I32Const(0).LocalSet(entries)
		tb.I32Const(0).LocalSet(hasMore)
	}, func(eb *wasm.InstrSeqBuilder) {
		eb.GlobalGet(uint32(s.logSize))
		eb.LocalGet(idx)
		eb.Numeric(numOpI32Sub)
		eb.LocalSet(remain)

		eb.LocalGet(remain)
		eb.I32Const(int32(maxItems))
		eb.Numeric(numOpI32GtU)
		eb.IfElse(wasm.VoidSeqType(), func(tb2 *wasm.InstrSeqBuilder) {
			tb2.I32Const(int32(maxItems)).LocalSet(entries)
			tb2.I32Const(1).LocalSet(hasMore)
			tb2.LocalGet(idx)
			tb2.I32Const(int32(maxItems))
			tb2.Numeric(numOpI32Add)
			tb2.LocalSet(nextIdx)
		}, func(eb2 *wasm.InstrSeqBuilder) {
			eb2.LocalGet(remain).LocalSet(entries)
			eb2.I32Const(0).LocalSet(hasMore)
		})
	})

	// stableOff = headerSize + idx*logEntrySize; copyBytes = entries*logEntrySize.
	b.LocalGet(idx)
	b.Numeric(numOpI64ExtendI32U)
	b.I64Const(logEntrySize)
	b.Numeric(numOpI64Mul)
	b.I64Const(headerSize)
	b.Numeric(numOpI64Add)
	b.LocalSet(stableOff)

	b.LocalGet(entries)
	b.Numeric(numOpI64ExtendI32U)
	b.I64Const(logEntrySize)
	b.Numeric(numOpI64Mul)
	b.LocalSet(copyBytes)

	b.I64Const(int64(bufferOffset))
	b.LocalGet(stableOff)
	b.LocalGet(copyBytes)
	b.Call(s.m.IcImport("stable64_read"))

	b.I32Const(int32(prefixOffset))
	b.I32Const(int32(prefixLen))
	b.Call(s.msgReplyAdd)

	b.LocalGet(entries)
	b.Call(s.lebEncoder)
	b.LocalSet(lebLen)
	b.I32Const(int32(lebScratchOffset))
	b.LocalGet(lebLen)
	b.Call(s.msgReplyAdd)

	b.I32Const(int32(bufferOffset))
	b.LocalGet(copyBytes)
	b.Numeric(numOpI32WrapI64)
	b.Call(s.msgReplyAdd)

	b.LocalGet(hasMore)
	b.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.I32Const(int32(argOffset))
		tb.I32Const(1)
		tb.MemStore(opI32Store8, 0, 0) // Some tag
		tb.I32Const(int32(argOffset) + 1)
		tb.LocalGet(nextIdx)
		tb.MemStore(wasm.Opcode(0x36), 2, 0) // next_idx, 4 bytes
		tb.I32Const(int32(argOffset))
		tb.I32Const(5)
		tb.Call(s.msgReplyAdd)
	}, func(eb *wasm.InstrSeqBuilder) {
		eb.I32Const(int32(argOffset))
		eb.I32Const(0)
		eb.MemStore(opI32Store8, 0, 0) // None tag
		eb.I32Const(int32(argOffset))
		eb.I32Const(1)
		eb.Call(s.msgReplyAdd)
	})

	b.Call(s.msgReply)
	return fb.Finish()
}

// buildToggleEntry resets is_entry to 0, letting an operator force the next
// call into any exported canister_* method to be treated as a fresh
// top-level dispatch (spec.md §4.3.4's reentrancy latch released early).
func (s *state) buildToggleEntry(replyOffset, replyLen uint32) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	b := fb.Body()
	b.I32Const(0)
	b.GlobalSet(uint32(s.isEntry))
	b.I32Const(int32(replyOffset))
	b.I32Const(int32(replyLen))
	b.Call(s.msgReplyAdd)
	b.Call(s.msgReply)
	return fb.Finish()
}

// buildToggleTracing flips is_init, letting an operator silence or
// re-enable the printer at runtime without an upgrade.
func (s *state) buildToggleTracing(replyOffset, replyLen uint32) wasm.FunctionID {
	fb := wasm.NewFunctionBuilder(s.m, nil, nil)
	b := fb.Body()
	b.GlobalGet(uint32(s.isInit))
	b.I32Const(1)
	b.Numeric(numOpI32Xor)
	b.GlobalSet(uint32(s.isInit))
	b.I32Const(int32(replyOffset))
	b.I32Const(int32(replyLen))
	b.Call(s.msgReplyAdd)
	b.Call(s.msgReply)
	return fb.Finish()
}
