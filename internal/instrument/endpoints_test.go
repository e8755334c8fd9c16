package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEndpointsState(t *testing.T) *state {
	t.Helper()
	m := wasm.New()
	m.Memories = append(m.Memories, wasm.Memory{Limits: wasm.Limits{Min: 1}})

	s := &state{m: m}
	s.memory = m.MemoryID()
	s.totalCounter = m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	s.logSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.isInit = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.isEntry = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})

	s.msgReply = m.IcImport("msg_reply")
	s.msgReplyAdd = m.IcImport("msg_reply_data_append")
	s.msgArgSize = m.IcImport("msg_arg_data_size")
	s.msgArgCopy = m.IcImport("msg_arg_data_copy")
	m.IcImport("stable64_read")

	s.lebEncoder = s.buildLeb128Encoder()
	return s
}

func exportNames(m *wasm.Module) map[string]bool {
	out := map[string]bool{}
	for _, ex := range m.Exports {
		out[ex.Name] = true
	}
	return out
}

func TestBuildEndpointsRegistersExactExportNames(t *testing.T) {
	s := newEndpointsState(t)
	s.buildEndpoints()

	names := exportNames(s.m)
	assert.True(t, names["canister_query __get_cycles"])
	assert.True(t, names["canister_query __get_profiling"])
	assert.True(t, names["canister_update __toggle_entry"])
	assert.True(t, names["canister_update __toggle_tracing"], "the update export must be the spec-exact __toggle_tracing name")
	assert.False(t, names["canister_update __toggle_trace"], "the old truncated name must not be exported")
	assert.False(t, names["canister_query __get_name_table"], "the name table is a custom section now, not a query endpoint")
}

func TestBuildEndpointsGrowsMemoryFloorToProfilingHeapPages(t *testing.T) {
	s := newEndpointsState(t)
	s.buildEndpoints()

	mem := s.m.Memories[s.memory]
	assert.GreaterOrEqual(t, mem.Limits.Min, uint64(profilingHeapPages))
}

func TestBuildEndpointsLeavesLargerMemoryFloorAlone(t *testing.T) {
	s := newEndpointsState(t)
	s.m.Memories[s.memory].Limits.Min = 100
	s.buildEndpoints()

	assert.Equal(t, uint64(100), s.m.Memories[s.memory].Limits.Min)
}

func TestBuildGetProfilingReadsArgumentAndRepliesWithTrailingNextIdx(t *testing.T) {
	s := newEndpointsState(t)
	s.buildEndpoints()

	id, ok := s.m.FindExportFunc("canister_query __get_profiling")
	require.True(t, ok)
	instrs := s.m.Funcs[id].Local.Body.Instrs

	var callsArgSize, callsArgCopy bool
	var replyAddCount int
	var walk func(instrs []wasm.Instr)
	walk = func(instrs []wasm.Instr) {
		for _, in := range instrs {
			switch in.Op {
			case wasm.OpCall:
				if in.FuncIdx == s.msgArgSize {
					callsArgSize = true
				}
				if in.FuncIdx == s.msgArgCopy {
					callsArgCopy = true
				}
				if in.FuncIdx == s.msgReplyAdd {
					replyAddCount++
				}
			case wasm.OpBlock, wasm.OpLoop:
				walk(in.Block.Instrs)
			case wasm.OpIf:
				walk(in.Then.Instrs)
				if in.Else != nil {
					walk(in.Else.Instrs)
				}
			}
		}
	}
	walk(instrs)
	assert.True(t, callsArgSize, "__get_profiling must read msg_arg_data_size instead of hardwiring idx=0")
	assert.True(t, callsArgCopy, "__get_profiling must copy the request argument via msg_arg_data_copy")
	// prefix, leb-encoded vec length, the entry bytes, and the opt tag/payload.
	assert.GreaterOrEqual(t, replyAddCount, 4, "reply must append the type prefix, vec length, entries, and trailing opt next_idx")
}
