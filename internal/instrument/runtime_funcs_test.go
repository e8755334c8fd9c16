package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntimeFuncsState(t *testing.T) *state {
	t.Helper()
	m := wasm.New()
	s := &state{m: m}
	s.totalCounter = m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	s.logSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.pageSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.isInit = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32, I32: 1})
	s.stableGrow = m.IcImport("stable64_grow")
	s.stableWrite = m.IcImport("stable64_write")
	return s
}

func TestBuildWriterDropsWritesAtPageLimit(t *testing.T) {
	s := newRuntimeFuncsState(t)
	s.writer = s.buildWriter()

	instrs := s.m.Funcs[s.writer].Local.Body.Instrs
	require.NotEmpty(t, instrs)

	var sawGrowOrReturnGuard bool
	for _, in := range instrs {
		if in.Op == wasm.OpIf && in.Then != nil {
			for _, sub := range in.Then.Instrs {
				if sub.Op == wasm.OpIf && sub.Then != nil {
					for _, inner := range sub.Then.Instrs {
						if inner.Op == wasm.OpReturn {
							sawGrowOrReturnGuard = true
						}
					}
				}
			}
		}
	}
	assert.True(t, sawGrowOrReturnGuard, "writer must return without writing once page_size has reached DefaultPageLimit")
}

func TestBuildPrinterSkipsWhileIsInit(t *testing.T) {
	s := newRuntimeFuncsState(t)
	s.writer = s.buildWriter()
	s.printer = s.buildPrinter()

	instrs := s.m.Funcs[s.printer].Local.Body.Instrs
	require.NotEmpty(t, instrs)
	assert.Equal(t, wasm.OpGlobalGet, instrs[0].Op)
	assert.Equal(t, uint32(s.isInit), instrs[0].GlobalIdx)
	assert.Equal(t, wasm.OpIf, instrs[1].Op)
	var returns bool
	for _, sub := range instrs[1].Then.Instrs {
		if sub.Op == wasm.OpReturn {
			returns = true
		}
	}
	assert.True(t, returns, "printer must return immediately while is_init is still set")
}

func TestBuildLeb128EncoderUsesEncodingLoop(t *testing.T) {
	s := newRuntimeFuncsState(t)
	s.lebEncoder = s.buildLeb128Encoder()

	instrs := s.m.Funcs[s.lebEncoder].Local.Body.Instrs
	require.NotEmpty(t, instrs)

	var sawLoop bool
	for _, in := range instrs {
		if in.Op == wasm.OpLoop {
			sawLoop = true
		}
	}
	assert.True(t, sawLoop, "a value-dependent LEB128 length needs an encoding loop, not a fixed unroll")
}
