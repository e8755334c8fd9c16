package limiter

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallNewCaller(t *testing.T, m *wasm.Module, callNew wasm.FunctionID) wasm.FunctionID {
	t.Helper()
	fb := wasm.NewFunctionBuilder(m, nil, nil)
	b := fb.Body()
	for i := 0; i < 8; i++ {
		b.I32Const(0)
	}
	b.Call(callNew)
	return fb.Finish()
}

func TestRedirectCallNewRewritesCallSite(t *testing.T) {
	m := wasm.New()
	callNew := m.IcImport("call_new")
	caller := newCallNewCaller(t, m, callNew)

	backend := encodePrincipalForTest([]byte{0xAA, 0xBB})
	skip := map[wasm.FunctionID]bool{}
	require.NoError(t, redirectCallNew(m, backend, skip))

	var calledID wasm.FunctionID
	for _, in := range m.Funcs[caller].Local.Body.Instrs {
		if in.Op == wasm.OpCall {
			calledID = in.FuncIdx
		}
	}
	assert.NotEqual(t, callNew, calledID, "the caller must no longer call the raw import directly")
	require.NotNil(t, m.Funcs[calledID].Local)
	assert.True(t, skip[calledID], "the synthesized wrapper must be excluded from its own call-site rewrite")
}

func TestBuildRedirectCallNewHasCallNewSignature(t *testing.T) {
	m := wasm.New()
	callNew := m.IcImport("call_new")
	redirectID := []byte{0x01, 0x02}
	watched := []byte{0x03, 0x04, 0x05}

	wrapper := buildRedirectCallNew(m, callNew, redirectID, watched)

	ft := m.TypeOf(wrapper)
	assert.Len(t, ft.Params, 8, "the wrapper must accept exactly call_new's eight parameters")
	assert.Empty(t, ft.Results)
}

func TestControllerMethodsIncludesSpecAdditions(t *testing.T) {
	want := []string{
		"sign_with_ecdsa",
		"sign_with_schnorr",
		"request",
		"eth_call",
		"eth_feeHistory",
		"eth_getBlockByNumber",
		"eth_getBlockByHash",
		"eth_getLogs",
		"eth_getTransactionCount",
		"eth_getTransactionReceipt",
		"eth_sendRawTransaction",
	}
	for _, name := range want {
		assert.Contains(t, controllerMethods, name)
	}
}

func TestPlaygroundRedirectPrincipalDecodes(t *testing.T) {
	_, err := decodePrincipal(playgroundRedirectPrincipal)
	assert.NoError(t, err, "the hardcoded watched callee principal must itself be valid")
}
