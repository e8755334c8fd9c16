package limiter

import "github.com/dfinity/ic-wasm/internal/wasm"

// cyclesTransferMethods are the ic0 calls that move cycles out of the
// canister's control. Grounded on limit_resource.rs's remove_cycles_transfer.
var cyclesTransferMethods = []string{
	"call_cycles_add",
	"call_cycles_add128",
	"cycles_burn128",
}

// neutralizeCycles replaces every call to a cycles-transfer method with a
// run of Drops matching its arity, so the call's cost-accounting effect
// disappears without disturbing the surrounding code's stack shape.
func neutralizeCycles(m *wasm.Module, skip map[wasm.FunctionID]bool) {
	targets := map[wasm.FunctionID]int{}
	for _, method := range cyclesTransferMethods {
		if id, ok := m.FindImportFunc("ic0", method); ok {
			targets[id] = len(m.TypeOf(id).Params)
		}
	}
	if len(targets) == 0 {
		return
	}

	r := &wasm.CallRewriter{
		Rewrite: func(target wasm.FunctionID) ([]wasm.Instr, bool) {
			arity, ok := targets[target]
			if !ok {
				return nil, false
			}
			return wasm.DropN(arity), true
		},
	}
	r.Apply(m, skip)
}
