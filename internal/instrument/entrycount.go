package instrument

import (
	"strings"

	"github.com/dfinity/ic-wasm/internal/wasm"
)

// canisterEntryPrefixes marks the Candid-visible entry points the IC replica
// dispatches as a fresh top-level call: ordinary updates/queries, composite
// queries, the heartbeat, and pre_upgrade. canister_init, post_upgrade, the
// global timer, inspect_message and the Motoko async-continuation helper are
// deliberately excluded -- either they run before tracing is meaningful, or
// (for the async helper) they are themselves a continuation of an in-flight
// call rather than a new outermost dispatch, so latching is_entry there would
// clear the log mid-call. Grounded on instrumentation.rs's
// inject_canister_methods.
var canisterEntryPrefixes = []string{
	"canister_update",
	"canister_query",
	"canister_composite_query",
	"canister_heartbeat",
}

const canisterEntryExact = "canister_pre_upgrade"
const canisterEntryExcludedUpdate = "canister_update __motoko_async_helper"

func isCanisterEntryExport(name string) bool {
	if name == canisterEntryExact {
		return true
	}
	if name == canisterEntryExcludedUpdate {
		return false
	}
	for _, prefix := range canisterEntryPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// injectEntryCounting prepends `log_size = is_entry * log_size; is_entry = 1`
// to every exported canister entry point, per spec.md §4.3.4. On first entry
// (is_entry == 0) the multiply by zero resets log_size, so
// a fresh top-level dispatch starts its log clean; once is_entry latches to
// 1 every subsequent instrumented call in the same execution leaves log_size
// untouched. Grounded on instrumentation.rs's inject_canister_methods.
func (s *state) injectEntryCounting() {
	done := map[wasm.FunctionID]bool{}
	for _, ex := range s.m.Exports {
		if ex.Kind != wasm.ExportFunc || !isCanisterEntryExport(ex.Name) {
			continue
		}
		id := wasm.FunctionID(ex.Idx)
		if done[id] {
			continue
		}
		done[id] = true
		f := s.m.Func(id)
		if f.IsImport() {
			continue
		}
		wasm.Prepend(f.Local.Body,
			wasm.Instr{Op: wasm.OpGlobalGet, GlobalIdx: uint32(s.isEntry)},
			wasm.Instr{Op: wasm.OpGlobalGet, GlobalIdx: uint32(s.logSize)},
			wasm.Instr{Op: wasm.OpNumeric, NumOp: numOpI32Mul},
			wasm.Instr{Op: wasm.OpGlobalSet, GlobalIdx: uint32(s.logSize)},
			wasm.Instr{Op: wasm.OpI32Const, I32: 1},
			wasm.Instr{Op: wasm.OpGlobalSet, GlobalIdx: uint32(s.isEntry)},
		)
	}
}
