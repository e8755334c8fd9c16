package limiter

import "github.com/dfinity/ic-wasm/internal/wasm"

// controllerMethods are the management-canister (and management-adjacent)
// methods that require either controller permission or cycles the
// playground backend won't grant to an untrusted canister. http_request is
// included (and its renamed form, re-encountered once the first pass has
// already mangled the name in memory) because it's often used to drain
// cycles via outbound HTTP; sign_with_ecdsa/sign_with_schnorr and the
// EVM RPC canister's methods are included for the same reason -- they are
// metered by cycles the playground doesn't extend to untrusted code.
var controllerMethods = []string{
	"create_canister",
	"update_settings",
	"install_code",
	"uninstall_code",
	"canister_status",
	"stop_canister",
	"start_canister",
	"delete_canister",
	"list_canister_snapshots",
	"take_canister_snapshot",
	"load_canister_snapshot",
	"delete_canister_snapshot",
	"sign_with_ecdsa",
	"sign_with_schnorr",
	"http_request",
	"_ttp_request",
	"eth_call",
	"eth_feeHistory",
	"eth_getBlockByNumber",
	"eth_getBlockByHash",
	"eth_getLogs",
	"eth_getTransactionCount",
	"eth_getTransactionReceipt",
	"eth_sendRawTransaction",
	"request",
}

// playgroundRedirectPrincipal is a second hardcoded callee the wrapper
// redirects away from, alongside the empty (management canister) principal,
// per spec.md §4.4.
const playgroundRedirectPrincipal = "7hfb6-caaaa-aaaar-qadga-cai"

// redirectCallNew rewrites every call_new targeting one of controllerMethods
// -- and whose callee is either empty or playgroundRedirectPrincipal -- to
// instead target backend's raw principal bytes, leaving every other
// call_new untouched. Grounded on limit_resource.rs's make_redirect_call_new.
func redirectCallNew(m *wasm.Module, backend string, skip map[wasm.FunctionID]bool) error {
	callNew, ok := m.FindImportFunc("ic0", "call_new")
	if !ok {
		return nil
	}
	redirectID, err := decodePrincipal(backend)
	if err != nil {
		return err
	}
	watchedCalleeID, err := decodePrincipal(playgroundRedirectPrincipal)
	if err != nil {
		return err
	}
	wrapper := buildRedirectCallNew(m, callNew, redirectID, watchedCalleeID)
	skip[wrapper] = true
	redirect(m, callNew, wrapper, skip)
	return nil
}

// buildRedirectCallNew synthesizes a function with call_new's exact
// signature. It compares the callee against the watched callee list (the
// empty/management-canister principal, or watchedCalleeID) and the method
// name against controllerMethods by loading each byte of the in-memory
// name/callee back onto the stack (there is no string comparison
// instruction); on a match it overwrites memory address 0 with redirectID,
// calls the real call_new against that address instead of the original
// callee, then restores the bytes it clobbered.
func buildRedirectCallNew(m *wasm.Module, callNew wasm.FunctionID, redirectID, watchedCalleeID []byte) wasm.FunctionID {
	i32 := wasm.ValTypeI32
	fb := wasm.NewFunctionBuilder(m, []wasm.ValType{i32, i32, i32, i32, i32, i32, i32, i32}, nil)
	calleeSrc, calleeSize, nameSrc, nameSize := uint32(0), uint32(1), uint32(2), uint32(3)
	arg5, arg6, arg7, arg8 := uint32(4), uint32(5), uint32(6), uint32(7)

	noRedirect := fb.AddLocal(i32)
	isRename := fb.AddLocal(i32)
	calleeMatch := fb.AddLocal(i32)
	backup := make([]uint32, len(redirectID))
	for i := range backup {
		backup[i] = fb.AddLocal(i32)
	}

	checks := wasm.NewInstrSeq(wasm.VoidSeqType())
	cb := wasm.Builder(checks)

	// calleeMatch = (callee_size == 0) || (callee bytes == watchedCalleeID).
	cb.I32Const(0).LocalSet(calleeMatch)

	emptyCallee := wasm.NewInstrSeq(wasm.VoidSeqType())
	ecb := wasm.Builder(emptyCallee)
	ecb.LocalGet(calleeSize).I32Const(0).Numeric(numOpI32Ne).BrIf(emptyCallee)
	ecb.I32Const(1).LocalSet(calleeMatch)
	cb.Seq().Instrs = append(cb.Seq().Instrs, wasm.Instr{Op: wasm.OpBlock, Block: emptyCallee})

	watchedCallee := wasm.NewInstrSeq(wasm.VoidSeqType())
	wcb := wasm.Builder(watchedCallee)
	wcb.LocalGet(calleeSize).I32Const(int32(len(watchedCalleeID))).Numeric(numOpI32Ne).BrIf(watchedCallee)
	for i := range watchedCalleeID {
		wcb.LocalGet(calleeSrc).MemLoad(opI32Load8S, 0, uint32(i))
	}
	for i := len(watchedCalleeID) - 1; i >= 0; i-- {
		wcb.I32Const(int32(int8(watchedCalleeID[i]))).Numeric(numOpI32Ne).BrIf(watchedCallee)
	}
	wcb.I32Const(1).LocalSet(calleeMatch)
	cb.Seq().Instrs = append(cb.Seq().Instrs, wasm.Instr{Op: wasm.OpBlock, Block: watchedCallee})

	cb.LocalGet(calleeMatch).Numeric(numOpI32Eqz).LocalTee(noRedirect).BrIf(checks)

	for _, name := range controllerMethods {
		nameCheck := wasm.NewInstrSeq(wasm.VoidSeqType())
		nb := wasm.Builder(nameCheck)

		nb.LocalGet(nameSize).I32Const(int32(len(name))).Numeric(numOpI32Ne).BrIf(nameCheck)
		for i := range name {
			nb.LocalGet(nameSrc).MemLoad(opI32Load8S, 0, uint32(i))
		}
		for i := len(name) - 1; i >= 0; i-- {
			nb.I32Const(int32(name[i])).Numeric(numOpI32Ne).BrIf(nameCheck)
		}
		if name == "http_request" {
			nb.I32Const(1).LocalSet(isRename)
		} else {
			nb.I32Const(0).LocalSet(isRename)
		}
		nb.I32Const(0).LocalSet(noRedirect).Br(checks)

		cb.Seq().Instrs = append(cb.Seq().Instrs, wasm.Instr{Op: wasm.OpBlock, Block: nameCheck})
	}
	cb.I32Const(1).LocalSet(noRedirect)

	b := fb.Body()
	b.Seq().Instrs = append(b.Seq().Instrs, wasm.Instr{Op: wasm.OpBlock, Block: checks})

	b.LocalGet(noRedirect)
	b.IfElse(wasm.VoidSeqType(), func(tb *wasm.InstrSeqBuilder) {
		tb.LocalGet(calleeSrc)
		tb.LocalGet(calleeSize)
		tb.LocalGet(nameSrc)
		tb.LocalGet(nameSize)
		tb.LocalGet(arg5)
		tb.LocalGet(arg6)
		tb.LocalGet(arg7)
		tb.LocalGet(arg8)
		tb.Call(callNew)
	}, func(eb *wasm.InstrSeqBuilder) {
		for i := range redirectID {
			eb.I32Const(int32(i)).MemLoad(opI32Load8S, 0, 0).LocalSet(backup[i])
		}
		for i, byt := range redirectID {
			eb.I32Const(int32(i))
			eb.I32Const(int32(byt))
			eb.MemStore(opI32Store8, 0, 0)
		}
		eb.LocalGet(isRename)
		eb.IfElse(wasm.VoidSeqType(), func(rb *wasm.InstrSeqBuilder) {
			rb.LocalGet(nameSrc)
			rb.I32Const('_')
			rb.MemStore(opI32Store8, 0, 0)
		}, func(*wasm.InstrSeqBuilder) {})

		eb.I32Const(0)
		eb.I32Const(int32(len(redirectID)))
		eb.LocalGet(nameSrc)
		eb.LocalGet(nameSize)
		eb.LocalGet(arg5)
		eb.LocalGet(arg6)
		eb.LocalGet(arg7)
		eb.LocalGet(arg8)
		eb.Call(callNew)

		for i := range backup {
			eb.I32Const(int32(i))
			eb.LocalGet(backup[i])
			eb.MemStore(opI32Store8, 0, 0)
		}
	})

	return fb.Finish()
}
