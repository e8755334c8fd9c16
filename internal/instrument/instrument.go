// Package instrument implements the cost-metering and execution-tracing
// rewrite pass (spec.md §4.3): it adds bookkeeping globals, splices cost
// accounting and entry/exit tracing into every local function, synthesizes a
// stable-memory log writer and Candid query endpoints, and wires
// canister_init/pre_upgrade/post_upgrade so the log survives an upgrade.
// Grounded section-for-section on original_source/src/instrumentation.rs.
package instrument

import (
	"sort"

	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/dfinity/ic-wasm/internal/icwasm"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/sirupsen/logrus"
)

// DefaultPageLimit is the largest the instrumentation log's stable-memory
// region is allowed to grow to, in 64KiB Wasm pages (spec.md §4.3.3):
// 16 * 256 = 4096 pages, 256MiB.
const DefaultPageLimit = 16 * 256

// headerSize is the byte width of the persisted header (total_counter i64,
// log_size/page_size/is_init/is_entry i32 each) written to stable memory
// offset 0 on canister_pre_upgrade and restored on canister_post_upgrade, so
// the log and its bookkeeping survive a code upgrade even though Wasm
// globals themselves do not.
const headerSize = 8 + 4 + 4 + 4 + 4

// logEntrySize is the width of one profiling log record: a signed function
// index and the running cost counter at the moment it was captured.
const logEntrySize = 4 + 8

// Config controls what instrument injects.
type Config struct {
	// TraceOnly, when true, skips cost metering entirely and only injects
	// entry/exit tracing plus the logging plumbing -- useful for profiling a
	// canister's call pattern without perturbing its cycle cost.
	TraceOnly bool
	// FuncNames optionally restricts instrumentation to these local function
	// names; an empty slice instruments every local function. Any name not
	// found in the module is a Configuration error.
	FuncNames []string
	// Schedule selects the per-instruction/per-ic0-call cost table.
	Schedule icwasm.CostSchedule
	// Log receives per-function and per-module diagnostics. Defaults to
	// logrus.StandardLogger() if nil.
	Log *logrus.Entry
}

// state carries every global/function id instrument synthesizes, threaded
// through metering/tracing/endpoints/upgrade so they share one set of ids.
type state struct {
	m   *wasm.Module
	cfg Config
	log *logrus.Entry

	totalCounter wasm.GlobalID
	logSize      wasm.GlobalID
	pageSize     wasm.GlobalID
	isInit       wasm.GlobalID
	isEntry      wasm.GlobalID

	memory wasm.MemoryID

	stableGrow  wasm.FunctionID
	stableWrite wasm.FunctionID
	msgReply    wasm.FunctionID
	msgReplyAdd wasm.FunctionID
	msgArgSize  wasm.FunctionID
	msgArgCopy  wasm.FunctionID

	dynamicCounter   wasm.FunctionID
	dynamicCounter64 wasm.FunctionID
	writer           wasm.FunctionID
	printer          wasm.FunctionID
	lebEncoder       wasm.FunctionID

	instrumented map[wasm.FunctionID]bool // funcs that received metering+tracing
}

// Run applies the instrumentation pass to m in place.
func Run(m *wasm.Module, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	parseNameSection(m)

	targets, err := resolveTargets(m, cfg)
	if err != nil {
		return err
	}
	log.WithField("targets", len(targets)).Info("instrumentation targets resolved")

	s := &state{m: m, cfg: cfg, log: log, instrumented: map[wasm.FunctionID]bool{}}
	s.memory = m.MemoryID()

	s.totalCounter = m.AddGlobal(wasm.ValTypeI64, true, wasm.GlobalInit{ValType: wasm.ValTypeI64})
	s.logSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.pageSize = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})
	s.isInit = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32, I32: 1})
	s.isEntry = m.AddGlobal(wasm.ValTypeI32, true, wasm.GlobalInit{ValType: wasm.ValTypeI32})

	s.stableGrow = m.IcImport("stable64_grow")
	s.stableWrite = m.IcImport("stable64_write")
	s.msgReply = m.IcImport("msg_reply")
	s.msgReplyAdd = m.IcImport("msg_reply_data_append")
	s.msgArgSize = m.IcImport("msg_arg_data_size")
	s.msgArgCopy = m.IcImport("msg_arg_data_copy")

	s.dynamicCounter = s.buildDynamicCounter(false)
	s.dynamicCounter64 = s.buildDynamicCounter(true)
	s.writer = s.buildWriter()
	s.printer = s.buildPrinter()
	s.lebEncoder = s.buildLeb128Encoder()

	synth := map[wasm.FunctionID]bool{
		s.dynamicCounter: true, s.dynamicCounter64: true, s.writer: true,
		s.printer: true, s.lebEncoder: true,
	}

	for id := range targets {
		if synth[id] {
			continue
		}
		f := m.Func(id)
		if f.IsImport() {
			continue
		}
		if !s.cfg.TraceOnly {
			s.injectMetering(id)
		}
		s.injectTracing(id)
		s.instrumented[id] = true
		log.WithField("func", m.FuncName(id)).Debug("instrumented function")
	}

	s.injectEntryCounting()
	if !s.cfg.TraceOnly {
		s.wireUpgradeHooks()
	} else {
		s.clearIsInitAtEndOfCanisterInit()
	}
	s.buildEndpoints()
	s.addPublicNameSection()

	log.WithFields(logrus.Fields{
		"instrumented": len(s.instrumented),
		"trace_only":   cfg.TraceOnly,
	}).Info("instrumentation complete")

	return nil
}

// resolveTargets computes the set of local FunctionIDs to instrument,
// validating cfg.FuncNames against the module's actual functions.
func resolveTargets(m *wasm.Module, cfg Config) (map[wasm.FunctionID]bool, error) {
	out := map[wasm.FunctionID]bool{}
	if len(cfg.FuncNames) == 0 {
		for i := range m.Funcs {
			if m.Funcs[i].Local != nil {
				out[wasm.FunctionID(i)] = true
			}
		}
		return out, nil
	}

	byName := map[string]wasm.FunctionID{}
	for i := range m.Funcs {
		if m.Funcs[i].Local != nil {
			byName[m.FuncName(wasm.FunctionID(i))] = wasm.FunctionID(i)
		}
	}
	var missing []string
	names := append([]string(nil), cfg.FuncNames...)
	sort.Strings(names)
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[id] = true
	}
	if len(missing) > 0 {
		return nil, icerr.NewConfiguration("unknown function name(s) in trace-only selection: %v", missing)
	}
	return out, nil
}
