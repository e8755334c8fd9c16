// Package limiter implements the resource-limiter rewrite pass (spec.md
// §4.4): neutralizing cycle transfers, capping stable- and heap-memory
// growth, and redirecting call_new to a playground backend. Custom-section
// metadata is handled by the separate internal/metadata package. Grounded
// section-for-section on original_source/src/limit_resource.rs.
package limiter

import (
	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/dfinity/ic-wasm/internal/wasm/binary"
	"github.com/sirupsen/logrus"
)

// Config selects which neutralizations Run applies. Every field is optional;
// a zero Config is a no-op pass.
type Config struct {
	// RemoveCyclesTransfer drops every call_cycles_add/call_cycles_add128/
	// cycles_burn128 call, so an imported canister can never move cycles out
	// of the playground's control.
	RemoveCyclesTransfer bool
	// LimitStablePages caps how many pages stable_grow/stable64_grow are
	// ever allowed to grant, cumulatively, regardless of what the canister
	// requests.
	LimitStablePages *uint32
	// LimitHeapPages caps how many pages memory.grow is ever allowed to
	// grant. Exceeding it traps the canister outright (a redesign from the
	// original's silent -1 failure return, per spec.md's safety invariant:
	// a canister that cannot tell the difference between "the host refused"
	// and "memory is actually exhausted" can't degrade correctly, so this
	// makes the refusal unambiguous).
	LimitHeapPages *uint32
	// PlaygroundBackend, when non-empty, is the principal that call_new is
	// redirected to when it names one of controllerMethods on the management
	// canister or the watched playground principal; every other call_new
	// keeps its original callee.
	PlaygroundBackend string
	// Log receives per-neutralization diagnostics. Defaults to
	// logrus.StandardLogger() if nil.
	Log *logrus.Entry
}

// Run applies the configured neutralizations to m in place, recursing into
// any Motoko-embedded companion module a data segment carries.
func Run(m *wasm.Module, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if cfg.LimitHeapPages != nil && *cfg.LimitHeapPages == 0 {
		return icerr.NewSafety("heap page limit must be at least 1; a canister needs its statically declared memory just to start")
	}
	if cfg.LimitStablePages != nil && *cfg.LimitStablePages == 0 && !cfg.RemoveCyclesTransfer {
		return icerr.NewSafety("stable page limit of 0 disables stable memory entirely; pair it with an explicit acknowledgement by also setting RemoveCyclesTransfer, or use a positive limit")
	}

	skip := map[wasm.FunctionID]bool{}

	if cfg.RemoveCyclesTransfer {
		neutralizeCycles(m, skip)
		log.Debug("cycles transfer calls neutralized")
	}
	if cfg.LimitStablePages != nil {
		limitStableGrowth(m, *cfg.LimitStablePages, skip)
		log.WithField("limit_pages", *cfg.LimitStablePages).Debug("stable memory growth capped")
	}
	if cfg.LimitHeapPages != nil {
		limitHeapGrowth(m, *cfg.LimitHeapPages, skip)
		log.WithField("limit_pages", *cfg.LimitHeapPages).Debug("heap memory growth capped")
	}
	if cfg.PlaygroundBackend != "" {
		if err := redirectCallNew(m, cfg.PlaygroundBackend, skip); err != nil {
			return err
		}
		log.WithField("backend", cfg.PlaygroundBackend).Debug("controller calls redirected")
	}

	embedded := 0
	for i := range m.Datas {
		if !wasm.IsMotokoWasmDataSection(m.Datas[i].Bytes) {
			continue
		}
		if err := limitEmbedded(&m.Datas[i], cfg); err != nil {
			return err
		}
		embedded++
	}
	if embedded > 0 {
		log.WithField("count", embedded).Info("limited embedded Motoko modules")
	}
	return nil
}

// limitEmbedded decodes a Motoko actor-class's embedded companion module,
// runs the same limiter pass over it independently (it has its own ic0
// imports and its own function index space), and re-frames the result back
// into the data segment.
func limitEmbedded(d *wasm.Data, cfg Config) error {
	inner := d.Bytes[8:]
	embedded, err := binary.Decode(inner)
	if err != nil {
		return icerr.WrapParse(err, "decoding embedded Motoko module")
	}
	if err := Run(embedded, cfg); err != nil {
		return err
	}
	d.Bytes = wasm.EncodeEmbedded(binary.Encode(embedded))
	return nil
}
