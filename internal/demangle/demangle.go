// Package demangle resolves mangled Rust/C++ function names recovered from a
// Wasm name section into a human-readable form for the profiling name table
// (spec.md §4.3.7). Thin wrapper over github.com/ianlancetaylor/demangle,
// the library pprof itself uses for the same purpose.
package demangle

import "github.com/ianlancetaylor/demangle"

// Name demangles raw if it looks mangled, falling back to raw unchanged --
// plenty of canister exports (the IC lifecycle hooks, anything compiled from
// C with no name mangling) are not mangled symbols at all.
func Name(raw string) string {
	if out, err := demangle.ToString(raw, demangle.NoClones); err == nil {
		return out
	}
	return raw
}
