// Package validate runs a rewritten module back through wazero's compiler as
// a final sanity check before returning it to the caller. Per spec.md §7.5,
// a validation failure here is surfaced as a warning, never an error: the
// bytes this tool emits are returned either way, since wazero rejecting a
// module it doesn't fully support is not proof the module is malformed.
package validate

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// Warning describes a post-emission validation problem the caller should
// surface to the user without failing the rewrite.
type Warning struct {
	Message string
}

func (w Warning) String() string { return w.Message }

// Check compiles raw (the freshly re-encoded module bytes) against wazero
// with wazero's WebAssembly 2.0 core feature set enabled (see
// icSupportedFeatures), returning a non-nil Warning if compilation failed.
// memory64 is not part of that set, so a memory64 module always gets a
// Warning here.
func Check(ctx context.Context, raw []byte) *Warning {
	cfg := wazero.NewRuntimeConfig().
		WithCoreFeatures(icSupportedFeatures())

	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, raw)
	if err != nil {
		return &Warning{Message: fmt.Sprintf("rewritten module failed wazero validation: %v", err)}
	}
	defer compiled.Close(ctx)
	return nil
}
