package validate

import "github.com/tetratelabs/wazero/api"

// icSupportedFeatures mirrors the Wasm feature set the IC replica's
// execution environment accepts: the WebAssembly 2.0 core feature set, since
// canisters commonly rely on bulk-memory, reference types and sign-extension
// ops that instrumentation and the resource limiter both need to round-trip
// untouched.
func icSupportedFeatures() api.CoreFeatures {
	return api.CoreFeaturesV2
}
