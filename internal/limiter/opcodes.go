package limiter

import "github.com/dfinity/ic-wasm/internal/wasm"

// Raw numeric opcodes used when splicing arithmetic into synthesized
// wrapper bodies. Mirrors internal/instrument's own small opcode table; kept
// separate since the two packages' synthesized helpers don't share code.
const (
	numOpI32Add  byte = 0x6A
	numOpI32Eq   byte = 0x46
	numOpI32Ne   byte = 0x47
	numOpI32GtS  byte = 0x4A
	numOpI32GtU  byte = 0x4B
	numOpI32GeU  byte = 0x4F
	numOpI32Eqz  byte = 0x45
	numOpI64Add  byte = 0x7C
	numOpI64GtS  byte = 0x55
	numOpI64GtU  byte = 0x56
)

// opI32Load8S/opI32Store8 are full Wasm opcodes (not OpNumeric folds),
// passed to MemLoad/MemStore directly.
const (
	opI32Load8S wasm.Opcode = 0x2C
	opI32Store8 wasm.Opcode = 0x3A
)
