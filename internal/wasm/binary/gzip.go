package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1F, 0x8B}

// Unwrap transparently decompresses gzip-wrapped input, per spec.md §9's
// "accept gzip or raw Wasm on input, always emit raw Wasm on output". Plain
// Wasm input (magic "\0asm") passes through unchanged.
func Unwrap(data []byte) ([]byte, error) {
	if len(data) < 2 || !bytes.Equal(data[:2], gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip input: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip input: %w", err)
	}
	return out, nil
}
