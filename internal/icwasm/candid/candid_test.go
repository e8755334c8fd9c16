package candid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfilingHeaderIsEighteenBytes(t *testing.T) {
	// DIDL(4) + type table (uleb(3) + 3 one-byte-heavy defs = 11) +
	// uleb(2) arg count (1) + 2 single-byte type refs (2) = 18.
	assert.Len(t, ProfilingHeader(), 18)
	assert.Equal(t, []byte("DIDL"), ProfilingHeader()[:4])
}

func TestCyclesReplyFixedWidthSuffix(t *testing.T) {
	full := CyclesReply(0x0102030405060708)
	prefix := full[:len(full)-8]
	suffix := full[len(full)-8:]

	assert.NotEmpty(t, prefix, "the Candid framing prefix must be static/non-empty")
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, suffix, "int64 payload must be little-endian")
}

func TestEmptyReplyIsNonEmptyFramingOnly(t *testing.T) {
	assert.Equal(t, []byte("DIDL"), EmptyReply()[:4])
}

func TestNameTableReplySkipsNothingItIsGiven(t *testing.T) {
	entries := []NameEntry{{Index: 3, Name: "foo"}, {Index: 9, Name: "bar"}}
	out := NameTableReply(entries)
	assert.Equal(t, []byte("DIDL"), out[:4])
	assert.NotEmpty(t, out)
	// DIDL(4) + type table (9) + arg count (1) + vec type ref (1) puts the
	// vec length at offset 15.
	assert.Equal(t, byte(len(entries)), out[15], "the vec length must count every entry given")
}
