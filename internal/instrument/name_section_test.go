package instrument

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/icwasm/candid"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wabin/leb128"
)

func buildNameSection(names map[uint32]string) []byte {
	var payload []byte
	payload = append(payload, leb128.EncodeUint32(uint32(len(names)))...)
	for idx, name := range names {
		payload = append(payload, leb128.EncodeUint32(idx)...)
		payload = append(payload, leb128.EncodeUint32(uint32(len(name)))...)
		payload = append(payload, []byte(name)...)
	}

	var out []byte
	out = append(out, nameSubsectionFunc)
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	out = append(out, payload...)
	return out
}

func TestParseNameSectionPopulatesFunctionNames(t *testing.T) {
	m := wasm.New()
	fb := wasm.NewFunctionBuilder(m, nil, nil)
	fb.Body().I32Const(0).Drop()
	id := fb.Finish()

	m.AddCustom("name", buildNameSection(map[uint32]string{uint32(id): "my_canister_func"}))

	parseNameSection(m)

	assert.Equal(t, "my_canister_func", m.Funcs[id].Name)
}

func TestParseNameSectionIgnoresMissingSection(t *testing.T) {
	m := wasm.New()
	assert.NotPanics(t, func() { parseNameSection(m) })
}

func TestAddPublicNameSectionSkipsUnnamedAndImportedFunctions(t *testing.T) {
	m := wasm.New()
	m.AddImportFunc("ic0", "msg_reply", m.AddType(nil, nil))

	fbNamed := wasm.NewFunctionBuilder(m, nil, nil)
	fbNamed.Body().I32Const(0).Drop()
	named := fbNamed.Finish()
	m.Funcs[named].Name = "named_fn"

	fbUnnamed := wasm.NewFunctionBuilder(m, nil, nil)
	fbUnnamed.Body().I32Const(0).Drop()
	fbUnnamed.Finish()

	s := &state{m: m}
	s.addPublicNameSection()

	var found bool
	for _, c := range m.Customs {
		if c.Name == publicNameSection {
			found = true
			assert.NotEmpty(t, c.Bytes)
			assert.Equal(t, candid.NameTableReply([]candid.NameEntry{{Index: uint16(named), Name: "named_fn"}}), c.Bytes,
				"only the named local function may be listed")
		}
	}
	require.True(t, found)
}

func TestAddPublicNameSectionReplacesPriorRun(t *testing.T) {
	m := wasm.New()
	fb := wasm.NewFunctionBuilder(m, nil, nil)
	fb.Body().I32Const(0).Drop()
	id := fb.Finish()
	m.Funcs[id].Name = "v1"

	s := &state{m: m}
	s.addPublicNameSection()
	first := len(m.Customs)

	m.Funcs[id].Name = "v2"
	s.addPublicNameSection()

	assert.Equal(t, first, len(m.Customs), "re-running must replace, not duplicate, the section")
}
