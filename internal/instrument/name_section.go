package instrument

import (
	"bytes"

	"github.com/dfinity/ic-wasm/internal/icwasm/candid"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/tetratelabs/wabin/leb128"
)

// publicNameSection is the custom section name trace consumers look for to
// resolve integer func_ids back to demangled names (spec.md §4.3.7). It must
// carry the "icp:public" prefix so the metadata facade's IC-section
// preservation invariant (spec.md §4.5) keeps it through any later pass.
const publicNameSection = "icp:public name"

// addPublicNameSection appends a Candid-encoded `vec (nat16, text)` of every
// named local function's (index, demangled name) pair as a custom section,
// replacing any section of the same name a prior instrumentation run left
// behind.
func (s *state) addPublicNameSection() {
	var entries []candid.NameEntry
	for i := range s.m.Funcs {
		if s.m.Funcs[i].Local == nil || s.m.Funcs[i].Name == "" {
			continue
		}
		entries = append(entries, candid.NameEntry{
			Index: uint16(i),
			Name:  s.m.FuncName(wasm.FunctionID(i)),
		})
	}
	s.m.RemoveCustom(publicNameSection)
	s.m.AddCustom(publicNameSection, candid.NameTableReply(entries))
}

// nameSubsectionFunc is the "name" custom section's function-names
// subsection id, per the Wasm name section appendix.
const nameSubsectionFunc = 1

// parseNameSection populates Function.Name from the module's "name" custom
// section, if present, so FuncName/demangle and the icp:public name section have
// real names to work with instead of falling back to func_N everywhere.
// Grounded on utils.rs's get_name_section_functions.
func parseNameSection(m *wasm.Module) {
	for _, c := range m.Customs {
		if c.Name == "name" {
			applyNameSection(m, c.Bytes)
			return
		}
	}
}

func applyNameSection(m *wasm.Module, data []byte) {
	pos := 0
	for pos < len(data) {
		if pos >= len(data) {
			return
		}
		subID := data[pos]
		pos++
		size, n, err := leb128.DecodeUint32(bytes.NewReader(data[pos:]))
		if err != nil {
			return
		}
		pos += n
		if pos+int(size) > len(data) {
			return
		}
		sub := data[pos : pos+int(size)]
		pos += int(size)
		if subID == nameSubsectionFunc {
			applyFuncNames(m, sub)
		}
	}
}

func applyFuncNames(m *wasm.Module, data []byte) {
	pos := 0
	count, n, err := leb128.DecodeUint32(bytes.NewReader(data[pos:]))
	if err != nil {
		return
	}
	pos += n
	for i := uint32(0); i < count; i++ {
		idx, n, err := leb128.DecodeUint32(bytes.NewReader(data[pos:]))
		if err != nil {
			return
		}
		pos += n
		nameLen, n, err := leb128.DecodeUint32(bytes.NewReader(data[pos:]))
		if err != nil {
			return
		}
		pos += n
		if pos+int(nameLen) > len(data) {
			return
		}
		name := string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
		if int(idx) < len(m.Funcs) {
			m.Funcs[idx].Name = name
		}
	}
}
