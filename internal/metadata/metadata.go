// Package metadata implements the icp: custom-section facade (spec.md §4.5):
// add/remove/list/get named metadata blobs, each stored as a raw custom
// section prefixed "icp:public " or "icp:private ". Grounded directly on
// original_source/src/metadata.rs, translated section-for-section.
package metadata

import (
	"strings"

	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/dfinity/ic-wasm/internal/wasm"
)

// Visibility controls whether a metadata section is exposed to anyone
// querying the canister's module hash and metadata list, or only to the
// controller.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) sectionName(name string) string {
	if v == Public {
		return "icp:public " + name
	}
	return "icp:private " + name
}

const metadataPrefix = "icp:"

// Add writes data under name with the given visibility, replacing any
// existing section of either visibility for that name -- a name is never
// both public and private at once.
func Add(m *wasm.Module, name string, visibility Visibility, data []byte) {
	Remove(m, name)
	m.AddCustom(visibility.sectionName(name), data)
}

// Remove deletes the metadata section named name, in either visibility,
// reporting whether anything was removed.
func Remove(m *wasm.Module, name string) bool {
	pub := m.RemoveCustom(Public.sectionName(name))
	priv := m.RemoveCustom(Private.sectionName(name))
	return pub || priv
}

// Entry is one metadata section's name and visibility, as returned by List.
type Entry struct {
	Name       string
	Visibility Visibility
}

// List returns every icp:-prefixed custom section's logical name and
// visibility, in module order.
func List(m *wasm.Module) []Entry {
	var out []Entry
	for _, c := range m.Customs {
		switch {
		case strings.HasPrefix(c.Name, "icp:public "):
			out = append(out, Entry{Name: strings.TrimPrefix(c.Name, "icp:public "), Visibility: Public})
		case strings.HasPrefix(c.Name, "icp:private "):
			out = append(out, Entry{Name: strings.TrimPrefix(c.Name, "icp:private "), Visibility: Private})
		}
	}
	return out
}

// Get returns the UTF-8 text of the metadata section named name, searching
// both visibilities, or a Configuration-kind error if it doesn't exist.
func Get(m *wasm.Module, name string) (string, error) {
	for _, c := range m.Customs {
		if c.Name == Public.sectionName(name) || c.Name == Private.sectionName(name) {
			return string(c.Bytes), nil
		}
	}
	return "", icerr.NewConfiguration("metadata %q not found", name)
}
