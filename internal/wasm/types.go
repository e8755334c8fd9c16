// Package wasm is the in-memory object model for a WebAssembly module: types,
// imports, functions with typed instruction trees, memories, globals, tables,
// data segments, exports, and custom sections. It is the shared façade that
// both the instrumentation engine and the resource limiter mutate.
package wasm

// ValType is a WebAssembly value type, encoded as its single-byte binary tag.
type ValType byte

const (
	ValTypeI32       ValType = 0x7F
	ValTypeI64       ValType = 0x7E
	ValTypeF32       ValType = 0x7D
	ValTypeF64       ValType = 0x7C
	ValTypeV128      ValType = 0x7B
	ValTypeFuncref   ValType = 0x70
	ValTypeExternref ValType = 0x6F
)

func (v ValType) String() string {
	switch v {
	case ValTypeI32:
		return "i32"
	case ValTypeI64:
		return "i64"
	case ValTypeF32:
		return "f32"
	case ValTypeF64:
		return "f64"
	case ValTypeV128:
		return "v128"
	case ValTypeFuncref:
		return "funcref"
	case ValTypeExternref:
		return "externref"
	default:
		return "unknown"
	}
}

// TypeID indexes into Module.Types.
type TypeID uint32

// FunctionID indexes into Module.Funcs. The index space is shared between
// imported and local functions, imports first, matching the binary format.
type FunctionID uint32

// GlobalID indexes into Module.Globals, imports first.
type GlobalID uint32

// MemoryID indexes into Module.Memories, imports first.
type MemoryID uint32

// TableID indexes into Module.Tables, imports first.
type TableID uint32

// DataID indexes into Module.Datas.
type DataID uint32

// ElemID indexes into Module.Elems.
type ElemID uint32

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (t *FuncType) Equal(o *FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits describes the min/max page counts of a memory or table.
type Limits struct {
	Min     uint64
	Max     uint64
	HasMax  bool
	Is64Bit bool // memory64 proposal: addresses and limits are i64
}

// Memory is the module's linear memory declaration. At most one is supported.
type Memory struct {
	Limits Limits
}

// Table holds a reference-typed table (only used for call_indirect targets here).
type Table struct {
	ElemType ValType
	Limits   Limits
}

// GlobalInit is a constant initializer expression (the only kind this model supports).
type GlobalInit struct {
	ValType ValType
	I32     int32
	I64     int64
	F32     uint32
	F64     uint64
	// RefNull / RefFunc inits are rare for canisters; kept for round-tripping.
	IsRefNull bool
	RefFunc   *FunctionID
}

// Global is a module-level global variable.
type Global struct {
	Type    ValType
	Mutable bool
	Init    GlobalInit
	Name    string
}

// ImportKind discriminates the kind of entity an Import introduces.
type ImportKind int

const (
	ImportFunc ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import is a single module-level import. The concrete entity it introduces
// is appended to the matching index space (Funcs/Tables/Memories/Globals) in
// import order, ahead of any locally defined entities.
type Import struct {
	Module string
	Name   string
	Kind   ImportKind
	// TypeIdx is valid when Kind == ImportFunc.
	TypeIdx uint32
	// GlobalType/GlobalMutable are valid when Kind == ImportGlobal.
	GlobalType    ValType
	GlobalMutable bool
	// TableType/TableLimits are valid when Kind == ImportTable.
	TableType   ValType
	TableLimits Limits
	// MemoryLimits is valid when Kind == ImportMemory.
	MemoryLimits Limits
}

// Function is an entry in the shared function index space: either imported
// (Local == nil) or locally defined (Local != nil).
type Function struct {
	TypeIdx uint32
	Local   *LocalFunction
	// Name is the function's declared name, from the name custom section or
	// a builder-assigned synthetic name for emitted helpers. Empty if unnamed.
	Name string
	// ImportModule/ImportName are set when this entry came from an Import.
	ImportModule string
	ImportName   string
}

func (f *Function) IsImport() bool { return f.Local == nil }

// LocalFunction is a function body: its additional locals (beyond params)
// and its entry instruction sequence.
type LocalFunction struct {
	Locals []ValType
	Body   *InstrSeq
}

// DataMode discriminates active vs passive data segments.
type DataMode int

const (
	DataActive DataMode = iota
	DataPassive
)

// Data is a data segment.
type Data struct {
	Mode   DataMode
	Memory MemoryID
	Offset GlobalInit // constant offset expression, only meaningful when Mode == DataActive
	Bytes  []byte
}

// Elem is an element segment (used for call_indirect tables).
type Elem struct {
	Table   TableID
	Offset  GlobalInit
	Active  bool
	FuncIdx []FunctionID
}

// ExportKind discriminates what an Export refers to.
type ExportKind int

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export is a single named export.
type Export struct {
	Name string
	Kind ExportKind
	Idx  uint32 // indexes the matching space (FunctionID, TableID, MemoryID, or GlobalID)
}

// CustomSection is a raw, opaque custom section. IC metadata sections are
// named "icp:public <name>" or "icp:private <name>"; everything else
// (producers, target_features, the name section once finalized) is carried
// through unmodified unless a pass explicitly replaces it.
type CustomSection struct {
	Name  string
	Bytes []byte
}

// Module is the full in-memory object model of a parsed Wasm binary.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Funcs     []Function
	Tables    []Table
	Memories  []Memory
	Globals   []Global
	Exports   []Export
	Start     *FunctionID
	Elems     []Elem
	Datas     []Data
	Customs   []CustomSection
	DataCount bool // whether a DataCount section must be emitted (needed once any bulk-memory op references a passive segment)
}

func New() *Module {
	return &Module{}
}

// AddType interns a function type, returning an existing index if an
// identical signature is already present.
func (m *Module) AddType(params, results []ValType) uint32 {
	ft := FuncType{Params: params, Results: results}
	for i := range m.Types {
		if m.Types[i].Equal(&ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

func (m *Module) TypeOf(id FunctionID) *FuncType {
	return &m.Types[m.Funcs[id].TypeIdx]
}

func (m *Module) Func(id FunctionID) *Function {
	return &m.Funcs[id]
}

// AddImportFunc appends a function import, returning its FunctionID.
func (m *Module) AddImportFunc(module, name string, typeIdx uint32) FunctionID {
	m.Imports = append(m.Imports, Import{Module: module, Name: name, Kind: ImportFunc, TypeIdx: typeIdx})
	m.Funcs = append(m.Funcs, Function{TypeIdx: typeIdx, ImportModule: module, ImportName: name})
	return FunctionID(len(m.Funcs) - 1)
}

// AddLocalFunc appends a locally defined function, returning its FunctionID.
func (m *Module) AddLocalFunc(typeIdx uint32, locals []ValType, body *InstrSeq) FunctionID {
	m.Funcs = append(m.Funcs, Function{TypeIdx: typeIdx, Local: &LocalFunction{Locals: locals, Body: body}})
	return FunctionID(len(m.Funcs) - 1)
}

// AddGlobal appends a module-level global, returning its GlobalID.
func (m *Module) AddGlobal(vt ValType, mutable bool, init GlobalInit) GlobalID {
	m.Globals = append(m.Globals, Global{Type: vt, Mutable: mutable, Init: init})
	return GlobalID(len(m.Globals) - 1)
}

// FindImportFunc returns the FunctionID of an imported function by
// (module, name), if present.
func (m *Module) FindImportFunc(module, name string) (FunctionID, bool) {
	for i, im := range m.Imports {
		if im.Kind != ImportFunc {
			continue
		}
		if im.Module == module && im.Name == name {
			_ = i
			return m.importFuncIndex(i), true
		}
	}
	return 0, false
}

// importFuncIndex maps the i-th Import entry (known to be ImportFunc) back to
// its position in the shared Funcs index space. Since imports are appended to
// Funcs in declaration order before any local functions, this is simply the
// count of function-kind imports up to and including index i.
func (m *Module) importFuncIndex(i int) FunctionID {
	count := FunctionID(0)
	for j := 0; j <= i; j++ {
		if m.Imports[j].Kind == ImportFunc {
			if j == i {
				return count
			}
			count++
		}
	}
	return count
}

// FindExport returns the export entry with the given name, if present.
func (m *Module) FindExport(name string) (*Export, bool) {
	for i := range m.Exports {
		if m.Exports[i].Name == name {
			return &m.Exports[i], true
		}
	}
	return nil, false
}

// FindExportFunc returns the FunctionID of a function export by name.
func (m *Module) FindExportFunc(name string) (FunctionID, bool) {
	e, ok := m.FindExport(name)
	if !ok || e.Kind != ExportFunc {
		return 0, false
	}
	return FunctionID(e.Idx), true
}

func (m *Module) AddExport(name string, kind ExportKind, idx uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
}

// RemoveCustom deletes every custom section with the given exact name.
func (m *Module) RemoveCustom(name string) bool {
	found := false
	out := m.Customs[:0]
	for _, c := range m.Customs {
		if c.Name == name {
			found = true
			continue
		}
		out = append(out, c)
	}
	m.Customs = out
	return found
}

func (m *Module) AddCustom(name string, data []byte) {
	m.Customs = append(m.Customs, CustomSection{Name: name, Bytes: data})
}
