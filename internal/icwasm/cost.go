// Package icwasm holds IC-specific knowledge layered on top of the generic
// internal/wasm object model: the ic0 system-call cost table metering
// consults, and (in the candid subpackage) the byte-exact wire encoding the
// profiling endpoints reply with.
package icwasm

import icwasmtype "github.com/dfinity/ic-wasm/internal/wasm"

// CostKind discriminates how an ic0 call's weight is determined.
type CostKind int

const (
	// CostStatic charges a fixed amount regardless of arguments.
	CostStatic CostKind = iota
	// CostDynamic charges Static plus PerByte times the i32 value of the
	// call's SizeArg-th argument (e.g. a copy length).
	CostDynamic
	// CostDynamic64 is CostDynamic but the size argument is i64 (the
	// stable64_* family).
	CostDynamic64
)

// FunctionCost is one ic0 method's metering weight.
type FunctionCost struct {
	Kind    CostKind
	Static  int64
	PerByte int64
	SizeArg int // index into the call's argument list, valid when Kind != CostStatic
}

// CostSchedule selects which ic0 table Weights uses. Under
// CostScheduleCurrent ic0 calls are weighted closer to their actual
// replica-side execution cost; CostScheduleLegacy's table is empty, so an
// ic0 call costs only its per-instruction call weight. The per-instruction
// cost classes (internal/wasm/opcodes.go) are charged under both schedules.
// The zero value is CostScheduleCurrent. See DESIGN.md's Open Question entry.
type CostSchedule int

const (
	CostScheduleCurrent CostSchedule = iota
	CostScheduleLegacy
)

// legacyWeights charges a flat 0 for every ic0 call: the call-site overhead
// itself is already counted by ClassCall in the per-instruction schedule, so
// under the legacy scheme ic0 calls add nothing extra beyond that.
var legacyWeights = map[string]FunctionCost{}

// currentWeights assigns each ic0 method a cost reflecting its relative
// expense on the replica: cheap accessors are free, anything that copies
// bytes scales with the copy length, anything that touches consensus
// (certified data, cycles, the timer) or crosses a subnet boundary is
// charged a large static premium.
var currentWeights = map[string]FunctionCost{
	"msg_arg_data_size":      {Kind: CostStatic, Static: 0},
	"msg_arg_data_copy":      {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 2},
	"msg_caller_size":        {Kind: CostStatic, Static: 0},
	"msg_caller_copy":        {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 2},
	"msg_reject_code":        {Kind: CostStatic, Static: 0},
	"msg_reject_msg_size":    {Kind: CostStatic, Static: 0},
	"msg_reject_msg_copy":    {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 2},
	"msg_reply_data_append":  {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 1},
	"msg_reply":              {Kind: CostStatic, Static: 500},
	"msg_reject":             {Kind: CostDynamic, Static: 500, PerByte: 1, SizeArg: 1},
	"msg_cycles_available":   {Kind: CostStatic, Static: 500},
	"msg_cycles_available128": {Kind: CostStatic, Static: 500},
	"msg_cycles_refunded":    {Kind: CostStatic, Static: 500},
	"msg_cycles_refunded128": {Kind: CostStatic, Static: 500},
	"msg_cycles_accept":      {Kind: CostStatic, Static: 500},
	"msg_cycles_accept128":   {Kind: CostStatic, Static: 500},
	"canister_self_size":     {Kind: CostStatic, Static: 0},
	"canister_self_copy":     {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 2},
	"canister_cycle_balance": {Kind: CostStatic, Static: 500},
	"canister_cycle_balance128": {Kind: CostStatic, Static: 500},
	"certified_data_set":        {Kind: CostDynamic, Static: 500, PerByte: 1, SizeArg: 1},
	"data_certificate_present":  {Kind: CostStatic, Static: 0},
	"data_certificate_size":     {Kind: CostStatic, Static: 0},
	"data_certificate_copy":     {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 2},
	"time":                      {Kind: CostStatic, Static: 500},
	"global_timer_set":          {Kind: CostStatic, Static: 500},
	"performance_counter":       {Kind: CostStatic, Static: 200},
	"debug_print":               {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 1},
	"trap":                      {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 1},
	"call_new":                  {Kind: CostStatic, Static: 0},
	"call_on_cleanup":           {Kind: CostStatic, Static: 0},
	"call_data_append":          {Kind: CostDynamic, Static: 0, PerByte: 1, SizeArg: 1},
	"call_cycles_add":           {Kind: CostStatic, Static: 500},
	"call_cycles_add128":        {Kind: CostStatic, Static: 500},
	"call_perform":              {Kind: CostStatic, Static: 5000},
	"stable_size":               {Kind: CostStatic, Static: 500},
	"stable64_size":             {Kind: CostStatic, Static: 500},
	"stable_grow":               {Kind: CostDynamic, Static: 500, PerByte: 100, SizeArg: 0},
	"stable64_grow":             {Kind: CostDynamic64, Static: 500, PerByte: 100, SizeArg: 0},
	"stable_write":              {Kind: CostDynamic, Static: 500, PerByte: 1, SizeArg: 2},
	"stable64_write":            {Kind: CostDynamic64, Static: 500, PerByte: 1, SizeArg: 2},
	"stable_read":               {Kind: CostDynamic, Static: 500, PerByte: 1, SizeArg: 2},
	"stable64_read":             {Kind: CostDynamic64, Static: 500, PerByte: 1, SizeArg: 2},
	"cycles_burn128":            {Kind: CostStatic, Static: 500},
}

// Weights returns the cost table for schedule, keyed by ic0 method name.
func Weights(schedule CostSchedule) map[string]FunctionCost {
	if schedule == CostScheduleLegacy {
		return legacyWeights
	}
	return currentWeights
}

// Lookup reports the cost of calling the ic0 import id resolves to, and
// whether the active table has an entry for it. Locally defined functions,
// other-module imports and ic0 methods missing from the table report false;
// the metering pass then charges the call its plain per-instruction weight.
func Lookup(m *icwasmtype.Module, id icwasmtype.FunctionID, schedule CostSchedule) (FunctionCost, bool) {
	f := m.Func(id)
	if !f.IsImport() || f.ImportModule != "ic0" {
		return FunctionCost{}, false
	}
	fc, ok := Weights(schedule)[f.ImportName]
	return fc, ok
}
