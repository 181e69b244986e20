// Package natives implements the host binding registry: the four
// parallel, index-keyed tables (native functions, native processes,
// native classes, native structs) a host program registers before
// loading or running script bytecode, plus the second-level Module
// namespace. Registration is monotonic — indices never shift once
// assigned, so a saved bytecode file's native-table references stay
// valid for the lifetime of the registry.
package natives

import (
	"github.com/pkg/errors"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/value"
)

// Function is a native function callback: it receives the stack-relative
// argument slice and returns a single Value (or an error, turned into a
// RuntimeError/throwable by the caller). vm is typed any to keep this
// package independent of pkg/vm.
type Function func(vm any, args []value.Value) (value.Value, error)

// NativeProcessDef is a native process template: a host callback invoked
// once per scheduler tick in place of an interpreted fiber. Processes
// spawned from it skip the bytecode interpreter entirely.
type NativeProcessDef struct {
	Name string
	Run  func(vm any, privates map[string]value.Value) (done bool, err error)
}

// Entry pairs a registered name with its arity, the pair the loader's
// native-table match-exact validation checks alongside index position.
type Entry struct {
	Name  string
	Arity int
}

// Registry holds every native table a host program has registered.
type Registry struct {
	functions     []Function
	functionMeta  []Entry
	processes     []*NativeProcessDef
	processMeta   []Entry
	classes       []*bytecode.NativeClassDef
	structs       []*bytecode.NativeStructDef
	Modules       map[string]*Module
}

func NewRegistry() *Registry {
	return &Registry{Modules: make(map[string]*Module)}
}

// RegisterFunction appends fn as the next native-function index and
// returns it.
func (r *Registry) RegisterFunction(name string, arity int, fn Function) int32 {
	idx := int32(len(r.functions))
	r.functions = append(r.functions, fn)
	r.functionMeta = append(r.functionMeta, Entry{Name: name, Arity: arity})
	return idx
}

func (r *Registry) Function(idx int32) (Function, bool) {
	if idx < 0 || int(idx) >= len(r.functions) {
		return nil, false
	}
	return r.functions[idx], true
}

// RegisterProcess appends def as the next native-process index.
func (r *Registry) RegisterProcess(name string, def *NativeProcessDef) int32 {
	idx := int32(len(r.processes))
	r.processes = append(r.processes, def)
	r.processMeta = append(r.processMeta, Entry{Name: name, Arity: 0})
	return idx
}

func (r *Registry) Process(idx int32) (*NativeProcessDef, bool) {
	if idx < 0 || int(idx) >= len(r.processes) {
		return nil, false
	}
	return r.processes[idx], true
}

// RegisterClass appends def as the next native-class index.
func (r *Registry) RegisterClass(def *bytecode.NativeClassDef) int32 {
	idx := int32(len(r.classes))
	r.classes = append(r.classes, def)
	return idx
}

func (r *Registry) Class(idx int32) (*bytecode.NativeClassDef, bool) {
	if idx < 0 || int(idx) >= len(r.classes) {
		return nil, false
	}
	return r.classes[idx], true
}

// RegisterStruct appends def as the next native-struct index.
func (r *Registry) RegisterStruct(def *bytecode.NativeStructDef) int32 {
	idx := int32(len(r.structs))
	r.structs = append(r.structs, def)
	return idx
}

func (r *Registry) Struct(idx int32) (*bytecode.NativeStructDef, bool) {
	if idx < 0 || int(idx) >= len(r.structs) {
		return nil, false
	}
	return r.structs[idx], true
}

// RegisterModule installs m under name, replacing any prior module of
// the same name (hosts register modules once at startup; there is no
// monotonic-index requirement for modules themselves, only for the
// function table within one).
func (r *Registry) RegisterModule(name string, m *Module) {
	r.Modules[name] = m
}

// VerifyAgainst implements the loader's native-table match-exact policy:
// for every (index, name, arity) the file expects, the registry MUST
// have a runtime entry at that index with the same name and arity.
func (r *Registry) VerifyAgainst(expectedFunctions, expectedProcesses []Entry) error {
	if err := verify(r.functionMeta, expectedFunctions, "native function"); err != nil {
		return err
	}
	if err := verify(r.processMeta, expectedProcesses, "native process"); err != nil {
		return err
	}
	return nil
}

func verify(have, want []Entry, label string) error {
	if len(have) < len(want) {
		return errors.Errorf("%s table too short: have %d, file expects %d", label, len(have), len(want))
	}
	for i, w := range want {
		if have[i].Name != w.Name || have[i].Arity != w.Arity {
			return errors.Errorf("%s #%d mismatch: have %s/%d, file expects %s/%d",
				label, i, have[i].Name, have[i].Arity, w.Name, w.Arity)
		}
	}
	return nil
}

// FunctionEntries and ProcessEntries expose the (name, arity) metadata
// for save — the bytefile writer records these so a future load can run
// VerifyAgainst.
func (r *Registry) FunctionEntries() []Entry { return r.functionMeta }
func (r *Registry) ProcessEntries() []Entry  { return r.processMeta }
