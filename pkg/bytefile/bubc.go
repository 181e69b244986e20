// Package bytefile implements the BUBC binary format: serialization and
// deserialization of a compiled bytecode.Program, so a host can
// precompile script source once and load the result directly without
// re-running the lexer/parser/compiler on every startup.
//
// File layout (all integers little-endian, floats IEEE-754 bit-exact):
//
//	header:
//	  magic         = "BUBC"
//	  version       = (u16 major, u16 minor)
//	  section_flags : u32   // bitmask: has processes/structs/classes/global names
//	  counts        : u32 x 8
//	              // functions, processes, structs, classes, globals,
//	              // natives, native_processes, modules
//	body:
//	  function_record  x counts[0]
//	  process_record   x counts[1]
//	  struct_record    x counts[2]
//	  class_record     x counts[3]
//	  optional_string  x counts[4]   // global names
//	  native_entry     x counts[5]
//	  native_entry     x counts[6]
//	  module_record    x counts[7]
//
// Every record type begins with a presence byte (0 = null slot, 1 =
// present) where a nil value is possible; strings are a u32 length
// followed by raw bytes, and an "optional string" prefixes that with its
// own presence byte.
package bytefile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/strintern"
)

var magic = [4]byte{'B', 'U', 'B', 'C'}

const (
	versionMajor uint16 = 1
	versionMinor uint16 = 0
)

const (
	flagHasProcesses uint32 = 1 << iota
	flagHasStructs
	flagHasClasses
	flagHasGlobalNames
)

// Save writes prog to path atomically: the encoded bytes go to a sibling
// .tmp file, which is fsync'd and renamed over path only on full success.
// reg supplies the native-function/native-process (name, arity) tables
// the loader will later verify against.
func Save(path string, prog *bytecode.Program, reg *natives.Registry) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "bytefile: create temp file")
	}
	if err := Encode(f, prog, reg); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "bytefile: encode")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "bytefile: fsync")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "bytefile: close temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "bytefile: rename temp file")
	}
	return nil
}

// Load reads a BUBC file from path, verifying it against reg's
// registered native tables (nil reg skips verification; disassemble
// passes an empty registry, not nil). pool interns every loaded
// string once, the same pool a fresh compile would have used.
func Load(path string, pool *strintern.Pool, reg *natives.Registry) (*bytecode.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "bytefile: open")
	}
	defer f.Close()
	return Decode(f, pool, reg)
}

// Encode writes prog's BUBC encoding to w. Unlike Save, it performs no
// atomic-rename dance — callers that need atomicity on disk should use
// Save, or replicate its tmp+fsync+rename sequence around Encode
// themselves (e.g. when writing to a non-path io.Writer in tests).
func Encode(w io.Writer, prog *bytecode.Program, reg *natives.Registry) error {
	bw := &byteWriter{w: w}
	bw.writeRaw(magic[:])
	bw.writeU16(versionMajor)
	bw.writeU16(versionMinor)

	flags := uint32(0)
	if len(prog.Processes) > 0 {
		flags |= flagHasProcesses
	}
	if len(prog.Structs) > 0 {
		flags |= flagHasStructs
	}
	if len(prog.Classes) > 0 {
		flags |= flagHasClasses
	}
	if len(prog.GlobalNames) > 0 {
		flags |= flagHasGlobalNames
	}
	bw.writeU32(flags)

	var funcEntries, procEntries []natives.Entry
	var modules []*natives.Module
	var moduleNames []string
	if reg != nil {
		funcEntries = reg.FunctionEntries()
		procEntries = reg.ProcessEntries()
		for name, m := range reg.Modules {
			moduleNames = append(moduleNames, name)
			modules = append(modules, m)
		}
	}

	counts := [8]uint32{
		uint32(len(prog.Functions)),
		uint32(len(prog.Processes)),
		uint32(len(prog.Structs)),
		uint32(len(prog.Classes)),
		uint32(len(prog.GlobalNames)),
		uint32(len(funcEntries)),
		uint32(len(procEntries)),
		uint32(len(modules)),
	}
	for _, c := range counts {
		bw.writeU32(c)
	}

	classIndex := classIndexOf(prog.Classes)
	processIndex := processIndexOf(prog.Processes)
	for _, fn := range prog.Functions {
		writeFunction(bw, fn)
	}
	for _, pd := range prog.Processes {
		writeProcess(bw, pd, processIndex)
	}
	for _, sd := range prog.Structs {
		writeStruct(bw, sd)
	}
	for _, cd := range prog.Classes {
		writeClass(bw, cd, classIndex)
	}
	for _, name := range prog.GlobalNames {
		bw.writeOptString(name, true)
	}
	for _, e := range funcEntries {
		writeNativeEntry(bw, e)
	}
	for _, e := range procEntries {
		writeNativeEntry(bw, e)
	}
	for i, m := range modules {
		writeModule(bw, moduleNames[i], m)
	}

	return bw.err
}

// Decode reads a BUBC stream from r, reconstructing the bytecode.Program
// and validating native-table references against reg (skipped if reg is
// nil).
func Decode(r io.Reader, pool *strintern.Pool, reg *natives.Registry) (*bytecode.Program, error) {
	br := &byteReader{r: r}

	var gotMagic [4]byte
	br.readRaw(gotMagic[:])
	if br.err != nil {
		return nil, errors.Wrap(br.err, "bytefile: read magic")
	}
	if gotMagic != magic {
		return nil, errors.Errorf("bytefile: bad magic %q (expected %q)", gotMagic, magic)
	}

	major := br.readU16()
	_ = br.readU16() // minor: format is additive within major 1, ignored for now
	if major != versionMajor {
		return nil, errors.Errorf("bytefile: unsupported version %d (expected %d)", major, versionMajor)
	}

	_ = br.readU32() // section_flags: derivable from the counts below, kept for forward compatibility
	var counts [8]uint32
	for i := range counts {
		counts[i] = br.readU32()
	}
	if br.err != nil {
		return nil, errors.Wrap(br.err, "bytefile: read header")
	}

	prog := bytecode.NewProgram()

	functions := make([]*bytecode.Function, counts[0])
	for i := range functions {
		fn, err := readFunction(br, pool)
		if err != nil {
			return nil, errors.Wrapf(err, "bytefile: function %d", i)
		}
		functions[i] = fn
	}
	prog.Functions = functions

	type pendingProcess struct {
		pd        *bytecode.ProcessDef
		superIdx  int32
		nativeIdx int32
	}
	processesRaw := make([]pendingProcess, counts[1])
	for i := range processesRaw {
		pd, superIdx, err := readProcess(br, pool, functions)
		if err != nil {
			return nil, errors.Wrapf(err, "bytefile: process %d", i)
		}
		processesRaw[i] = pendingProcess{pd: pd, superIdx: superIdx}
	}

	structs := make([]*bytecode.StructDef, counts[2])
	for i := range structs {
		sd, err := readStruct(br, pool)
		if err != nil {
			return nil, errors.Wrapf(err, "bytefile: struct %d", i)
		}
		structs[i] = sd
	}
	prog.Structs = structs

	type pendingClass struct {
		cd       *bytecode.ClassDef
		superIdx int32
	}
	classesRaw := make([]pendingClass, counts[3])
	for i := range classesRaw {
		cd, superIdx, err := readClass(br, pool, functions)
		if err != nil {
			return nil, errors.Wrapf(err, "bytefile: class %d", i)
		}
		classesRaw[i] = pendingClass{cd: cd, superIdx: superIdx}
	}
	classes := make([]*bytecode.ClassDef, len(classesRaw))
	for i, c := range classesRaw {
		classes[i] = c.cd
	}
	for _, c := range classesRaw {
		if c.superIdx >= 0 {
			if int(c.superIdx) >= len(classes) {
				return nil, errors.Errorf("bytefile: class %q superclass index %d out of range", c.cd.Name, c.superIdx)
			}
			c.cd.Super = classes[c.superIdx]
		}
	}
	prog.Classes = classes

	processes := make([]*bytecode.ProcessDef, len(processesRaw))
	for i, p := range processesRaw {
		processes[i] = p.pd
	}
	for _, p := range processesRaw {
		if p.superIdx >= 0 {
			if int(p.superIdx) >= len(processes) {
				return nil, errors.Errorf("bytefile: process superclass index %d out of range", p.superIdx)
			}
			p.pd.ClassDef.Super = processes[p.superIdx].ClassDef
		}
	}
	prog.Processes = processes

	globals := make([]string, counts[4])
	for i := range globals {
		name, present := br.readOptString()
		if present {
			globals[i] = name
		}
	}
	prog.GlobalNames = globals

	expectedFuncs := make([]natives.Entry, counts[5])
	for i := range expectedFuncs {
		expectedFuncs[i] = readNativeEntry(br)
	}
	expectedProcs := make([]natives.Entry, counts[6])
	for i := range expectedProcs {
		expectedProcs[i] = readNativeEntry(br)
	}
	moduleChecks := make([]moduleCheck, counts[7])
	for i := range moduleChecks {
		moduleChecks[i] = readModule(br)
	}
	if br.err != nil {
		return nil, errors.Wrap(br.err, "bytefile: read body")
	}

	if reg != nil {
		if err := reg.VerifyAgainst(expectedFuncs, expectedProcs); err != nil {
			return nil, errors.Wrap(err, "bytefile: native table mismatch")
		}
		for _, mc := range moduleChecks {
			if err := verifyModule(reg, mc); err != nil {
				return nil, err
			}
		}
	}

	prog.EntryFunction = -1
	if len(functions) > 0 {
		for i, fn := range functions {
			if fn.Name == "main" {
				prog.EntryFunction = int32(i)
				break
			}
		}
	}

	return prog, nil
}

func classIndexOf(classes []*bytecode.ClassDef) map[*bytecode.ClassDef]int32 {
	m := make(map[*bytecode.ClassDef]int32, len(classes))
	for i, cd := range classes {
		m[cd] = int32(i)
	}
	return m
}

// processIndexOf indexes process blueprints by their embedded ClassDef
// pointer, since a process only ever inherits from another process — its
// Super field is resolved against this map, never against classIndexOf's
// plain-class index.
func processIndexOf(processes []*bytecode.ProcessDef) map[*bytecode.ClassDef]int32 {
	m := make(map[*bytecode.ClassDef]int32, len(processes))
	for i, pd := range processes {
		m[pd.ClassDef] = int32(i)
	}
	return m
}

func superIndex(index map[*bytecode.ClassDef]int32, cd *bytecode.ClassDef) int32 {
	if cd == nil {
		return -1
	}
	if idx, ok := index[cd]; ok {
		return idx
	}
	return -1
}

func verifyModule(reg *natives.Registry, mc moduleCheck) error {
	m, ok := reg.Modules[mc.name]
	if !ok {
		return errors.Errorf("bytefile: module %q not registered", mc.name)
	}
	for i, name := range mc.functionNames {
		if m.FunctionName(uint16(i)) != name {
			return errors.Errorf("bytefile: module %q function #%d mismatch: have %q, file expects %q",
				mc.name, i, m.FunctionName(uint16(i)), name)
		}
	}
	return nil
}

// FormatVersion reports the on-disk format version string for
// diagnostics (cmd/bu's `version` subcommand surfaces it alongside the
// build's own version).
func FormatVersion() string {
	return itoa(int(versionMajor)) + "." + itoa(int(versionMinor))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Ext is the conventional file extension for saved bytecode.
const Ext = ".bubc"

// DefaultOutputPath derives the .bubc path for a given source path,
// replacing its extension.
func DefaultOutputPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return sourcePath[:len(sourcePath)-len(ext)] + Ext
}
