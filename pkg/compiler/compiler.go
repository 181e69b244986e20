// Package compiler lowers an ast.Program into a bytecode.Program: a
// two-pass front end (register every top-level name so forward
// references resolve, then walk each body) built around a funcCompiler
// per function/method/closure, in the same instruction-builder style as
// the teacher's original single-pass compiler this package replaces.
package compiler

import (
	"fmt"
	"strings"

	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

// Compiler walks one ast.Program and builds one bytecode.Program.
type Compiler struct {
	prog    *bytecode.Program
	strings *strintern.Pool
	errors  []string

	functions     map[string]int32
	functionDecls map[string]*ast.FunctionDecl
	classes       map[string]*classEntry
	structs       map[string]int32
	processes     map[string]*processEntry
	globals       map[string]int32

	nativeClassRefs   map[string]int32
	nativeProcessRefs map[string]int32

	cur *funcCompiler
}

type classEntry struct {
	idx  int32
	def  *bytecode.ClassDef
	decl *ast.ClassDecl
}

type processEntry struct {
	idx  int32
	def  *bytecode.ProcessDef
	decl *ast.ProcessDecl
}

// funcCompiler compiles one Function body: its locals, its loop stack
// for break/continue, and (for a closure) the enclosing funcCompiler
// upvalue resolution chases through.
type funcCompiler struct {
	enclosing *funcCompiler
	fn        *bytecode.Function

	locals   []localVar
	nextSlot int

	// class/isProcess select how a bare identifier that isn't a local
	// or upvalue resolves before globals are tried: through ClassDef
	// field indices, or through the fixed process-privates table.
	class    *bytecode.ClassDef
	fieldIdx map[string]int

	isProcess bool
	loops     []loopCtx

	varSlots map[*ast.VarDecl][]int
	trySlots map[*ast.TryStmt]int
}

type localVar struct {
	name string
	slot int
}

type loopCtx struct {
	continueJumps []int
	breakJumps    []int
}

// New creates a Compiler with an empty Program.
func New() *Compiler {
	return &Compiler{
		prog:              bytecode.NewProgram(),
		strings:           strintern.New(0),
		functions:         make(map[string]int32),
		functionDecls:     make(map[string]*ast.FunctionDecl),
		classes:           make(map[string]*classEntry),
		structs:           make(map[string]int32),
		processes:         make(map[string]*processEntry),
		globals:           make(map[string]int32),
		nativeClassRefs:   make(map[string]int32),
		nativeProcessRefs: make(map[string]int32),
	}
}

func (c *Compiler) Errors() []string { return c.errors }

func (c *Compiler) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// Compile registers every top-level declaration's name first (so a
// function can call one declared later in the source, a class can
// subclass one declared later, and so on), then compiles every body.
// Bare top-level statements (var decls, expressions, control flow) fold
// into a synthetic entry function, set as Program.EntryFunction.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Program, error) {
	c.registerTopLevel(program.Statements)
	c.resolveSupers()

	entryFn := bytecode.NewFunction("main", 0, 0, 0)
	entryIdx := c.prog.AddFunction(entryFn)
	c.prog.EntryFunction = entryIdx

	main := &funcCompiler{fn: entryFn}
	c.cur = main
	c.compileFunctionLike(main, program.Statements)

	for _, ce := range c.classes {
		c.compileClassBody(ce)
	}
	for _, pe := range c.processes {
		c.compileProcessBody(pe)
	}
	for name, idx := range c.functions {
		decl := c.functionDecls[name]
		if decl == nil {
			continue
		}
		c.compileFreeFunction(idx, decl)
	}

	if len(c.errors) > 0 {
		return nil, fmt.Errorf("compile errors:\n%s", strings.Join(c.errors, "\n"))
	}
	return c.prog, nil
}

// registerTopLevel is pass one: create every Function/ClassDef/
// StructDef/ProcessDef/global up front with empty bodies, so pass two
// can resolve any forward reference.
func (c *Compiler) registerTopLevel(stmts []ast.Statement) {
	for _, stmt := range stmts {
		switch d := stmt.(type) {
		case *ast.FunctionDecl:
			fn := bytecode.NewFunction(d.Name, len(d.Params), len(d.Params), 0)
			idx := c.prog.AddFunction(fn)
			c.functions[d.Name] = idx
			c.functionDecls[d.Name] = d
		case *ast.ClassDecl:
			cd := bytecode.NewClassDef(d.Name, nil)
			idx := c.prog.AddClass(cd)
			c.classes[d.Name] = &classEntry{idx: idx, def: cd, decl: d}
		case *ast.StructDecl:
			fields := make([]bytecode.FieldDef, len(d.Fields))
			for i, name := range d.Fields {
				fields[i] = bytecode.FieldDef{Name: name, Default: value.Nil}
			}
			sd := bytecode.NewStructDef(d.Name, fields)
			idx := c.prog.AddStruct(sd)
			c.structs[d.Name] = idx
		case *ast.ProcessDecl:
			pd := bytecode.NewProcessDef(d.Name, nil)
			idx := c.prog.AddProcess(pd)
			c.processes[d.Name] = &processEntry{idx: idx, def: pd, decl: d}
		case *ast.VarDecl:
			for _, name := range d.Names {
				if _, ok := c.globals[name]; ok {
					continue
				}
				idx := c.prog.AddGlobal(name)
				c.globals[name] = idx
			}
		}
	}
}

// resolveSupers wires each ClassDef/ProcessDef's Super pointer now that
// every blueprint has an entry, regardless of declaration order.
func (c *Compiler) resolveSupers() {
	for _, ce := range c.classes {
		if ce.decl.Super == "" {
			continue
		}
		super, ok := c.classes[ce.decl.Super]
		if !ok {
			c.errorf("class %s: undefined superclass %s", ce.decl.Name, ce.decl.Super)
			continue
		}
		ce.def.Super = super.def
	}
	for _, pe := range c.processes {
		if pe.decl.Super == "" {
			continue
		}
		super, ok := c.processes[pe.decl.Super]
		if !ok {
			c.errorf("process %s: undefined superprocess %s", pe.decl.Name, pe.decl.Super)
			continue
		}
		pe.def.ClassDef.Super = super.def.ClassDef
	}
}

func (c *Compiler) internString(s string) *strintern.String {
	return c.strings.InternString(s)
}

func (c *Compiler) addStringConstant(code *bytecode.Code, s string) int32 {
	return code.AddConstant(value.Str(c.internString(s)))
}

// declareLocal reserves the next stack slot for name in fc, shadowing
// any earlier local of the same name.
func (fc *funcCompiler) declareLocal(name string) int {
	slot := fc.nextSlot
	fc.nextSlot++
	fc.locals = append(fc.locals, localVar{name: name, slot: slot})
	return slot
}

func (fc *funcCompiler) findLocal(name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return fc.locals[i].slot, true
		}
	}
	return -1, false
}

// resolveUpvalue implements the Crafting-Interpreters-style recursive
// upvalue chase: a name not local to fc is looked for in the nearest
// enclosing function's locals first, then in that function's own
// upvalues, building the capture chain one link at a time.
func resolveUpvalue(fc *funcCompiler, name string) (int, bool) {
	if fc.enclosing == nil {
		return -1, false
	}
	if slot, ok := fc.enclosing.findLocal(name); ok {
		return addUpvalue(fc, bytecode.UpvalueDesc{FromParentLocal: true, Index: slot}), true
	}
	if idx, ok := resolveUpvalue(fc.enclosing, name); ok {
		return addUpvalue(fc, bytecode.UpvalueDesc{FromParentLocal: false, Index: idx}), true
	}
	return -1, false
}

func addUpvalue(fc *funcCompiler, uv bytecode.UpvalueDesc) int {
	for i, existing := range fc.fn.Upvalues {
		if existing == uv {
			return i
		}
	}
	fc.fn.Upvalues = append(fc.fn.Upvalues, uv)
	return len(fc.fn.Upvalues) - 1
}
