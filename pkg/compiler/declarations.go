package compiler

import (
	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/privates"
)

// compileFunctionLike finishes setting up fc (locals already declared
// for params/self) and compiles body into fc.fn.Code. Every declared
// local anywhere in body — including inside loops and try/catch, which
// re-execute their declaration site more than once at runtime — gets a
// stack slot reserved once via PUSH_NIL at entry; a VarDecl statement
// then just overwrites its own fixed slot rather than growing the stack.
func (c *Compiler) compileFunctionLike(fc *funcCompiler, body []ast.Statement) {
	slots := make(map[*ast.VarDecl][]int)
	trySlots := make(map[*ast.TryStmt]int)
	next := fc.nextSlot
	next = countVarSlots(body, next, slots, trySlots)
	reserve := next - fc.nextSlot
	for i := 0; i < reserve; i++ {
		fc.fn.Code.Emit(bytecode.OpPushNil, 0, 0)
	}
	fc.nextSlot = next
	fc.varSlots = slots
	fc.trySlots = trySlots

	for _, st := range body {
		c.compileStmt(fc, st)
	}
	fc.fn.Code.Emit(bytecode.OpReturnNil, 0, 0)
	fc.fn.LocalCount = fc.nextSlot
}

// countVarSlots recurses through a statement list's nested control-flow
// bodies (not into nested function/method/closure scopes, which get
// their own funcCompiler and their own slot numbering) assigning each
// VarDecl its starting slot. A TryStmt also claims one slot up front —
// for its bound catch variable, or for stashing the thrown value across
// a finally-only rethrow — so compileTry never grows the stack past
// what was reserved by this pass's PUSH_NILs.
func countVarSlots(stmts []ast.Statement, next int, out map[*ast.VarDecl][]int, tryOut map[*ast.TryStmt]int) int {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			ids := make([]int, len(s.Names))
			for i := range s.Names {
				ids[i] = next
				next++
			}
			out[s] = ids
		case *ast.IfStmt:
			next = countVarSlots(s.Then, next, out, tryOut)
			next = countVarSlots(s.Else, next, out, tryOut)
		case *ast.WhileStmt:
			next = countVarSlots(s.Body, next, out, tryOut)
		case *ast.ForStmt:
			if vd, ok := s.Init.(*ast.VarDecl); ok {
				ids := make([]int, len(vd.Names))
				for i := range vd.Names {
					ids[i] = next
					next++
				}
				out[vd] = ids
			}
			next = countVarSlots(s.Body, next, out, tryOut)
		case *ast.TryStmt:
			hasCatch := s.CatchVar != "" || len(s.CatchBody) > 0
			hasFinally := len(s.FinallyBody) > 0
			if hasCatch || hasFinally {
				tryOut[s] = next
				next++
			}
			next = countVarSlots(s.Body, next, out, tryOut)
			next = countVarSlots(s.CatchBody, next, out, tryOut)
			next = countVarSlots(s.FinallyBody, next, out, tryOut)
		}
	}
	return next
}

// compileFreeFunction compiles a top-level `function` declaration's
// body into the Function slot reserved for it in pass one.
func (c *Compiler) compileFreeFunction(idx int32, decl *ast.FunctionDecl) {
	fn := c.prog.Function(idx)
	fc := &funcCompiler{fn: fn}
	for _, p := range decl.Params {
		fc.declareLocal(p)
	}
	c.cur = fc
	c.compileFunctionLike(fc, decl.Body)
}

// compileClassBody fills in a ClassDef's Fields/Methods now that every
// blueprint (including forward-referenced superclasses) is registered.
func (c *Compiler) compileClassBody(ce *classEntry) {
	cd := ce.def
	cd.Fields = make([]bytecode.FieldDef, len(ce.decl.Fields))
	for i, name := range ce.decl.Fields {
		cd.Fields[i] = bytecode.FieldDef{Name: name}
	}
	fieldIdx := make(map[string]int)
	for i, fd := range cd.AllFields() {
		fieldIdx[fd.Name] = i
	}
	for _, m := range ce.decl.Methods {
		cd.Methods[m.Name] = c.compileMethod(m, cd, fieldIdx, false)
	}
}

// compileProcessBody compiles a `process` declaration's Body as the
// blueprint's single schedulable entry point (self at slot 0, explicit
// params following, exactly the convention scheduler.spawnScript pushes
// onto a new instance's fiber) plus its ordinary helper Methods. Bare
// identifiers inside either resolve through the fixed privates table,
// not through ClassDef field indices — a process declares no fields of
// its own.
func (c *Compiler) compileProcessBody(pe *processEntry) {
	pd := pe.def
	body := bytecode.NewFunction("process "+pe.decl.Name, len(pe.decl.Params), len(pe.decl.Params), 0)
	pd.Body = body

	fc := &funcCompiler{fn: body, isProcess: true}
	fc.declareLocal("self")
	for _, p := range pe.decl.Params {
		fc.declareLocal(p)
	}
	c.cur = fc
	c.compileFunctionLike(fc, pe.decl.Body)

	for _, m := range pe.decl.Methods {
		pd.Methods[m.Name] = c.compileMethodFor(m, nil, nil, true)
	}
}

// compileMethod compiles one ClassDecl method. init methods receive no
// special treatment here beyond being stored under the "init" selector;
// NewExpr is what gives them constructor semantics.
func (c *Compiler) compileMethod(m *ast.MethodDecl, cd *bytecode.ClassDef, fieldIdx map[string]int, isProcess bool) *bytecode.Function {
	return c.compileMethodFor(m, cd, fieldIdx, isProcess)
}

func (c *Compiler) compileMethodFor(m *ast.MethodDecl, cd *bytecode.ClassDef, fieldIdx map[string]int, isProcess bool) *bytecode.Function {
	fn := bytecode.NewFunction(m.Name, len(m.Params), len(m.Params), 0)
	fc := &funcCompiler{fn: fn, class: cd, fieldIdx: fieldIdx, isProcess: isProcess}
	fc.declareLocal("self")
	for _, p := range m.Params {
		fc.declareLocal(p)
	}
	prev := c.cur
	c.cur = fc
	c.compileFunctionLike(fc, m.Body)
	c.cur = prev
	return fn
}

// resolvePrivate looks up name in the fixed process-private slot table.
func resolvePrivate(name string) (int, bool) {
	idx, ok := privates.Lookup(name)
	if !ok {
		return 0, false
	}
	return int(idx), true
}
