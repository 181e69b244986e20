package compiler

import (
	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/value"
)

// refKind tags how a resolved identifier reaches its storage.
type refKind int

const (
	refLocal refKind = iota
	refUpvalue
	refField
	refGlobal
)

type varRef struct {
	kind refKind
	idx  int
}

// resolve implements bare-identifier lookup order: local, upvalue,
// self field (process privates take priority inside a process body/
// method; ordinary class fields otherwise), then global — auto-
// declaring an unseen name as a new global, matching a dynamic
// scripting language's usual looseness about globals.
func (c *Compiler) resolve(fc *funcCompiler, name string) varRef {
	if slot, ok := fc.findLocal(name); ok {
		return varRef{refLocal, slot}
	}
	if idx, ok := resolveUpvalue(fc, name); ok {
		return varRef{refUpvalue, idx}
	}
	if fc.isProcess {
		if idx, ok := resolvePrivate(name); ok {
			return varRef{refField, idx}
		}
	}
	if fc.class != nil {
		if idx, ok := fc.fieldIdx[name]; ok {
			return varRef{refField, idx}
		}
	}
	if idx, ok := c.globals[name]; ok {
		return varRef{refGlobal, int(idx)}
	}
	idx := c.prog.AddGlobal(name)
	c.globals[name] = idx
	return varRef{refGlobal, int(idx)}
}

func (c *Compiler) emitLoad(fc *funcCompiler, ref varRef) {
	code := fc.fn.Code
	switch ref.kind {
	case refLocal:
		code.Emit(bytecode.OpLoadLocal, int32(ref.idx), 0)
	case refUpvalue:
		code.Emit(bytecode.OpLoadUpvalue, int32(ref.idx), 0)
	case refField:
		code.Emit(bytecode.OpLoadField, int32(ref.idx), 0)
	case refGlobal:
		code.Emit(bytecode.OpLoadGlobalIdx, int32(ref.idx), 0)
	}
}

// emitStore leaves the stored value on the stack (assignment is an
// expression), matching every STORE_* opcode's own contract.
func (c *Compiler) emitStore(fc *funcCompiler, ref varRef) {
	code := fc.fn.Code
	switch ref.kind {
	case refLocal:
		code.Emit(bytecode.OpStoreLocal, int32(ref.idx), 0)
	case refUpvalue:
		code.Emit(bytecode.OpStoreUpvalue, int32(ref.idx), 0)
	case refField:
		code.Emit(bytecode.OpStoreField, int32(ref.idx), 0)
	case refGlobal:
		code.Emit(bytecode.OpStoreGlobalIdx, int32(ref.idx), 0)
	}
}

var binaryOps = map[string]bytecode.Opcode{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
	"==": bytecode.OpEq, "!=": bytecode.OpNeq,
	"&&": bytecode.OpAnd, "||": bytecode.OpOr,
	"&": bytecode.OpBitAnd, "|": bytecode.OpBitOr, "^": bytecode.OpBitXor,
	"<<": bytecode.OpShl, ">>": bytecode.OpShr,
}

// compileExpr compiles expr so it leaves exactly one value on the
// stack — its own result — consuming whatever its subexpressions
// pushed. Every statement that compiles an expression for effect relies
// on this net +1 contract to know it must follow with one POP.
func (c *Compiler) compileExpr(fc *funcCompiler, expr ast.Expression) {
	code := fc.fn.Code
	switch e := expr.(type) {
	case *ast.IntLiteral:
		code.Emit(bytecode.OpPushConst, code.AddConstant(value.Int(e.Value)), 0)
	case *ast.FloatLiteral:
		code.Emit(bytecode.OpPushConst, code.AddConstant(value.Double(e.Value)), 0)
	case *ast.StringLiteral:
		code.Emit(bytecode.OpPushConst, c.addStringConstant(code, e.Value), 0)
	case *ast.BoolLiteral:
		if e.Value {
			code.Emit(bytecode.OpPushTrue, 0, 0)
		} else {
			code.Emit(bytecode.OpPushFalse, 0, 0)
		}
	case *ast.NilLiteral:
		code.Emit(bytecode.OpPushNil, 0, 0)
	case *ast.SelfExpr:
		code.Emit(bytecode.OpPushSelf, 0, 0)
	case *ast.Identifier:
		c.emitLoad(fc, c.resolve(fc, e.Name))

	case *ast.BinaryExpr:
		c.compileExpr(fc, e.Left)
		c.compileExpr(fc, e.Right)
		op, ok := binaryOps[e.Op]
		if !ok {
			c.errorf("unknown binary operator %q", e.Op)
			return
		}
		code.Emit(op, 0, 0)
	case *ast.UnaryExpr:
		c.compileExpr(fc, e.Right)
		switch e.Op {
		case "!":
			code.Emit(bytecode.OpNot, 0, 0)
		case "-":
			code.Emit(bytecode.OpNeg, 0, 0)
		default:
			c.errorf("unknown unary operator %q", e.Op)
		}

	case *ast.Assignment:
		c.compileAssignment(fc, e)

	case *ast.Call:
		for _, arg := range e.Args {
			c.compileExpr(fc, arg)
		}
		c.compileExpr(fc, e.Callee)
		code.Emit(bytecode.OpCall, int32(len(e.Args)), 0)

	case *ast.MessageSend:
		c.compileMessageSend(fc, e)

	case *ast.IndexExpr:
		c.compileExpr(fc, e.Receiver)
		c.compileExpr(fc, e.Index)
		code.Emit(bytecode.OpIndexGet, 0, 0)

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.compileExpr(fc, el)
		}
		code.Emit(bytecode.OpNewArray, int32(len(e.Elements)), 0)

	case *ast.MapLiteral:
		code.Emit(bytecode.OpNewMap, 0, 0)
		for i := range e.Keys {
			code.Emit(bytecode.OpDup, 0, 0)
			c.compileExpr(fc, e.Keys[i])
			c.compileExpr(fc, e.Values[i])
			code.Emit(bytecode.OpIndexSet, 0, 0)
			code.Emit(bytecode.OpPop, 0, 0)
		}

	case *ast.BlockLiteral:
		c.compileClosure(fc, e)

	case *ast.NewExpr:
		c.compileNew(fc, e)

	case *ast.SpawnExpr:
		c.compileSpawn(fc, e)

	default:
		c.errorf("compiler: unhandled expression %T", expr)
	}
}

// compileAssignment handles `target = value`, which leaves value's own
// result on the stack (assignment is an expression). Only an
// Identifier or an IndexExpr target is supported; a dotted
// `receiver.selector = value` has no setter convention in this
// language, so it is rejected at compile time rather than silently
// compiled as a method call that discards the assignment.
func (c *Compiler) compileAssignment(fc *funcCompiler, a *ast.Assignment) {
	code := fc.fn.Code
	switch t := a.Target.(type) {
	case *ast.Identifier:
		c.compileExpr(fc, a.Value)
		c.emitStore(fc, c.resolve(fc, t.Name))
	case *ast.IndexExpr:
		c.compileExpr(fc, t.Receiver)
		c.compileExpr(fc, t.Index)
		c.compileExpr(fc, a.Value)
		code.Emit(bytecode.OpIndexSet, 0, 0)
	default:
		c.errorf("assignment to %T is not supported", a.Target)
		c.compileExpr(fc, a.Value)
	}
}

// compileMessageSend handles `receiver.selector(args)` and
// `super.selector(args)`. For a super call the parser's Receiver is a
// placeholder for the bare `super` token, not a real expression — the
// compiler ignores it and pushes self directly, exactly the receiver a
// super call dispatches against.
func (c *Compiler) compileMessageSend(fc *funcCompiler, m *ast.MessageSend) {
	code := fc.fn.Code
	if m.Super {
		code.Emit(bytecode.OpPushSelf, 0, 0)
	} else {
		c.compileExpr(fc, m.Receiver)
	}
	for _, arg := range m.Args {
		c.compileExpr(fc, arg)
	}
	selIdx := c.addStringConstant(code, m.Selector)
	operand := bytecode.PackSelector(int(selIdx), len(m.Args))
	if m.Super {
		code.Emit(bytecode.OpSuperCallMethod, operand, 0)
	} else {
		code.Emit(bytecode.OpCallMethod, operand, 0)
	}
}

// compileNew handles `new Name(args)`: NEW_STRUCT/NEW_CLASS_INSTANCE
// never run a constructor themselves, so for a class with an init
// method the compiler dups the fresh instance, calls init with args,
// and discards init's own return value, leaving just the instance.
func (c *Compiler) compileNew(fc *funcCompiler, n *ast.NewExpr) {
	code := fc.fn.Code
	if idx, ok := c.structs[n.TypeName]; ok {
		code.Emit(bytecode.OpNewStruct, idx, 0)
		return
	}
	ce, ok := c.classes[n.TypeName]
	if !ok {
		c.errorf("new: undefined class or struct %q", n.TypeName)
		code.Emit(bytecode.OpPushNil, 0, 0)
		return
	}
	code.Emit(bytecode.OpNewClassInstance, ce.idx, 0)
	if c.classHasInit(ce) {
		code.Emit(bytecode.OpDup, 0, 0)
		for _, arg := range n.Args {
			c.compileExpr(fc, arg)
		}
		selIdx := c.addStringConstant(code, "init")
		code.Emit(bytecode.OpCallMethod, bytecode.PackSelector(int(selIdx), len(n.Args)), 0)
		code.Emit(bytecode.OpPop, 0, 0)
	}
}

// classHasInit reports whether ce's declaration, or any ancestor
// reachable through its Super chain, declares an init method. It walks
// the ast.ClassDecl chain (via c.classes) rather than the compiled
// ClassDef's Methods table, since class bodies compile in unspecified
// map-iteration order — a superclass's Methods table isn't reliably
// populated yet when a subclass's NewExpr needs this answer.
func (c *Compiler) classHasInit(ce *classEntry) bool {
	for ce != nil {
		for _, m := range ce.decl.Methods {
			if m.Name == "init" {
				return true
			}
		}
		if ce.decl.Super == "" {
			return false
		}
		ce = c.classes[ce.decl.Super]
	}
	return false
}

// compileSpawn handles `spawn Name(args)`/`spawn native Name(args)`.
// Script blueprints resolve to the index pre-registered for their
// ProcessDecl; native blueprints have no compile-time definition table
// to consult, so the compiler assigns each distinct native process name
// the next sequential index by first use, the same convention a linked
// native-process table on the host side is expected to number its
// entries by.
func (c *Compiler) compileSpawn(fc *funcCompiler, s *ast.SpawnExpr) {
	code := fc.fn.Code
	for _, arg := range s.Args {
		c.compileExpr(fc, arg)
	}
	if s.Native {
		idx, ok := c.nativeProcessRefs[s.ProcessName]
		if !ok {
			idx = int32(len(c.nativeProcessRefs))
			c.nativeProcessRefs[s.ProcessName] = idx
		}
		code.Emit(bytecode.OpSpawnNativeProcess, bytecode.PackSelector(int(idx), len(s.Args)), 0)
		return
	}
	pe, ok := c.processes[s.ProcessName]
	if !ok {
		c.errorf("spawn: undefined process %q", s.ProcessName)
		code.Emit(bytecode.OpPushNil, 0, 0)
		return
	}
	code.Emit(bytecode.OpSpawnProcess, bytecode.PackSelector(int(pe.idx), len(s.Args)), 0)
}

// compileClosure compiles a block literal into its own Function, with
// fc as its enclosing scope for upvalue resolution, then emits
// NEW_CLOSURE in fc to build the runtime closure value.
func (c *Compiler) compileClosure(fc *funcCompiler, b *ast.BlockLiteral) {
	fn := bytecode.NewFunction("block", len(b.Params), len(b.Params), fc.nextSlot)
	idx := c.prog.AddFunction(fn)

	inner := &funcCompiler{enclosing: fc, fn: fn}
	for _, p := range b.Params {
		inner.declareLocal(p)
	}
	prev := c.cur
	c.cur = inner
	c.compileFunctionLike(inner, b.Body)
	c.cur = prev

	code := fc.fn.Code
	code.Emit(bytecode.OpNewClosure, bytecode.PackClosure(int(idx), fc.nextSlot, len(b.Params)), 0)
}
