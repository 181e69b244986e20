package compiler

import (
	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/bytecode"
)

// compileStmt compiles one statement. Every expression compiled for its
// value nets exactly +1 to the operand stack (compileExpr's own
// contract); a bare expression statement pops that value back off once
// it's had its effect.
func (c *Compiler) compileStmt(fc *funcCompiler, stmt ast.Statement) {
	code := fc.fn.Code
	switch s := stmt.(type) {
	case nil:
		return
	case *ast.ExprStatement:
		c.compileExpr(fc, s.Expression)
		code.Emit(bytecode.OpPop, 0, 0)

	case *ast.VarDecl:
		ids, ok := fc.varSlots[s]
		for i, name := range s.Names {
			if i < len(s.Values) && s.Values[i] != nil {
				c.compileExpr(fc, s.Values[i])
			} else {
				code.Emit(bytecode.OpPushNil, 0, 0)
			}
			slot := fc.nextSlot
			if ok {
				slot = ids[i]
			} else {
				slot = fc.declareLocal(name)
			}
			code.Emit(bytecode.OpStoreLocal, int32(slot), 0)
			code.Emit(bytecode.OpPop, 0, 0)
			if ok {
				fc.locals = append(fc.locals, localVar{name: name, slot: slot})
			}
		}

	case *ast.ReturnStmt:
		if s.Value != nil {
			c.compileExpr(fc, s.Value)
			code.Emit(bytecode.OpReturn, 0, 0)
		} else {
			code.Emit(bytecode.OpReturnNil, 0, 0)
		}

	case *ast.IfStmt:
		c.compileIf(fc, s)
	case *ast.WhileStmt:
		c.compileWhile(fc, s)
	case *ast.ForStmt:
		c.compileFor(fc, s)

	case *ast.BreakStmt:
		if len(fc.loops) == 0 {
			c.errorf("break outside a loop")
			return
		}
		j := code.Emit(bytecode.OpJump, 0, 0)
		loop := &fc.loops[len(fc.loops)-1]
		loop.breakJumps = append(loop.breakJumps, j)
	case *ast.ContinueStmt:
		if len(fc.loops) == 0 {
			c.errorf("continue outside a loop")
			return
		}
		j := code.Emit(bytecode.OpJump, 0, 0)
		loop := &fc.loops[len(fc.loops)-1]
		loop.continueJumps = append(loop.continueJumps, j)

	case *ast.ThrowStmt:
		c.compileExpr(fc, s.Value)
		code.Emit(bytecode.OpThrow, 0, 0)

	case *ast.TryStmt:
		c.compileTry(fc, s)

	case *ast.FrameStmt:
		code.Emit(bytecode.OpFrame, s.Percent, 0)
	case *ast.YieldStmt:
		code.Emit(bytecode.OpYield, 0, 0)
	case *ast.ExitStmt:
		code.Emit(bytecode.OpExitProcess, 0, 0)

	case *ast.KillStmt:
		c.compileExpr(fc, s.Target)
		code.Emit(bytecode.OpKillProcess, 0, 0)

	case *ast.PrintStmt:
		c.compileExpr(fc, s.Value)
		code.Emit(bytecode.OpPrint, 0, 0)

	case *ast.FunctionDecl, *ast.ClassDecl, *ast.StructDecl, *ast.ProcessDecl:
		// Declarations are handled by Compile's registration/second pass;
		// encountering one here (nested) is not part of the grammar.
		c.errorf("declarations are only valid at top level")

	default:
		c.errorf("compiler: unhandled statement %T", stmt)
	}
}

func (c *Compiler) compileIf(fc *funcCompiler, s *ast.IfStmt) {
	code := fc.fn.Code
	c.compileExpr(fc, s.Cond)
	elseJump := code.Emit(bytecode.OpJumpIfFalse, 0, 0)
	for _, st := range s.Then {
		c.compileStmt(fc, st)
	}
	if len(s.Else) > 0 {
		endJump := code.Emit(bytecode.OpJump, 0, 0)
		code.Patch(elseJump, int32(code.Len()))
		for _, st := range s.Else {
			c.compileStmt(fc, st)
		}
		code.Patch(endJump, int32(code.Len()))
	} else {
		code.Patch(elseJump, int32(code.Len()))
	}
}

func (c *Compiler) compileWhile(fc *funcCompiler, s *ast.WhileStmt) {
	code := fc.fn.Code
	loopStart := code.Len()
	c.compileExpr(fc, s.Cond)
	exitJump := code.Emit(bytecode.OpJumpIfFalse, 0, 0)

	fc.loops = append(fc.loops, loopCtx{})
	for _, st := range s.Body {
		c.compileStmt(fc, st)
	}
	code.Emit(bytecode.OpLoop, int32(loopStart), 0)
	loopExit := code.Len()
	code.Patch(exitJump, int32(loopExit))

	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]
	for _, j := range loop.breakJumps {
		code.Patch(j, int32(loopExit))
	}
	for _, j := range loop.continueJumps {
		code.Patch(j, int32(loopStart))
	}
}

func (c *Compiler) compileFor(fc *funcCompiler, s *ast.ForStmt) {
	code := fc.fn.Code
	if s.Init != nil {
		c.compileStmt(fc, s.Init)
	}
	loopStart := code.Len()
	exitJump := -1
	if s.Cond != nil {
		c.compileExpr(fc, s.Cond)
		exitJump = code.Emit(bytecode.OpJumpIfFalse, 0, 0)
	}

	fc.loops = append(fc.loops, loopCtx{})
	for _, st := range s.Body {
		c.compileStmt(fc, st)
	}
	continueTarget := code.Len()
	if s.Post != nil {
		c.compileStmt(fc, s.Post)
	}
	code.Emit(bytecode.OpLoop, int32(loopStart), 0)
	loopExit := code.Len()
	if exitJump >= 0 {
		code.Patch(exitJump, int32(loopExit))
	}

	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]
	for _, j := range loop.breakJumps {
		code.Patch(j, int32(loopExit))
	}
	for _, j := range loop.continueJumps {
		code.Patch(j, int32(continueTarget))
	}
}

// compileTry implements try/catch/finally. The finally body (when
// present) is emitted once; both the protected body's normal fallthrough
// and the catch body's fallthrough reach it, since a caught exception
// leaves the TRY handler on the fiber's try stack until this shared
// block's trailing END_FINALLY pops it. A finally-only try (no catch)
// stashes the thrown value, runs finally, then rethrows explicitly,
// since the VM never auto-replays a pending exception through
// END_FINALLY (only a pending *return* is replayed that way).
func (c *Compiler) compileTry(fc *funcCompiler, s *ast.TryStmt) {
	code := fc.fn.Code
	hasCatch := s.CatchVar != "" || len(s.CatchBody) > 0
	hasFinally := len(s.FinallyBody) > 0
	if !hasCatch && !hasFinally {
		for _, st := range s.Body {
			c.compileStmt(fc, st)
		}
		return
	}

	tryIdx := code.Emit(bytecode.OpTry, 0, 0)
	for _, st := range s.Body {
		c.compileStmt(fc, st)
	}
	if !hasCatch {
		code.Emit(bytecode.OpPushFalse, 0, 0) // nothing thrown
	}
	jumpOverCatch := code.Emit(bytecode.OpJump, 0, 0)

	catchIP := code.Len()
	slot := fc.trySlots[s]
	if hasCatch {
		if s.CatchVar != "" {
			code.Emit(bytecode.OpStoreLocal, int32(slot), 0)
			code.Emit(bytecode.OpPop, 0, 0)
			fc.locals = append(fc.locals, localVar{name: s.CatchVar, slot: slot})
		} else {
			code.Emit(bytecode.OpPop, 0, 0)
		}
		for _, st := range s.CatchBody {
			c.compileStmt(fc, st)
		}
	} else {
		code.Emit(bytecode.OpStoreLocal, int32(slot), 0)
		code.Emit(bytecode.OpPop, 0, 0)
		code.Emit(bytecode.OpPushTrue, 0, 0) // a value was thrown
	}

	finallyIP := code.Len()
	code.Patch(jumpOverCatch, int32(finallyIP))
	if hasFinally {
		for _, st := range s.FinallyBody {
			c.compileStmt(fc, st)
		}
		code.Emit(bytecode.OpEndFinally, 0, 0)
	} else {
		code.Emit(bytecode.OpPopTry, 0, 0)
	}

	if !hasCatch {
		skip := code.Emit(bytecode.OpJumpIfFalse, 0, 0)
		code.Emit(bytecode.OpLoadLocal, int32(slot), 0)
		code.Emit(bytecode.OpThrow, 0, 0)
		code.Patch(skip, int32(code.Len()))
	}

	fin := -1
	if hasFinally {
		fin = finallyIP
	}
	code.Patch(tryIdx, bytecode.PackTry(catchIP, fin))
}
