package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vm"
)

// TestThrowIsCaughtByHandler builds:
//
//	try {
//	    throw 7
//	} catch (e) {
//	    return e + 1
//	}
func TestThrowIsCaughtByHandler(t *testing.T) {
	prog := bytecode.NewProgram()
	fn := bytecode.NewFunction("f", 0, 0, 0)
	code := fn.Code

	seven := code.AddConstant(value.Int(7))
	one := code.AddConstant(value.Int(1))

	tryIP := code.Emit(bytecode.OpTry, 0, 1) // patched below
	code.Emit(bytecode.OpPushConst, seven, 2)
	code.Emit(bytecode.OpThrow, 0, 2)
	code.Emit(bytecode.OpPopTry, 0, 3)
	jumpOverCatch := code.Emit(bytecode.OpJump, 0, 3)

	catchIP := code.Len()
	code.Emit(bytecode.OpPushConst, one, 4)
	code.Emit(bytecode.OpAdd, 0, 4)
	code.Emit(bytecode.OpReturn, 0, 4)

	code.Patch(tryIP, bytecode.PackTry(catchIP, -1))
	code.Patch(jumpOverCatch, int32(code.Len()))
	code.Emit(bytecode.OpPushNil, 0, 5)
	code.Emit(bytecode.OpReturn, 0, 5)

	idx := prog.AddFunction(fn)
	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)

	result, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.NoError(t, err)
	require.Equal(t, int32(8), result.Int())
}

// TestReturnInsideTryDefersToFinally builds:
//
//	try {
//	    return 5
//	} finally {
//	    // no-op
//	}
//
// and checks the deferred-return queued by RETURN is replayed by
// END_FINALLY once the finally block completes.
func TestReturnInsideTryDefersToFinally(t *testing.T) {
	prog := bytecode.NewProgram()
	fn := bytecode.NewFunction("f", 0, 0, 0)
	code := fn.Code

	five := code.AddConstant(value.Int(5))

	tryIP := code.Emit(bytecode.OpTry, 0, 1)
	code.Emit(bytecode.OpPushConst, five, 2)
	code.Emit(bytecode.OpReturn, 0, 2)
	code.Emit(bytecode.OpPopTry, 0, 3)
	jumpOverCatch := code.Emit(bytecode.OpJump, 0, 3)

	catchIP := code.Len()
	code.Emit(bytecode.OpPushNil, 0, 4)
	code.Emit(bytecode.OpReturn, 0, 4)

	code.Patch(jumpOverCatch, int32(code.Len()))
	finallyIP := code.Len()
	code.Emit(bytecode.OpEndFinally, 0, 5)

	code.Patch(tryIP, bytecode.PackTry(catchIP, finallyIP))

	idx := prog.AddFunction(fn)
	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)

	result, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), result.Int())
}

// TestUncaughtThrowReturnsScriptException verifies a throw with no
// active handler surfaces as a KindScriptException error.
func TestUncaughtThrowReturnsScriptException(t *testing.T) {
	prog := bytecode.NewProgram()
	fn := bytecode.NewFunction("f", 0, 0, 0)
	code := fn.Code
	bad := code.AddConstant(value.Int(99))
	code.Emit(bytecode.OpPushConst, bad, 1)
	code.Emit(bytecode.OpThrow, 0, 1)
	idx := prog.AddFunction(fn)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)

	_, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.Error(t, err)
}
