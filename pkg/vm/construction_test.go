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

func TestNewStructInstanceUsesDeclaredDefaults(t *testing.T) {
	prog := bytecode.NewProgram()
	structIdx := prog.AddStruct(bytecode.NewStructDef("Point", []bytecode.FieldDef{
		{Name: "x", Default: value.Int(0)},
		{Name: "y", Default: value.Int(0)},
	}))

	fn := bytecode.NewFunction("f", 0, 0, 0)
	fn.Code.Emit(bytecode.OpNewStruct, structIdx, 1)
	fn.Code.Emit(bytecode.OpReturn, 0, 1)
	idx := prog.AddFunction(fn)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	result, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.NoError(t, err)
	require.Equal(t, value.KindStructInstance, result.Kind)
	require.Equal(t, 2, len(result.Obj.(*value.StructInstance).Fields))
}

func TestNewClassInstancePopulatesInheritedFieldsRootMostFirst(t *testing.T) {
	prog := bytecode.NewProgram()
	base := bytecode.NewClassDef("Base", nil)
	base.Fields = []bytecode.FieldDef{{Name: "id", Default: value.Int(1)}}
	baseIdx := prog.AddClass(base)

	derived := bytecode.NewClassDef("Derived", base)
	derived.Fields = []bytecode.FieldDef{{Name: "name", Default: value.Int(2)}}
	derivedIdx := prog.AddClass(derived)
	_ = baseIdx

	fn := bytecode.NewFunction("f", 0, 0, 0)
	fn.Code.Emit(bytecode.OpNewClassInstance, derivedIdx, 1)
	fn.Code.Emit(bytecode.OpReturn, 0, 1)
	idx := prog.AddFunction(fn)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	result, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.NoError(t, err)

	fields := result.Obj.(*value.ClassInstance).Fields
	require.Equal(t, int32(1), fields[0].Int()) // Base.id, installed first
	require.Equal(t, int32(2), fields[1].Int()) // Derived.name
}

func TestArrayIndexGetSetRoundTrip(t *testing.T) {
	prog := bytecode.NewProgram()
	fn := bytecode.NewFunction("f", 0, 0, 0)
	code := fn.Code

	a, b := code.AddConstant(value.Int(10)), code.AddConstant(value.Int(20))
	zero := code.AddConstant(value.Int(0))
	hundred := code.AddConstant(value.Int(100))

	code.Emit(bytecode.OpPushConst, a, 1)
	code.Emit(bytecode.OpPushConst, b, 1)
	code.Emit(bytecode.OpNewArray, 2, 1)

	code.Emit(bytecode.OpDup, 0, 2)
	code.Emit(bytecode.OpPushConst, zero, 2)
	code.Emit(bytecode.OpPushConst, hundred, 2)
	code.Emit(bytecode.OpIndexSet, 0, 2)
	code.Emit(bytecode.OpPop, 0, 2)

	code.Emit(bytecode.OpPushConst, zero, 3)
	code.Emit(bytecode.OpIndexGet, 0, 3)
	code.Emit(bytecode.OpReturn, 0, 3)
	idx := prog.AddFunction(fn)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	result, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.NoError(t, err)
	require.Equal(t, int32(100), result.Int())
}

func TestArrayIndexGetOutOfRangeFaults(t *testing.T) {
	prog := bytecode.NewProgram()
	fn := bytecode.NewFunction("f", 0, 0, 0)
	code := fn.Code
	ten := code.AddConstant(value.Int(10))
	code.Emit(bytecode.OpPushConst, ten, 1)
	code.Emit(bytecode.OpNewArray, 1, 1)
	code.Emit(bytecode.OpPushConst, code.AddConstant(value.Int(5)), 1)
	code.Emit(bytecode.OpIndexGet, 0, 1)
	code.Emit(bytecode.OpReturn, 0, 1)
	idx := prog.AddFunction(fn)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	_, err := machine.CallFunction(f, prog.Function(idx), nil)
	require.Error(t, err)
}
