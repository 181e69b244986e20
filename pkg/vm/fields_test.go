package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vm"
)

// TestCallMethodDispatchesAndMutatesFields builds a class with one
// field and one method that increments and returns it, then calls the
// method twice through CALL_METHOD/selector dispatch.
func TestCallMethodDispatchesAndMutatesFields(t *testing.T) {
	prog := bytecode.NewProgram()
	pool := strintern.New(0)

	class := bytecode.NewClassDef("Counter", nil)
	class.Fields = []bytecode.FieldDef{{Name: "count", Default: value.Int(0)}}

	increment := bytecode.NewFunction("increment", 0, 0, 0)
	ic := increment.Code
	one := ic.AddConstant(value.Int(1))
	ic.Emit(bytecode.OpLoadField, 0, 1)
	ic.Emit(bytecode.OpPushConst, one, 1)
	ic.Emit(bytecode.OpAdd, 0, 1)
	ic.Emit(bytecode.OpStoreField, 0, 1)
	ic.Emit(bytecode.OpReturn, 0, 1)
	class.Methods["increment"] = increment
	classIdx := prog.AddClass(class)

	caller := bytecode.NewFunction("caller", 0, 0, 0)
	cc := caller.Code
	selConst := cc.AddConstant(value.Str(pool.InternString("increment")))
	cc.Emit(bytecode.OpNewClassInstance, classIdx, 1)
	cc.Emit(bytecode.OpDup, 0, 1)
	cc.Emit(bytecode.OpCallMethod, bytecode.PackSelector(int(selConst), 0), 1)
	cc.Emit(bytecode.OpPop, 0, 2)
	cc.Emit(bytecode.OpCallMethod, bytecode.PackSelector(int(selConst), 0), 2)
	cc.Emit(bytecode.OpReturn, 0, 2)
	callerIdx := prog.AddFunction(caller)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	result, err := machine.CallFunction(f, prog.Function(callerIdx), nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), result.Int())
}

// TestLoadClassVarSharesStorageAcrossInstances verifies LOAD_CLASSVAR/
// STORE_CLASSVAR resolve to the defining class's shared map, not a
// per-instance field.
func TestLoadClassVarSharesStorageAcrossInstances(t *testing.T) {
	prog := bytecode.NewProgram()
	pool := strintern.New(0)

	class := bytecode.NewClassDef("Registry", nil)
	class.ClassVars["total"] = value.Int(0)

	bump := bytecode.NewFunction("bump", 0, 0, 0)
	bc := bump.Code
	nameConst := bc.AddConstant(value.Str(pool.InternString("total")))
	one := bc.AddConstant(value.Int(1))
	bc.Emit(bytecode.OpLoadClassVar, nameConst, 1)
	bc.Emit(bytecode.OpPushConst, one, 1)
	bc.Emit(bytecode.OpAdd, 0, 1)
	bc.Emit(bytecode.OpStoreClassVar, nameConst, 1)
	bc.Emit(bytecode.OpReturn, 0, 1)
	class.Methods["bump"] = bump
	classIdx := prog.AddClass(class)

	caller := bytecode.NewFunction("caller", 0, 0, 0)
	cc := caller.Code
	selConst := cc.AddConstant(value.Str(pool.InternString("bump")))
	cc.Emit(bytecode.OpNewClassInstance, classIdx, 1)
	cc.Emit(bytecode.OpCallMethod, bytecode.PackSelector(int(selConst), 0), 1)
	cc.Emit(bytecode.OpPop, 0, 1)
	cc.Emit(bytecode.OpNewClassInstance, classIdx, 2)
	cc.Emit(bytecode.OpCallMethod, bytecode.PackSelector(int(selConst), 0), 2)
	cc.Emit(bytecode.OpReturn, 0, 2)
	callerIdx := prog.AddFunction(caller)

	machine := vm.New(prog, natives.NewRegistry())
	f := fiber.New(0, 0, 0, 0)
	result, err := machine.CallFunction(f, prog.Function(callerIdx), nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), result.Int())
}
