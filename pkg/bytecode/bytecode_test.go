package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/value"
)

func TestCodeEmitAndPatch(t *testing.T) {
	c := bytecode.NewCode()
	idx := c.Emit(bytecode.OpJumpIfFalse, -1, 3)
	c.Emit(bytecode.OpPushNil, 0, 4)
	c.Patch(idx, int32(c.Len()))

	require.Equal(t, 2, c.Len())
	require.Equal(t, int32(2), c.Instructions[idx].Operand)
	require.EqualValues(t, 3, c.LineFor(idx))
}

func TestCodeAddConstant(t *testing.T) {
	c := bytecode.NewCode()
	i1 := c.AddConstant(value.Int(7))
	i2 := c.AddConstant(value.Int(8))
	require.Equal(t, int32(0), i1)
	require.Equal(t, int32(1), i2)
	require.Equal(t, int32(7), c.Constants[i1].Int())
}

func TestSelectorPacking(t *testing.T) {
	operand := bytecode.PackSelector(42, 3)
	selIdx, argc := bytecode.UnpackSelector(operand)
	require.Equal(t, 42, selIdx)
	require.Equal(t, 3, argc)
}

func TestClosurePacking(t *testing.T) {
	operand := bytecode.PackClosure(1000, 5, 2)
	funcIdx, parentLocals, params := bytecode.UnpackClosure(operand)
	require.Equal(t, 1000, funcIdx)
	require.Equal(t, 5, parentLocals)
	require.Equal(t, 2, params)
}

func TestModuleCallPacking(t *testing.T) {
	operand := bytecode.PackModuleCall(3, 12)
	mod, fn := bytecode.UnpackModuleCall(operand)
	require.EqualValues(t, 3, mod)
	require.EqualValues(t, 12, fn)
}

func TestClassDefAllFieldsRootMostFirst(t *testing.T) {
	root := bytecode.NewClassDef("Root", nil)
	root.Fields = []bytecode.FieldDef{{Name: "a", Default: value.Int(1)}}

	mid := bytecode.NewClassDef("Mid", root)
	mid.Fields = []bytecode.FieldDef{{Name: "b", Default: value.Int(2)}}

	leaf := bytecode.NewClassDef("Leaf", mid)
	leaf.Fields = []bytecode.FieldDef{{Name: "c", Default: value.Int(3)}}

	fields := leaf.AllFields()
	require.Len(t, fields, 3)
	require.Equal(t, "a", fields[0].Name)
	require.Equal(t, "b", fields[1].Name)
	require.Equal(t, "c", fields[2].Name)
}

func TestClassDefResolveMethodWalksSuperChain(t *testing.T) {
	root := bytecode.NewClassDef("Root", nil)
	root.Methods["greet"] = bytecode.NewFunction("greet", 0, 0, 0)

	leaf := bytecode.NewClassDef("Leaf", root)

	fn, owner := leaf.ResolveMethod("greet")
	require.NotNil(t, fn)
	require.Equal(t, "Root", owner.Name)

	_, missingOwner := leaf.ResolveMethod("nope")
	require.Nil(t, missingOwner)
}

func TestProcessDefSharesClassDefInheritance(t *testing.T) {
	base := bytecode.NewProcessDef("Base", nil)
	base.Methods["on_update"] = bytecode.NewFunction("on_update", 0, 0, 0)

	derived := bytecode.NewProcessDef("Derived", base)
	fn, owner := derived.ResolveMethod("on_update")
	require.NotNil(t, fn)
	require.Equal(t, "Base", owner.Name)
}

func TestNativeClassDefPropertyReadOnlyWhenSetterNil(t *testing.T) {
	def := bytecode.NewNativeClassDef("Sprite")
	def.Properties["x"] = bytecode.Property{
		Get: func(userdata any) value.Value { return value.Int(42) },
	}
	require.Nil(t, def.Properties["x"].Set)
	require.Equal(t, int32(42), def.Properties["x"].Get(nil).Int())
}
