package natives_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

func TestRegisterFunctionIndicesAreMonotonic(t *testing.T) {
	r := natives.NewRegistry()
	i0 := r.RegisterFunction("print", 1, func(vm any, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	})
	i1 := r.RegisterFunction("len", 1, func(vm any, args []value.Value) (value.Value, error) {
		return value.Int(0), nil
	})
	require.Equal(t, int32(0), i0)
	require.Equal(t, int32(1), i1)

	fn, ok := r.Function(i1)
	require.True(t, ok)
	v, err := fn(nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), v.Int())
}

func TestFunctionLookupOutOfRange(t *testing.T) {
	r := natives.NewRegistry()
	_, ok := r.Function(5)
	require.False(t, ok)
}

func TestVerifyAgainstDetectsMismatch(t *testing.T) {
	r := natives.NewRegistry()
	r.RegisterFunction("print", 1, nil)

	err := r.VerifyAgainst([]natives.Entry{{Name: "print", Arity: 2}}, nil)
	require.Error(t, err)

	err = r.VerifyAgainst([]natives.Entry{{Name: "print", Arity: 1}}, nil)
	require.NoError(t, err)
}

func TestVerifyAgainstDetectsShortTable(t *testing.T) {
	r := natives.NewRegistry()
	err := r.VerifyAgainst([]natives.Entry{{Name: "print", Arity: 1}}, nil)
	require.Error(t, err)
}

func TestNativeClassPropertyRoundTrip(t *testing.T) {
	r := natives.NewRegistry()
	def := bytecode.NewNativeClassDef("Vector2")
	def.Properties["x"] = bytecode.Property{
		Get: func(u any) value.Value { return value.Double(u.(float64)) },
	}
	idx := r.RegisterClass(def)

	got, ok := r.Class(idx)
	require.True(t, ok)
	require.Equal(t, "Vector2", got.Name)
	require.Equal(t, 1.5, got.Properties["x"].Get(1.5).Double())
}

func TestModuleFunctionLookupByPackedID(t *testing.T) {
	m := natives.NewModule("math")
	id := m.AddFunction("sqrt", func(vm any, args []value.Value) (value.Value, error) {
		return value.Double(2), nil
	})
	require.Equal(t, "sqrt", m.FunctionName(id))

	fn, ok := m.Function(id)
	require.True(t, ok)
	v, _ := fn(nil, nil)
	require.Equal(t, 2.0, v.Double())
}

func TestRegisterDebugStdlibExposesSha256(t *testing.T) {
	r := natives.NewRegistry()
	natives.RegisterDebugStdlib(r)

	m, ok := r.Modules["debug"]
	require.True(t, ok)
	fn, ok := m.Function(2) // base64Encode=0, base64Decode=1, sha256=2
	require.True(t, ok)

	pool := strintern.New(0)
	v, err := fn(nil, []value.Value{value.Str(pool.InternString(""))})
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", v.String())
}

func TestRegisterDebugStdlibBase64RoundTrip(t *testing.T) {
	r := natives.NewRegistry()
	natives.RegisterDebugStdlib(r)

	m, ok := r.Modules["debug"]
	require.True(t, ok)
	encode, _ := m.Function(0)
	decode, _ := m.Function(1)

	pool := strintern.New(0)
	encoded, err := encode(nil, []value.Value{value.Str(pool.InternString("hello"))})
	require.NoError(t, err)
	decoded, err := decode(nil, []value.Value{encoded})
	require.NoError(t, err)
	require.Equal(t, "hello", decoded.String())
}
