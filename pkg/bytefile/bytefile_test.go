package bytefile_test

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/bytefile"
	"github.com/bu-lang/bu/pkg/compiler"
	"github.com/bu-lang/bu/pkg/lexer"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/parser"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

// dumpConfig renders constant pools for comparison without pointer
// addresses, which differ between the pre-encode and post-decode
// string-interning pools even when the interned content is identical.
var dumpConfig = spew.ConfigState{DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

func mustCompile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	program, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())
	prog, err := compiler.New().Compile(program)
	require.NoError(t, err)
	return prog
}

func TestEncodeDecodeRoundTripsFunctionsAndConstants(t *testing.T) {
	prog := mustCompile(t, `
function add(a, b) { return a + b; }
var x = add(1, 2);
`)
	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Decode(&buf, pool, nil)
	require.NoError(t, err)

	require.Equal(t, len(prog.Functions), len(got.Functions))
	var wantAdd, gotAdd *bytecode.Function
	for _, fn := range prog.Functions {
		if fn.Name == "add" {
			wantAdd = fn
		}
	}
	for _, fn := range got.Functions {
		if fn.Name == "add" {
			gotAdd = fn
		}
	}
	require.NotNil(t, gotAdd)
	require.Equal(t, wantAdd.ParamCount, gotAdd.ParamCount)
	require.Equal(t, len(wantAdd.Code.Instructions), len(gotAdd.Code.Instructions))
	for i, inst := range wantAdd.Code.Instructions {
		require.Equal(t, inst.Op, gotAdd.Code.Instructions[i].Op)
		require.Equal(t, inst.Operand, gotAdd.Code.Instructions[i].Operand)
	}
}

func TestEncodeDecodeRoundTripsClassFieldsAndMethods(t *testing.T) {
	prog := mustCompile(t, `
class Point {
  field x, y;
  init(x, y) { self.x = x; self.y = y; }
  method sum() { return self.x + self.y; }
}
var p = new Point(1, 2);
`)
	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Decode(&buf, pool, nil)
	require.NoError(t, err)

	require.Len(t, got.Classes, 1)
	cd := got.Classes[0]
	require.Equal(t, "Point", cd.Name)
	require.Len(t, cd.Fields, 2)
	require.Contains(t, cd.Methods, "init")
	require.Contains(t, cd.Methods, "sum")
}

func TestEncodeDecodeRoundTripsProcessInheritance(t *testing.T) {
	prog := mustCompile(t, `
process Base(speed) {
  frame(1);
  exit;
}
process Fast() : Base {
  frame(1);
  exit;
}
var b = spawn Fast(9);
`)
	require.Len(t, prog.Processes, 2)

	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Decode(&buf, pool, nil)
	require.NoError(t, err)
	require.Len(t, got.Processes, 2)

	var fast *bytecode.ProcessDef
	for _, pd := range got.Processes {
		if pd.Name == "Fast" {
			fast = pd
		}
	}
	require.NotNil(t, fast, "expected a decoded process named Fast")
	require.NotNil(t, fast.Super, "Fast's superclass reference must survive the round trip")
	require.Equal(t, "Base", fast.Super.Name)
}

func TestEncodeDecodeRoundTripsGlobalNames(t *testing.T) {
	prog := mustCompile(t, `var counter = 0;`)
	require.NotEmpty(t, prog.GlobalNames)

	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Decode(&buf, pool, nil)
	require.NoError(t, err)
	require.Equal(t, prog.GlobalNames, got.GlobalNames)
}

func TestEncodeDecodeConstantPoolDumpMatches(t *testing.T) {
	prog := mustCompile(t, `
function scalars() {
  var a = 1;
  var b = 2.5;
  var c = "hi";
  var d = true;
  var e = nil;
  return a;
}
`)
	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Decode(&buf, pool, nil)
	require.NoError(t, err)

	var want, have *bytecode.Function
	for _, fn := range prog.Functions {
		if fn.Name == "scalars" {
			want = fn
		}
	}
	for _, fn := range got.Functions {
		if fn.Name == "scalars" {
			have = fn
		}
	}
	require.NotNil(t, want)
	require.NotNil(t, have)

	require.Equal(t,
		dumpConfig.Sdump(want.Code.Constants),
		dumpConfig.Sdump(have.Code.Constants),
		"decoded constant pool must deep-dump identically to the pre-encode pool",
	)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOPE")
	pool := strintern.New(0)
	_, err := bytefile.Decode(buf, pool, nil)
	require.Error(t, err)
}

func TestDecodeVerifiesNativeTableAgainstRegistry(t *testing.T) {
	prog := mustCompile(t, `1;`)
	reg := natives.NewRegistry()
	reg.RegisterFunction("print", 1, func(vm any, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	})

	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, reg))

	pool := strintern.New(0)
	mismatched := natives.NewRegistry()
	mismatched.RegisterFunction("println", 1, func(vm any, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	})
	_, err := bytefile.Decode(bytes.NewReader(buf.Bytes()), pool, mismatched)
	require.Error(t, err, "a native table with a different name at the same index must be rejected")

	buf2 := bytes.NewBuffer(append([]byte(nil), buf.Bytes()...))
	_, err = bytefile.Decode(buf2, pool, reg)
	require.NoError(t, err)
}

func TestDecodeRejectsModuleFunctionMismatch(t *testing.T) {
	prog := mustCompile(t, `1;`)
	reg := natives.NewRegistry()
	m := natives.NewModule("math")
	m.AddFunction("sqrt", func(vm any, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	})
	reg.RegisterModule("math", m)

	var buf bytes.Buffer
	require.NoError(t, bytefile.Encode(&buf, prog, reg))

	pool := strintern.New(0)
	renamed := natives.NewRegistry()
	m2 := natives.NewModule("math")
	m2.AddFunction("cbrt", func(vm any, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	})
	renamed.RegisterModule("math", m2)
	_, err := bytefile.Decode(&buf, pool, renamed)
	require.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	prog := mustCompile(t, `var x = 1 + 2;`)
	dir := t.TempDir()
	path := dir + "/out" + bytefile.Ext

	require.NoError(t, bytefile.Save(path, prog, nil))

	pool := strintern.New(0)
	got, err := bytefile.Load(path, pool, nil)
	require.NoError(t, err)
	require.Equal(t, len(prog.Functions), len(got.Functions))

	require.NoFileExists(t, path+".tmp")
}

func TestDefaultOutputPath(t *testing.T) {
	require.Equal(t, "foo.bubc", bytefile.DefaultOutputPath("foo.bu"))
	require.Equal(t, "dir/foo.bubc", bytefile.DefaultOutputPath("dir/foo.bu"))
}
