package parser

import (
	"testing"

	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/lexer"
)

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v (errors: %v)", input, err, p.Errors())
	}
	return program
}

func TestParseVarDecl(t *testing.T) {
	program := mustParse(t, "var x = 1, y;")
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	decl, ok := program.Statements[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", program.Statements[0])
	}
	if len(decl.Names) != 2 || decl.Names[0] != "x" || decl.Names[1] != "y" {
		t.Fatalf("unexpected names: %v", decl.Names)
	}
	if decl.Values[0] == nil {
		t.Fatal("expected x to have an initializer")
	}
	if decl.Values[1] != nil {
		t.Fatal("expected y to have no initializer")
	}
}

func TestParseIfElse(t *testing.T) {
	program := mustParse(t, `if (x) { 1; } else if (y) { 2; } else { 3; }`)
	ifStmt, ok := program.Statements[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", program.Statements[0])
	}
	if len(ifStmt.Then) != 1 {
		t.Fatalf("expected 1 then-statement, got %d", len(ifStmt.Then))
	}
	elseIf, ok := ifStmt.Else[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected nested else-if, got %T", ifStmt.Else[0])
	}
	if len(elseIf.Else) != 1 {
		t.Fatalf("expected final else branch, got %d statements", len(elseIf.Else))
	}
}

func TestParseWhileAndFor(t *testing.T) {
	program := mustParse(t, `
while (x < 10) { x = x + 1; }
for (var i = 0; i < 10; i = i + 1) { print(i); }
`)
	if _, ok := program.Statements[0].(*ast.WhileStmt); !ok {
		t.Fatalf("expected *ast.WhileStmt, got %T", program.Statements[0])
	}
	forStmt, ok := program.Statements[1].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected *ast.ForStmt, got %T", program.Statements[1])
	}
	if _, ok := forStmt.Init.(*ast.VarDecl); !ok {
		t.Fatalf("expected for-init to be a VarDecl, got %T", forStmt.Init)
	}
	if forStmt.Cond == nil || forStmt.Post == nil {
		t.Fatal("expected both condition and post-statement to be parsed")
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	program := mustParse(t, `
try { mayFail(); } catch (e) { print(e); } finally { cleanup(); }
`)
	tryStmt, ok := program.Statements[0].(*ast.TryStmt)
	if !ok {
		t.Fatalf("expected *ast.TryStmt, got %T", program.Statements[0])
	}
	if tryStmt.CatchVar != "e" {
		t.Fatalf("expected catch variable 'e', got %q", tryStmt.CatchVar)
	}
	if len(tryStmt.CatchBody) != 1 || len(tryStmt.FinallyBody) != 1 {
		t.Fatalf("expected one statement each in catch/finally, got %d/%d",
			len(tryStmt.CatchBody), len(tryStmt.FinallyBody))
	}
}

func TestParseFunctionDecl(t *testing.T) {
	program := mustParse(t, `function add(a, b) { return a + b; }`)
	fn, ok := program.Statements[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected *ast.FunctionDecl, got %T", program.Statements[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected function decl: %+v", fn)
	}
}

func TestParseClassDeclWithSuperAndInit(t *testing.T) {
	program := mustParse(t, `
class Point : Shape {
  field x, y;
  init(x, y) { self.x = x; self.y = y; }
  method sum() { return self.x + self.y; }
}
`)
	cd, ok := program.Statements[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected *ast.ClassDecl, got %T", program.Statements[0])
	}
	if cd.Name != "Point" || cd.Super != "Shape" {
		t.Fatalf("unexpected name/super: %q/%q", cd.Name, cd.Super)
	}
	if len(cd.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(cd.Fields))
	}
	if len(cd.Methods) != 2 {
		t.Fatalf("expected 2 methods (init + sum), got %d", len(cd.Methods))
	}
	if !cd.Methods[0].IsInit || cd.Methods[0].Name != "init" {
		t.Fatalf("expected first method to be init, got %+v", cd.Methods[0])
	}
}

func TestParseStructDecl(t *testing.T) {
	program := mustParse(t, `struct Vec { field x, y; }`)
	sd, ok := program.Statements[0].(*ast.StructDecl)
	if !ok {
		t.Fatalf("expected *ast.StructDecl, got %T", program.Statements[0])
	}
	if sd.Name != "Vec" || len(sd.Fields) != 2 {
		t.Fatalf("unexpected struct decl: %+v", sd)
	}
}

func TestParseProcessDeclWithMethodsAndBody(t *testing.T) {
	program := mustParse(t, `
process Ball(speed) {
  method bounce() { return speed; }
  frame(50);
  exit;
}
`)
	pd, ok := program.Statements[0].(*ast.ProcessDecl)
	if !ok {
		t.Fatalf("expected *ast.ProcessDecl, got %T", program.Statements[0])
	}
	if pd.Name != "Ball" || len(pd.Params) != 1 {
		t.Fatalf("unexpected process decl: %+v", pd)
	}
	if len(pd.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(pd.Methods))
	}
	if len(pd.Body) != 2 {
		t.Fatalf("expected 2 body statements (frame, exit), got %d", len(pd.Body))
	}
	if _, ok := pd.Body[0].(*ast.FrameStmt); !ok {
		t.Fatalf("expected first body statement to be FrameStmt, got %T", pd.Body[0])
	}
}

func TestParseNewAndSpawn(t *testing.T) {
	program := mustParse(t, `
var p = new Point(1, 2);
var b = spawn Ball(5);
var n = spawn native Timer(1000);
`)
	decl0 := program.Statements[0].(*ast.VarDecl)
	newExpr, ok := decl0.Values[0].(*ast.NewExpr)
	if !ok {
		t.Fatalf("expected *ast.NewExpr, got %T", decl0.Values[0])
	}
	if newExpr.TypeName != "Point" || len(newExpr.Args) != 2 {
		t.Fatalf("unexpected new expr: %+v", newExpr)
	}

	decl1 := program.Statements[1].(*ast.VarDecl)
	spawnExpr, ok := decl1.Values[0].(*ast.SpawnExpr)
	if !ok {
		t.Fatalf("expected *ast.SpawnExpr, got %T", decl1.Values[0])
	}
	if spawnExpr.Native {
		t.Fatal("expected first spawn to be non-native")
	}

	decl2 := program.Statements[2].(*ast.VarDecl)
	nativeSpawn := decl2.Values[0].(*ast.SpawnExpr)
	if !nativeSpawn.Native || nativeSpawn.ProcessName != "Timer" {
		t.Fatalf("unexpected native spawn expr: %+v", nativeSpawn)
	}
}

func TestParseMessageSendAndSuper(t *testing.T) {
	program := mustParse(t, `self.move(1, 2); super.move(1, 2);`)
	send0, ok := program.Statements[0].(*ast.ExprStatement).Expression.(*ast.MessageSend)
	if !ok {
		t.Fatalf("expected *ast.MessageSend, got %T", program.Statements[0])
	}
	if send0.Super {
		t.Fatal("expected first send to not be a super call")
	}
	if _, ok := send0.Receiver.(*ast.SelfExpr); !ok {
		t.Fatalf("expected receiver to be self, got %T", send0.Receiver)
	}

	send1 := program.Statements[1].(*ast.ExprStatement).Expression.(*ast.MessageSend)
	if !send1.Super {
		t.Fatal("expected second send to be a super call")
	}
	if send1.Selector != "move" || len(send1.Args) != 2 {
		t.Fatalf("unexpected super send: %+v", send1)
	}
}

func TestParseIndexAndArrayLiteral(t *testing.T) {
	program := mustParse(t, `var a = [1, 2, 3]; var v = a[1];`)
	decl := program.Statements[0].(*ast.VarDecl)
	arr, ok := decl.Values[0].(*ast.ArrayLiteral)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("unexpected array literal: %+v", decl.Values[0])
	}
	decl2 := program.Statements[1].(*ast.VarDecl)
	idx, ok := decl2.Values[0].(*ast.IndexExpr)
	if !ok {
		t.Fatalf("expected *ast.IndexExpr, got %T", decl2.Values[0])
	}
	if _, ok := idx.Receiver.(*ast.Identifier); !ok {
		t.Fatalf("expected index receiver to be an identifier, got %T", idx.Receiver)
	}
}

func TestParseMapLiteral(t *testing.T) {
	program := mustParse(t, `var m = { "a": 1, "b": 2 };`)
	decl := program.Statements[0].(*ast.VarDecl)
	m, ok := decl.Values[0].(*ast.MapLiteral)
	if !ok {
		t.Fatalf("expected *ast.MapLiteral, got %T", decl.Values[0])
	}
	if len(m.Keys) != 2 || len(m.Values) != 2 {
		t.Fatalf("unexpected map literal: %+v", m)
	}
}

func TestParseEmptyMapLiteral(t *testing.T) {
	program := mustParse(t, `var m = {};`)
	decl := program.Statements[0].(*ast.VarDecl)
	m, ok := decl.Values[0].(*ast.MapLiteral)
	if !ok || len(m.Keys) != 0 {
		t.Fatalf("expected empty map literal, got %+v", decl.Values[0])
	}
}

func TestParseBlockLiteral(t *testing.T) {
	program := mustParse(t, `var f = { |a, b| return a + b; };`)
	decl := program.Statements[0].(*ast.VarDecl)
	block, ok := decl.Values[0].(*ast.BlockLiteral)
	if !ok {
		t.Fatalf("expected *ast.BlockLiteral, got %T", decl.Values[0])
	}
	if len(block.Params) != 2 || len(block.Body) != 1 {
		t.Fatalf("unexpected block literal: %+v", block)
	}
}

func TestParseKillAndPrintAndThrow(t *testing.T) {
	program := mustParse(t, `kill(p); print("hi"); throw err;`)
	if _, ok := program.Statements[0].(*ast.KillStmt); !ok {
		t.Fatalf("expected *ast.KillStmt, got %T", program.Statements[0])
	}
	if _, ok := program.Statements[1].(*ast.PrintStmt); !ok {
		t.Fatalf("expected *ast.PrintStmt, got %T", program.Statements[1])
	}
	if _, ok := program.Statements[2].(*ast.ThrowStmt); !ok {
		t.Fatalf("expected *ast.ThrowStmt, got %T", program.Statements[2])
	}
}

func TestParseErrorsDoNotPanic(t *testing.T) {
	p := New(lexer.New(`class { @ }`))
	_, err := p.Parse()
	if err == nil {
		t.Fatal("expected a parse error for malformed input")
	}
}
