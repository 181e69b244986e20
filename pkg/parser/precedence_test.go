package parser

import (
	"fmt"
	"testing"

	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/lexer"
)

// exprString renders an expression back to a fully parenthesized form so
// precedence can be checked by string comparison, the way a Pratt-parser
// test suite usually verifies climbing order.
func exprString(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *ast.Identifier:
		return n.Name
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", exprString(n.Left), n.Op, exprString(n.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s%s)", n.Op, exprString(n.Right))
	case *ast.Assignment:
		return fmt.Sprintf("(%s = %s)", exprString(n.Target), exprString(n.Value))
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func parseExprString(t *testing.T, input string) string {
	t.Helper()
	p := New(lexer.New(input))
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v (errors: %v)", input, err, p.Errors())
	}
	stmt, ok := program.Statements[0].(*ast.ExprStatement)
	if !ok {
		t.Fatalf("expected an expression statement, got %T", program.Statements[0])
	}
	return exprString(stmt.Expression)
}

func TestPrecedenceArithmetic(t *testing.T) {
	tests := []struct{ input, want string }{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"1 * 2 + 3;", "((1 * 2) + 3)"},
		{"1 + 2 - 3;", "((1 + 2) - 3)"},
		{"1 - 2 - 3;", "((1 - 2) - 3)"},
		{"2 * 3 % 4;", "((2 * 3) % 4)"},
	}
	for _, tt := range tests {
		if got := parseExprString(t, tt.input); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestPrecedenceComparisonAndLogic(t *testing.T) {
	tests := []struct{ input, want string }{
		{"a < b && c > d;", "((a < b) && (c > d))"},
		{"a == b || c != d;", "((a == b) || (c != d))"},
		{"a || b && c;", "(a || (b && c))"},
		{"a == 1 < 2;", "(a == (1 < 2))"},
	}
	for _, tt := range tests {
		if got := parseExprString(t, tt.input); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestPrecedenceBitwise(t *testing.T) {
	tests := []struct{ input, want string }{
		{"a | b ^ c & d;", "(a | (b ^ (c & d)))"},
		{"a << 1 + 1;", "(a << (1 + 1))"},
		{"a & b << 1;", "(a & (b << 1))"},
	}
	for _, tt := range tests {
		if got := parseExprString(t, tt.input); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestPrecedenceUnaryAndParens(t *testing.T) {
	tests := []struct{ input, want string }{
		{"-a + b;", "((-a) + b)"},
		{"!a && b;", "((!a) && b)"},
		{"(a + b) * c;", "((a + b) * c)"},
		{"-(a + b);", "(-(a + b))"},
	}
	for _, tt := range tests {
		if got := parseExprString(t, tt.input); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestAssignmentIsRightAssociativeAndLowest(t *testing.T) {
	got := parseExprString(t, "a = b = c + 1;")
	want := "(a = (b = (c + 1)))"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPostfixMessageSendParsesSelectorAndArgs(t *testing.T) {
	p := New(lexer.New("a.b(1);"))
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := program.Statements[0].(*ast.ExprStatement)
	send, ok := stmt.Expression.(*ast.MessageSend)
	if !ok {
		t.Fatalf("expected *ast.MessageSend, got %T", stmt.Expression)
	}
	if send.Selector != "b" || len(send.Args) != 1 {
		t.Fatalf("unexpected message send: %+v", send)
	}
}
