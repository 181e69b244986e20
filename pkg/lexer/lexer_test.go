package lexer

import "testing"

func TestNextTokenPunctuationAndOperators(t *testing.T) {
	input := `(){}[],:;. = + - * / % ! && || & | ^ << >> < <= > >= == !=`

	expected := []TokenType{
		TokenLParen, TokenRParen, TokenLBrace, TokenRBrace,
		TokenLBracket, TokenRBracket, TokenComma, TokenColon, TokenSemicolon, TokenDot,
		TokenAssign, TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenBang,
		TokenAmpAmp, TokenPipePipe, TokenAmp, TokenPipe, TokenCaret,
		TokenShl, TokenShr, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq,
		TokenEq, TokenNotEq, TokenEOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token %d: expected %v, got %v (%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestNextTokenKeywords(t *testing.T) {
	input := "true false nil self super new spawn native kill frame yield exit " +
		"var if else while for return break continue throw try catch finally " +
		"class struct process method field function init print"

	expected := []TokenType{
		TokenTrue, TokenFalse, TokenNil, TokenSelf, TokenSuper, TokenNew, TokenSpawn,
		TokenNative, TokenKill, TokenFrame, TokenYield, TokenExit,
		TokenVar, TokenIf, TokenElse, TokenWhile, TokenFor, TokenReturn,
		TokenBreak, TokenContinue, TokenThrow, TokenTry, TokenCatch, TokenFinally,
		TokenClass, TokenStruct, TokenProcess, TokenMethod, TokenField, TokenFunction,
		TokenInit, TokenPrint,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token %d: expected %v, got %v (%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestNextTokenIdentifiersAndNumbers(t *testing.T) {
	input := "foo _bar baz123 42 3.14 .5"

	tok := New(input)
	tests := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "foo"},
		{TokenIdentifier, "_bar"},
		{TokenIdentifier, "baz123"},
		{TokenInt, "42"},
		{TokenFloat, "3.14"},
		{TokenFloat, ".5"},
	}
	for i, tt := range tests {
		got := tok.NextToken()
		if got.Type != tt.typ || got.Literal != tt.lit {
			t.Fatalf("token %d: expected {%v %q}, got {%v %q}", i, tt.typ, tt.lit, got.Type, got.Literal)
		}
	}
}

func TestNextTokenString(t *testing.T) {
	input := `"hello \"world\"\nagain"`
	l := New(input)
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("expected STRING, got %v", tok.Type)
	}
	want := "hello \"world\"\nagain"
	if tok.Literal != want {
		t.Fatalf("expected %q, got %q", want, tok.Literal)
	}
}

func TestNextTokenComments(t *testing.T) {
	input := `1 // line comment
2 /* block
comment */ 3`
	l := New(input)
	for _, want := range []string{"1", "2", "3"} {
		tok := l.NextToken()
		if tok.Type != TokenInt || tok.Literal != want {
			t.Fatalf("expected INT %q, got %v %q", want, tok.Type, tok.Literal)
		}
	}
	if eof := l.NextToken(); eof.Type != TokenEOF {
		t.Fatalf("expected EOF, got %v", eof.Type)
	}
}

func TestNextTokenIllegal(t *testing.T) {
	l := New("@")
	tok := l.NextToken()
	if tok.Type != TokenIllegal {
		t.Fatalf("expected ILLEGAL, got %v", tok.Type)
	}
}

func TestTokenizeStopsOnIllegal(t *testing.T) {
	l := New("1 + @")
	_, err := l.Tokenize()
	if err == nil {
		t.Fatal("expected an error for illegal input")
	}
}

func TestTokenizeFullProgram(t *testing.T) {
	input := `function add(a, b) {
  return a + b
}`
	l := New(input)
	tokens, err := l.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[len(tokens)-1].Type != TokenEOF {
		t.Fatalf("expected stream to end in EOF, got %v", tokens[len(tokens)-1].Type)
	}
	if tokens[0].Type != TokenFunction {
		t.Fatalf("expected first token FUNCTION, got %v", tokens[0].Type)
	}
}

func TestLinesAndColumnsTrackNewlines(t *testing.T) {
	input := "a\nb"
	l := New(input)
	first := l.NextToken()
	if first.Line != 1 {
		t.Fatalf("expected first token on line 1, got %d", first.Line)
	}
	second := l.NextToken()
	if second.Line != 2 {
		t.Fatalf("expected second token on line 2, got %d", second.Line)
	}
}
