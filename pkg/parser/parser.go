// Package parser implements bu's parser: a recursive-descent,
// precedence-climbing translator from lexer.Token streams to ast.Program
// trees, in the same two-token-lookahead style as the Smalltalk-grammar
// predecessor this package replaces, retargeted to bu's C-like surface
// syntax (brace blocks, dot-call method syntax, classic if/while/for).
package parser

import (
	"fmt"
	"strconv"

	"github.com/bu-lang/bu/pkg/ast"
	"github.com/bu-lang/bu/pkg/lexer"
)

// Parser is stateful and single-use: create a new one per source file.
type Parser struct {
	l       *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token
	errors  []string
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curTok.Line, msg))
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) expect(tt lexer.TokenType, what string) bool {
	if p.curTok.Type != tt {
		p.addError(fmt.Sprintf("expected %s, got %q", what, p.curTok.Literal))
		return false
	}
	return true
}

func (p *Parser) expectNext(tt lexer.TokenType, what string) bool {
	if !p.expect(tt, what) {
		return false
	}
	p.nextToken()
	return true
}

// Parse parses the full token stream into a Program. A non-empty
// Errors() means the returned tree may be incomplete.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	for p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		} else if p.curTok.Type != lexer.TokenEOF {
			p.nextToken()
		}
	}
	if len(p.errors) > 0 {
		return program, fmt.Errorf("parser errors: %v", p.errors)
	}
	return program, nil
}

// --- Statements ---

func (p *Parser) parseStatement() ast.Statement {
	switch p.curTok.Type {
	case lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenBreak:
		p.nextToken()
		p.consumeSemicolon()
		return &ast.BreakStmt{}
	case lexer.TokenContinue:
		p.nextToken()
		p.consumeSemicolon()
		return &ast.ContinueStmt{}
	case lexer.TokenThrow:
		return p.parseThrow()
	case lexer.TokenTry:
		return p.parseTry()
	case lexer.TokenFrame:
		return p.parseFrame()
	case lexer.TokenYield:
		p.nextToken()
		p.consumeSemicolon()
		return &ast.YieldStmt{}
	case lexer.TokenExit:
		p.nextToken()
		p.consumeSemicolon()
		return &ast.ExitStmt{}
	case lexer.TokenKill:
		return p.parseKill()
	case lexer.TokenPrint:
		return p.parsePrint()
	case lexer.TokenClass:
		return p.parseClassDecl()
	case lexer.TokenStruct:
		return p.parseStructDecl()
	case lexer.TokenProcess:
		return p.parseProcessDecl()
	case lexer.TokenFunction:
		return p.parseFunctionDecl()
	case lexer.TokenSemicolon:
		p.nextToken()
		return nil
	default:
		expr := p.parseExpression()
		p.consumeSemicolon()
		if expr == nil {
			return nil
		}
		return &ast.ExprStatement{Expression: expr}
	}
}

func (p *Parser) consumeSemicolon() {
	if p.curTok.Type == lexer.TokenSemicolon {
		p.nextToken()
	}
}

// parseBlock consumes `{ stmt* }`.
func (p *Parser) parseBlock() []ast.Statement {
	if !p.expectNext(lexer.TokenLBrace, "'{'") {
		return nil
	}
	var stmts []ast.Statement
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		} else if p.curTok.Type != lexer.TokenRBrace {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBrace, "'}'")
	return stmts
}

func (p *Parser) parseVarDecl() ast.Statement {
	p.nextToken() // 'var'
	decl := &ast.VarDecl{}
	for {
		if !p.expect(lexer.TokenIdentifier, "identifier") {
			break
		}
		name := p.curTok.Literal
		p.nextToken()
		var val ast.Expression
		if p.curTok.Type == lexer.TokenAssign {
			p.nextToken()
			val = p.parseExpression()
		}
		decl.Names = append(decl.Names, name)
		decl.Values = append(decl.Values, val)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	p.consumeSemicolon()
	return decl
}

func (p *Parser) parseIf() ast.Statement {
	p.nextToken() // 'if'
	p.expectNext(lexer.TokenLParen, "'('")
	cond := p.parseExpression()
	p.expectNext(lexer.TokenRParen, "')'")
	then := p.parseBlock()
	var els []ast.Statement
	if p.curTok.Type == lexer.TokenElse {
		p.nextToken()
		if p.curTok.Type == lexer.TokenIf {
			els = []ast.Statement{p.parseIf()}
		} else {
			els = p.parseBlock()
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Statement {
	p.nextToken()
	p.expectNext(lexer.TokenLParen, "'('")
	cond := p.parseExpression()
	p.expectNext(lexer.TokenRParen, "')'")
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseFor() ast.Statement {
	p.nextToken()
	p.expectNext(lexer.TokenLParen, "'('")
	var init ast.Statement
	if p.curTok.Type != lexer.TokenSemicolon {
		init = p.parseStatement()
	} else {
		p.nextToken()
	}
	var cond ast.Expression
	if p.curTok.Type != lexer.TokenSemicolon {
		cond = p.parseExpression()
	}
	p.expectNext(lexer.TokenSemicolon, "';'")
	var post ast.Statement
	if p.curTok.Type != lexer.TokenRParen {
		expr := p.parseExpression()
		post = &ast.ExprStatement{Expression: expr}
	}
	p.expectNext(lexer.TokenRParen, "')'")
	body := p.parseBlock()
	return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	p.nextToken()
	var val ast.Expression
	if p.curTok.Type != lexer.TokenSemicolon {
		val = p.parseExpression()
	}
	p.consumeSemicolon()
	return &ast.ReturnStmt{Value: val}
}

func (p *Parser) parseThrow() ast.Statement {
	p.nextToken()
	val := p.parseExpression()
	p.consumeSemicolon()
	return &ast.ThrowStmt{Value: val}
}

func (p *Parser) parseTry() ast.Statement {
	p.nextToken()
	body := p.parseBlock()
	stmt := &ast.TryStmt{Body: body}
	if p.curTok.Type == lexer.TokenCatch {
		p.nextToken()
		if p.curTok.Type == lexer.TokenLParen {
			p.nextToken()
			if p.expect(lexer.TokenIdentifier, "identifier") {
				stmt.CatchVar = p.curTok.Literal
				p.nextToken()
			}
			p.expectNext(lexer.TokenRParen, "')'")
		}
		stmt.CatchBody = p.parseBlock()
	}
	if p.curTok.Type == lexer.TokenFinally {
		p.nextToken()
		stmt.FinallyBody = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseFrame() ast.Statement {
	p.nextToken()
	p.expectNext(lexer.TokenLParen, "'('")
	percent := int32(100)
	if p.curTok.Type == lexer.TokenInt {
		n, _ := strconv.ParseInt(p.curTok.Literal, 10, 32)
		percent = int32(n)
		p.nextToken()
	} else {
		p.addError(fmt.Sprintf("frame() requires a literal integer percent, got %q", p.curTok.Literal))
	}
	p.expectNext(lexer.TokenRParen, "')'")
	p.consumeSemicolon()
	return &ast.FrameStmt{Percent: percent}
}

func (p *Parser) parseKill() ast.Statement {
	p.nextToken()
	p.expectNext(lexer.TokenLParen, "'('")
	target := p.parseExpression()
	p.expectNext(lexer.TokenRParen, "')'")
	p.consumeSemicolon()
	return &ast.KillStmt{Target: target}
}

func (p *Parser) parsePrint() ast.Statement {
	p.nextToken()
	p.expectNext(lexer.TokenLParen, "'('")
	val := p.parseExpression()
	p.expectNext(lexer.TokenRParen, "')'")
	p.consumeSemicolon()
	return &ast.PrintStmt{Value: val}
}

func (p *Parser) parseParamList() []string {
	p.expectNext(lexer.TokenLParen, "'('")
	var params []string
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		if p.expect(lexer.TokenIdentifier, "parameter name") {
			params = append(params, p.curTok.Literal)
			p.nextToken()
		}
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRParen, "')'")
	return params
}

func (p *Parser) parseFunctionDecl() ast.Statement {
	p.nextToken()
	name := p.curTok.Literal
	p.expectNext(lexer.TokenIdentifier, "function name")
	params := p.parseParamList()
	body := p.parseBlock()
	return &ast.FunctionDecl{Name: name, Params: params, Body: body}
}

func (p *Parser) parseClassDecl() ast.Statement {
	p.nextToken()
	name := p.curTok.Literal
	p.expectNext(lexer.TokenIdentifier, "class name")
	super := ""
	if p.curTok.Type == lexer.TokenColon {
		p.nextToken()
		super = p.curTok.Literal
		p.expectNext(lexer.TokenIdentifier, "superclass name")
	}
	decl := &ast.ClassDecl{Name: name, Super: super}
	p.expectNext(lexer.TokenLBrace, "'{'")
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		switch p.curTok.Type {
		case lexer.TokenField:
			p.nextToken()
			for {
				if p.expect(lexer.TokenIdentifier, "field name") {
					decl.Fields = append(decl.Fields, p.curTok.Literal)
					p.nextToken()
				}
				if p.curTok.Type == lexer.TokenComma {
					p.nextToken()
					continue
				}
				break
			}
			p.consumeSemicolon()
		case lexer.TokenInit:
			p.nextToken()
			params := p.parseParamList()
			body := p.parseBlock()
			decl.Methods = append(decl.Methods, &ast.MethodDecl{Name: "init", Params: params, Body: body, IsInit: true})
		case lexer.TokenMethod:
			p.nextToken()
			mname := p.curTok.Literal
			p.expectNext(lexer.TokenIdentifier, "method name")
			params := p.parseParamList()
			body := p.parseBlock()
			decl.Methods = append(decl.Methods, &ast.MethodDecl{Name: mname, Params: params, Body: body})
		default:
			p.addError(fmt.Sprintf("unexpected token %q in class body", p.curTok.Literal))
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBrace, "'}'")
	return decl
}

func (p *Parser) parseStructDecl() ast.Statement {
	p.nextToken()
	name := p.curTok.Literal
	p.expectNext(lexer.TokenIdentifier, "struct name")
	decl := &ast.StructDecl{Name: name}
	p.expectNext(lexer.TokenLBrace, "'{'")
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		if p.curTok.Type == lexer.TokenField {
			p.nextToken()
			for {
				if p.expect(lexer.TokenIdentifier, "field name") {
					decl.Fields = append(decl.Fields, p.curTok.Literal)
					p.nextToken()
				}
				if p.curTok.Type == lexer.TokenComma {
					p.nextToken()
					continue
				}
				break
			}
			p.consumeSemicolon()
		} else {
			p.addError(fmt.Sprintf("unexpected token %q in struct body", p.curTok.Literal))
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBrace, "'}'")
	return decl
}

func (p *Parser) parseProcessDecl() ast.Statement {
	p.nextToken()
	name := p.curTok.Literal
	p.expectNext(lexer.TokenIdentifier, "process name")
	params := p.parseParamList()
	super := ""
	if p.curTok.Type == lexer.TokenColon {
		p.nextToken()
		super = p.curTok.Literal
		p.expectNext(lexer.TokenIdentifier, "superclass name")
	}
	decl := &ast.ProcessDecl{Name: name, Super: super, Params: params}
	p.expectNext(lexer.TokenLBrace, "'{'")
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		if p.curTok.Type == lexer.TokenMethod {
			p.nextToken()
			mname := p.curTok.Literal
			p.expectNext(lexer.TokenIdentifier, "method name")
			mparams := p.parseParamList()
			body := p.parseBlock()
			decl.Methods = append(decl.Methods, &ast.MethodDecl{Name: mname, Params: mparams, Body: body})
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			decl.Body = append(decl.Body, stmt)
		} else if p.curTok.Type != lexer.TokenRBrace {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBrace, "'}'")
	return decl
}

// --- Expressions (precedence climbing, lowest to highest) ---
//
//   assignment
//   ||
//   &&
//   == !=
//   < <= > >=
//   |
//   ^
//   &
//   << >>
//   + -
//   * / %
//   unary ! -
//   postfix . [] ()
//   primary

func (p *Parser) parseExpression() ast.Expression {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expression {
	left := p.parseLogicalOr()
	if p.curTok.Type == lexer.TokenAssign {
		p.nextToken()
		value := p.parseAssignment()
		return &ast.Assignment{Target: left, Value: value}
	}
	return left
}

func (p *Parser) parseLogicalOr() ast.Expression {
	left := p.parseLogicalAnd()
	for p.curTok.Type == lexer.TokenPipePipe {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseLogicalAnd()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	left := p.parseEquality()
	for p.curTok.Type == lexer.TokenAmpAmp {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseRelational()
	for p.curTok.Type == lexer.TokenEq || p.curTok.Type == lexer.TokenNotEq {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseRelational()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expression {
	left := p.parseBitOr()
	for p.curTok.Type == lexer.TokenLess || p.curTok.Type == lexer.TokenLessEq ||
		p.curTok.Type == lexer.TokenGreater || p.curTok.Type == lexer.TokenGreaterEq {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseBitOr()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expression {
	left := p.parseBitXor()
	for p.curTok.Type == lexer.TokenPipe {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseBitXor()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expression {
	left := p.parseBitAnd()
	for p.curTok.Type == lexer.TokenCaret {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expression {
	left := p.parseShift()
	for p.curTok.Type == lexer.TokenAmp {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseShift()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseShift() ast.Expression {
	left := p.parseAdditive()
	for p.curTok.Type == lexer.TokenShl || p.curTok.Type == lexer.TokenShr {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.curTok.Type == lexer.TokenPlus || p.curTok.Type == lexer.TokenMinus {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for p.curTok.Type == lexer.TokenStar || p.curTok.Type == lexer.TokenSlash || p.curTok.Type == lexer.TokenPercent {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.curTok.Type == lexer.TokenBang || p.curTok.Type == lexer.TokenMinus {
		op := p.curTok.Literal
		p.nextToken()
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, Right: right}
	}
	return p.parsePostfix()
}

// superMarker stands in for a bare `super` so a following `.selector(...)`
// parses as a Super-flagged MessageSend; it stays in the tree as that
// send's Receiver, which the compiler does not evaluate for super sends.
// It embeds ast.SelfExpr to satisfy ast.Expression.
type superMarker struct{ ast.SelfExpr }

func (n *superMarker) TokenLiteral() string { return "super" }

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimaryExpression()
	for {
		switch p.curTok.Type {
		case lexer.TokenDot:
			p.nextToken()
			if !p.expect(lexer.TokenIdentifier, "selector") {
				return expr
			}
			selector := p.curTok.Literal
			p.nextToken()
			var args []ast.Expression
			if p.curTok.Type == lexer.TokenLParen {
				args = p.parseArgs()
			}
			_, super := expr.(*superMarker)
			expr = &ast.MessageSend{Receiver: expr, Selector: selector, Args: args, Super: super}
		case lexer.TokenLBracket:
			p.nextToken()
			idx := p.parseExpression()
			p.expectNext(lexer.TokenRBracket, "']'")
			expr = &ast.IndexExpr{Receiver: expr, Index: idx}
		case lexer.TokenLParen:
			if id, ok := expr.(*ast.Identifier); ok {
				args := p.parseArgs()
				expr = &ast.Call{Callee: &ast.Identifier{Name: id.Name}, Args: args}
				continue
			}
			return expr
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []ast.Expression {
	p.expectNext(lexer.TokenLParen, "'('")
	var args []ast.Expression
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		args = append(args, p.parseExpression())
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRParen, "')'")
	return args
}

func (p *Parser) parsePrimaryExpression() ast.Expression {
	switch p.curTok.Type {
	case lexer.TokenInt:
		return p.parseIntLiteral()
	case lexer.TokenFloat:
		return p.parseFloatLiteral()
	case lexer.TokenString:
		return p.parseStringLiteral()
	case lexer.TokenTrue:
		p.nextToken()
		return &ast.BoolLiteral{Value: true}
	case lexer.TokenFalse:
		p.nextToken()
		return &ast.BoolLiteral{Value: false}
	case lexer.TokenNil:
		p.nextToken()
		return &ast.NilLiteral{}
	case lexer.TokenSelf:
		p.nextToken()
		return &ast.SelfExpr{}
	case lexer.TokenSuper:
		p.nextToken()
		return &superMarker{}
	case lexer.TokenIdentifier:
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Identifier{Name: name}
	case lexer.TokenNew:
		p.nextToken()
		name := p.curTok.Literal
		p.expectNext(lexer.TokenIdentifier, "type name")
		args := p.parseArgs()
		return &ast.NewExpr{TypeName: name, Args: args}
	case lexer.TokenSpawn:
		p.nextToken()
		native := false
		if p.curTok.Type == lexer.TokenNative {
			native = true
			p.nextToken()
		}
		name := p.curTok.Literal
		p.expectNext(lexer.TokenIdentifier, "process name")
		args := p.parseArgs()
		return &ast.SpawnExpr{ProcessName: name, Args: args, Native: native}
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		p.expectNext(lexer.TokenRParen, "')'")
		return expr
	case lexer.TokenLBracket:
		return p.parseArrayLiteral()
	case lexer.TokenLBrace:
		return p.parseBlockOrMap()
	default:
		p.addError(fmt.Sprintf("unexpected token %q", p.curTok.Literal))
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curTok.Literal, 10, 32)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as integer", p.curTok.Literal))
		p.nextToken()
		return nil
	}
	p.nextToken()
	return &ast.IntLiteral{Value: int32(value)}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as float", p.curTok.Literal))
		p.nextToken()
		return nil
	}
	p.nextToken()
	return &ast.FloatLiteral{Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	s := p.curTok.Literal
	p.nextToken()
	return &ast.StringLiteral{Value: s}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	p.nextToken() // '['
	var elems []ast.Expression
	for p.curTok.Type != lexer.TokenRBracket && p.curTok.Type != lexer.TokenEOF {
		elems = append(elems, p.parseExpression())
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBracket, "']'")
	return &ast.ArrayLiteral{Elements: elems}
}

// parseBlockOrMap disambiguates `{ |params| stmts }` (a closure) from
// `{ key: value, ... }` (a map literal) by looking one token past '{'.
func (p *Parser) parseBlockOrMap() ast.Expression {
	p.nextToken() // '{'
	if p.curTok.Type == lexer.TokenPipe {
		p.nextToken()
		var params []string
		for p.curTok.Type != lexer.TokenPipe && p.curTok.Type != lexer.TokenEOF {
			if p.expect(lexer.TokenIdentifier, "block parameter") {
				params = append(params, p.curTok.Literal)
				p.nextToken()
			}
			if p.curTok.Type == lexer.TokenComma {
				p.nextToken()
			}
		}
		p.expectNext(lexer.TokenPipe, "'|'")
		var stmts []ast.Statement
		for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
			stmt := p.parseStatement()
			if stmt != nil {
				stmts = append(stmts, stmt)
			} else if p.curTok.Type != lexer.TokenRBrace {
				p.nextToken()
			}
		}
		p.expectNext(lexer.TokenRBrace, "'}'")
		return &ast.BlockLiteral{Params: params, Body: stmts}
	}

	if p.curTok.Type == lexer.TokenRBrace {
		p.nextToken()
		return &ast.MapLiteral{}
	}

	m := &ast.MapLiteral{}
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		key := p.parseExpression()
		p.expectNext(lexer.TokenColon, "':'")
		val := p.parseExpression()
		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, val)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expectNext(lexer.TokenRBrace, "'}'")
	return m
}
