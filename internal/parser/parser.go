// Package parser builds a syntax tree from a token stream by recursive
// descent, with precedence climbing for binary expressions. Parsing stops
// at the first error; cascading errors after a bad token are rarely useful.
package parser

import (
	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/lexer"
	"github.com/carmc/carmc/internal/types"
)

// maxDepth bounds statement and expression nesting so that pathological
// inputs fail with a diagnostic instead of exhausting the goroutine stack.
const maxDepth = 256

// binaryPrecedence orders the binary operators, lowest first. Assignment is
// handled separately because it is right-associative.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  4,
	">":  4,
	"<=": 4,
	">=": 4,
	"+":  5,
	"-":  5,
	"*":  6,
	"/":  6,
	"%":  6,
}

type Parser struct {
	tokens []lexer.Token
	pos    int
	depth  int
}

// New wraps a token stream as produced by lexer.Tokenize. The stream must
// end with an EOF token.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a complete token stream in one call.
func Parse(tokens []lexer.Token) (*ast.Program, *diag.Diagnostic) {
	return New(tokens).ParseProgram()
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) consume() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) *diag.Diagnostic {
	d := diag.New(diag.StageSyntax, diag.KindUnexpectedToken, tok.Pos.Line, tok.Pos.Col, format, args...)
	return &d
}

func (p *Parser) expectPunctuation(s string) (lexer.Token, *diag.Diagnostic) {
	tok := p.consume()
	if !tok.IsPunctuation(s) {
		return tok, p.errorf(tok, "expected %q, found %s", s, tok)
	}
	return tok, nil
}

// enter tracks nesting depth for statements and expressions.
func (p *Parser) enter(tok lexer.Token) *diag.Diagnostic {
	p.depth++
	if p.depth > maxDepth {
		d := diag.New(diag.StageSyntax, diag.KindNestingTooDeep, tok.Pos.Line, tok.Pos.Col,
			"construct nested deeper than %d levels", maxDepth)
		return &d
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// ParseProgram parses a whole translation unit: any number of global
// variable declarations and function definitions, in any order.
func (p *Parser) ParseProgram() (*ast.Program, *diag.Diagnostic) {
	prog := &ast.Program{Pos: p.peek().Pos}

	for {
		tok := p.peek()
		if tok.Kind == lexer.EOF {
			return prog, nil
		}

		declType, pos, err := p.parseType()
		if err != nil {
			return nil, err
		}

		nameTok := p.consume()
		if nameTok.Kind != lexer.IDENT {
			return nil, p.errorf(nameTok, "expected name after type, found %s", nameTok)
		}

		if p.peek().IsPunctuation("(") {
			fn, err := p.parseFunctionRest(pos, declType, nameTok.Lexeme)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
			continue
		}

		global, err := p.parseVarDeclRest(pos, declType, nameTok.Lexeme)
		if err != nil {
			return nil, err
		}
		prog.Globals = append(prog.Globals, global)
	}
}

// parseType parses a type keyword followed by any number of '*'.
func (p *Parser) parseType() (types.Type, ast.Position, *diag.Diagnostic) {
	tok := p.consume()
	if tok.Kind != lexer.KEYWORD {
		return nil, tok.Pos, p.errorf(tok, "expected type, found %s", tok)
	}
	t, ok := types.ByName(tok.Lexeme)
	if !ok {
		return nil, tok.Pos, p.errorf(tok, "expected type, found keyword %q", tok.Lexeme)
	}
	for p.peek().IsOperator("*") {
		p.consume()
		t = types.NewPointer(t)
	}
	return t, tok.Pos, nil
}

// parseVarDeclRest finishes "type name" with an optional array length and
// the terminating semicolon.
func (p *Parser) parseVarDeclRest(pos ast.Position, t types.Type, name string) (*ast.VarDecl, *diag.Diagnostic) {
	if p.peek().IsPunctuation("[") {
		p.consume()
		lenTok := p.consume()
		if lenTok.Kind != lexer.NUMBER {
			return nil, p.errorf(lenTok, "expected array length, found %s", lenTok)
		}
		if _, err := p.expectPunctuation("]"); err != nil {
			return nil, err
		}
		t = &types.Array{Elem: t, Len: lenTok.Value}
	}
	if _, err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}
	return &ast.VarDecl{Pos: pos, Name: name, Type: t}, nil
}

// parseFunctionRest finishes a function definition once the return type and
// name have been consumed, starting at '('.
func (p *Parser) parseFunctionRest(pos ast.Position, returnType types.Type, name string) (*ast.FuncDecl, *diag.Diagnostic) {
	if _, err := p.expectPunctuation("("); err != nil {
		return nil, err
	}

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectPunctuation(")"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FuncDecl{
		Pos:        pos,
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Body:       body,
	}, nil
}

// parseParams parses a parameter list. "void" and an empty list both mean
// no parameters.
func (p *Parser) parseParams() ([]ast.Param, *diag.Diagnostic) {
	if p.peek().IsPunctuation(")") {
		return nil, nil
	}
	if p.peek().IsKeyword("void") {
		// Only when 'void' is the entire list; 'void*' starts a parameter.
		save := p.pos
		p.consume()
		if p.peek().IsPunctuation(")") {
			return nil, nil
		}
		p.pos = save
	}

	var params []ast.Param
	for {
		t, pos, err := p.parseType()
		if err != nil {
			return nil, err
		}
		nameTok := p.consume()
		if nameTok.Kind != lexer.IDENT {
			return nil, p.errorf(nameTok, "expected parameter name, found %s", nameTok)
		}
		params = append(params, ast.Param{Pos: pos, Name: nameTok.Lexeme, Type: t})

		if !p.peek().IsPunctuation(",") {
			return params, nil
		}
		p.consume()
	}
}

func (p *Parser) parseBlock() (*ast.Block, *diag.Diagnostic) {
	open, err := p.expectPunctuation("{")
	if err != nil {
		return nil, err
	}
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()

	block := &ast.Block{Pos: open.Pos}
	for {
		tok := p.peek()
		if tok.IsPunctuation("}") {
			p.consume()
			return block, nil
		}
		if tok.Kind == lexer.EOF {
			return nil, p.errorf(tok, "expected %q, found %s", "}", tok)
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

func (p *Parser) parseStatement() (ast.Stmt, *diag.Diagnostic) {
	tok := p.peek()
	if err := p.enter(tok); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case tok.IsPunctuation("{"):
		return p.parseBlock()
	case tok.Kind == lexer.KEYWORD:
		switch tok.Lexeme {
		case "int", "char", "void":
			t, pos, err := p.parseType()
			if err != nil {
				return nil, err
			}
			nameTok := p.consume()
			if nameTok.Kind != lexer.IDENT {
				return nil, p.errorf(nameTok, "expected variable name, found %s", nameTok)
			}
			return p.parseVarDeclRest(pos, t, nameTok.Lexeme)
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "return":
			return p.parseReturn()
		case "break":
			p.consume()
			if _, err := p.expectPunctuation(";"); err != nil {
				return nil, err
			}
			return &ast.Break{Pos: tok.Pos}, nil
		case "continue":
			p.consume()
			if _, err := p.expectPunctuation(";"); err != nil {
				return nil, err
			}
			return &ast.Continue{Pos: tok.Pos}, nil
		case "else":
			return nil, p.errorf(tok, "'else' without a matching 'if'")
		}
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Pos: expr.GetPos(), X: expr}, nil
}

func (p *Parser) parseIf() (ast.Stmt, *diag.Diagnostic) {
	tok := p.consume() // 'if'

	if _, err := p.expectPunctuation("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation(")"); err != nil {
		return nil, err
	}

	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	// The dangling else binds to the nearest if.
	var elseStmt ast.Stmt
	if p.peek().IsKeyword("else") {
		p.consume()
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Pos: tok.Pos, Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, *diag.Diagnostic) {
	tok := p.consume() // 'while'

	if _, err := p.expectPunctuation("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.While{Pos: tok.Pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, *diag.Diagnostic) {
	tok := p.consume() // 'for'

	if _, err := p.expectPunctuation("("); err != nil {
		return nil, err
	}

	// Init clause: empty, a declaration, or an expression.
	var init ast.Stmt
	switch next := p.peek(); {
	case next.IsPunctuation(";"):
		p.consume()
	case next.IsKeyword("int") || next.IsKeyword("char") || next.IsKeyword("void"):
		t, pos, err := p.parseType()
		if err != nil {
			return nil, err
		}
		nameTok := p.consume()
		if nameTok.Kind != lexer.IDENT {
			return nil, p.errorf(nameTok, "expected variable name, found %s", nameTok)
		}
		decl, err := p.parseVarDeclRest(pos, t, nameTok.Lexeme)
		if err != nil {
			return nil, err
		}
		init = decl
	default:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunctuation(";"); err != nil {
			return nil, err
		}
		init = &ast.ExprStmt{Pos: expr.GetPos(), X: expr}
	}

	var cond ast.Expr
	if !p.peek().IsPunctuation(";") {
		var err *diag.Diagnostic
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}

	var post ast.Expr
	if !p.peek().IsPunctuation(")") {
		var err *diag.Diagnostic
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectPunctuation(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.For{Pos: tok.Pos, Init: init, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, *diag.Diagnostic) {
	tok := p.consume() // 'return'

	if p.peek().IsPunctuation(";") {
		p.consume()
		return &ast.Return{Pos: tok.Pos}, nil
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}
	return &ast.Return{Pos: tok.Pos, Value: value}, nil
}

// ---------------------------------------------------------------------------
// Expressions

func (p *Parser) parseExpression() (ast.Expr, *diag.Diagnostic) {
	if err := p.enter(p.peek()); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseAssignment()
}

// parseAssignment handles the right-associative '='. Whether the left side
// is actually assignable is a semantic question, not a syntactic one.
func (p *Parser) parseAssignment() (ast.Expr, *diag.Diagnostic) {
	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}

	if !p.peek().IsOperator("=") {
		return left, nil
	}
	p.consume()

	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Pos: left.GetPos(), Target: left, Value: value}, nil
}

// parseBinary climbs operator precedence: it parses everything at or above
// minPrec, folding left-associatively.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, *diag.Diagnostic) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Kind != lexer.OPERATOR {
			return left, nil
		}
		prec, ok := binaryPrecedence[tok.Lexeme]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.consume()

		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: left.GetPos(), Op: tok.Lexeme, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, *diag.Diagnostic) {
	tok := p.peek()
	if tok.Kind == lexer.OPERATOR {
		switch tok.Lexeme {
		case "-", "!", "&", "*":
			if err := p.enter(tok); err != nil {
				return nil, err
			}
			defer p.leave()
			p.consume()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &ast.Unary{Pos: tok.Pos, Op: tok.Lexeme, Operand: operand}, nil
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of array
// subscripts.
func (p *Parser) parsePostfix() (ast.Expr, *diag.Diagnostic) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.peek().IsPunctuation("[") {
		open := p.consume()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunctuation("]"); err != nil {
			return nil, err
		}
		expr = &ast.Index{Pos: open.Pos, Array: expr, Idx: idx}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (ast.Expr, *diag.Diagnostic) {
	tok := p.consume()

	switch tok.Kind {
	case lexer.NUMBER:
		return &ast.Literal{Pos: tok.Pos, Value: tok.Value}, nil
	case lexer.CHAR:
		return &ast.Literal{Pos: tok.Pos, Value: tok.Value, IsChar: true}, nil
	case lexer.IDENT:
		if p.peek().IsPunctuation("(") {
			return p.parseCallRest(tok)
		}
		return &ast.Ident{Pos: tok.Pos, Name: tok.Lexeme}, nil
	case lexer.PUNCTUATION:
		if tok.Lexeme == "(" {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunctuation(")"); err != nil {
				return nil, err
			}
			return expr, nil
		}
	}
	return nil, p.errorf(tok, "expected expression, found %s", tok)
}

func (p *Parser) parseCallRest(nameTok lexer.Token) (ast.Expr, *diag.Diagnostic) {
	p.consume() // '('

	call := &ast.Call{Pos: nameTok.Pos, Name: nameTok.Lexeme}
	if p.peek().IsPunctuation(")") {
		p.consume()
		return call, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := p.consume()
		if tok.IsPunctuation(")") {
			return call, nil
		}
		if !tok.IsPunctuation(",") {
			return nil, p.errorf(tok, "expected %q or %q, found %s", ",", ")", tok)
		}
	}
}
