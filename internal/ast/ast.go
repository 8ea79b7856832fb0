// Package ast defines the syntax tree produced by the parser and annotated
// by the semantic analyzer. Node kinds form a closed set; every pass over
// the tree switches exhaustively and panics on anything it does not know.
package ast

import (
	"fmt"
	"strings"

	"github.com/carmc/carmc/internal/lexer"
	"github.com/carmc/carmc/internal/types"
)

type Position = lexer.Position

// Storage classes for symbols.
type Storage int

const (
	StorageLocal Storage = iota
	StorageGlobal
	StorageParam
	StorageFunc
)

func (s Storage) String() string {
	switch s {
	case StorageLocal:
		return "local"
	case StorageGlobal:
		return "global"
	case StorageParam:
		return "param"
	case StorageFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Symbol is a resolved declaration. Symbols live in the analyzer's arena;
// AST nodes and IR operands only reference them. UniqueName is the
// function-scoped flattened name ("x", "x@1", ...) used by the IR so that
// shadowed variables never collide.
type Symbol struct {
	ID         int
	Name       string
	UniqueName string
	Type       types.Type
	Storage    Storage
	Depth      int
}

type Node interface {
	fmt.Stringer
	GetPos() Position
}

type Expr interface {
	Node
	// GetType returns the type annotation filled in by the semantic
	// analyzer, nil before analysis.
	GetType() types.Type
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// ---------------------------------------------------------------------------
// Program structure

type Program struct {
	Pos       Position
	Globals   []*VarDecl
	Functions []*FuncDecl
}

func (p *Program) GetPos() Position { return p.Pos }

func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, g := range p.Globals {
		sb.WriteString(" ")
		sb.WriteString(g.String())
	}
	for _, fn := range p.Functions {
		sb.WriteString(" ")
		sb.WriteString(fn.String())
	}
	sb.WriteString(")")
	return sb.String()
}

type Param struct {
	Pos  Position
	Name string
	Type types.Type
	Sym  *Symbol
}

func (p Param) String() string {
	return fmt.Sprintf("(%s %s)", p.Type, p.Name)
}

type FuncDecl struct {
	Pos        Position
	Name       string
	Params     []Param
	ReturnType types.Type
	Body       *Block
	Sym        *Symbol
}

func (f *FuncDecl) GetPos() Position { return f.Pos }

func (f *FuncDecl) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(func %s %s (", f.ReturnType, f.Name)
	for i, param := range f.Params {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(param.String())
	}
	sb.WriteString(") ")
	sb.WriteString(f.Body.String())
	sb.WriteString(")")
	return sb.String()
}

// ---------------------------------------------------------------------------
// Statements

type Block struct {
	Pos   Position
	Stmts []Stmt
}

func (b *Block) GetPos() Position { return b.Pos }
func (b *Block) stmtNode()        {}

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString("(block")
	for _, stmt := range b.Stmts {
		sb.WriteString(" ")
		sb.WriteString(stmt.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// VarDecl declares a scalar, pointer, or one-dimensional array variable.
// Used both for globals and for locals.
type VarDecl struct {
	Pos  Position
	Name string
	Type types.Type
	Sym  *Symbol
}

func (d *VarDecl) GetPos() Position { return d.Pos }
func (d *VarDecl) stmtNode()        {}

func (d *VarDecl) String() string {
	return fmt.Sprintf("(var %s %s)", d.Type, d.Name)
}

type If struct {
	Pos  Position
	Cond Expr
	Then Stmt
	Else Stmt // nil when there is no else branch
}

func (s *If) GetPos() Position { return s.Pos }
func (s *If) stmtNode()        {}

func (s *If) String() string {
	if s.Else == nil {
		return fmt.Sprintf("(if %s %s)", s.Cond, s.Then)
	}
	return fmt.Sprintf("(if %s %s %s)", s.Cond, s.Then, s.Else)
}

type While struct {
	Pos  Position
	Cond Expr
	Body Stmt
}

func (s *While) GetPos() Position { return s.Pos }
func (s *While) stmtNode()        {}

func (s *While) String() string {
	return fmt.Sprintf("(while %s %s)", s.Cond, s.Body)
}

type For struct {
	Pos  Position
	Init Stmt // nil, *VarDecl, or *ExprStmt
	Cond Expr // nil means always true
	Post Expr // nil when absent
	Body Stmt
}

func (s *For) GetPos() Position { return s.Pos }
func (s *For) stmtNode()        {}

func (s *For) String() string {
	init := "()"
	if s.Init != nil {
		init = s.Init.String()
	}
	cond := "()"
	if s.Cond != nil {
		cond = s.Cond.String()
	}
	post := "()"
	if s.Post != nil {
		post = s.Post.String()
	}
	return fmt.Sprintf("(for %s %s %s %s)", init, cond, post, s.Body)
}

type Return struct {
	Pos   Position
	Value Expr // nil for a bare return
}

func (s *Return) GetPos() Position { return s.Pos }
func (s *Return) stmtNode()        {}

func (s *Return) String() string {
	if s.Value == nil {
		return "(return)"
	}
	return fmt.Sprintf("(return %s)", s.Value)
}

type Break struct {
	Pos Position
}

func (s *Break) GetPos() Position { return s.Pos }
func (s *Break) stmtNode()        {}
func (s *Break) String() string   { return "(break)" }

type Continue struct {
	Pos Position
}

func (s *Continue) GetPos() Position { return s.Pos }
func (s *Continue) stmtNode()        {}
func (s *Continue) String() string   { return "(continue)" }

type ExprStmt struct {
	Pos Position
	X   Expr
}

func (s *ExprStmt) GetPos() Position { return s.Pos }
func (s *ExprStmt) stmtNode()        {}
func (s *ExprStmt) String() string   { return fmt.Sprintf("(expr %s)", s.X) }

// ---------------------------------------------------------------------------
// Expressions

// Literal is an integer or character constant.
type Literal struct {
	Pos    Position
	Value  int64
	IsChar bool
	Type   types.Type
}

func (e *Literal) GetPos() Position    { return e.Pos }
func (e *Literal) GetType() types.Type { return e.Type }
func (e *Literal) exprNode()           {}

func (e *Literal) String() string {
	if e.IsChar {
		return fmt.Sprintf("'%c'", rune(e.Value))
	}
	return fmt.Sprintf("%d", e.Value)
}

type Ident struct {
	Pos  Position
	Name string
	Sym  *Symbol
	Type types.Type
}

func (e *Ident) GetPos() Position    { return e.Pos }
func (e *Ident) GetType() types.Type { return e.Type }
func (e *Ident) exprNode()           {}
func (e *Ident) String() string      { return e.Name }

type Binary struct {
	Pos   Position
	Op    string
	Left  Expr
	Right Expr
	Type  types.Type
}

func (e *Binary) GetPos() Position    { return e.Pos }
func (e *Binary) GetType() types.Type { return e.Type }
func (e *Binary) exprNode()           {}

func (e *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.Left, e.Right)
}

type Unary struct {
	Pos     Position
	Op      string // "-", "!", "&", "*"
	Operand Expr
	Type    types.Type
}

func (e *Unary) GetPos() Position    { return e.Pos }
func (e *Unary) GetType() types.Type { return e.Type }
func (e *Unary) exprNode()           {}

func (e *Unary) String() string {
	return fmt.Sprintf("(%s %s)", e.Op, e.Operand)
}

type Call struct {
	Pos  Position
	Name string
	Args []Expr
	Sym  *Symbol
	Type types.Type
}

func (e *Call) GetPos() Position    { return e.Pos }
func (e *Call) GetType() types.Type { return e.Type }
func (e *Call) exprNode()           {}

func (e *Call) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(call %s", e.Name)
	for _, arg := range e.Args {
		sb.WriteString(" ")
		sb.WriteString(arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Index is a one-dimensional array subscript.
type Index struct {
	Pos   Position
	Array Expr
	Idx   Expr
	Type  types.Type
}

func (e *Index) GetPos() Position    { return e.Pos }
func (e *Index) GetType() types.Type { return e.Type }
func (e *Index) exprNode()           {}

func (e *Index) String() string {
	return fmt.Sprintf("(index %s %s)", e.Array, e.Idx)
}

// Assign is an assignment expression; the target must be an lvalue
// (identifier, subscript, or pointer dereference), which the semantic
// analyzer enforces.
type Assign struct {
	Pos    Position
	Target Expr
	Value  Expr
	Type   types.Type
}

func (e *Assign) GetPos() Position    { return e.Pos }
func (e *Assign) GetType() types.Type { return e.Type }
func (e *Assign) exprNode()           {}

func (e *Assign) String() string {
	return fmt.Sprintf("(= %s %s)", e.Target, e.Value)
}
