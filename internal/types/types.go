// Package types defines the closed type set of the language: int, char,
// void, pointers, one-dimensional arrays, and function signatures.
// Types are compared structurally.
package types

import (
	"fmt"
	"strings"
)

const (
	// WordSize is the target machine word in bytes (ARM32).
	WordSize = 4
	IntSize  = 4
	CharSize = 1
)

type Type interface {
	fmt.Stringer
	// Equal reports structural equality: two pointer-to-int types are equal
	// regardless of where they were written.
	Equal(other Type) bool
	// Size returns the storage size in bytes. Void has size 0.
	Size() int
}

type basicKind int

const (
	kindInt basicKind = iota
	kindChar
	kindVoid
)

// Basic is one of the built-in scalar types.
type Basic struct {
	kind basicKind
	name string
}

var (
	Int  = &Basic{kind: kindInt, name: "int"}
	Char = &Basic{kind: kindChar, name: "char"}
	Void = &Basic{kind: kindVoid, name: "void"}
)

func (b *Basic) String() string { return b.name }

func (b *Basic) Equal(other Type) bool {
	o, ok := other.(*Basic)
	return ok && o.kind == b.kind
}

func (b *Basic) Size() int {
	switch b.kind {
	case kindInt:
		return IntSize
	case kindChar:
		return CharSize
	default:
		return 0
	}
}

// ByName maps a type keyword to its basic type.
func ByName(name string) (Type, bool) {
	switch name {
	case "int":
		return Int, true
	case "char":
		return Char, true
	case "void":
		return Void, true
	}
	return nil, false
}

type Pointer struct {
	Elem Type
}

func NewPointer(elem Type) *Pointer { return &Pointer{Elem: elem} }

func (p *Pointer) String() string { return p.Elem.String() + "*" }

func (p *Pointer) Equal(other Type) bool {
	o, ok := other.(*Pointer)
	return ok && p.Elem.Equal(o.Elem)
}

func (p *Pointer) Size() int { return WordSize }

// Array is a one-dimensional array type. Len is int64 so an out-of-range
// source length survives until semantic analysis rejects it.
type Array struct {
	Elem Type
	Len  int64
}

func (a *Array) String() string { return fmt.Sprintf("%s[%d]", a.Elem, a.Len) }

func (a *Array) Equal(other Type) bool {
	o, ok := other.(*Array)
	return ok && a.Len == o.Len && a.Elem.Equal(o.Elem)
}

func (a *Array) Size() int { return int(a.Len) * a.Elem.Size() }

// Func is the type of a function symbol. It is never the type of an
// expression other than a bare function designator in a call.
type Func struct {
	Params []Type
	Return Type
}

func (f *Func) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", f.Return, strings.Join(params, ", "))
}

func (f *Func) Equal(other Type) bool {
	o, ok := other.(*Func)
	if !ok || len(f.Params) != len(o.Params) || !f.Return.Equal(o.Return) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (f *Func) Size() int { return 0 }

// IsNumeric reports whether t participates in arithmetic (int or char).
func IsNumeric(t Type) bool {
	return Int.Equal(t) || Char.Equal(t)
}

// IsPointer reports whether t is a pointer type.
func IsPointer(t Type) bool {
	_, ok := t.(*Pointer)
	return ok
}

// IsArray reports whether t is an array type.
func IsArray(t Type) bool {
	_, ok := t.(*Array)
	return ok
}

// Decay converts an array type to a pointer to its element type, the
// implicit conversion applied to arrays in expression context. All other
// types pass through unchanged.
func Decay(t Type) Type {
	if a, ok := t.(*Array); ok {
		return NewPointer(a.Elem)
	}
	return t
}

// Wider returns the wider of two numeric types: int wins over char.
func Wider(a, b Type) Type {
	if Int.Equal(a) || Int.Equal(b) {
		return Int
	}
	return Char
}
