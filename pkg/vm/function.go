package vm

import (
	"fmt"
	"unsafe"
)

// FunctionKind classifies a function template.
type FunctionKind uint8

const (
	FunctionNormal FunctionKind = iota
	FunctionArrow
	FunctionMethod
	FunctionGenerator
	FunctionAsync
)

// ConstructorKind records whether and how a function constructs.
type ConstructorKind uint8

const (
	ConstructorNone ConstructorKind = iota
	ConstructorBase
	ConstructorDerived
)

// ThisMode controls how the this binding resolves inside the function.
type ThisMode uint8

const (
	ThisLexical ThisMode = iota
	ThisStrict
	ThisGlobal
)

// Param is one formal parameter descriptor.
type Param struct {
	Name       string
	Rest       bool
	HasDefault bool
}

// ScriptRecord identifies the script or module a function was compiled
// from. Identity is by pointer.
type ScriptRecord struct {
	Name   string
	Source string
}

// FunctionObject is the shared function template: everything about a
// function except its captured environment. Two closures instantiated from
// the same template share one FunctionObject, so template pointer equality
// is source identity.
type FunctionObject struct {
	Object
	Name         string
	Arity        int
	Variadic     bool
	Params       []Param
	Code         *Chunk
	Kind         FunctionKind
	CtorKind     ConstructorKind
	ThisMode     ThisMode
	Strict       bool
	HomeObject   Value
	Realm        *Realm
	Script       *ScriptRecord
	UpvalueCount int
}

// Upvalue is a variable captured by a closure: open while the variable
// still lives in its frame (Location points at the slot), closed after the
// frame unwinds (value moved into Closed).
type Upvalue struct {
	Location *Value
	Closed   Value
}

func (uv *Upvalue) Close() {
	if uv.Location != nil {
		uv.Closed = *uv.Location
		uv.Location = nil
	}
}

// Resolve returns the storage cell the upvalue currently designates.
func (uv *Upvalue) Resolve() *Value {
	if uv.Location == nil {
		return &uv.Closed
	}
	return uv.Location
}

// ClosureObject pairs a function template with its captured environment.
type ClosureObject struct {
	Object
	Fn       *FunctionObject
	Upvalues []*Upvalue
}

// NativeFunctionObject is a host-supplied Go function callable from the
// runtime. It has no layout, environment, or source identity; equality is
// strictly by allocation.
type NativeFunctionObject struct {
	Object
	Name     string
	Arity    int
	Variadic bool
	Fn       func(args []Value) Value
}

func NewFunction(fn *FunctionObject) Value {
	if fn == nil {
		panic("cannot create a function value from a nil template")
	}
	return Value{typ: TypeFunction, obj: unsafe.Pointer(fn)}
}

func NewClosure(fn *FunctionObject, upvalues []*Upvalue) Value {
	if fn == nil {
		panic("cannot create a closure with a nil function template")
	}
	if len(upvalues) != fn.UpvalueCount {
		panic(fmt.Sprintf("incorrect number of upvalues for closure: expected %d, got %d", fn.UpvalueCount, len(upvalues)))
	}
	for i, uv := range upvalues {
		if uv == nil {
			panic(fmt.Sprintf("nil upvalue at index %d for closure %q", i, fn.Name))
		}
	}
	return Value{typ: TypeClosure, obj: unsafe.Pointer(&ClosureObject{Fn: fn, Upvalues: upvalues})}
}

func NewNativeFunction(arity int, variadic bool, name string, fn func(args []Value) Value) Value {
	return Value{typ: TypeNativeFunction, obj: unsafe.Pointer(&NativeFunctionObject{
		Name:     name,
		Arity:    arity,
		Variadic: variadic,
		Fn:       fn,
	})}
}
