package vm

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unsafe"
)

// ValueType is the internal representation tag of a Value. It is finer
// grained than ValueKind: several representation types collapse into one
// observable kind (see Value.Kind).
type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull

	TypeBoolean

	TypeFloatNumber
	TypeIntegerNumber
	TypeBigInt

	TypeString
	TypeSymbol

	TypeFunction
	TypeClosure
	TypeNativeFunction

	TypeObject
	TypeDictObject

	TypeRegExp
)

// String returns a human-readable name for the representation type.
func (vt ValueType) String() string {
	switch vt {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeFunction:
		return "function"
	case TypeClosure:
		return "closure"
	case TypeNativeFunction:
		return "native function"
	case TypeObject:
		return "object"
	case TypeDictObject:
		return "dict object"
	case TypeRegExp:
		return "regexp"
	default:
		return "unknown"
	}
}

// ValueKind is the observable kind of a value: the classification the
// equality pipeline branches on. Kind is immutable for the lifetime of a
// value. Representation details (integer vs float numbers, flat vs rope
// strings, plain vs dict objects) never show up at this level.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindSymbol
	KindHostObject
	KindObject
	KindFunction
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindHostObject:
		return "host object"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is the runtime value representation: a tagged union with an inline
// payload for primitives and a pointer for heap values. Copying a Value
// copies the tag and payload/pointer, never the pointee.
type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

// SymbolObject backs symbol values. Symbols have no content identity: two
// symbols are the same symbol only if they are the same allocation.
type SymbolObject struct {
	Object
	description string
}

// BigIntObject backs bigint values: a boxed number whose contents live
// behind a separate heap allocation.
type BigIntObject struct {
	Object
	value *big.Int
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
	NaN       = Value{typ: TypeFloatNumber, payload: math.Float64bits(math.NaN())}
)

func NumberValue(value float64) Value {
	return Value{typ: TypeFloatNumber, payload: math.Float64bits(value)}
}

func IntegerValue(value int32) Value {
	return Value{typ: TypeIntegerNumber, payload: uint64(int64(value))}
}

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

func NewBigInt(value *big.Int) Value {
	return Value{typ: TypeBigInt, obj: unsafe.Pointer(&BigIntObject{value: value})}
}

func NewSymbol(description string) Value {
	return Value{typ: TypeSymbol, obj: unsafe.Pointer(&SymbolObject{description: description})}
}

// --- Type checkers ---

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }

func (v Value) IsNumber() bool {
	return v.typ == TypeFloatNumber || v.typ == TypeIntegerNumber || v.typ == TypeBigInt
}

func (v Value) IsFloatNumber() bool   { return v.typ == TypeFloatNumber }
func (v Value) IsIntegerNumber() bool { return v.typ == TypeIntegerNumber }
func (v Value) IsBigInt() bool        { return v.typ == TypeBigInt }
func (v Value) IsString() bool        { return v.typ == TypeString }
func (v Value) IsSymbol() bool        { return v.typ == TypeSymbol }

// IsObject reports whether the value is an ordinary object (plain or dict
// backed). Host objects and functions are deliberately excluded.
func (v Value) IsObject() bool {
	return v.typ == TypeObject || v.typ == TypeDictObject
}

func (v Value) IsDictObject() bool { return v.typ == TypeDictObject }
func (v Value) IsRegExp() bool     { return v.typ == TypeRegExp }

func (v Value) IsCallable() bool {
	return v.typ == TypeFunction || v.typ == TypeClosure || v.typ == TypeNativeFunction
}

func (v Value) IsFunction() bool { return v.typ == TypeFunction }
func (v Value) IsClosure() bool  { return v.typ == TypeClosure }

func (v Value) Type() ValueType { return v.typ }

// Kind classifies the value into its observable kind. O(1), no traversal,
// no allocation.
func (v Value) Kind() ValueKind {
	switch v.typ {
	case TypeUndefined:
		return KindUndefined
	case TypeNull:
		return KindNull
	case TypeBoolean:
		return KindBoolean
	case TypeFloatNumber, TypeIntegerNumber, TypeBigInt:
		return KindNumber
	case TypeString:
		return KindString
	case TypeSymbol:
		return KindSymbol
	case TypeFunction, TypeClosure, TypeNativeFunction:
		return KindFunction
	case TypeObject, TypeDictObject:
		return KindObject
	case TypeRegExp:
		return KindHostObject
	default:
		return KindHostObject
	}
}

func (v Value) TypeName() string { return v.Kind().String() }

// --- Accessors ---

func (v Value) AsFloat() float64 {
	if v.typ != TypeFloatNumber {
		panic(fmt.Sprintf("value is not a float number: %v", v.typ))
	}
	return math.Float64frombits(v.payload)
}

func (v Value) AsInteger() int32 {
	if v.typ != TypeIntegerNumber {
		panic(fmt.Sprintf("value is not an integer number: %v", v.typ))
	}
	return int32(int64(v.payload))
}

func (v Value) AsBigInt() *big.Int {
	if v.typ != TypeBigInt {
		panic(fmt.Sprintf("value is not a bigint: %v", v.typ))
	}
	return (*BigIntObject)(v.obj).value
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic(fmt.Sprintf("value is not a boolean: %v", v.typ))
	}
	return v.payload != 0
}

func (v Value) AsStringObject() *StringObject {
	if v.typ != TypeString {
		panic(fmt.Sprintf("value is not a string: %v", v.typ))
	}
	return (*StringObject)(v.obj)
}

// AsString returns the string contents, materializing rope nodes.
func (v Value) AsString() string {
	return v.AsStringObject().Contents()
}

func (v Value) AsSymbolObject() *SymbolObject {
	if v.typ != TypeSymbol {
		panic(fmt.Sprintf("value is not a symbol: %v", v.typ))
	}
	return (*SymbolObject)(v.obj)
}

func (v Value) AsPlainObject() *PlainObject {
	if v.typ != TypeObject {
		return nil
	}
	return (*PlainObject)(v.obj)
}

func (v Value) AsDictObject() *DictObject {
	if v.typ != TypeDictObject {
		return nil
	}
	return (*DictObject)(v.obj)
}

func (v Value) AsFunction() *FunctionObject {
	if v.typ != TypeFunction {
		panic(fmt.Sprintf("value is not a function: %v", v.typ))
	}
	return (*FunctionObject)(v.obj)
}

func (v Value) AsClosure() *ClosureObject {
	if v.typ != TypeClosure {
		panic(fmt.Sprintf("value is not a closure: %v", v.typ))
	}
	return (*ClosureObject)(v.obj)
}

func (v Value) AsNativeFunction() *NativeFunctionObject {
	if v.typ != TypeNativeFunction {
		panic(fmt.Sprintf("value is not a native function: %v", v.typ))
	}
	return (*NativeFunctionObject)(v.obj)
}

func (v Value) AsRegExp() *RegExpObject {
	if v.typ != TypeRegExp {
		panic(fmt.Sprintf("value is not a regexp: %v", v.typ))
	}
	return (*RegExpObject)(v.obj)
}

// --- Equality ---

// SameValue compares two values using SameValue semantics: NaN equals NaN,
// +0 does not equal -0, strings compare by content, symbols and composites
// by reference. This is the value-level identity used by the identity fast
// path and for one-level slot comparisons; it never recurses into object
// contents.
func (v Value) SameValue(other Value) bool {
	if v.typ != other.typ {
		// Integer and float representations of the same mathematical
		// number are the same number. BigInt never coerces.
		if (v.typ == TypeIntegerNumber || v.typ == TypeFloatNumber) &&
			(other.typ == TypeIntegerNumber || other.typ == TypeFloatNumber) {
			return sameValueNumber(v.toFloat(), other.toFloat())
		}
		return false
	}

	switch v.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean, TypeIntegerNumber:
		return v.payload == other.payload
	case TypeFloatNumber:
		return sameValueNumber(v.AsFloat(), other.AsFloat())
	case TypeBigInt:
		return v.AsBigInt().Cmp(other.AsBigInt()) == 0
	case TypeString:
		// Pointer-equal allocations are trivially the same string; rope
		// and flat representations otherwise compare by actual content.
		if v.obj == other.obj {
			return true
		}
		return stringContentEqual((*StringObject)(v.obj), (*StringObject)(other.obj))
	case TypeSymbol:
		return v.obj == other.obj
	case TypeObject, TypeDictObject, TypeFunction, TypeClosure, TypeNativeFunction, TypeRegExp:
		return v.obj == other.obj
	default:
		return false
	}
}

// sameValueNumber implements SameValue for float64: NaN is NaN, and the
// bit-level comparison keeps +0 and -0 distinct.
func sameValueNumber(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Float64bits(a) == math.Float64bits(b)
}

func (v Value) toFloat() float64 {
	switch v.typ {
	case TypeFloatNumber:
		return math.Float64frombits(v.payload)
	case TypeIntegerNumber:
		return float64(int32(int64(v.payload)))
	default:
		panic(fmt.Sprintf("toFloat on non-numeric representation: %v", v.typ))
	}
}

// bitIdentical reports whether two values have the same representation tag
// and the same raw payload bits: the slot-level comparison used by the
// layout fast path. It never follows the obj pointer, so semantically equal
// but pointer-distinct ropes, bigints, or objects compare unequal here.
func (v Value) bitIdentical(other Value) bool {
	return v.typ == other.typ && v.payload == other.payload && v.obj == other.obj
}

// String returns a debug rendering of the value.
func (v Value) String() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return strconv.FormatBool(v.payload != 0)
	case TypeFloatNumber:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case TypeIntegerNumber:
		return strconv.FormatInt(int64(v.AsInteger()), 10)
	case TypeBigInt:
		return v.AsBigInt().String() + "n"
	case TypeString:
		return v.AsString()
	case TypeSymbol:
		return fmt.Sprintf("Symbol(%s)", v.AsSymbolObject().description)
	case TypeFunction:
		fn := v.AsFunction()
		if fn.Name != "" {
			return fmt.Sprintf("<fn %s>", fn.Name)
		}
		return "<fn>"
	case TypeClosure:
		cl := v.AsClosure()
		if cl.Fn != nil && cl.Fn.Name != "" {
			return fmt.Sprintf("<closure %s>", cl.Fn.Name)
		}
		return "<closure>"
	case TypeNativeFunction:
		return fmt.Sprintf("<native fn %s>", v.AsNativeFunction().Name)
	case TypeObject, TypeDictObject:
		return "[object Object]"
	case TypeRegExp:
		re := v.AsRegExp()
		return "/" + re.Source() + "/" + re.Flags()
	default:
		return fmt.Sprintf("<unknown %d>", v.typ)
	}
}
