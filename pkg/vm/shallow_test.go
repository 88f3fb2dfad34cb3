package vm

import (
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPolicy switches the process-wide policy for the duration of a test.
// Policy is global state, so none of these tests run in parallel.
func withPolicy(t *testing.T, p Policy) {
	t.Helper()
	old := CurrentPolicy()
	SetPolicy(p)
	t.Cleanup(func() { SetPolicy(old) })
}

func newTestClosure(fn *FunctionObject, cells ...*Value) Value {
	ups := make([]*Upvalue, len(cells))
	for i, c := range cells {
		ups[i] = &Upvalue{Location: c}
	}
	fn.UpvalueCount = len(ups)
	return NewClosure(fn, ups)
}

func TestReflexivityOnIdentity(t *testing.T) {
	re, err := NewRegExp("a+", "i")
	require.NoError(t, err)

	tmpl := &FunctionObject{Name: "f", Code: NewChunk("f", 1)}
	cell := NumberValue(1)

	values := []Value{
		Undefined,
		Null,
		True,
		False,
		NumberValue(3.14),
		IntegerValue(-7),
		NaN,
		NumberValue(math.Copysign(0, -1)),
		NewBigInt(big.NewInt(1 << 40)),
		NewString("hello"),
		ConcatStrings(NewString("a long prefix that "), NewString("forces a rope node")),
		NewSymbol("s"),
		NewObject(DefaultObjectPrototype),
		NewDictObject(DefaultObjectPrototype),
		NewFunction(tmpl),
		newTestClosure(&FunctionObject{Name: "g"}, &cell),
		NewNativeFunction(0, false, "n", func(args []Value) Value { return Undefined }),
		re,
	}
	for _, v := range values {
		assert.True(t, ShallowEqual(v, v), "expected ShallowEqual(v, v) for %s", v.Kind())
	}
}

func TestKindSafety(t *testing.T) {
	// One representative per observable kind; every cross-kind pair must
	// answer false, unconditionally.
	representatives := []Value{
		Undefined,
		Null,
		True,
		NumberValue(1),
		NewString("1"),
		NewSymbol("1"),
		mustRegExp(t, "1", ""),
		NewObject(DefaultObjectPrototype),
		NewNativeFunction(0, false, "f", func(args []Value) Value { return Undefined }),
	}
	for _, p := range []Policy{PolicyConservative, PolicyRelaxed} {
		withPolicy(t, p)
		for i, x := range representatives {
			for j, y := range representatives {
				if i == j {
					continue
				}
				assert.False(t, ShallowEqual(x, y), "%s vs %s under %s", x.Kind(), y.Kind(), p)
			}
		}
	}
}

func mustRegExp(t *testing.T, pattern, flags string) Value {
	t.Helper()
	v, err := NewRegExp(pattern, flags)
	require.NoError(t, err)
	return v
}

func TestNumberComparisons(t *testing.T) {
	assert.True(t, ShallowEqual(NaN, NaN), "NaN is SameValue-equal to NaN")
	assert.True(t, ShallowEqual(NumberValue(math.NaN()), NaN))

	negZero := NumberValue(math.Copysign(0, -1))
	assert.False(t, ShallowEqual(NumberValue(0), negZero), "+0 and -0 are distinct under SameValue")
	assert.False(t, ShallowEqual(IntegerValue(0), negZero))
	assert.True(t, ShallowEqual(NumberValue(0), IntegerValue(0)))
	assert.True(t, ShallowEqual(IntegerValue(42), NumberValue(42)))

	// Boxed numbers with equal contents at distinct addresses.
	assert.True(t, ShallowEqual(NewBigInt(big.NewInt(99)), NewBigInt(big.NewInt(99))))
	assert.False(t, ShallowEqual(NewBigInt(big.NewInt(99)), NewBigInt(big.NewInt(100))))
	// BigInt never coerces to float or integer numbers.
	assert.False(t, ShallowEqual(NewBigInt(big.NewInt(1)), NumberValue(1)))
	assert.False(t, ShallowEqual(NewBigInt(big.NewInt(1)), IntegerValue(1)))
}

func TestStringComparisons(t *testing.T) {
	assert.True(t, ShallowEqual(NewString("abc"), NewString("abc")))
	assert.False(t, ShallowEqual(NewString("abc"), NewString("abd")))

	// Equal contents reached through different concatenation histories:
	// legal to answer true because the comparison is an actual content
	// comparison, not a pointer comparison.
	flat := NewString("hello, shallow world, nice ropes")
	ropeA := ConcatStrings(NewString("hello, shallow "), NewString("world, nice ropes"))
	ropeB := ConcatStrings(
		ConcatStrings(NewString("hello, "), NewString("shallow world, ")),
		NewString("nice ropes"),
	)
	require.True(t, ropeA.AsStringObject().isRope())
	require.True(t, ropeB.AsStringObject().isRope())
	assert.True(t, ShallowEqual(flat, ropeA))
	assert.True(t, ShallowEqual(ropeA, ropeB))
	assert.False(t, ShallowEqual(ropeA, NewString("hello, shallow world, nice rope!")))
}

func TestSameShapeObjectsMayCompareEqual(t *testing.T) {
	buildXY := func() Value {
		v := NewObject(DefaultObjectPrototype)
		o := v.AsPlainObject()
		o.SetOwn("x", IntegerValue(1))
		o.SetOwn("y", IntegerValue(2))
		return v
	}
	a, b := buildXY(), buildXY()
	require.Same(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape(),
		"identical construction sequences share a shape")

	withPolicy(t, PolicyConservative)
	assert.True(t, ShallowEqual(a, b), "shared shape with bit-identical slots passes the layout fast path")
}

func TestDivergentShapesNeedRelaxedPolicy(t *testing.T) {
	a := NewObject(DefaultObjectPrototype)
	a.AsPlainObject().SetOwn("x", IntegerValue(1))
	a.AsPlainObject().SetOwn("y", IntegerValue(2))

	// Same contents, reversed insertion order: a different shape.
	b := NewObject(DefaultObjectPrototype)
	b.AsPlainObject().SetOwn("y", IntegerValue(2))
	b.AsPlainObject().SetOwn("x", IntegerValue(1))
	require.NotSame(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())

	withPolicy(t, PolicyConservative)
	assert.False(t, ShallowEqual(a, b), "conservative mode never searches past the layout")

	withPolicy(t, PolicyRelaxed)
	assert.True(t, ShallowEqual(a, b), "the fallback is order-independent")
}

func TestShallowOnlyDepth(t *testing.T) {
	build := func() Value {
		inner := NewObject(DefaultObjectPrototype)
		inner.AsPlainObject().SetOwn("n", IntegerValue(1))
		outer := NewObject(DefaultObjectPrototype)
		outer.AsPlainObject().SetOwn("p", inner)
		return outer
	}
	a, b := build(), build()
	for _, p := range []Policy{PolicyConservative, PolicyRelaxed} {
		withPolicy(t, p)
		assert.False(t, ShallowEqual(a, b),
			"distinct nested allocations must not be recursed into under %s", p)
	}
}

func TestSlotMismatchUnderSharedShapeIsFinal(t *testing.T) {
	build := func(x int32) Value {
		v := NewObject(DefaultObjectPrototype)
		v.AsPlainObject().SetOwn("x", IntegerValue(x))
		return v
	}
	a, b := build(1), build(2)
	require.Same(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())
	for _, p := range []Policy{PolicyConservative, PolicyRelaxed} {
		withPolicy(t, p)
		assert.False(t, ShallowEqual(a, b))
	}
}

func TestPrototypeReferenceMustMatch(t *testing.T) {
	protoA := NewObject(Null)
	protoB := NewObject(Null)
	build := func(proto Value) Value {
		v := NewObject(proto)
		v.AsPlainObject().SetOwn("x", IntegerValue(1))
		return v
	}
	a, b := build(protoA), build(protoB)
	// The shape tree does not encode the prototype, so these share one.
	require.Same(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())
	for _, p := range []Policy{PolicyConservative, PolicyRelaxed} {
		withPolicy(t, p)
		assert.False(t, ShallowEqual(a, b))
	}
	assert.True(t, ShallowEqual(build(protoA), build(protoA)))
}

func TestExpandoStorageComparesViaFallback(t *testing.T) {
	fill := func(v Value) Value {
		if d := v.AsDictObject(); d != nil {
			d.SetOwn("a", IntegerValue(1))
			d.SetOwn("b", NewString("two"))
			return v
		}
		v.AsPlainObject().SetOwn("a", IntegerValue(1))
		v.AsPlainObject().SetOwn("b", NewString("two"))
		return v
	}
	dictA := fill(NewDictObject(DefaultObjectPrototype))
	dictB := fill(NewDictObject(DefaultObjectPrototype))
	plain := fill(NewObject(DefaultObjectPrototype))

	withPolicy(t, PolicyConservative)
	assert.False(t, ShallowEqual(dictA, dictB), "out-of-line storage never hits the layout fast path")

	withPolicy(t, PolicyRelaxed)
	assert.True(t, ShallowEqual(dictA, dictB))
	assert.True(t, ShallowEqual(plain, dictA), "the fallback sees through the storage mode")

	dictB.AsDictObject().SetOwn("c", True)
	assert.False(t, ShallowEqual(dictA, dictB))
}

func TestFallbackIsInsertionOrderIndependent(t *testing.T) {
	names := make([]string, 40)
	for i := range names {
		names[i] = fmt.Sprintf("p%02d", i)
	}

	forward := NewObject(DefaultObjectPrototype)
	for i, name := range names {
		forward.AsPlainObject().SetOwn(name, IntegerValue(int32(i)))
	}
	backward := NewObject(DefaultObjectPrototype)
	for i := len(names) - 1; i >= 0; i-- {
		backward.AsPlainObject().SetOwn(names[i], IntegerValue(int32(i)))
	}
	require.NotSame(t, forward.AsPlainObject().Shape(), backward.AsPlainObject().Shape())

	withPolicy(t, PolicyRelaxed)
	assert.True(t, ShallowEqual(forward, backward), "same own properties in a different insertion order")

	backward.AsPlainObject().SetOwn(names[17], IntegerValue(-1))
	assert.False(t, ShallowEqual(forward, backward))
}

func TestAttributeBitsMustMatch(t *testing.T) {
	a := NewObject(DefaultObjectPrototype)
	a.AsPlainObject().SetOwn("m", IntegerValue(1))
	b := NewObject(DefaultObjectPrototype)
	b.AsPlainObject().SetOwnNonEnumerable("m", IntegerValue(1))
	require.NotSame(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())

	withPolicy(t, PolicyRelaxed)
	assert.False(t, ShallowEqual(a, b), "same name and value but different enumerability")
}

func TestAccessorPropertiesCompareByReference(t *testing.T) {
	var getterCalls int
	getter := NewNativeFunction(0, false, "get x", func(args []Value) Value {
		getterCalls++
		return IntegerValue(1)
	})
	otherGetter := NewNativeFunction(0, false, "get x", func(args []Value) Value { return IntegerValue(1) })

	build := func(g Value, extra string) Value {
		v := NewObject(DefaultObjectPrototype)
		o := v.AsPlainObject()
		// The extra data property forces distinct shapes so the fallback
		// path is the one doing the accessor comparison.
		o.SetOwn(extra, IntegerValue(0))
		o.DefineAccessorProperty("x", g, true, Undefined, false, nil, nil)
		return v
	}
	a := build(getter, "pad1")
	b := build(getter, "pad2")
	c := build(otherGetter, "pad3")
	// Dropping the pads leaves each object on a private diverged shape
	// with identical contents, so the fallback does the comparing.
	a.AsPlainObject().DeleteOwn("pad1")
	b.AsPlainObject().DeleteOwn("pad2")
	c.AsPlainObject().DeleteOwn("pad3")

	withPolicy(t, PolicyRelaxed)
	assert.True(t, ShallowEqual(a, b), "identical getter references compare equal")
	assert.False(t, ShallowEqual(a, c), "distinct getter references compare unequal")
	assert.Zero(t, getterCalls, "comparison must never invoke accessors")
}

func TestSameShapeAccessorFastPath(t *testing.T) {
	getter := NewNativeFunction(0, false, "get x", func(args []Value) Value { return IntegerValue(1) })
	otherGetter := NewNativeFunction(0, false, "get x", func(args []Value) Value { return IntegerValue(1) })
	build := func(g Value) Value {
		v := NewObject(DefaultObjectPrototype)
		v.AsPlainObject().DefineAccessorProperty("x", g, true, Undefined, false, nil, nil)
		return v
	}
	a, b, c := build(getter), build(getter), build(otherGetter)
	require.Same(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())

	withPolicy(t, PolicyConservative)
	assert.True(t, ShallowEqual(a, b))
	assert.False(t, ShallowEqual(a, c), "out-of-line accessor slots are part of the layout verdict")
}

func TestExtensibilityMustMatch(t *testing.T) {
	build := func() Value {
		v := NewObject(DefaultObjectPrototype)
		v.AsPlainObject().SetOwn("x", IntegerValue(1))
		return v
	}
	a, b := build(), build()
	b.AsPlainObject().SetExtensible(false)
	for _, p := range []Policy{PolicyConservative, PolicyRelaxed} {
		withPolicy(t, p)
		assert.False(t, ShallowEqual(a, b))
	}
}

func TestFunctionEnvironmentSensitivity(t *testing.T) {
	withPolicy(t, PolicyRelaxed)

	chunk := NewChunk("f", 10)
	script := &ScriptRecord{Name: "main.js"}
	tmpl := &FunctionObject{
		Name: "f", Arity: 1, Params: []Param{{Name: "a"}},
		Code: chunk, Kind: FunctionNormal, ThisMode: ThisStrict, Strict: true,
		Script: script, UpvalueCount: 1,
	}

	cellA := NumberValue(1)
	cellB := NumberValue(1)

	sameEnvX := newTestClosure(tmpl, &cellA)
	sameEnvY := newTestClosure(tmpl, &cellA)
	otherEnv := newTestClosure(tmpl, &cellB)

	assert.True(t, ShallowEqual(sameEnvX, sameEnvY),
		"identical source and identical environment may compare equal")
	assert.False(t, ShallowEqual(sameEnvX, otherEnv),
		"identical source but a different environment must not")

	withPolicy(t, PolicyConservative)
	assert.False(t, ShallowEqual(sameEnvX, sameEnvY),
		"conservative mode only ever recognizes the same allocation")
}

func TestClosureWithClearedUpvalueEntry(t *testing.T) {
	withPolicy(t, PolicyRelaxed)

	tmpl := &FunctionObject{Name: "f", Code: NewChunk("f", 1), UpvalueCount: 1}
	cell := NumberValue(1)
	damaged := newTestClosure(tmpl, &cell)
	intact := newTestClosure(tmpl, &cell)
	damaged.AsClosure().Upvalues[0] = nil

	assert.False(t, ShallowEqual(damaged, intact),
		"a cleared upvalue entry captures no variable")
	assert.False(t, ShallowEqual(intact, damaged))
	assert.True(t, ShallowEqual(damaged, damaged), "identity still short-circuits")
}

func TestFunctionInternalSlots(t *testing.T) {
	withPolicy(t, PolicyRelaxed)

	chunk := NewChunk("f", 1)
	base := FunctionObject{
		Name: "f", Arity: 2, Params: []Param{{Name: "a"}, {Name: "b"}},
		Code: chunk, Kind: FunctionNormal, CtorKind: ConstructorBase,
		ThisMode: ThisGlobal, Strict: false,
	}

	clone := base
	assert.True(t, ShallowEqual(NewFunction(&base), NewFunction(&clone)))

	for name, mutate := range map[string]func(*FunctionObject){
		"code":      func(f *FunctionObject) { f.Code = NewChunk("f", 1) },
		"kind":      func(f *FunctionObject) { f.Kind = FunctionAsync },
		"ctor kind": func(f *FunctionObject) { f.CtorKind = ConstructorDerived },
		"this mode": func(f *FunctionObject) { f.ThisMode = ThisStrict },
		"strict":    func(f *FunctionObject) { f.Strict = true },
		"realm":     func(f *FunctionObject) { f.Realm = NewRealm() },
		"script":    func(f *FunctionObject) { f.Script = &ScriptRecord{Name: "other.js"} },
		"home":      func(f *FunctionObject) { f.HomeObject = NewObject(DefaultObjectPrototype) },
		"params":    func(f *FunctionObject) { f.Params = []Param{{Name: "a"}, {Name: "b", Rest: true}} },
	} {
		changed := base
		mutate(&changed)
		assert.False(t, ShallowEqual(NewFunction(&base), NewFunction(&changed)),
			"differing %s slot must compare unequal", name)
	}
}

func TestHostObjectsAreIdentityOnly(t *testing.T) {
	withPolicy(t, PolicyRelaxed)
	a := mustRegExp(t, "a+", "i")
	b := mustRegExp(t, "a+", "i")
	assert.True(t, ShallowEqual(a, a))
	assert.False(t, ShallowEqual(a, b), "equal pattern and flags are not enough for host objects")
}

func TestConservativeModeIsAlwaysLegal(t *testing.T) {
	withPolicy(t, PolicyConservative)

	// Every non-identical composite pair the relaxed mode might
	// recognize must simply come back false here, never wrong.
	dictA := NewDictObject(DefaultObjectPrototype)
	dictB := NewDictObject(DefaultObjectPrototype)
	assert.False(t, ShallowEqual(dictA, dictB))

	tmpl := &FunctionObject{Name: "f", Code: NewChunk("f", 1)}
	cell := NumberValue(1)
	assert.False(t, ShallowEqual(newTestClosure(tmpl, &cell), newTestClosure(tmpl, &cell)))

	// Identity still holds.
	assert.True(t, ShallowEqual(dictA, dictA))
}

func TestEmptyObjectsShareTheRootShape(t *testing.T) {
	withPolicy(t, PolicyConservative)
	a := NewObject(DefaultObjectPrototype)
	b := NewObject(DefaultObjectPrototype)
	require.Same(t, a.AsPlainObject().Shape(), b.AsPlainObject().Shape())
	assert.True(t, ShallowEqual(a, b))
}
