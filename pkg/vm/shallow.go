package vm

// ShallowEqual reports whether two values are shallowly identical: equal in
// kind and, for composites, equal one level deep in every own property and
// in the representation details the current policy is allowed to look
// through. false is always a valid answer; true carries the per-kind
// guarantees below. The comparison is total, pure, and never invokes
// getters or host traps.
//
// Pipeline: kind classification, then the identity fast path, then (for
// ordinary objects) the layout comparator, then, policy permitting, the
// semantic fallback, then the function internal-slot comparator for
// callable pairs.
func ShallowEqual(x, y Value) bool {
	// Kinds must match exactly; this rule is unconditional.
	if x.Kind() != y.Kind() {
		return false
	}

	switch x.Kind() {
	case KindUndefined, KindNull, KindBoolean, KindNumber, KindString, KindSymbol:
		// For primitives the identity fast path is SameValue itself:
		// canonical value identity, including actual content comparison
		// for strings and boxed numbers. NaN equals NaN; +0 and -0 stay
		// distinct.
		return x.SameValue(y)
	}

	// Identity fast path for composites: same allocation.
	if x.obj == y.obj {
		return true
	}

	switch x.Kind() {
	case KindHostObject:
		// Host objects have no layout contract; distinct allocations
		// never compare equal.
		return false
	case KindFunction:
		return functionEqual(x, y)
	case KindObject:
		return objectEqual(x, y)
	default:
		return false
	}
}

// objectEqual compares two distinct ordinary-object allocations.
func objectEqual(x, y Value) bool {
	a, b := x.AsPlainObject(), y.AsPlainObject()
	if a != nil && b != nil {
		if a.shape == b.shape {
			// Shared layout descriptor: the fast path's own verdict is
			// final. A slot mismatch under a shared shape settles false;
			// the fallback only applies to layout divergence.
			return layoutEqual(a, b)
		}
	}
	// Layout divergence (different shapes, or dict-backed storage on
	// either side). Only the relaxed policy searches further.
	if CurrentPolicy() != PolicyRelaxed {
		return false
	}
	return fallbackEqual(x, y)
}

// layoutEqual is the layout fast path: both objects share a shape, so
// their slot blocks are directly comparable. Slots are compared bit for
// bit (tag, payload, pointer) and never dereferenced: a rope or boxed
// number stored in a slot must match by reference, not by content.
// Accessor fields keep their getter/setter values out of line and are
// required to match by reference as well.
func layoutEqual(a, b *PlainObject) bool {
	if !a.prototype.bitIdentical(b.prototype) {
		return false
	}
	if a.extensible != b.extensible {
		return false
	}
	size := a.shape.InstanceSize()
	if len(a.properties) != size || len(b.properties) != size {
		return false
	}
	for i := 0; i < size; i++ {
		if !a.properties[i].bitIdentical(b.properties[i]) {
			return false
		}
	}
	for _, f := range a.shape.fields {
		if !f.isAccessor {
			continue
		}
		ga, sa, _, _, _ := a.GetOwnAccessor(f.name)
		gb, sb, _, _, _ := b.GetOwnAccessor(f.name)
		if !ga.bitIdentical(gb) || !sa.bitIdentical(sb) {
			return false
		}
	}
	return true
}

// ownDescriptor is the uniform own-property view the fallback comparator
// walks, independent of the object's storage mode.
type ownDescriptor struct {
	value        Value
	writable     bool
	enumerable   bool
	configurable bool
	isAccessor   bool
	getter       Value
	setter       Value
}

func ordinaryPrototype(v Value) Value {
	if po := v.AsPlainObject(); po != nil {
		return po.prototype
	}
	return v.AsDictObject().prototype
}

func ordinaryExtensible(v Value) bool {
	if po := v.AsPlainObject(); po != nil {
		return po.extensible
	}
	return v.AsDictObject().extensible
}

// ownDescriptors collects every own property of an ordinary object in a
// single pass over its storage, keyed by name.
func ownDescriptors(v Value) map[string]ownDescriptor {
	if po := v.AsPlainObject(); po != nil {
		descs := make(map[string]ownDescriptor, len(po.shape.fields))
		for _, f := range po.shape.fields {
			if f.isAccessor {
				g, s := Undefined, Undefined
				if gv, ok := po.getters[f.name]; ok {
					g = gv
				}
				if sv, ok := po.setters[f.name]; ok {
					s = sv
				}
				descs[f.name] = ownDescriptor{
					enumerable:   f.enumerable,
					configurable: f.configurable,
					isAccessor:   true,
					getter:       g,
					setter:       s,
				}
				continue
			}
			var val Value = Undefined
			if f.offset < len(po.properties) {
				val = po.properties[f.offset]
			}
			descs[f.name] = ownDescriptor{
				value:        val,
				writable:     f.writable,
				enumerable:   f.enumerable,
				configurable: f.configurable,
			}
		}
		return descs
	}
	d := v.AsDictObject()
	descs := make(map[string]ownDescriptor, len(d.properties))
	for name, val := range d.properties {
		descs[name] = ownDescriptor{value: val, writable: true, enumerable: true, configurable: true}
	}
	return descs
}

// fallbackEqual is the semantic fallback: an order-independent, one-level
// own-property comparison for objects whose layouts diverged. It works
// across storage modes, so an inline-slot object and a dict-backed object
// with the same contents can still compare equal. Data property values
// compare by SameValue, one level only, never recursing into object
// contents. Accessor properties require identical getter and setter
// references; nothing is ever invoked. One descriptor pass per side keeps
// the comparison linear in the own-property count.
func fallbackEqual(x, y Value) bool {
	if !ordinaryPrototype(x).bitIdentical(ordinaryPrototype(y)) {
		return false
	}
	if ordinaryExtensible(x) != ordinaryExtensible(y) {
		return false
	}
	descX := ownDescriptors(x)
	descY := ownDescriptors(y)
	if len(descX) != len(descY) {
		return false
	}
	// Own names are unique, so equal counts plus per-name presence gives
	// name-set equality.
	for name, dx := range descX {
		dy, ok := descY[name]
		if !ok {
			return false
		}
		if dx.writable != dy.writable || dx.enumerable != dy.enumerable || dx.configurable != dy.configurable {
			return false
		}
		if dx.isAccessor != dy.isAccessor {
			return false
		}
		if dx.isAccessor {
			if !dx.getter.bitIdentical(dy.getter) || !dx.setter.bitIdentical(dy.setter) {
				return false
			}
			continue
		}
		if !dx.value.SameValue(dy.value) {
			return false
		}
	}
	return true
}

// functionEqual compares two distinct callable allocations. The identity
// fast path has already failed, so a true here means recognizing separate
// allocations as the same function; that search is only open to the
// relaxed policy.
func functionEqual(x, y Value) bool {
	if CurrentPolicy() != PolicyRelaxed {
		return false
	}
	if x.typ != y.typ {
		// Template, closure, and native function are different internal
		// forms; recognizing across them is never required.
		return false
	}
	switch x.typ {
	case TypeFunction:
		return functionTemplateEqual(x.AsFunction(), y.AsFunction())
	case TypeClosure:
		a, b := x.AsClosure(), y.AsClosure()
		if !functionTemplateEqual(a.Fn, b.Fn) {
			return false
		}
		if len(a.Upvalues) != len(b.Upvalues) {
			return false
		}
		for i := range a.Upvalues {
			ua, ub := a.Upvalues[i], b.Upvalues[i]
			if ua == ub {
				continue
			}
			// A nil entry has no storage cell to resolve.
			if ua == nil || ub == nil {
				return false
			}
			// Same captured variable means same storage cell, whether
			// the upvalue is still open or already closed.
			if ua.Resolve() != ub.Resolve() {
				return false
			}
		}
		return true
	default:
		// Native functions carry host state and are identity-only.
		return false
	}
}

// functionTemplateEqual compares the internal slots of two function
// templates: source identity (Code), kind, constructor kind, this mode,
// strictness, realm, script of origin, home object reference, and the
// formal parameter sequence.
func functionTemplateEqual(a, b *FunctionObject) bool {
	if a == b {
		return true
	}
	if a.Code != b.Code {
		return false
	}
	if a.Kind != b.Kind || a.CtorKind != b.CtorKind || a.ThisMode != b.ThisMode || a.Strict != b.Strict {
		return false
	}
	if a.Realm != b.Realm || a.Script != b.Script {
		return false
	}
	if !a.HomeObject.bitIdentical(b.HomeObject) {
		return false
	}
	if a.Name != b.Name || a.Arity != b.Arity || a.Variadic != b.Variadic {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return true
}
