package vm

import (
	"strings"
	"unsafe"
)

// ropeThreshold is the combined length below which concatenation produces a
// flat string instead of a rope node.
const ropeThreshold = 24

// StringObject is the heap form of a string value. A string is either flat
// (contents held in flat, left == nil) or a rope: a binary concatenation
// node whose contents are the contents of left followed by right. Equal
// contents can therefore live in structurally different, pointer-distinct
// allocations depending on how the string was built.
type StringObject struct {
	Object
	flat   string
	left   *StringObject
	right  *StringObject
	length int
}

func (s *StringObject) isRope() bool { return s.left != nil }

// Len returns the length in bytes without materializing rope contents.
func (s *StringObject) Len() int { return s.length }

// Contents materializes the string. Flat strings return their backing
// string directly; ropes are written into a single builder with an
// iterative leaf walk.
func (s *StringObject) Contents() string {
	if !s.isRope() {
		return s.flat
	}
	var b strings.Builder
	b.Grow(s.length)
	stack := []*StringObject{s}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.isRope() {
			// Right pushed first so left is emitted first.
			stack = append(stack, n.right, n.left)
			continue
		}
		b.WriteString(n.flat)
	}
	return b.String()
}

func NewString(value string) Value {
	return Value{typ: TypeString, obj: unsafe.Pointer(&StringObject{flat: value, length: len(value)})}
}

// ConcatStrings concatenates two string values. Short results are flattened
// eagerly; longer ones become rope nodes referencing both inputs, so the
// same contents can be reached through different concatenation histories.
func ConcatStrings(a, b Value) Value {
	sa, sb := a.AsStringObject(), b.AsStringObject()
	if sa.length == 0 {
		return b
	}
	if sb.length == 0 {
		return a
	}
	total := sa.length + sb.length
	if total < ropeThreshold && !sa.isRope() && !sb.isRope() {
		return NewString(sa.flat + sb.flat)
	}
	return Value{typ: TypeString, obj: unsafe.Pointer(&StringObject{left: sa, right: sb, length: total})}
}

// leafIter streams the flat leaves of a string in content order without
// materializing or mutating anything.
type leafIter struct {
	stack []*StringObject
}

func newLeafIter(s *StringObject) leafIter {
	return leafIter{stack: []*StringObject{s}}
}

// next returns the next non-empty leaf segment, or "" when exhausted.
func (it *leafIter) next() string {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if n.isRope() {
			it.stack = append(it.stack, n.right, n.left)
			continue
		}
		if n.flat != "" {
			return n.flat
		}
	}
	return ""
}

// stringContentEqual compares two string allocations by content. Segment
// boundaries of the two sides are independent, so the walk advances two
// leaf streams in lockstep comparing overlapping chunks. This is an actual
// content comparison: it is the only way a string pair with different
// construction histories may legally compare equal.
func stringContentEqual(a, b *StringObject) bool {
	if a.length != b.length {
		return false
	}
	if !a.isRope() && !b.isRope() {
		return a.flat == b.flat
	}
	ia, ib := newLeafIter(a), newLeafIter(b)
	sa, sb := ia.next(), ib.next()
	for sa != "" && sb != "" {
		n := len(sa)
		if len(sb) < n {
			n = len(sb)
		}
		if sa[:n] != sb[:n] {
			return false
		}
		sa, sb = sa[n:], sb[n:]
		if sa == "" {
			sa = ia.next()
		}
		if sb == "" {
			sb = ib.next()
		}
	}
	return sa == "" && sb == ""
}
