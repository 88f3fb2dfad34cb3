package vm

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/dlclark/regexp2"
)

// RegExpObject is a host-provided object backed by the regexp2 engine,
// which supports the backtracking features (lookbehind, backreferences)
// that JS-style patterns need. As a host object it has no shape or slot
// block; the equality engine only ever compares RegExp values by
// allocation.
type RegExpObject struct {
	Object
	compiled   *regexp2.Regexp
	source     string
	flags      string
	global     bool
	ignoreCase bool
	multiline  bool
	dotAll     bool
	lastIndex  int
}

// NewRegExp compiles a pattern with JS-style flags into a RegExp value.
func NewRegExp(pattern, flags string) (Value, error) {
	var opts regexp2.RegexOptions
	for _, f := range flags {
		switch f {
		case 'g', 'y', 'u':
			// No compile-time option: g and y only affect match state,
			// and regexp2 patterns are Unicode-aware by default.
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		default:
			return Undefined, fmt.Errorf("invalid regular expression flag %q", string(f))
		}
	}
	compiled, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return Undefined, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	re := &RegExpObject{
		compiled:   compiled,
		source:     pattern,
		flags:      flags,
		global:     strings.ContainsRune(flags, 'g'),
		ignoreCase: strings.ContainsRune(flags, 'i'),
		multiline:  strings.ContainsRune(flags, 'm'),
		dotAll:     strings.ContainsRune(flags, 's'),
	}
	return Value{typ: TypeRegExp, obj: unsafe.Pointer(re)}, nil
}

func (re *RegExpObject) Source() string { return re.source }
func (re *RegExpObject) Flags() string  { return re.flags }
func (re *RegExpObject) Global() bool   { return re.global }

// MatchString reports whether the pattern matches anywhere in the input.
func (re *RegExpObject) MatchString(s string) (bool, error) {
	ok, err := re.compiled.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("matching %q: %w", re.source, err)
	}
	return ok, nil
}
