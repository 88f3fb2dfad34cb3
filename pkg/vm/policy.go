package vm

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Policy selects how aggressively ShallowEqual may search for a true
// result. It is process wide: embedders running untrusted code should pin
// PolicyConservative so the comparison cannot leak representation details
// (boxing, ropes, shared environments) through its answers.
type Policy uint32

const (
	// PolicyConservative permits only the identity fast path and the
	// exact layout match. Everything else answers false.
	PolicyConservative Policy = iota
	// PolicyRelaxed additionally enables the semantic fallback for
	// layout-divergent objects and the function internal-slot comparator.
	PolicyRelaxed
)

func (p Policy) String() string {
	switch p {
	case PolicyConservative:
		return "conservative"
	case PolicyRelaxed:
		return "relaxed"
	default:
		return fmt.Sprintf("policy(%d)", uint32(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative":
		return PolicyConservative, nil
	case "relaxed":
		return PolicyRelaxed, nil
	default:
		return PolicyConservative, fmt.Errorf("unknown shallow-equality policy %q", s)
	}
}

var currentPolicy atomic.Uint32

var logger = zerolog.Nop()

// SetLogger installs a logger for the package. The engine itself never
// logs on the comparison path; only configuration changes are reported.
func SetLogger(l zerolog.Logger) { logger = l }

// SetPolicy switches the process-wide comparison policy.
func SetPolicy(p Policy) {
	old := Policy(currentPolicy.Swap(uint32(p)))
	if old != p {
		logger.Debug().
			Stringer("from", old).
			Stringer("to", p).
			Msg("shallow-equality policy changed")
	}
}

// CurrentPolicy returns the process-wide comparison policy.
func CurrentPolicy() Policy {
	return Policy(currentPolicy.Load())
}
