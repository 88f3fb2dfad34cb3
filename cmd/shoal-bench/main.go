package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"shoal/pkg/vm"
)

// shoal-bench times the shallow-equality pipeline on representative value
// pairs: identity hits, layout fast-path hits, layout-divergent objects
// that need the fallback, and guaranteed misses.
func main() {
	policyFlag := flag.String("policy", "conservative", "comparison policy: conservative or relaxed")
	iterFlag := flag.Int("n", 2_000_000, "iterations per scenario")
	verboseFlag := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verboseFlag {
		logger = logger.Level(zerolog.InfoLevel)
	}
	vm.SetLogger(logger)

	policy, err := vm.ParsePolicy(*policyFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad -policy flag")
	}
	vm.SetPolicy(policy)
	logger.Info().Stringer("policy", policy).Int("iterations", *iterFlag).Msg("starting")

	buildPoint := func(reverse bool) vm.Value {
		v := vm.NewObject(vm.DefaultObjectPrototype)
		o := v.AsPlainObject()
		if reverse {
			o.SetOwn("y", vm.IntegerValue(2))
			o.SetOwn("x", vm.IntegerValue(1))
		} else {
			o.SetOwn("x", vm.IntegerValue(1))
			o.SetOwn("y", vm.IntegerValue(2))
		}
		return v
	}

	same := buildPoint(false)
	layoutHit := [2]vm.Value{buildPoint(false), buildPoint(false)}
	divergent := [2]vm.Value{buildPoint(false), buildPoint(true)}
	miss := [2]vm.Value{buildPoint(false), vm.NewString("not an object")}

	scenarios := []struct {
		name string
		x, y vm.Value
	}{
		{"identity", same, same},
		{"layout-hit", layoutHit[0], layoutHit[1]},
		{"shape-divergent", divergent[0], divergent[1]},
		{"kind-miss", miss[0], miss[1]},
	}

	for _, s := range scenarios {
		start := time.Now()
		hits := 0
		for i := 0; i < *iterFlag; i++ {
			if vm.ShallowEqual(s.x, s.y) {
				hits++
			}
		}
		elapsed := time.Since(start)
		perOp := elapsed / time.Duration(*iterFlag)
		fmt.Printf("%-16s result=%-5v %8s/op  (%s total)\n",
			s.name, hits == *iterFlag, perOp, elapsed.Round(time.Millisecond))
	}
}
