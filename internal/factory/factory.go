// Package factory implements the Factory (FX) component: a single
// string-keyed dispatch point from an architecture name to its
// instruction-model Classifier, mirroring FlowGeneratorFactory from the
// original implementation (there built from an archs.def X-macro; here
// an ordinary map literal, since Go has no preprocessor).
package factory

import (
	"fmt"
	"sort"

	"bincfg/internal/bincfgerr"
	"bincfg/internal/generator"
	"bincfg/internal/instr"
)

const (
	AVR   = "avr"
	ARMv5 = "armv5"
)

var registry = map[string]generator.Classifier{
	AVR: generator.ClassifierFunc{
		ClassifyFn: instr.AVR,
		TargetsFn:  instr.AVRTargets,
		Word:       2,
	},
	ARMv5: generator.ClassifierFunc{
		ClassifyFn: instr.ARMv5,
		TargetsFn:  instr.ARMv5Targets,
		Word:       4,
	},
}

// Create returns the Classifier registered for arch, or
// bincfgerr.ErrUnknownArch if none is registered. AVR is the only
// well-supported architecture; ARMv5 is experimental, per spec.md §4.4.
func Create(arch string) (generator.Classifier, error) {
	c, ok := registry[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", bincfgerr.ErrUnknownArch, arch, List())
	}
	return c, nil
}

// List enumerates every supported architecture name, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
