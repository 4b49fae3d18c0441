// Package detect implements post-hoc pattern detection over a
// generated Flow, following the Detector/DetectorChain shape of the
// original analysis package (internal/analysis/detector.go) but
// retargeted at control-flow findings instead of call-argument traces.
package detect

import "bincfg/internal/flow"

// Finding is a single observation about a Flow. The run command logs
// each one as a warning and counts the "unresolved-target" findings in
// its summary.
type Finding struct {
	BlockID int
	Addr    uint64
	Kind    string
	Detail  string
}

// Detector analyzes a Flow and appends findings to the list it
// receives, returning the extended list.
type Detector interface {
	Detect(f *flow.Flow, findings []Finding) []Finding
}

// Chain runs multiple detectors in sequence, threading findings from
// one into the next so later detectors can see earlier results.
type Chain struct {
	detectors []Detector
}

// NewChain creates a detector chain.
func NewChain(detectors ...Detector) *Chain {
	return &Chain{detectors: detectors}
}

// Detect runs all detectors in sequence over f.
func (c *Chain) Detect(f *flow.Flow) []Finding {
	var findings []Finding
	for _, d := range c.detectors {
		findings = d.Detect(f, findings)
	}
	return findings
}
