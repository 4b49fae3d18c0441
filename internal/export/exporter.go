// Package export implements the three output shapes spec.md §6
// documents (CSV, DOT, JSON) plus the SPEC_FULL.md §12 debug-data
// supplement. None of these formats are part of the core: the core
// exposes Flow/BasicBlock/edge observers, and everything here is a
// presentation concern built on top of them.
package export

import "bincfg/internal/flow"

// Column is one selectable CSV column, per spec.md §6.
type Column int

const (
	File Column = iota
	BlockNumber
	StepAddress
	TargetAddress
	LineNumber
	ColumnNumber
)

var columnHeaders = map[Column]string{
	File:          "File",
	BlockNumber:   "Block number",
	StepAddress:   "Step address",
	TargetAddress: "Target address",
	LineNumber:    "Line number",
	ColumnNumber:  "Column number",
}

// DefaultColumns matches CsvFlowExporter's constructor defaults in the
// original implementation.
func DefaultColumns() []Column { return []Column{BlockNumber, StepAddress, TargetAddress} }

func rangesToPairs(ranges []flow.AddrRange) [][2]uint64 {
	out := make([][2]uint64, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, [2]uint64{r.Low, r.High})
	}
	return out
}
