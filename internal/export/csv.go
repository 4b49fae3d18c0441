package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"bincfg/internal/dwarfreader"
	"bincfg/internal/flow"
	"bincfg/internal/generator"
)

// CSVOptions mirrors CsvFlowExporter's constructor defaults in the
// original implementation: semicolon-separated, "#"-prefixed header,
// comma-separated header, decimal addresses, and the three default
// columns.
type CSVOptions struct {
	Separator    string
	HeaderPrefix string
	HeaderSep    string
	Hex          bool
	Columns      []Column
	// ExpandCalls implements --csv-expand-calls (SPEC_FULL.md §12 item
	// 4): a call-ending block's last row becomes a self-loop row
	// followed by one row per call target, instead of one combined
	// target row per out-edge.
	ExpandCalls bool
}

// DefaultCSVOptions returns the original exporter's defaults.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Separator:    ";",
		HeaderPrefix: "# ",
		HeaderSep:    ",",
		Hex:          false,
		Columns:      DefaultColumns(),
	}
}

// WriteCSV renders f as the per-step CSV shape spec.md §6 documents:
// one row per step (current instruction address -> next address within
// a block's range), with the last row(s) of each block expressing its
// outgoing targets. lines may be nil, in which case File/LineNumber/
// ColumnNumber columns render empty.
func WriteCSV(w io.Writer, f *flow.Flow, insns *generator.InsnMap, lines *dwarfreader.Reader, opts CSVOptions) error {
	if err := writeHeader(w, opts); err != nil {
		return err
	}

	for _, addr := range f.Blocks() {
		b, ok := f.Block(addr)
		if !ok {
			continue
		}
		for ri, r := range b.Ranges {
			cur := r.Low
			for {
				next, hasNext := insns.Next(cur)
				isLastInRange := !hasNext || next > r.High
				isLastRange := ri == len(b.Ranges)-1

				if !isLastInRange {
					if err := writeRow(w, opts, lines, b.ID, cur, next); err != nil {
						return err
					}
					cur = next
					continue
				}

				if !isLastRange {
					break
				}

				if err := writeLastRows(w, f, opts, lines, b, addr, cur); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func writeLastRows(w io.Writer, f *flow.Flow, opts CSVOptions, lines *dwarfreader.Reader, b *flow.BasicBlock, addr, stepAddr uint64) error {
	if opts.ExpandCalls && f.HasCalls(addr) {
		for _, cs := range f.CallSites() {
			if cs != stepAddr {
				continue
			}
			if err := writeRow(w, opts, lines, b.ID, stepAddr, stepAddr); err != nil {
				return err
			}
			for _, target := range f.CallTargets(cs) {
				if err := writeRow(w, opts, lines, b.ID, stepAddr, target); err != nil {
					return err
				}
			}
			return nil
		}
	}

	outs := f.OutEdges(addr)
	if len(outs) == 0 {
		return writeRow(w, opts, lines, b.ID, stepAddr, 0)
	}
	for _, target := range outs {
		if err := writeRow(w, opts, lines, b.ID, stepAddr, target); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, opts CSVOptions) error {
	names := make([]string, 0, len(opts.Columns))
	for _, c := range opts.Columns {
		names = append(names, columnHeaders[c])
	}
	_, err := fmt.Fprintf(w, "%s%s\n", opts.HeaderPrefix, strings.Join(names, opts.HeaderSep))
	return err
}

func writeRow(w io.Writer, opts CSVOptions, lines *dwarfreader.Reader, blockID int, stepAddr, targetAddr uint64) error {
	var li dwarfreader.LineInfo
	var hasLine bool
	if lines != nil {
		li, hasLine = lines.LineInfo(stepAddr)
	}

	fields := make([]string, 0, len(opts.Columns))
	for _, c := range opts.Columns {
		switch c {
		case File:
			if hasLine {
				fields = append(fields, li.File)
			} else {
				fields = append(fields, "")
			}
		case BlockNumber:
			fields = append(fields, strconv.Itoa(blockID))
		case StepAddress:
			fields = append(fields, formatAddr(stepAddr, opts.Hex))
		case TargetAddress:
			fields = append(fields, formatAddr(targetAddr, opts.Hex))
		case LineNumber:
			if hasLine {
				fields = append(fields, strconv.Itoa(li.Line))
			} else {
				fields = append(fields, "")
			}
		case ColumnNumber:
			if hasLine {
				fields = append(fields, strconv.Itoa(li.Column))
			} else {
				fields = append(fields, "")
			}
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", strings.Join(fields, opts.Separator))
	return err
}

func formatAddr(addr uint64, hex bool) string {
	if hex {
		return "0x" + strconv.FormatUint(addr, 16)
	}
	return strconv.FormatUint(addr, 10)
}
