package export

import (
	"fmt"
	"io"
	"strings"

	"bincfg/internal/flow"
)

// WriteDOT renders f as a Graphviz digraph: Entry is a circle, Exit a
// doublecircle, Normal blocks boxes, and FunctionCall a distinctly
// labeled box spliced between a Call block and its successors — the
// same synthetic-node shape WriteJSON uses, grounded on
// DotFlowExporter::exportFlow/exportBlock.
func WriteDOT(w io.Writer, f *flow.Flow) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, "  label=%q;\n  labelloc=\"top\";\n", f.Name())

	fmt.Fprintf(w, "  entry [shape=circle, label=\"entry\"];\n")
	fmt.Fprintf(w, "  exit [shape=doublecircle, label=\"exit\"];\n")

	if post, ok := f.PostEntry(); ok {
		fmt.Fprintf(w, "  entry -> %s;\n", nodeName(post))
	}

	dummyID := 0
	for _, addr := range f.Blocks() {
		b, ok := f.Block(addr)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %s [shape=box, label=%q];\n", nodeName(addr), blockLabel(b))

		outs := f.OutEdges(addr)
		if b.Type == flow.Call {
			dummy := fmt.Sprintf("fcall_%d", dummyID)
			dummyID++
			fmt.Fprintf(w, "  %s [shape=box, label=%q];\n", dummy, "FCall: "+strings.Join(b.Callees, ", "))
			fmt.Fprintf(w, "  %s -> %s;\n", nodeName(addr), dummy)
			for _, dst := range outs {
				fmt.Fprintf(w, "  %s -> %s;\n", dummy, nodeName(dst))
			}
			continue
		}
		for _, dst := range outs {
			fmt.Fprintf(w, "  %s -> %s;\n", nodeName(addr), nodeName(dst))
		}
	}

	for _, pe := range f.PreExits() {
		fmt.Fprintf(w, "  %s -> exit;\n", nodeName(pe))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

func nodeName(addr uint64) string {
	return fmt.Sprintf("bb_%x", addr)
}

func blockLabel(b *flow.BasicBlock) string {
	parts := make([]string, 0, len(b.Ranges))
	for _, r := range b.Ranges {
		parts = append(parts, fmt.Sprintf("%x:%x", r.Low, r.High))
	}
	return fmt.Sprintf("BB #%d\\n%s", b.ID, strings.Join(parts, "\\n"))
}
