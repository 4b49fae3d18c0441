package export

import (
	"encoding/json"
	"io"

	"bincfg/internal/flow"
)

type jsonBlock struct {
	ID         int64      `json:"ID"`
	AddrRanges [][2]uint64 `json:"AddrRanges,omitempty"`
	BlockType  string     `json:"BlockType"`
	Calls      []string   `json:"calls,omitempty"`
}

type jsonFlow struct {
	Type        string      `json:"Type"`
	Name        string      `json:"Name"`
	BasicBlocks []jsonBlock `json:"BasicBlocks"`
	Edges       [][2]int64  `json:"Edges"`
}

// WriteJSON renders f as the JSON shape spec.md §6 documents: a single
// synthetic Entry node (ID -1) wired to the post-entry block, a single
// synthetic Exit node (ID -2) wired from every pre-exit block, and — for
// every Call-type block — a synthetic negative-ID FunctionCall node
// carrying the block's resolved callees, spliced between the block and
// its successors. Grounded on JsonFlowExporter::exportFlow.
func WriteJSON(w io.Writer, f *flow.Flow) error {
	jf := jsonFlow{Type: "Flow", Name: f.Name()}

	jf.BasicBlocks = append(jf.BasicBlocks, jsonBlock{ID: -1, BlockType: "Entry"})
	if post, ok := f.PostEntry(); ok {
		jf.Edges = append(jf.Edges, [2]int64{-1, int64(post)})
	}

	nextDummy := int64(-3)
	for _, addr := range f.Blocks() {
		b, ok := f.Block(addr)
		if !ok {
			continue
		}
		jf.BasicBlocks = append(jf.BasicBlocks, jsonBlock{
			ID:         int64(addr),
			AddrRanges: rangesToPairs(b.Ranges),
			BlockType:  "Normal",
		})

		outs := f.OutEdges(addr)
		if b.Type == flow.Call {
			dummy := nextDummy
			nextDummy--
			jf.BasicBlocks = append(jf.BasicBlocks, jsonBlock{
				ID:        dummy,
				BlockType: "FunctionCall",
				Calls:     append([]string(nil), b.Callees...),
			})
			jf.Edges = append(jf.Edges, [2]int64{int64(addr), dummy})
			for _, dst := range outs {
				jf.Edges = append(jf.Edges, [2]int64{dummy, int64(dst)})
			}
			continue
		}
		for _, dst := range outs {
			jf.Edges = append(jf.Edges, [2]int64{int64(addr), int64(dst)})
		}
	}

	jf.BasicBlocks = append(jf.BasicBlocks, jsonBlock{ID: -2, BlockType: "Exit"})
	for _, pe := range f.PreExits() {
		jf.Edges = append(jf.Edges, [2]int64{int64(pe), -2})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jf)
}
