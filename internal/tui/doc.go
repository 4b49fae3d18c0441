package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bincfg/internal/bincfgerr"
)

// flowDoc mirrors internal/export's JSON flow shape (see
// internal/export/json.go's jsonFlow/jsonBlock) without importing that
// package — tui only ever reads a flow back from disk, it never
// produces one.
type flowDoc struct {
	Type        string        `json:"Type"`
	Name        string        `json:"Name"`
	BasicBlocks []flowDocNode `json:"BasicBlocks"`
	Edges       [][2]int64    `json:"Edges"`

	outEdges map[int64][]int64
}

type flowDocNode struct {
	ID         int64       `json:"ID"`
	AddrRanges [][2]uint64 `json:"AddrRanges,omitempty"`
	BlockType  string      `json:"BlockType"`
	Calls      []string    `json:"calls,omitempty"`
}

// LoadFlow reads one JSON flow export — as written by
// internal/export.WriteJSON — from path. Only the first JSON value in
// the file is decoded: for a --flow output holding several functions,
// view opens the first flow and ignores the rest.
func LoadFlow(path string) (*flowDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return decodeFlow(f)
}

func decodeFlow(r io.Reader) (*flowDoc, error) {
	var doc flowDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", bincfgerr.ErrMalformedInput, err)
	}
	if doc.Type != "Flow" {
		return nil, fmt.Errorf("%w: expected a Flow document, got %q", bincfgerr.ErrMalformedInput, doc.Type)
	}

	doc.outEdges = make(map[int64][]int64, len(doc.BasicBlocks))
	for _, e := range doc.Edges {
		doc.outEdges[e[0]] = append(doc.outEdges[e[0]], e[1])
	}
	return &doc, nil
}
