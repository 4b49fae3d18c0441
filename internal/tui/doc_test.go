package tui

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"bincfg/internal/bincfgerr"
)

const sampleFlowJSON = `{
  "Type": "Flow",
  "Name": "f",
  "BasicBlocks": [
    {"ID": -1, "BlockType": "Entry"},
    {"ID": 0, "AddrRanges": [[0, 2]], "BlockType": "Normal"},
    {"ID": -2, "BlockType": "Exit"}
  ],
  "Edges": [[-1, 0], [0, -2]]
}`

func TestDecodeFlowBuildsOutEdgeIndex(t *testing.T) {
	doc, err := decodeFlow(strings.NewReader(sampleFlowJSON))
	if err != nil {
		t.Fatalf("decodeFlow: %v", err)
	}
	if doc.Name != "f" || len(doc.BasicBlocks) != 3 {
		t.Fatalf("doc = %+v", doc)
	}
	if got := doc.outEdges[0]; !reflect.DeepEqual(got, []int64{-2}) {
		t.Errorf("outEdges[0] = %v, want [-2]", got)
	}
	if got := doc.outEdges[-1]; !reflect.DeepEqual(got, []int64{0}) {
		t.Errorf("outEdges[-1] = %v, want [0]", got)
	}
}

func TestDecodeFlowRejectsWrongDocumentType(t *testing.T) {
	_, err := decodeFlow(strings.NewReader(`{"Type": "Debug"}`))
	if !errors.Is(err, bincfgerr.ErrMalformedInput) {
		t.Fatalf("err = %v, want wrapping ErrMalformedInput", err)
	}
}

func TestDecodeFlowRejectsMalformedJSON(t *testing.T) {
	_, err := decodeFlow(strings.NewReader(`not json`))
	if !errors.Is(err, bincfgerr.ErrMalformedInput) {
		t.Fatalf("err = %v, want wrapping ErrMalformedInput", err)
	}
}

func TestLoadFlowMissingFile(t *testing.T) {
	_, err := LoadFlow("/nonexistent/flow.json")
	if err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
