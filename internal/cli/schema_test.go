package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestSchemaCmdPrintsValidJSONSchema(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := schemaCmd.RunE(schemaCmd, nil)

	w.Close()
	os.Stdout = old

	if err != nil {
		t.Fatalf("RunE: %v", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(buf.Bytes(), &schema); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if _, ok := schema["$schema"]; !ok {
		t.Errorf("schema output missing $schema field: %v", schema)
	}
}
