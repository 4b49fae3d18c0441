package cli

import (
	"bufio"
	"bytes"
	"os"
	"testing"
)

func TestListArchCmdPrintsSortedArchitectures(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := listArchCmd.RunE(listArchCmd, nil)

	w.Close()
	os.Stdout = old

	if err != nil {
		t.Fatalf("RunE: %v", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	want := []string{"armv5", "avr"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], w)
		}
	}
}
