package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWritesThroughToUnderlyingWriter(t *testing.T) {
	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf)

	lc.Warnf("overlap at 0x%x", 0x64)

	out := buf.String()
	if !strings.Contains(out, "overlap at 0x64") {
		t.Errorf("log output = %q, want it to contain the formatted message", out)
	}
}

func TestLoggerCloseIsNoopWithoutACloser(t *testing.T) {
	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf)
	if err := lc.Close(); err != nil {
		t.Errorf("Close() = %v, want nil for a non-closer writer", err)
	}
}

type countingCloser struct {
	bytes.Buffer
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestLoggerCloseDelegatesToCloserWriter(t *testing.T) {
	cc := &countingCloser{}
	lc := NewLoggerWithWriter(cc)
	if err := lc.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if cc.closed != 1 {
		t.Errorf("closed = %d, want 1", cc.closed)
	}
}
