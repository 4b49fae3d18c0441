package runtime

import "testing"

func TestRecoverPanicRunsCleanupAndSwallowsPanic(t *testing.T) {
	cleaned := false

	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()

	if !cleaned {
		t.Error("expected cleanup to run after a recovered panic")
	}
}

func TestRecoverPanicNoopWithoutPanic(t *testing.T) {
	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
	}()
	if cleaned {
		t.Error("cleanup should not run when there was no panic")
	}
}
