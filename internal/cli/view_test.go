package cli

import "testing"

func TestViewCmdMissingFlowFileReturnsErrorBeforeLaunchingTUI(t *testing.T) {
	err := viewCmd.RunE(viewCmd, []string{"/nonexistent/flow.json"})
	if err == nil {
		t.Fatal("expected an error loading a nonexistent flow document")
	}
}

func TestViewCmdRequiresExactlyOneArg(t *testing.T) {
	if err := viewCmd.Args(viewCmd, nil); err == nil {
		t.Fatal("expected Args to reject zero arguments")
	}
	if err := viewCmd.Args(viewCmd, []string{"a", "b"}); err == nil {
		t.Fatal("expected Args to reject two arguments")
	}
	if err := viewCmd.Args(viewCmd, []string{"a"}); err != nil {
		t.Errorf("Args rejected a single argument: %v", err)
	}
}
