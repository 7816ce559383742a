package cli

import "testing"

func TestWMAddDefaults(t *testing.T) {
	cmd, _, err := RootCmd.Find([]string{"wm", "add"})
	if err != nil {
		t.Fatalf("find wm add: %v", err)
	}

	// Fresh items start fully relevant; relevance only drops when the
	// caller says so.
	f := cmd.Flags().Lookup("relevance")
	if f == nil {
		t.Fatal("no relevance flag")
	}
	if f.DefValue != "1" {
		t.Errorf("relevance default = %s, want 1", f.DefValue)
	}

	if f := cmd.Flags().Lookup("type"); f == nil || f.DefValue != "message" {
		t.Errorf("type default = %+v", f)
	}
}
