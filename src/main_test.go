package main

import "testing"

func TestParseCommand(t *testing.T) {
	command, err := parseCommand("set mix ridged_multi 0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"set", "mix", "ridged_multi", "0.5"}
	if len(command) != len(want) {
		t.Fatalf("expected %v, but got %v", want, command)
	}
	for i := range want {
		if command[i] != want[i] {
			t.Errorf("expected %v, but got %v", want, command)
		}
	}
	command, err = parseCommand("note_on%20x 60")
	if err != nil || command[0] != "note_on x" {
		t.Errorf("expected unescaped token, but got %v, %v", command, err)
	}
	if _, err := parseCommand("set %zz 1"); err == nil {
		t.Errorf("expected error for broken escape")
	}
}
