package credentials

import (
	"testing"
)

func TestRead(t *testing.T) {
	env := map[string]string{
		"DISCORD_TOKEN_7":   "tok-7",
		"DISCORD_TOKEN_12":  "  tok-12  ",
		"DISCORD_TOKEN_":    "bare-prefix",
		"DISCORD_TOKEN_44":  "   ",
		"DISCORD_TOKEN_abc": "",
		"OTHER_TOKEN_1":     "nope",
		"DISCORD_TOKEN":     "single-account",
		"CHECK_INTERVAL":    "2",
	}

	got := Read(env, DefaultPrefix)

	want := map[string]string{
		"7":  "tok-7",
		"12": "tok-12",
	}
	if len(got) != len(want) {
		t.Fatalf("Read() = %v, want %v", got, want)
	}
	for id, secret := range want {
		if got[id] != secret {
			t.Errorf("Read()[%q] = %q, want %q", id, got[id], secret)
		}
	}
}

func TestRead_Empty(t *testing.T) {
	got := Read(map[string]string{"PATH": "/usr/bin"}, DefaultPrefix)
	if got == nil {
		t.Fatal("Read() = nil, want empty map")
	}
	if len(got) != 0 {
		t.Errorf("len(Read()) = %d, want 0", len(got))
	}
}

func TestRead_EmptyPrefixSelectsNothing(t *testing.T) {
	got := Read(map[string]string{"A": "b"}, "")
	if len(got) != 0 {
		t.Errorf("Read() with empty prefix = %v, want empty", got)
	}
}

func TestRead_CustomPrefix(t *testing.T) {
	env := map[string]string{
		"ACCT_main": "x",
		"ACCT_alt":  "y",
	}
	got := Read(env, "ACCT_")
	if got["main"] != "x" || got["alt"] != "y" {
		t.Errorf("Read() = %v", got)
	}
}

func TestList_SortedByIdentifier(t *testing.T) {
	env := map[string]string{
		"DISCORD_TOKEN_b": "2",
		"DISCORD_TOKEN_c": "3",
		"DISCORD_TOKEN_a": "1",
	}

	creds := List(env, DefaultPrefix)
	if len(creds) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(creds))
	}
	for i, want := range []string{"a", "b", "c"} {
		if creds[i].Identifier != want {
			t.Errorf("List()[%d].Identifier = %q, want %q", i, creds[i].Identifier, want)
		}
	}
	if creds[0].Secret != "1" {
		t.Errorf("List()[0].Secret = %q, want %q", creds[0].Secret, "1")
	}
}

func TestEnviron(t *testing.T) {
	env := Environ([]string{
		"A=1",
		"B=with=equals",
		"EMPTY=",
		"malformed",
		"=novalue",
		"A=2",
	})

	if env["A"] != "2" {
		t.Errorf("A = %q, want %q", env["A"], "2")
	}
	if env["B"] != "with=equals" {
		t.Errorf("B = %q, want %q", env["B"], "with=equals")
	}
	if v, ok := env["EMPTY"]; !ok || v != "" {
		t.Errorf("EMPTY = %q (present %v), want empty and present", v, ok)
	}
	if _, ok := env["malformed"]; ok {
		t.Error("entry without '=' should be skipped")
	}
	if len(env) != 3 {
		t.Errorf("len(env) = %d, want 3", len(env))
	}
}
