package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("ありがとう", 3); got != "ありが..." {
		t.Errorf("multibyte truncate: got %q", got)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  Alice\n\n  is   here\t"); got != "Alice is here" {
		t.Errorf("got %q", got)
	}
}
