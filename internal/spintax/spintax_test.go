package spintax

import (
	"strings"
	"testing"
)

func pickFirst(int) int { return 0 }

func pickLast(n int) int { return n - 1 }

func TestRender_PicksOption(t *testing.T) {
	if got := render("{Hi|Hello} there", pickFirst); got != "Hi there" {
		t.Errorf("got %q", got)
	}
	if got := render("{Hi|Hello} there", pickLast); got != "Hello there" {
		t.Errorf("got %q", got)
	}
}

func TestRender_BlocksResolveIndependently(t *testing.T) {
	got := render("{a|b} and {c|d}", pickLast)
	if got != "b and d" {
		t.Errorf("got %q", got)
	}
}

func TestRender_TrimsOptionWhitespace(t *testing.T) {
	if got := render("{ spaced | padded }", pickFirst); got != "spaced" {
		t.Errorf("got %q", got)
	}
}

func TestRender_RandomMarkerDropped(t *testing.T) {
	if got := render("{RANDOM|x|y}", pickFirst); got != "x" {
		t.Errorf("RANDOM marker should not be selectable, got %q", got)
	}
	if got := render("{random|x|y}", pickFirst); got != "x" {
		t.Errorf("marker check is case-insensitive, got %q", got)
	}
	// A lone RANDOM is a real (if odd) option, not a marker.
	if got := render("{RANDOM}", pickFirst); got != "RANDOM" {
		t.Errorf("got %q", got)
	}
}

func TestRender_NoBlocksPassThrough(t *testing.T) {
	const text = "plain text, no templating"
	if got := Render(text); got != text {
		t.Errorf("got %q", got)
	}
	if HasBlocks(text) {
		t.Error("HasBlocks false positive")
	}
	if !HasBlocks("{a|b}") {
		t.Error("HasBlocks false negative")
	}
}

func TestRender_IterationCap(t *testing.T) {
	// 200 blocks exceeds the cap; rendering must still terminate and leave
	// the overflow untouched rather than loop forever.
	input := strings.Repeat("{a|b}", 200)
	got := render(input, pickFirst)
	if !strings.HasPrefix(got, strings.Repeat("a", maxIterations)) {
		t.Errorf("expected first %d blocks resolved", maxIterations)
	}
	if !strings.Contains(got, "{a|b}") {
		t.Error("expected blocks beyond the cap to remain")
	}
}
