package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbeddedDefaults(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s, err := cat.Render("game.illegal_move", map[string]any{"Move": "Qh7"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(s, "Qh7") {
		t.Fatalf("template data not interpolated: %q", s)
	}
}

func TestRenderUnknownKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("no.such.key", nil); err == nil {
		t.Fatal("Render must fail for an unknown key")
	}
	if got := cat.MustRender("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("MustRender must fall back to the key, got %q", got)
	}
}

func TestRenderMissingField(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("game.illegal_move", map[string]any{}); err == nil {
		t.Fatal("Render must fail when the template references a missing field")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "bot:\n  unknown: \"custom unknown reply\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := cat.MustRender("bot.unknown", nil); got != "custom unknown reply" {
		t.Fatalf("override not applied: %q", got)
	}
	// Keys the override does not touch keep their embedded defaults.
	if got := cat.MustRender("recent.empty", nil); !strings.Contains(got, "No finished games") {
		t.Fatalf("untouched default lost: %q", got)
	}
}
