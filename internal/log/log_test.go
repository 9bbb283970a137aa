package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"error": LevelError, "warn": LevelWarn, "info": LevelInfo, "": LevelInfo, "trace": LevelTrace} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_FiltersByLevelAndAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn).With(Fields{"game_id": "g1"})
	l.Info("dropped")
	l.Warn("kept %d", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	line := lines[0]
	line = line[strings.Index(line, "{"):]
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["msg"] != "kept 1" || m["level"] != "warn" || m["game_id"] != "g1" {
		t.Errorf("unexpected entry: %v", m)
	}
}

func TestLogger_SetLevelAffectsDerived(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelError)
	child := root.With(Fields{"k": "v"})
	root.SetLevel(LevelDebug)
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected derived logger to follow level change, got %q", buf.String())
	}
}
