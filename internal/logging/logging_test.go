package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	if l, ok := ParseLevel("WARN"); !ok || l != zerolog.WarnLevel {
		t.Errorf("expected warn, got %v %v", l, ok)
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Error("expected unknown level to be rejected")
	}
}

func TestComponentLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	root := Setup(Options{Level: "info", Format: "json", Out: &buf})
	component := Component(root, "reconcile")
	component.Info().Int("inserted", 3).Msg("chunk written")
	component.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"component":"reconcile"`) {
		t.Errorf("expected component field, got %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("expected debug message to be filtered at info level")
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	root := Setup(Options{Level: "error", Format: "json", Verbose: true, Out: &buf})
	root.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("expected debug output with verbose")
	}
}
