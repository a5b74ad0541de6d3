package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		l, err := New(Config{Level: "debug", Format: format, Output: []string{"stderr"}})
		if err != nil {
			t.Errorf("New(format=%q) error: %v", format, err)
			continue
		}
		if !l.Core().Enabled(-1) {
			t.Errorf("format=%q: debug should be enabled", format)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelrank.log")
	l, err := New(Config{Level: "info", Format: "json", Output: []string{path}})
	if err != nil {
		t.Fatal(err)
	}
	l.Named("sweep").Info("sweep finished")
	l.Debug("hidden")
	l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"logger":"sweep"`) || !strings.Contains(out, "sweep finished") {
		t.Errorf("log output = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
}
