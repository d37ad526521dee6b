package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	if c.ServerURL != "ws://localhost:11111/ws" {
		t.Fatalf("unexpected default URL: %q", c.ServerURL)
	}
	if c.DataDir != "." {
		t.Fatalf("unexpected default data dir: %q", c.DataDir)
	}
}

func TestParseJson_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	if err := os.WriteFile(path, []byte(`{"server_url":"ws://example:1/ws"}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	oldArgs := os.Args
	os.Args = []string{"client", "-config", path}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	if c.ServerURL != "ws://example:1/ws" {
		t.Fatalf("URL not overridden: %q", c.ServerURL)
	}
	if c.DataDir != "." {
		t.Fatalf("absent field should keep default: %q", c.DataDir)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"client", "-s", "ws://other:2/ws", "-o", "/tmp/chat"}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	if c.ServerURL != "ws://other:2/ws" || c.DataDir != "/tmp/chat" {
		t.Fatalf("flags not applied: %+v", c)
	}
}
