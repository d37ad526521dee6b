package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	if c.Addr != ":11111" {
		t.Fatalf("unexpected default addr: %q", c.Addr)
	}
	if c.TokenValidity != 24*time.Hour {
		t.Fatalf("unexpected default validity: %v", c.TokenValidity)
	}
	if c.ReadLimit != 1<<20 || c.SendBuffer != 256 {
		t.Fatalf("unexpected limits: %d/%d", c.ReadLimit, c.SendBuffer)
	}
}

func TestParseJson_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{"addr":":2222","token_validity":"1h"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	oldArgs := os.Args
	os.Args = []string{"server", "-c", path}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	if c.Addr != ":2222" {
		t.Fatalf("addr not overridden: %q", c.Addr)
	}
	if c.TokenValidity != time.Hour {
		t.Fatalf("validity not overridden: %v", c.TokenValidity)
	}
	// absent fields keep their defaults
	if c.DatabaseDSN == "" || c.SendBuffer != 256 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"server", "-a", ":3333", "-t", "2", "-q", "8"}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	if c.Addr != ":3333" {
		t.Fatalf("addr not overridden: %q", c.Addr)
	}
	if c.TokenValidity != 2*time.Hour {
		t.Fatalf("validity not overridden: %v", c.TokenValidity)
	}
	if c.SendBuffer != 8 {
		t.Fatalf("send buffer not overridden: %d", c.SendBuffer)
	}
}

func TestJsonConfig_NanosecondDuration(t *testing.T) {
	var jc JsonConfig
	if err := json.Unmarshal([]byte(`{"token_validity":3600000000000}`), &jc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if jc.TokenValidity.Duration != time.Hour {
		t.Fatalf("unexpected duration: %v", jc.TokenValidity.Duration)
	}
}
