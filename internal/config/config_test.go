package config

import (
	"os"
	"path/filepath"
	"testing"

	"foldsync/internal/dispatch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy != DefaultStrategy {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, DefaultStrategy)
	}
	if cfg.EditorURL != "ws://127.0.0.1:7664" {
		t.Errorf("EditorURL = %q, want derived default", cfg.EditorURL)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %d, want 0 (no timeout)", cfg.RequestTimeout)
	}
	if cfg.DedupCacheSize != DefaultDedupCacheSize {
		t.Errorf("DedupCacheSize = %d, want %d", cfg.DedupCacheSize, DefaultDedupCacheSize)
	}
}

func TestLoad_Explicit(t *testing.T) {
	path := writeConfig(t, `{
		"editorUrl": "ws://10.0.0.5:9000",
		"strategy": "delegated-command",
		"logLevel": "debug",
		"requestTimeout": 2500,
		"listen": {"port": 9000, "lineCount": 500}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy != "delegated-command" {
		t.Errorf("Strategy = %q", cfg.Strategy)
	}
	if cfg.EditorURL != "ws://10.0.0.5:9000" {
		t.Errorf("EditorURL = %q", cfg.EditorURL)
	}
	if cfg.GetRequestTimeout().Milliseconds() != 2500 {
		t.Errorf("GetRequestTimeout() = %v", cfg.GetRequestTimeout())
	}
	if cfg.Listen.LineCount != 500 {
		t.Errorf("Listen.LineCount = %d", cfg.Listen.LineCount)
	}
}

func TestValidate_AcceptsEveryStrategy(t *testing.T) {
	for _, s := range dispatch.Strategies() {
		cfg := Default()
		cfg.Strategy = string(s)
		if err := validate(cfg); err != nil {
			t.Errorf("strategy %q rejected: %v", s, err)
		}
	}
	cfg := Default()
	cfg.Strategy = "bulk"
	if err := validate(cfg); err == nil {
		t.Error("unknown strategy should be rejected")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad strategy", `{"strategy": "parallel"}`},
		{"bad log level", `{"logLevel": "trace"}`},
		{"negative timeout", `{"requestTimeout": -1}`},
		{"bad port", `{"listen": {"port": 70000}}`},
		{"not json", `strategy = atomic`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
