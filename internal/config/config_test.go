package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aigateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "openai:\n  api_key: sk-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":8000" {
		t.Fatalf("unexpected server address: %q", cfg.Server.Address)
	}
	if cfg.OpenAI.Models.Generate != "text-davinci-003" {
		t.Fatalf("unexpected generate model: %q", cfg.OpenAI.Models.Generate)
	}
	if cfg.OpenAI.Models.Translate != "gpt-3.5-turbo" {
		t.Fatalf("unexpected translate model: %q", cfg.OpenAI.Models.Translate)
	}
	if cfg.OpenAI.Models.Code != "code-davinci-002" {
		t.Fatalf("unexpected code model: %q", cfg.OpenAI.Models.Code)
	}
	if cfg.OpenAI.Timeout() != 60*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.OpenAI.Timeout())
	}
	if cfg.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("unexpected key env: %q", cfg.OpenAI.APIKeyEnv)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
metrics:
  enabled: true
openai:
  api_key_env: CUSTOM_KEY
  timeout_seconds: 5
  models:
    generate: gpt-4o-mini
storage:
  mysql:
    dsn: "user:pass@tcp(localhost:3306)/gateway"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Fatalf("unexpected server address: %q", cfg.Server.Address)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9090" {
		t.Fatalf("unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.OpenAI.APIKeyEnv != "CUSTOM_KEY" {
		t.Fatalf("unexpected key env: %q", cfg.OpenAI.APIKeyEnv)
	}
	if cfg.OpenAI.Timeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.OpenAI.Timeout())
	}
	if cfg.OpenAI.Models.Generate != "gpt-4o-mini" {
		t.Fatalf("unexpected generate model: %q", cfg.OpenAI.Models.Generate)
	}
	if cfg.Storage.MySQL.DSN == "" {
		t.Fatalf("mysql dsn lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		cfg := OpenAIConfig{APIKey: " sk-file ", APIKeyEnv: "UNSET_ENV"}
		key, err := cfg.ResolveAPIKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-file" {
			t.Fatalf("unexpected key: %q", key)
		}
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("AIGATEWAY_TEST_KEY", "sk-env")
		cfg := OpenAIConfig{APIKeyEnv: "AIGATEWAY_TEST_KEY"}
		key, err := cfg.ResolveAPIKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-env" {
			t.Fatalf("unexpected key: %q", key)
		}
	})

	t.Run("missing", func(t *testing.T) {
		cfg := OpenAIConfig{APIKeyEnv: "AIGATEWAY_TEST_KEY_ABSENT"}
		if _, err := cfg.ResolveAPIKey(); err == nil {
			t.Fatalf("expected error when no key is available")
		}
	})
}
