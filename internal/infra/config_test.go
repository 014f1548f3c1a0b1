package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("PROVIDER_SETTINGS_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.WorkerPollInterval != 3*time.Second {
		t.Fatalf("WorkerPollInterval = %v, want 3s", cfg.WorkerPollInterval)
	}
	if cfg.RenderAspectRatio != "16:9" {
		t.Fatalf("RenderAspectRatio = %q, want 16:9", cfg.RenderAspectRatio)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadConfigProviderOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.toml")
	overlay := `
[render]
access_key = "ak-overlay"
secret_key = "sk-overlay"
model = "render-pro"

[gemini]
model = "gemini-overlay"
`
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("RENDER_ACCESS_KEY", "ak-env")
	t.Setenv("RENDER_BASE_URL", "https://env.example.com")
	t.Setenv("PROVIDER_SETTINGS_PATH", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RenderAccessKey != "ak-overlay" {
		t.Fatalf("RenderAccessKey = %q, overlay should win over env", cfg.RenderAccessKey)
	}
	if cfg.RenderSecretKey != "sk-overlay" {
		t.Fatalf("RenderSecretKey = %q", cfg.RenderSecretKey)
	}
	if cfg.RenderBaseURL != "https://env.example.com" {
		t.Fatalf("RenderBaseURL = %q, env value should survive an absent overlay key", cfg.RenderBaseURL)
	}
	if cfg.GeminiModel != "gemini-overlay" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
}

func TestLoadConfigOverlayMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROVIDER_SETTINGS_PATH", filepath.Join(t.TempDir(), "missing.toml"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing overlay file")
	}
}
