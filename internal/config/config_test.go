package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NVCF_API_KEY", "")
	t.Setenv("NVIDIA_PERSONAL_API_KEY", "")
	p := writeConfig(t, "nvcf:\n  api_key: nvapi-test\n")

	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NVCF.MaxRetries != 10 || cfg.NVCF.PollDelay != 2*time.Second {
		t.Fatalf("poll defaults: retries=%d delay=%s", cfg.NVCF.MaxRetries, cfg.NVCF.PollDelay)
	}
	if cfg.NVCF.UploadTimeout != 300*time.Second {
		t.Fatalf("upload timeout default: %s", cfg.NVCF.UploadTimeout)
	}
	if cfg.NVCF.Threshold != 0.3 {
		t.Fatalf("threshold default: %v", cfg.NVCF.Threshold)
	}
	if cfg.NVCF.Model != "Grounding-Dino" || cfg.NVCF.ContentType != "video/mp4" {
		t.Fatalf("model/content type defaults: %q %q", cfg.NVCF.Model, cfg.NVCF.ContentType)
	}
	if !strings.HasSuffix(cfg.NVCF.StatusURL, "/") {
		t.Fatalf("status url should end with slash: %q", cfg.NVCF.StatusURL)
	}
	if cfg.Storage.VideoExtension != ".mp4" {
		t.Fatalf("video extension default: %q", cfg.Storage.VideoExtension)
	}
}

func TestLoadConfig_EnvOverridesKey(t *testing.T) {
	t.Setenv("NVCF_API_KEY", "")
	t.Setenv("NVIDIA_PERSONAL_API_KEY", "nvapi-from-env")
	p := writeConfig(t, "nvcf:\n  api_key: nvapi-file\n")

	cfg, err := LoadConfig(p, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NVCF.APIKey != "nvapi-from-env" {
		t.Fatalf("env key should win, got %q", cfg.NVCF.APIKey)
	}
	if !cfg.Runtime.Dev {
		t.Fatalf("dev flag not propagated")
	}
}

func TestLoadConfig_MissingKeyFails(t *testing.T) {
	t.Setenv("NVCF_API_KEY", "")
	t.Setenv("NVIDIA_PERSONAL_API_KEY", "")
	p := writeConfig(t, "server:\n  port: 9000\n")

	if _, err := LoadConfig(p, false); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("NVCF_API_KEY", "nvapi-env-only")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NVCF.APIKey != "nvapi-env-only" {
		t.Fatalf("unexpected key %q", cfg.NVCF.APIKey)
	}
}

func TestValidate_Threshold(t *testing.T) {
	t.Setenv("NVCF_API_KEY", "")
	t.Setenv("NVIDIA_PERSONAL_API_KEY", "")
	p := writeConfig(t, "nvcf:\n  api_key: k\n  threshold: 1.5\n")
	if _, err := LoadConfig(p, false); err == nil {
		t.Fatalf("expected threshold validation error")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	p := writeConfig(t, "nvcf: [unclosed\n")
	if _, err := LoadConfig(p, false); err == nil {
		t.Fatalf("expected parse error")
	}
}
