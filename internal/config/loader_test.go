package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API != FlavorChat {
		t.Errorf("expected default api flavor, got %s", cfg.API)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "llmprobe.yaml")
	content := []byte(`
url: https://example.com
model: gpt-4o
api: responses
mean_input_tokens: 200
max_num_completed_requests: 25
num_concurrent_requests: 5
timeout: 45s
`)
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API != FlavorResponses {
		t.Errorf("expected api responses, got %s", cfg.API)
	}
	if cfg.MeanInputTokens != 200 {
		t.Errorf("expected mean_input_tokens 200, got %d", cfg.MeanInputTokens)
	}
	if cfg.Timeout.Duration != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Timeout.Duration)
	}
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	if _, err := Load("/nonexistent/llmprobe.yaml"); err == nil {
		t.Fatalf("expected an error for a missing explicit config path")
	}
}
