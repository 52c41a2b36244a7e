package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveAPIKey(t *testing.T) {
	os.Setenv("TEST_API_KEY", "secret-value")
	defer os.Unsetenv("TEST_API_KEY")

	tests := []struct {
		name       string
		apiKey     string
		want       string
		wantErr    bool
		errContain string
	}{
		{name: "raw key passes through", apiKey: "sk-123456", want: "sk-123456"},
		{name: "env secret ref", apiKey: "${env:TEST_API_KEY}", want: "secret-value"},
		{
			name:       "missing env secret ref",
			apiKey:     "${env:MISSING_KEY}",
			wantErr:    true,
			errContain: "environment variable not set",
		},
		{
			name:       "invalid secret ref format",
			apiKey:     "${invalid}",
			wantErr:    true,
			errContain: "invalid secret reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIKey: tt.apiKey, API: FlavorChat}
			err := resolveAPIKey(cfg)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveAPIKey() expected error, got nil")
				}
				if tt.errContain != "" && !strings.Contains(err.Error(), tt.errContain) {
					t.Fatalf("resolveAPIKey() error = %v, want containing %q", err, tt.errContain)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveAPIKey() unexpected error: %v", err)
			}
			if cfg.APIKey != tt.want {
				t.Fatalf("resolveAPIKey() APIKey = %q, want %q", cfg.APIKey, tt.want)
			}
		})
	}
}

func TestResolveAPIKey_DefaultEnvVar(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "from-default-env")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg := &Config{APIKey: "", API: FlavorChat}
	if err := resolveAPIKey(cfg); err != nil {
		t.Fatalf("resolveAPIKey() unexpected error: %v", err)
	}
	if cfg.APIKey != "from-default-env" {
		t.Fatalf("expected APIKey from OPENAI_API_KEY, got %q", cfg.APIKey)
	}
}

func TestResolveAPIKey_FileRef(t *testing.T) {
	tmpDir := t.TempDir()
	secretPath := filepath.Join(tmpDir, "api_key.secret")
	if err := os.WriteFile(secretPath, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}

	cfg := &Config{APIKey: "${file:" + secretPath + "}", API: FlavorAnthropicMessages}
	if err := resolveAPIKey(cfg); err != nil {
		t.Fatalf("resolveAPIKey() unexpected error: %v", err)
	}
	if cfg.APIKey != "file-secret" {
		t.Fatalf("expected APIKey from secret file, got %q", cfg.APIKey)
	}
}

func TestResolveSecretRef(t *testing.T) {
	os.Setenv("TEST_API_KEY2", "another-secret")
	defer os.Unsetenv("TEST_API_KEY2")

	got, err := ResolveSecretRef("${env:TEST_API_KEY2}")
	if err != nil {
		t.Fatalf("ResolveSecretRef() unexpected error: %v", err)
	}
	if got != "another-secret" {
		t.Fatalf("ResolveSecretRef() = %q, want %q", got, "another-secret")
	}

	got, err = ResolveSecretRef("plain-value")
	if err != nil {
		t.Fatalf("ResolveSecretRef() unexpected error: %v", err)
	}
	if got != "plain-value" {
		t.Fatalf("ResolveSecretRef() = %q, want unchanged value", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{URL: "https://example.com", Model: "gpt-4o", APIKey: "sk-1234567890abcdef"}

	got := cfg.Redacted()
	if got.APIKey != "sk-1...cdef" {
		t.Errorf("Redacted().APIKey = %q, want masked form", got.APIKey)
	}
	if got.URL != cfg.URL || got.Model != cfg.Model {
		t.Errorf("Redacted() altered non-secret fields: %+v", got)
	}
	if cfg.APIKey != "sk-1234567890abcdef" {
		t.Errorf("Redacted() mutated the original config: %q", cfg.APIKey)
	}

	empty := &Config{}
	if got := empty.Redacted(); got.APIKey != "" {
		t.Errorf("Redacted() of an unset key = %q, want empty so omitempty drops it", got.APIKey)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1234567890", "1234...7890"},
		{"short", "********"},
		{"12345678", "********"},
	}

	for _, tt := range tests {
		if got := MaskSecret(tt.input); got != tt.want {
			t.Errorf("MaskSecret(%s) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
