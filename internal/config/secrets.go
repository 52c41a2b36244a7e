package config

import (
	"fmt"
	"os"
	"strings"
)

// defaultEnvVars maps a protocol flavor to the environment variable checked
// when api_key is not set explicitly.
var defaultEnvVars = map[Flavor]string{
	FlavorChat:              "OPENAI_API_KEY",
	FlavorResponses:         "OPENAI_API_KEY",
	FlavorAnthropicMessages: "ANTHROPIC_API_KEY",
}

// resolveAPIKey fills in c.APIKey from a secret reference or the flavor's
// default environment variable. Missing credentials are not an error here;
// an empty key is valid for endpoints that don't require one.
func resolveAPIKey(c *Config) error {
	if c.APIKey != "" {
		if isSecretRef(c.APIKey) {
			resolved, err := resolveSecretRef(c.APIKey)
			if err != nil {
				return fmt.Errorf("resolving api_key: %w", err)
			}
			c.APIKey = resolved
		}
		return nil
	}

	if envVar, ok := defaultEnvVars[c.API]; ok {
		if value := os.Getenv(envVar); value != "" {
			c.APIKey = value
		}
	}
	return nil
}

// ResolveSecretRef resolves value if it is a "${type:value}" secret
// reference, or returns it unchanged otherwise. Exported so the CLI layer
// can apply the same resolution to an api_key supplied by flag or
// environment variable after config.Load has already run.
func ResolveSecretRef(value string) (string, error) {
	if !isSecretRef(value) {
		return value, nil
	}
	return resolveSecretRef(value)
}

func isSecretRef(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// resolveSecretRef resolves a "${type:value}" reference, e.g. "${env:MY_KEY}"
// or "${file:/path/to/secret}".
func resolveSecretRef(ref string) (string, error) {
	inner := ref[2 : len(ref)-1]
	parts := strings.SplitN(inner, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid secret reference: %s", ref)
	}

	switch parts[0] {
	case "env":
		value := os.Getenv(parts[1])
		if value == "" {
			return "", fmt.Errorf("environment variable not set: %s", parts[1])
		}
		return value, nil
	case "file":
		data, err := os.ReadFile(parts[1])
		if err != nil {
			return "", fmt.Errorf("reading secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case "plain":
		return parts[1], nil
	default:
		return "", fmt.Errorf("unknown secret type: %s", parts[0])
	}
}

// MaskSecret returns a display-safe form of a credential.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Redacted returns a copy of c safe to echo into run artifacts and rendered
// output: the resolved credential is replaced with its masked form. The
// original Config is not modified.
func (c *Config) Redacted() *Config {
	redacted := *c
	if redacted.APIKey != "" {
		redacted.APIKey = MaskSecret(redacted.APIKey)
	}
	return &redacted
}
