package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the recognized project-local config file name.
const ConfigFileName = "llmprobe.yaml"

// Load builds a Config starting from defaults, layering in a config file
// (explicit path, or the first of the well-known search paths that exists),
// then resolving API key secrets. CLI flags are applied by the caller on top
// of the returned value, so flags always win over file, and file always wins
// over built-in defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	resolvedPath := configPath
	if resolvedPath == "" {
		resolvedPath = findConfigFile()
	}

	if resolvedPath != "" {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", resolvedPath, err)
		}
	}

	if err := resolveAPIKey(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	searchPaths := []string{ConfigFileName}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "llmprobe", ConfigFileName))
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
