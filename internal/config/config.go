// Package config handles configuration loading and management for the benchmark CLI.
package config

import (
	"fmt"
	"time"
)

// Flavor selects the wire protocol the target endpoint speaks.
type Flavor string

const (
	FlavorChat              Flavor = "chat"
	FlavorResponses         Flavor = "responses"
	FlavorAnthropicMessages Flavor = "anthropic-messages"
)

// OutputFormat selects how the run summary is rendered to the terminal.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputNone  OutputFormat = "none"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config is the immutable BenchmarkConfig consumed by the rest of the engine.
// It is constructed once during startup and never mutated afterward.
type Config struct {
	URL    string `yaml:"url" json:"url"`
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Model  string `yaml:"model" json:"model"`
	API    Flavor `yaml:"api" json:"api"`

	MeanInputTokens   int `yaml:"mean_input_tokens" json:"mean_input_tokens"`
	StddevInputTokens int `yaml:"stddev_input_tokens" json:"stddev_input_tokens"`

	// MeanOutputTokens nil disables output-length shaping entirely.
	MeanOutputTokens   *int `yaml:"mean_output_tokens,omitempty" json:"mean_output_tokens,omitempty"`
	StddevOutputTokens int  `yaml:"stddev_output_tokens" json:"stddev_output_tokens"`

	MaxNumCompletedRequests int      `yaml:"max_num_completed_requests" json:"max_num_completed_requests"`
	NumConcurrentRequests   int      `yaml:"num_concurrent_requests" json:"num_concurrent_requests"`
	Timeout                 Duration `yaml:"timeout" json:"timeout"`

	Tokenizer           string `yaml:"tokenizer,omitempty" json:"tokenizer,omitempty"`
	UseServerTokenCount bool   `yaml:"use_server_token_count" json:"use_server_token_count"`

	OutputFormat OutputFormat `yaml:"output_format" json:"output_format"`
	ResultsDir   string       `yaml:"results_dir,omitempty" json:"results_dir,omitempty"`

	Quiet bool `yaml:"-" json:"-"`
}

// DefaultConfig returns sensible defaults; callers still must supply URL and Model.
func DefaultConfig() *Config {
	return &Config{
		API:                     FlavorChat,
		MeanInputTokens:         550,
		StddevInputTokens:       150,
		MaxNumCompletedRequests: 10,
		NumConcurrentRequests:   1,
		Timeout:                 Duration{90 * time.Second},
		UseServerTokenCount:     false,
		OutputFormat:            OutputTable,
	}
}

// TokenizerID returns the tokenizer identifier to use, falling back to Model.
func (c *Config) TokenizerID() string {
	if c.Tokenizer != "" {
		return c.Tokenizer
	}
	return c.Model
}

// OutputShapingEnabled reports whether output-length sampling is active.
func (c *Config) OutputShapingEnabled() bool {
	return c.MeanOutputTokens != nil
}

// Validate checks the configuration for the fatal, pre-flight errors of the
// configuration error class: missing url or model, an unsupported api flavor
// or output format, and out-of-range counts, concurrency, timeout, or token
// means.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("config: url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	switch c.API {
	case FlavorChat, FlavorResponses, FlavorAnthropicMessages:
	default:
		return fmt.Errorf("config: unsupported api flavor %q (supported: chat, responses, anthropic-messages)", c.API)
	}
	if c.MaxNumCompletedRequests < 1 {
		return fmt.Errorf("config: max_num_completed_requests must be >= 1, got %d", c.MaxNumCompletedRequests)
	}
	if c.NumConcurrentRequests < 1 {
		return fmt.Errorf("config: num_concurrent_requests must be >= 1, got %d", c.NumConcurrentRequests)
	}
	if c.NumConcurrentRequests > c.MaxNumCompletedRequests {
		return fmt.Errorf("config: num_concurrent_requests (%d) must be <= max_num_completed_requests (%d)",
			c.NumConcurrentRequests, c.MaxNumCompletedRequests)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("config: timeout must be > 0")
	}
	if c.MeanInputTokens < 1 {
		return fmt.Errorf("config: mean_input_tokens must be >= 1, got %d", c.MeanInputTokens)
	}
	if c.StddevInputTokens < 0 {
		return fmt.Errorf("config: stddev_input_tokens must be >= 0")
	}
	if c.MeanOutputTokens != nil && *c.MeanOutputTokens < 1 {
		return fmt.Errorf("config: mean_output_tokens must be >= 1 when set, got %d", *c.MeanOutputTokens)
	}
	switch c.OutputFormat {
	case OutputTable, OutputJSON, OutputNone:
	default:
		return fmt.Errorf("config: unsupported output_format %q (supported: table, json, none)", c.OutputFormat)
	}
	return nil
}
