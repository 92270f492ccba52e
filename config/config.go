// Package config loads curator settings from file and environment. Every key
// has a default, so the zero configuration runs a keyless offline pipeline;
// a curator.yaml or CURATOR_* variables tune it from there.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research pipeline.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Research  ResearchConfig  `mapstructure:"research"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Search    SearchConfig    `mapstructure:"search"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Citation  CitationConfig  `mapstructure:"citation"`
	Export    ExportConfig    `mapstructure:"export"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
}

func (c GeneralConfig) Normalize() GeneralConfig {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.MaxProcessingTime <= 0 {
		c.MaxProcessingTime = 10 * time.Minute
	}
	return c
}

// ResearchConfig shapes one research run.
type ResearchConfig struct {
	SourceCount  int    `mapstructure:"source_count"`
	Concurrency  int    `mapstructure:"concurrency"`
	AnalysisType string `mapstructure:"analysis_type"`
	Tone         string `mapstructure:"tone"`
	TimeFilter   string `mapstructure:"time_filter"`
}

func (c ResearchConfig) Normalize() ResearchConfig {
	if c.SourceCount == 0 {
		c.SourceCount = 5
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if strings.TrimSpace(c.AnalysisType) == "" {
		c.AnalysisType = "comprehensive"
	}
	if strings.TrimSpace(c.Tone) == "" {
		c.Tone = "default"
	}
	return c
}

func (c ResearchConfig) Validate() error {
	if c.SourceCount < 1 || c.SourceCount > 20 {
		return fmt.Errorf("research.source_count must be between 1 and 20")
	}
	if c.Concurrency < 1 || c.Concurrency > 32 {
		return fmt.Errorf("research.concurrency must be between 1 and 32")
	}
	switch c.TimeFilter {
	case "", "d", "w", "m", "y":
	default:
		return fmt.Errorf("research.time_filter must be one of d, w, m, y or empty")
	}
	return nil
}

// FetchConfig contains page retrieval settings.
type FetchConfig struct {
	Backend       string        `mapstructure:"backend"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	Backoff       time.Duration `mapstructure:"backoff"`
	CourtesyDelay time.Duration `mapstructure:"courtesy_delay"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	UserAgent     string        `mapstructure:"user_agent"`
}

func (c FetchConfig) Normalize() FetchConfig {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.CourtesyDelay < 0 {
		c.CourtesyDelay = 0
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	return c
}

func (c FetchConfig) Validate() error {
	switch c.Backend {
	case "http", "chrome":
	default:
		return fmt.Errorf("fetch.backend must be http or chrome")
	}
	if c.Retries < 0 || c.Retries > 5 {
		return fmt.Errorf("fetch.retries must be between 0 and 5")
	}
	return nil
}

// ExtractConfig contains extraction ensemble settings.
type ExtractConfig struct {
	MaxBodyChars int `mapstructure:"max_body_chars"`
}

func (c ExtractConfig) Normalize() ExtractConfig {
	if c.MaxBodyChars <= 0 {
		c.MaxBodyChars = 20000
	}
	return c
}

// SearchConfig contains candidate discovery settings.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func (c SearchConfig) Normalize() SearchConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "duckduckgo"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

func (c SearchConfig) Validate() error {
	switch c.Provider {
	case "brave", "serper", "duckduckgo":
	default:
		return fmt.Errorf("search.provider must be brave, serper or duckduckgo")
	}
	if c.Provider == "brave" && strings.TrimSpace(c.BraveAPIKey) == "" {
		return fmt.Errorf("search.brave_api_key required for the brave provider")
	}
	if c.Provider == "serper" && strings.TrimSpace(c.SerperAPIKey) == "" {
		return fmt.Errorf("search.serper_api_key required for the serper provider")
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c SearchConfig) APIKey() string {
	switch c.Provider {
	case "brave":
		return c.BraveAPIKey
	case "serper":
		return c.SerperAPIKey
	default:
		return ""
	}
}

// AnalysisConfig contains analyzer settings.
type AnalysisConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (c AnalysisConfig) Normalize() AnalysisConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "offline"
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1500
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

func (c AnalysisConfig) Validate() error {
	switch c.Provider {
	case "offline", "openai":
	default:
		return fmt.Errorf("analysis.provider must be offline or openai")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("analysis.temperature must be between 0 and 2")
	}
	return nil
}

// CitationConfig contains reference formatting settings.
type CitationConfig struct {
	Style string `mapstructure:"style"`
}

func (c CitationConfig) Normalize() CitationConfig {
	c.Style = strings.ToLower(strings.TrimSpace(c.Style))
	if c.Style == "" {
		c.Style = "apa"
	}
	return c
}

func (c CitationConfig) Validate() error {
	switch c.Style {
	case "apa", "mla", "chicago", "harvard", "ieee":
		return nil
	default:
		return fmt.Errorf("citation.style must be one of apa, mla, chicago, harvard, ieee")
	}
}

// ExportConfig contains report rendering settings.
type ExportConfig struct {
	Formats   []string `mapstructure:"formats"`
	OutputDir string   `mapstructure:"output_dir"`
}

func (c ExportConfig) Normalize() ExportConfig {
	seen := make(map[string]struct{}, len(c.Formats))
	var dedup []string
	for _, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		dedup = append(dedup, f)
	}
	if len(dedup) == 0 {
		dedup = []string{"markdown"}
	}
	c.Formats = dedup
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = "./reports"
	}
	return c
}

func (c ExportConfig) Validate() error {
	for _, f := range c.Formats {
		switch f {
		case "markdown", "text", "pdf", "json":
		default:
			return fmt.Errorf("export.formats: unknown format %q", f)
		}
	}
	return nil
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (c TelemetryConfig) Normalize() TelemetryConfig {
	if c.MetricsPort == 0 {
		c.MetricsPort = 9090
	}
	return c
}

func (c TelemetryConfig) Validate() error {
	if c.Enabled && c.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// Normalize applies defaults for unset values across every section.
func (c Config) Normalize() Config {
	c.General = c.General.Normalize()
	c.Research = c.Research.Normalize()
	c.Fetch = c.Fetch.Normalize()
	c.Extract = c.Extract.Normalize()
	c.Search = c.Search.Normalize()
	c.Analysis = c.Analysis.Normalize()
	c.Citation = c.Citation.Normalize()
	c.Export = c.Export.Normalize()
	c.Telemetry = c.Telemetry.Normalize()
	return c
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Research.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if err := c.Citation.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// Default returns the configuration used when no file or environment is
// present.
func Default() *Config {
	cfg := Config{}.Normalize()
	return &cfg
}

// Load reads configuration from file and environment variables. An empty
// path searches ., ./config and ~/.curator for curator.yaml; a missing file
// is fine, missing keys fall back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("curator")
	v.SetConfigType("yaml")
	if path == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".curator"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.applyEnvKeys()
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults mirrors Normalize for keys read through viper, so a partial
// file never zeroes a section.
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.max_processing_time", "10m")

	v.SetDefault("research.source_count", 5)
	v.SetDefault("research.concurrency", 4)
	v.SetDefault("research.analysis_type", "comprehensive")
	v.SetDefault("research.tone", "default")
	v.SetDefault("research.time_filter", "")

	v.SetDefault("fetch.backend", "http")
	v.SetDefault("fetch.timeout", "20s")
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.backoff", "500ms")
	v.SetDefault("fetch.courtesy_delay", "1s")
	v.SetDefault("fetch.max_bytes", 10<<20)
	v.SetDefault("fetch.user_agent", "")

	v.SetDefault("extract.max_body_chars", 20000)

	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.timeout", "15s")

	v.SetDefault("analysis.provider", "offline")
	v.SetDefault("analysis.model", "gpt-4o-mini")
	v.SetDefault("analysis.temperature", 0.2)
	v.SetDefault("analysis.max_tokens", 1500)
	v.SetDefault("analysis.timeout", "60s")

	v.SetDefault("citation.style", "apa")

	v.SetDefault("export.formats", []string{"markdown"})
	v.SetDefault("export.output_dir", "./reports")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.metrics_port", 9090)
}

// applyEnvKeys honors the conventional key variables users already export.
// They fill gaps only; explicit configuration wins.
func (c *Config) applyEnvKeys() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Analysis.APIKey == "" {
		c.Analysis.APIKey = key
	}
	if key := os.Getenv("BRAVE_SEARCH_KEY"); key != "" && c.Search.BraveAPIKey == "" {
		c.Search.BraveAPIKey = key
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" && c.Search.SerperAPIKey == "" {
		c.Search.SerperAPIKey = key
	}
}
