// Package config handles tubescribe configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./tubescribe.yaml, ~/.config/tubescribe/config.yaml,
// /etc/tubescribe/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"tubescribe.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tubescribe", "config.yaml"))
	}

	paths = append(paths, "/etc/tubescribe/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all tubescribe configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	YouTube  YouTubeConfig `yaml:"youtube"`
	Summary  SummaryConfig `yaml:"summary"`
	Store    StoreConfig   `yaml:"store"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// YouTubeConfig defines caption acquisition settings. Every value the
// acquisition code needs lives here so tests can substitute all of them.
type YouTubeConfig struct {
	// UserAgent is sent on watch-page and caption fetches. The origin
	// serves a degraded page to non-browser agents.
	UserAgent string `yaml:"user_agent"`
	// ConsentCookie is the full name=value pair that skips the EU
	// consent-wall redirect.
	ConsentCookie string `yaml:"consent_cookie"`
	// PreferredLanguages is the track selection order, highest priority
	// first. Base language codes; regional variants match their base.
	PreferredLanguages []string `yaml:"preferred_languages"`
	// AttemptTimeoutSec bounds each acquisition strategy independently.
	AttemptTimeoutSec int `yaml:"attempt_timeout_sec"`
	// OverallTimeoutSec bounds the whole pipeline run.
	OverallTimeoutSec int `yaml:"overall_timeout_sec"`
	// RequestsPerSecond throttles direct origin fetches. Zero disables
	// throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// ProxyURL enables the routing-diverse strategy when set.
	ProxyURL string `yaml:"proxy_url"`
	// RelayURL enables the CORS-relay strategy when set. The target URL
	// is appended to it.
	RelayURL      string              `yaml:"relay_url"`
	TranscriptAPI TranscriptAPIConfig `yaml:"transcript_api"`
}

// TranscriptAPIConfig defines the third-party transcript extraction
// service used as acquisition strategy three. Disabled unless URL is set.
type TranscriptAPIConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// SummaryConfig defines summary generation settings. A provider is
// active when its API key is set; Anthropic wins when both are.
type SummaryConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	// MaxInputChars clamps transcript text before the provider call.
	MaxInputChars int `yaml:"max_input_chars"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig defines OpenAI API settings. BaseURL exists so
// compatible gateways can stand in.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// StoreConfig selects the persistence backend. Driver "" disables
// persistence entirely (the transcribe CLI runs this way).
type StoreConfig struct {
	Driver   string         `yaml:"driver"` // "", "sqlite", "supabase"
	Path     string         `yaml:"path"`   // sqlite database path
	Supabase SupabaseConfig `yaml:"supabase"`
}

// SupabaseConfig defines the hosted store connection. URL+Key selects
// the REST client; ConnString selects a direct Postgres connection.
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	Key        string `yaml:"key"`
	ConnString string `yaml:"conn_string"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default filled in. The
// transcribe CLI uses it directly when no config file exists.
func Default() *Config {
	cfg := &Config{
		Listen: ListenConfig{Port: 8080},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued fields after unmarshal, so a sparse
// config file still yields a complete configuration.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.YouTube.UserAgent == "" {
		c.YouTube.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if c.YouTube.ConsentCookie == "" {
		c.YouTube.ConsentCookie = "CONSENT=YES+cb.20210328-17-p0.en+FX+917"
	}
	if len(c.YouTube.PreferredLanguages) == 0 {
		c.YouTube.PreferredLanguages = []string{"pt", "en", "es", "fr", "de", "it", "ja", "ko", "zh"}
	}
	if c.YouTube.AttemptTimeoutSec == 0 {
		c.YouTube.AttemptTimeoutSec = 15
	}
	if c.YouTube.OverallTimeoutSec == 0 {
		c.YouTube.OverallTimeoutSec = 60
	}
	if c.Summary.Anthropic.Model == "" {
		c.Summary.Anthropic.Model = "claude-sonnet-4-5-20250514"
	}
	if c.Summary.OpenAI.Model == "" {
		c.Summary.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Summary.OpenAI.BaseURL == "" {
		c.Summary.OpenAI.BaseURL = "https://api.openai.com"
	}
	if c.Summary.MaxInputChars == 0 {
		c.Summary.MaxInputChars = 50000
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "tubescribe.db"
	}
}

// Validate checks cross-field constraints that applyDefaults cannot fix.
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	switch c.Store.Driver {
	case "", "sqlite":
	case "supabase":
		if c.Store.Supabase.ConnString == "" && (c.Store.Supabase.URL == "" || c.Store.Supabase.Key == "") {
			return fmt.Errorf("store.driver supabase needs url+key or conn_string")
		}
	default:
		return fmt.Errorf("unknown store.driver %q (valid: sqlite, supabase)", c.Store.Driver)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
