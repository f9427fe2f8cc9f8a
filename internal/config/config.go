package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	defaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ScraperConfig struct {
	UserAgent           string `yaml:"userAgent"`
	Accept              string `yaml:"accept"`
	TimeoutMs           int    `yaml:"timeoutMs"`
	MaxRedirects        int    `yaml:"maxRedirects"`
	SkipTLSVerification *bool  `yaml:"skipTlsVerification"`
}

// InsecureTLS reports whether certificate validation is relaxed. Unset
// means relaxed so that self-signed sites can still be scanned.
func (s ScraperConfig) InsecureTLS() bool {
	if s.SkipTLSVerification == nil {
		return true
	}
	return *s.SkipTLSVerification
}

type RodConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BrowserURL string `yaml:"browserURL"`
}

// ScanConfig holds the crawl and analysis bounds of a single scan.
type ScanConfig struct {
	ShallowCrawlLimit  int `yaml:"shallowCrawlLimit"`
	MaxPages           int `yaml:"maxPages"`
	AnalyzeConcurrency int `yaml:"analyzeConcurrency"`
	ContextChars       int `yaml:"contextChars"`
	MinContextChars    int `yaml:"minContextChars"`
	// TimeoutMs bounds a whole scan. Zero leaves scans unbounded.
	TimeoutMs int `yaml:"timeoutMs"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type GoogleLLMConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type LLMConfig struct {
	DefaultProvider     string          `yaml:"defaultProvider"`
	Temperature         float64         `yaml:"temperature"`
	MaxTokens           int             `yaml:"maxTokens"`
	TimeoutMs           int             `yaml:"timeoutMs"`
	ConfidenceThreshold float64         `yaml:"confidenceThreshold"`
	OpenAI              OpenAIConfig    `yaml:"openai"`
	Anthropic           AnthropicConfig `yaml:"anthropic"`
	Google              GoogleLLMConfig `yaml:"google"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"perMinute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Rod       RodConfig       `yaml:"rod"`
	Scan      ScanConfig      `yaml:"scan"`
	LLM       LLMConfig       `yaml:"llm"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// Default returns a configuration with every tunable set to the values
// the scanner was calibrated with.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, applies environment overrides and
// fills unset fields with defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config file: %w", err)
		default:
			defer f.Close()
			// An empty document decodes to io.EOF and leaves defaults in place.
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode config: %w", err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.Anthropic.APIKey = v
	}
	if v := getenv("GOOGLE_API_KEY"); v != "" {
		c.LLM.Google.APIKey = v
	}
	if v := getenv("POLICYGUARD_LLM_PROVIDER"); v != "" {
		c.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaultUserAgent
	}
	if c.Scraper.Accept == "" {
		c.Scraper.Accept = defaultAccept
	}
	if c.Scraper.TimeoutMs <= 0 {
		c.Scraper.TimeoutMs = 20000
	}
	if c.Scraper.MaxRedirects <= 0 {
		c.Scraper.MaxRedirects = 5
	}

	if c.Scan.ShallowCrawlLimit <= 0 {
		c.Scan.ShallowCrawlLimit = 20
	}
	if c.Scan.MaxPages <= 0 {
		c.Scan.MaxPages = 500
	}
	if c.Scan.AnalyzeConcurrency <= 0 {
		c.Scan.AnalyzeConcurrency = 12
	}
	if c.Scan.ContextChars <= 0 {
		c.Scan.ContextChars = 16000
	}
	if c.Scan.MinContextChars <= 0 {
		c.Scan.MinContextChars = 200
	}

	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = "openai"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.TimeoutMs <= 0 {
		c.LLM.TimeoutMs = 60000
	}
	if c.LLM.ConfidenceThreshold <= 0 {
		c.LLM.ConfidenceThreshold = 0.8
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o"
	}
	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-3-5-sonnet-latest"
	}
	if c.LLM.Google.Model == "" {
		c.LLM.Google.Model = "gemini-1.5-pro"
	}
}
