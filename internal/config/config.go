package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when the selected provider needs an API
// key and none is configured.
var ErrMissingCredential = errors.New("AIPROXY_TOKEN environment variable not set")

// Global configuration structure.
type Global struct {
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	Provider    string `mapstructure:"provider" yaml:"provider"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	Model       string `mapstructure:"model" yaml:"model"`
	VisionModel string `mapstructure:"vision_model" yaml:"vision_model"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Dataset reading and profiling
	SampleRows int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Defaults applied before file and environment values.
var defaults = map[string]any{
	"provider":            "openai",
	"base_url":            "https://aiproxy.sanand.workers.dev/openai/v1",
	"model":               "gpt-4o-mini",
	"vision_model":        "gpt-4o-mini",
	"http_timeout_sec":    120,
	"retry_max_attempts":  1,
	"retry_base_delay_ms": 500,
	"retry_max_delay_ms":  4000,
	"ollama_host":         "http://127.0.0.1:11434",
	"sample_rows":         3,
	"delimiter":           "",
	"sheet_name":          "",
	"log_level":           "info",
	"log_format":          "text",
}

// Dir returns ~/.autolysis.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autolysis"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autolysis/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env from the working directory without overriding
// variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. AIPROXY_TOKEN feeds api_key.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTOLYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "AUTOLYSIS_API_KEY", "AIPROXY_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	return &c, nil
}

// Validate reports configuration the pipeline cannot run with.
func (c *Global) Validate() error {
	if _, ok := ai.GetRuntime(c.Provider, ai.RuntimeConfig{}); !ok {
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	if ai.RequiresAPIKey(c.Provider) && strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

// RuntimeConfig maps the HTTP, retry and endpoint settings onto ai.RuntimeConfig.
func (c *Global) RuntimeConfig() ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
	}
}

// Runtime builds the configured model runtime.
func (c *Global) Runtime() (ai.Runtime, error) {
	rt, ok := ai.GetRuntime(c.Provider, c.RuntimeConfig())
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", c.Provider)
	}
	return rt, nil
}

// DelimiterRune returns the configured delimiter, or 0 for auto-detection.
// The literal "\t" selects a tab.
func (c *Global) DelimiterRune() rune {
	switch c.Delimiter {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.Delimiter)[0]
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func(name string, floor int) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < floor {
			return 0, fmt.Errorf("invalid int for %s: %v", name, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch strings.ToLower(val) {
		case "openai", "ollama", "local":
			c.Provider = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid provider: %s (use openai, ollama or local)", val)
		}
	case "base_url":
		c.BaseURL = val
	case "model":
		c.Model = val
	case "vision_model":
		c.VisionModel = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(key, 1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(key, 1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(key, 0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(key, 0)
	case "ollama_host":
		c.OllamaHost = val
	case "sample_rows":
		c.SampleRows, err = atoi(key, 0)
	case "delimiter":
		c.Delimiter = val
	case "sheet_name":
		c.SheetName = val
	case "log_level":
		c.LogLevel = val
	case "log_format":
		if val != "text" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
