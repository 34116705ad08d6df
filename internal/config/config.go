package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the campaign identity, allocation caps, weekly plan shape,
// generation provider, and storage location.
type Config struct {
	Campaign CampaignConfig `yaml:"campaign"`
	Caps     CapsConfig     `yaml:"caps"`
	Plan     PlanConfig     `yaml:"plan"`
	LLM      LLMConfig      `yaml:"llm"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type CampaignConfig struct {
	ID          string `yaml:"id"`
	ProductName string `yaml:"productName"`
}

// CapsConfig bounds how often a single identity may appear in one week.
type CapsConfig struct {
	PostsPerPersona    int `yaml:"postsPerPersona"`
	CommentsPerPersona int `yaml:"commentsPerPersona"`
	CommentsPerPost    int `yaml:"commentsPerPost"`
}

type PlanConfig struct {
	PostsPerWeek int `yaml:"postsPerWeek"`
	// Quiet hours (UTC) where no post slot should land
	QuietHours []int `yaml:"quietHours"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "none"
	Model    string `yaml:"model"`
	// If empty, read from env OPENAI_API_KEY
	APIKey string `yaml:"apiKey"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Campaign: CampaignConfig{ID: "default", ProductName: ""},
		Caps:     CapsConfig{PostsPerPersona: 2, CommentsPerPersona: 10, CommentsPerPost: 3},
		Plan:     PlanConfig{PostsPerWeek: 4, QuietHours: []int{0, 1, 2, 3, 4, 5}},
		LLM:      LLMConfig{Provider: "none", Model: "gpt-4o-mini", APIKey: ""},
		Storage:  StorageConfig{DBPath: "./threadloom.db"},
		Metrics:  MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.LLM.APIKey == "" && c.LLM.Provider == "openai" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
