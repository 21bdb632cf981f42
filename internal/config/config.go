package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// The generation ceiling and the requestable maximum disagree in the
		// product copy (10 vs 25); both stay configurable until that is settled.
		MaxGeneratedQuestions int `yaml:"max_generated_questions"`
		MaxRequestedQuestions int `yaml:"max_requested_questions"`
	} `yaml:"quiz"`
	AI struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		Timeout     string  `yaml:"timeout"`
	} `yaml:"ai"`
}

// Load reads YAML config from path. The model API key may also come from the
// OPENAI_API_KEY environment variable, which wins over the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if cfg.Quiz.MaxGeneratedQuestions == 0 {
		cfg.Quiz.MaxGeneratedQuestions = 10
	}
	if cfg.Quiz.MaxRequestedQuestions == 0 {
		cfg.Quiz.MaxRequestedQuestions = 25
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
