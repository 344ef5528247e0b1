package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Sessions struct {
		// TTL is the idle time after which a session is forgotten.
		TTL string `yaml:"ttl"`
	} `yaml:"sessions"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Content struct {
		Dir string `yaml:"dir"`
		TTL string `yaml:"ttl"`
	} `yaml:"content"`
	LLM struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		Token     string `yaml:"token"`
		BaseURL   string `yaml:"base_url"`
		Timeout   string `yaml:"timeout"`
		MaxTokens int    `yaml:"max_tokens"`
		// Temperature is nil when unset; an explicit 0 selects greedy decoding.
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`
	Engine struct {
		// Seed fixes the phrasing RNG; 0 seeds from the clock.
		Seed int64 `yaml:"seed"`
	} `yaml:"engine"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file yields defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("CONTENT_DIR"); v != "" {
		c.Content.Dir = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("TUTOR_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Engine.Seed = seed
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && (c.LLM.Provider == "" || c.LLM.Provider == "openai") {
		c.LLM.Provider = "openai"
		c.LLM.Token = v
	}
	for _, key := range []string{"HF_TOKEN", "HF_API_TOKEN"} {
		if v := os.Getenv(key); v != "" && c.LLM.Provider == "huggingface" {
			c.LLM.Token = v
		}
	}
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
