// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIModel     string        `yaml:"openai_model"`
	TxAgentURL      string        `yaml:"txagent_url"`
	TxAgentKey      string        `yaml:"txagent_key"`
	TxAgentModel    string        `yaml:"txagent_model"`
	ChatTimeout     time.Duration `yaml:"chat_timeout"`     // per chat completion
	DocumentTimeout time.Duration `yaml:"document_timeout"` // per document generation
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Workers      int           `yaml:"workers"`
}

type ReclaimerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	StaleAfter    time.Duration `yaml:"stale_after"`
}

type TriggerConfig struct {
	URL   string `yaml:"url"`   // webhook that wakes an external worker runner
	Token string `yaml:"token"` // optional bearer token for the webhook
}

type AdminConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Worker    WorkerConfig    `yaml:"worker"`
	Reclaimer ReclaimerConfig `yaml:"reclaimer"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.TxAgentModel == "" {
		cfg.AI.TxAgentModel = "txagent"
	}
	if cfg.AI.ChatTimeout <= 0 {
		cfg.AI.ChatTimeout = 45 * time.Second
	}
	if cfg.AI.DocumentTimeout <= 0 {
		cfg.AI.DocumentTimeout = 3 * time.Minute
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 5 * time.Second
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 2
	}
	if cfg.Reclaimer.SweepInterval <= 0 {
		cfg.Reclaimer.SweepInterval = time.Minute
	}
	if cfg.Reclaimer.StaleAfter <= 0 {
		cfg.Reclaimer.StaleAfter = 5 * time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.TxAgentURL == "" && !dev {
		return nil, errors.New("no AI backend configured: set ai.openai_key or ai.txagent_url")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
