// Package config loads and validates journey configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage providers accepted by storage.provider.
const (
	StorageLocal    = "local"
	StorageGCS      = "gcs"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	// Target names the checkpoint namespace. Empty means "derive from input".
	Target    string          `mapstructure:"target"`
	Input     string          `mapstructure:"input"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scenarios ScenariosConfig `mapstructure:"scenarios"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PipelineConfig governs the orchestrator.
type PipelineConfig struct {
	Concurrency       int  `mapstructure:"concurrency"`
	DesiredCount      int  `mapstructure:"desired_count"`
	EnforceMembership bool `mapstructure:"enforce_membership"`
	SampleLimit       int  `mapstructure:"sample_limit"`
	ExpectedTypes     int  `mapstructure:"expected_types"`
}

// StorageConfig selects and configures the checkpoint backend.
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	LocalDir      string `mapstructure:"local_dir"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	Prefix        string `mapstructure:"prefix"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// LLMConfig selects the language model collaborator.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	APIKey   string       `mapstructure:"api_key"`
	Models   ModelsConfig `mapstructure:"models"`
}

// ModelsConfig overrides the model used for each tier. Empty keeps the default.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// FetchConfig controls archive HTTP access.
type FetchConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
	MaxLinks       int     `mapstructure:"max_links"`
	MaxTextBytes   int     `mapstructure:"max_text_bytes"`
	MaxBodyBytes   int     `mapstructure:"max_body_bytes"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
}

// ScenariosConfig points at the scenario catalog. Empty uses the built-in one.
type ScenariosConfig struct {
	DefinitionsPath string `mapstructure:"definitions_path"`
}

// PubSubConfig holds completion notification settings. An empty topic
// disables notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the status server.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment. Environment variables use
// the JOURNEY_ prefix with dots replaced by underscores, for example
// JOURNEY_LLM_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOURNEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target", "")
	v.SetDefault("input", "")
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.desired_count", 15)
	v.SetDefault("pipeline.enforce_membership", false)
	v.SetDefault("pipeline.sample_limit", 2000)
	v.SetDefault("pipeline.expected_types", 30)
	v.SetDefault("storage.provider", StorageLocal)
	v.SetDefault("storage.local_dir", "data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.postgres_table", "checkpoints")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.models.lite", "")
	v.SetDefault("llm.models.standard", "")
	v.SetDefault("llm.models.advanced", "")
	v.SetDefault("fetch.user_agent", "wayback-journey/0.1")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.rps", 1.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_links", 10000)
	v.SetDefault("fetch.max_text_bytes", 0)
	v.SetDefault("fetch.max_body_bytes", 10*1024*1024)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("scenarios.definitions_path", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.DesiredCount <= 0 {
		return fmt.Errorf("pipeline.desired_count must be > 0")
	}
	if c.Pipeline.SampleLimit <= 0 {
		return fmt.Errorf("pipeline.sample_limit must be > 0")
	}
	if c.Pipeline.ExpectedTypes <= 0 {
		return fmt.Errorf("pipeline.expected_types must be > 0")
	}
	switch c.Storage.Provider {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("storage.local_dir is required for the local provider")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs provider")
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres provider")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxLinks < 0 || c.Fetch.MaxTextBytes < 0 || c.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("fetch limits must not be negative")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
