package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.Equal(t, 15, cfg.Pipeline.DesiredCount)
	assert.False(t, cfg.Pipeline.EnforceMembership)
	assert.Equal(t, 2000, cfg.Pipeline.SampleLimit)
	assert.Equal(t, 30, cfg.Pipeline.ExpectedTypes)
	assert.Equal(t, StorageLocal, cfg.Storage.Provider)
	assert.Equal(t, "data", cfg.Storage.LocalDir)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 10000, cfg.Fetch.MaxLinks)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
target: shop
input: snapshots.txt
pipeline:
  concurrency: 4
  desired_count: 20
  enforce_membership: true
  sample_limit: 500
  expected_types: 24
storage:
  provider: gcs
  gcs_bucket: journeys
  prefix: runs
llm:
  provider: gemini
  api_key: key-123
  models:
    advanced: gemini-2.5-pro-exp
fetch:
  user_agent: test-agent
  timeout_seconds: 10
  rps: 2.5
  burst: 3
  max_links: 50
  max_text_bytes: 4000
  respect_robots: true
scenarios:
  definitions_path: scenarios.json
pubsub:
  project_id: proj
  topic: journeys-done
server:
  port: 9090
  api_key: secret
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.Target)
	assert.Equal(t, "snapshots.txt", cfg.Input)
	assert.Equal(t, PipelineConfig{
		Concurrency:       4,
		DesiredCount:      20,
		EnforceMembership: true,
		SampleLimit:       500,
		ExpectedTypes:     24,
	}, cfg.Pipeline)
	assert.Equal(t, StorageGCS, cfg.Storage.Provider)
	assert.Equal(t, "journeys", cfg.Storage.GCSBucket)
	assert.Equal(t, "runs", cfg.Storage.Prefix)
	assert.Equal(t, "key-123", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro-exp", cfg.LLM.Models.Advanced)
	assert.Empty(t, cfg.LLM.Models.Lite)
	assert.Equal(t, "test-agent", cfg.Fetch.UserAgent)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.InDelta(t, 2.5, cfg.Fetch.RPS, 1e-9)
	assert.Equal(t, 3, cfg.Fetch.Burst)
	assert.Equal(t, 50, cfg.Fetch.MaxLinks)
	assert.Equal(t, 4000, cfg.Fetch.MaxTextBytes)
	assert.True(t, cfg.Fetch.RespectRobots)
	assert.Equal(t, "scenarios.json", cfg.Scenarios.DefinitionsPath)
	assert.Equal(t, PubSubConfig{ProjectID: "proj", Topic: "journeys-done"}, cfg.PubSub)
	assert.Equal(t, ServerConfig{Port: 9090, APIKey: "secret"}, cfg.Server)
	assert.Equal(t, LoggingConfig{Development: false, Level: "debug"}, cfg.Logging)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JOURNEY_PIPELINE_CONCURRENCY", "3")
	t.Setenv("JOURNEY_LLM_API_KEY", "from-env")
	t.Setenv("JOURNEY_STORAGE_PROVIDER", StorageMemory)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.Concurrency)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, StorageMemory, cfg.Storage.Provider)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid, err := Load("")
	require.NoError(t, err)

	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"concurrency":     {func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		"desired count":   {func(c *Config) { c.Pipeline.DesiredCount = -1 }, "pipeline.desired_count"},
		"sample limit":    {func(c *Config) { c.Pipeline.SampleLimit = 0 }, "pipeline.sample_limit"},
		"expected types":  {func(c *Config) { c.Pipeline.ExpectedTypes = 0 }, "pipeline.expected_types"},
		"unknown storage": {func(c *Config) { c.Storage.Provider = "s3" }, "unknown storage.provider"},
		"local dir":       {func(c *Config) { c.Storage.LocalDir = " " }, "storage.local_dir"},
		"gcs bucket":      {func(c *Config) { c.Storage.Provider = StorageGCS }, "storage.gcs_bucket"},
		"postgres dsn":    {func(c *Config) { c.Storage.Provider = StoragePostgres }, "storage.postgres_dsn"},
		"timeout":         {func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, "fetch.timeout_seconds"},
		"negative limits": {func(c *Config) { c.Fetch.MaxLinks = -1 }, "fetch limits"},
		"pubsub project":  {func(c *Config) { c.PubSub.Topic = "done" }, "pubsub.project_id"},
		"port":            {func(c *Config) { c.Server.Port = 0 }, "server.port"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	mem := valid
	mem.Storage.Provider = StorageMemory
	mem.Storage.LocalDir = ""
	require.NoError(t, mem.Validate())
}
