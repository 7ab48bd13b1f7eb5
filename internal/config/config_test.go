package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-oracle/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"seed_urls": ["https://example.com"]}`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.CrawlID)
	assert.Equal(t, 20.0, cfg.PositiveWeight)
	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 3, cfg.ConcurrentWorkers)
	assert.Equal(t, 5000, cfg.RequestTimeoutMs)
	assert.Equal(t, 500, cfg.RescoreMinResponses)
	assert.Equal(t, 10*time.Second, cfg.StatsInterval())
	assert.Equal(t, 600*time.Second, cfg.CheckpointInterval())
	assert.Equal(t, 30*time.Second, cfg.RescoreInterval())
	assert.Equal(t, "checkpoints.db", cfg.DBPath)
	assert.Equal(t, "metrics.log", cfg.MetricsPath)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"seed_urls": ["https://example.com"],
		"crawl_id": "run-7",
		"fit_domain_intercept": true,
		"converge": true,
		"replay_n": 50,
		"epsilon": 0.2,
		"max_depth": 3,
		"max_outbound_links": 100,
		"request_timeout_ms": 10000
	}`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "run-7", cfg.CrawlID)
	assert.True(t, cfg.FitDomainIntercept)
	assert.True(t, cfg.Converge)
	assert.Equal(t, 50, cfg.ReplayN)
	assert.Equal(t, 0.2, cfg.Epsilon)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 100, cfg.MaxOutboundLinks)
	assert.Equal(t, 10000, cfg.RequestTimeoutMs)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing seeds":   `{}`,
		"bad epsilon":     `{"seed_urls": ["https://example.com"], "epsilon": 1.5}`,
		"negative replay": `{"seed_urls": ["https://example.com"], "replay_n": -1}`,
		"tiny timeout":    `{"seed_urls": ["https://example.com"], "request_timeout_ms": 100}`,
		"bad json":        `{"seed_urls": [`,
	}

	for name, body := range cases {
		_, err := config.LoadConfig(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
