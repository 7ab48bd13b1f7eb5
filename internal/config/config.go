package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds all runtime configuration parameters
type Config struct {
	SeedURLs []string `json:"seed_urls"`

	// CrawlID tags checkpoints; autogenerated from the start time when empty.
	CrawlID string `json:"crawl_id"`

	// Learning knobs
	FitDomainIntercept bool    `json:"fit_domain_intercept"`
	Converge           bool    `json:"converge"`
	ReplayN            int     `json:"replay_n"`
	Epsilon            float64 `json:"epsilon"`
	PositiveWeight     float64 `json:"positive_weight"`

	// Crawl limits
	MaxDepth          int `json:"max_depth"`
	MaxOutboundLinks  int `json:"max_outbound_links"`
	ConcurrentWorkers int `json:"concurrent_workers"`
	RequestTimeoutMs  int `json:"request_timeout_ms"`

	// Periodic task cadence
	StatsIntervalS      int `json:"stats_interval_s"`
	CheckpointIntervalS int `json:"checkpoint_interval_s"`
	RescoreIntervalS    int `json:"rescore_interval_s"`
	RescoreMinResponses int `json:"rescore_min_responses"`

	DBPath      string `json:"db_path"`
	MetricsPath string `json:"metrics_path"`
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults sets default values for unspecified fields
func ApplyDefaults(cfg *Config) {
	if cfg.CrawlID == "" {
		cfg.CrawlID = time.Now().Format("20060102-150405")
	}
	if cfg.PositiveWeight == 0 {
		cfg.PositiveWeight = 20
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 5
	}
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = 3
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 5000
	}
	if cfg.StatsIntervalS == 0 {
		cfg.StatsIntervalS = 10
	}
	if cfg.CheckpointIntervalS == 0 {
		cfg.CheckpointIntervalS = 600
	}
	if cfg.RescoreIntervalS == 0 {
		cfg.RescoreIntervalS = 30
	}
	if cfg.RescoreMinResponses == 0 {
		cfg.RescoreMinResponses = 500
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "checkpoints.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if len(cfg.SeedURLs) == 0 {
		return fmt.Errorf("seed_urls is required")
	}
	if cfg.ReplayN < 0 {
		return fmt.Errorf("replay_n must be >= 0")
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0,1]")
	}
	if cfg.PositiveWeight <= 0 {
		return fmt.Errorf("positive_weight must be > 0")
	}
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1")
	}
	if cfg.ConcurrentWorkers < 1 {
		return fmt.Errorf("concurrent_workers must be >= 1")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	return nil
}

// StatsInterval returns the stats reporting cadence.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalS) * time.Second
}

// CheckpointInterval returns the periodic checkpoint cadence.
func (c *Config) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalS) * time.Second
}

// RescoreInterval returns the frontier re-scoring cadence.
func (c *Config) RescoreInterval() time.Duration {
	return time.Duration(c.RescoreIntervalS) * time.Second
}
