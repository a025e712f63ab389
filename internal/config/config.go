package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no -config flag is given. A missing
// file at this path is not an error; the run proceeds on defaults so the
// bare no-argument invocation works.
const DefaultPath = "cnawatch.yaml"

// Default values applied when fields are absent from the config file.
const (
	DefaultRecordsDir     = "cve_data"
	DefaultOutputPath     = "web/anomaly_data.json"
	DefaultCNAListURL     = "https://raw.githubusercontent.com/CVEProject/cve-website/dev/src/assets/data/CNAsList.json"
	DefaultFetchTimeout   = 30 * time.Second
	DefaultMonitoringDays = 30
	DefaultBaselineMonths = 12
	DefaultRecentDays     = 14
	DefaultWatchInterval  = 6 * time.Hour
	DefaultMaxAnomalies   = 10
)

// Config holds everything one analysis run needs. Fields map 1:1 to
// cnawatch.yaml.
type Config struct {
	// RecordsDir is the root of the CVE record tree to analyze.
	RecordsDir string `yaml:"records_dir"`

	// OutputPath is where the report document is written, wholesale, each run.
	OutputPath string `yaml:"output_path"`

	// MetricsPath, when non-empty, receives a Prometheus textfile-collector
	// snapshot after each successful run.
	MetricsPath string `yaml:"metrics_path"`

	// CNAListURL is the official organization list endpoint. A failed
	// download degrades the run to short names only.
	CNAListURL string `yaml:"cna_list_url"`

	// FetchTimeout bounds the organization list download.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MonitoringWindowDays is the length of the recent window being evaluated.
	MonitoringWindowDays int `yaml:"monitoring_window_days"`

	// BaselineMonths is the length of the historical reference period,
	// modeled as 30-day months.
	BaselineMonths int `yaml:"baseline_months"`

	// RecentWindowDays sizes the auxiliary recent-activity sub-window.
	RecentWindowDays int `yaml:"recent_window_days"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Watch holds resident-mode settings, used with the -watch flag.
	Watch WatchConfig `yaml:"watch"`

	// Notify holds webhook delivery settings for anomaly summaries.
	Notify NotifyConfig `yaml:"notify"`
}

// WatchConfig controls the resident mode started by -watch.
type WatchConfig struct {
	// Interval is how often a resident process re-runs the full analysis,
	// in addition to re-running on config file changes.
	Interval time.Duration `yaml:"interval"`
}

// NotifyConfig controls anomaly webhook delivery.
type NotifyConfig struct {
	// MaxAnomalies caps how many top anomalies one summary message lists.
	MaxAnomalies int `yaml:"max_anomalies"`

	// Webhooks are the delivery targets. Empty disables notifications.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
// Returns empty string if URLEnv is unset or the variable is not found.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		RecordsDir:           DefaultRecordsDir,
		OutputPath:           DefaultOutputPath,
		CNAListURL:           DefaultCNAListURL,
		FetchTimeout:         DefaultFetchTimeout,
		MonitoringWindowDays: DefaultMonitoringDays,
		BaselineMonths:       DefaultBaselineMonths,
		RecentWindowDays:     DefaultRecentDays,
		LogLevel:             "info",
		Watch: WatchConfig{
			Interval: DefaultWatchInterval,
		},
		Notify: NotifyConfig{
			MaxAnomalies: DefaultMaxAnomalies,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.RecordsDir == "" {
		return fmt.Errorf("records_dir is required")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if cfg.CNAListURL == "" {
		return fmt.Errorf("cna_list_url is required")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if cfg.MonitoringWindowDays <= 0 {
		return fmt.Errorf("monitoring_window_days must be positive")
	}
	if cfg.BaselineMonths <= 0 {
		return fmt.Errorf("baseline_months must be positive")
	}
	if cfg.RecentWindowDays <= 0 {
		return fmt.Errorf("recent_window_days must be positive")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if cfg.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive")
	}
	if cfg.Notify.MaxAnomalies <= 0 {
		return fmt.Errorf("notify.max_anomalies must be positive")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}
