package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type ScrapeConfig struct {
	Sources               []string      `mapstructure:"sources"`
	Workers               int           `mapstructure:"workers"`
	QueueSize             int           `mapstructure:"queue_size"`
	AdapterTimeout        time.Duration `mapstructure:"adapter_timeout"`
	RunTimeout            time.Duration `mapstructure:"run_timeout"`
	LeaseTTL              time.Duration `mapstructure:"lease_ttl"`
	MaxPostings           int           `mapstructure:"max_postings"`
	ResultCacheTTL        time.Duration `mapstructure:"result_cache_ttl"`
	SiteRequestsPerSecond float64       `mapstructure:"site_requests_per_second"`
	HeadlessBrowser       bool          `mapstructure:"headless_browser"`
	PostingExpirationDays int           `mapstructure:"posting_expiration_days"`
}

func (config *ScrapeConfig) validate() error {
	var errs []error

	if len(config.Sources) == 0 {
		errs = append(errs, fmt.Errorf("at least one source is required"))
	}
	if config.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	if config.AdapterTimeout <= 0 || config.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}
	if config.LeaseTTL < config.RunTimeout {
		errs = append(errs, fmt.Errorf("lease_ttl (%v) must not be shorter than run_timeout (%v)",
			config.LeaseTTL, config.RunTimeout))
	}
	if config.MaxPostings <= 0 {
		errs = append(errs, fmt.Errorf("max_postings must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}
	return nil
}

func (config *ScrapeConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"scrape.headless_browser": "SCRAPE_HEADLESS_BROWSER",
		"scrape.max_postings":     "SCRAPE_MAX_POSTINGS",
		"scrape.lease_ttl":        "SCRAPE_LEASE_TTL",
	})
}
