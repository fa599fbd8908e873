package config

import (
	"github.com/spf13/viper"
	"time"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.log_level", LevelInfo)
	v.SetDefault("logger.app_name", "jobscout")
	v.SetDefault("logger.output_file", "jobscout.log")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.token_ttl", 24*time.Hour)

	v.SetDefault("db.driver", DriverSQLite)

	v.SetDefault("scrape.workers", 4)
	v.SetDefault("scrape.queue_size", 64)
	v.SetDefault("scrape.adapter_timeout", 2*time.Minute)
	v.SetDefault("scrape.run_timeout", 10*time.Minute)
	v.SetDefault("scrape.lease_ttl", 30*time.Minute)
	v.SetDefault("scrape.max_postings", 15)
	v.SetDefault("scrape.result_cache_ttl", 10*time.Minute)
	v.SetDefault("scrape.site_requests_per_second", 1.0)
	v.SetDefault("scrape.posting_expiration_days", 30)
	v.SetDefault("scrape.sources", []string{"indeed", "ziprecruiter", "glassdoor", "linkedin"})

	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.item_timeout", 90*time.Second)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.retry_base_delay", 2*time.Second)
	v.SetDefault("ai.max_requests_per_minute", 15)
	v.SetDefault("ai.max_requests_per_day", 1500)
}
