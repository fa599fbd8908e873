package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobscout/internal/clients/claude"
	"github.com/maxaizer/jobscout/internal/clients/gemini"
	"github.com/maxaizer/jobscout/internal/config"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/maxaizer/jobscout/internal/metrics"
	"github.com/maxaizer/jobscout/internal/repositories"
	"github.com/maxaizer/jobscout/internal/scraping"
	"github.com/maxaizer/jobscout/internal/server"
	"github.com/maxaizer/jobscout/internal/services"
	"github.com/maxaizer/jobscout/internal/workers"
	log "github.com/sirupsen/logrus"
	"os/signal"
	"syscall"
	"time"
)

const (
	profileCacheTTL = 5 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// newScorer returns nil when no AI key is configured, scoring is then reported as unavailable.
func newScorer(ctx context.Context, cfg config.AIConfig) (services.PostingScorer, func()) {
	if !cfg.Enabled() {
		log.Warn("AI key is not set, scoring is disabled")
		return nil, func() {}
	}

	switch cfg.Provider {
	case config.ProviderClaude:
		client := claude.NewClient(cfg.Key, cfg.Model)
		client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
		return services.NewAIService(client), func() {}
	default:
		model := gemini.Model15Flash
		if cfg.Model != "" {
			model = gemini.Model(cfg.Model)
		}
		client, err := gemini.NewClient(ctx, cfg.Key, model)
		if err != nil {
			log.Fatalf("can't create AI client: %v", err)
		}
		client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
		client.SetDayRateLimit(cfg.MaxRequestsPerDay)
		return services.NewAIService(client), func() { _ = client.Close() }
	}
}

func newAggregator(cfg config.ScrapeConfig, postings *repositories.Postings) *scraping.Aggregator {
	limiter := scraping.NewHostLimiter(cfg.SiteRequestsPerSecond, 1)

	var loader scraping.PageLoader = scraping.NewHTTPLoader(limiter)
	if cfg.HeadlessBrowser {
		loader = scraping.NewBrowserLoader(limiter)
	}

	adapters, err := scraping.NewAdapters(cfg.Sources, loader)
	if err != nil {
		log.Fatalf("can't create source adapters: %v", err)
	}
	if cfg.ResultCacheTTL > 0 {
		adapters = scraping.WithCache(adapters, cfg.ResultCacheTTL)
	}
	return scraping.NewAggregator(adapters, postings, cfg.AdapterTimeout, cfg.MaxPostings)
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.Register()

	dbContext, err := repositories.NewDbContext(cfg.DB)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	statuses := repositories.NewScrapeStatusesRepository(dbContext.DB)
	postings := repositories.NewPostingsRepository(dbContext.DB)
	profiles := repositories.NewCachedProfiles(repositories.NewProfilesRepository(dbContext.DB), profileCacheTTL)

	// closed after the pool is stopped, scoring tasks may still be running until then
	scorer, closeScorer := newScorer(ctx, cfg.AI)
	defer closeScorer()

	pool := workers.NewPool(cfg.Scrape.Workers, cfg.Scrape.QueueSize)
	pool.Start()
	defer pool.Stop()

	bus := EventBus.New()

	// descriptions are always fetched over plain http, the browser is only needed for listings
	enricher := scraping.NewEnricher(scraping.NewHTTPLoader(scraping.NewHostLimiter(cfg.Scrape.SiteRequestsPerSecond, 1)))

	dispatcher, err := services.NewScoringDispatcher(ctx, bus, scorer, enricher, postings, profiles, pool,
		services.ScoringOptions{
			ItemTimeout:    cfg.AI.ItemTimeout,
			MaxAttempts:    cfg.AI.MaxAttempts,
			RetryBaseDelay: cfg.AI.RetryBaseDelay,
		})
	if err != nil {
		log.Fatalf("can't create scoring dispatcher: %v", err)
	}

	orchestrator := services.NewScrapeOrchestrator(statuses, profiles, newAggregator(cfg.Scrape, postings), pool, bus,
		services.OrchestratorOptions{
			RunTimeout:   cfg.Scrape.RunTimeout,
			LeaseTTL:     cfg.Scrape.LeaseTTL,
			MaxPerSource: cfg.Scrape.MaxPostings,
		})

	maintenance, err := services.NewMaintenance(statuses, postings, cfg.Scrape.LeaseTTL, cfg.Scrape.PostingExpirationDays)
	if err != nil {
		log.Fatalf("can't create maintenance: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	httpServer := server.NewServer(cfg.Server, server.Dependencies{
		Scrapes:  orchestrator,
		Scoring:  dispatcher,
		Resumes:  services.NewResumeService(profiles),
		Profiles: profiles,
		Postings: postings,
		Tokens:   server.NewTokenService(cfg.Server.JWTSecret, cfg.Server.TokenTTL),
	})
	go func() {
		if err := httpServer.Run(); err != nil {
			log.Errorf("%v", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")
	if err := httpServer.Shutdown(shutdownTimeout); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}
	bus.WaitAsync()
	log.Info("Services stopped.")
}
