package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobscout/internal/domain/events"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/maxaizer/jobscout/internal/metrics"
	"github.com/maxaizer/jobscout/internal/scraping"
	log "github.com/sirupsen/logrus"
	"time"
)

const completionTimeout = 10 * time.Second

type statusRegister interface {
	Transition(ctx context.Context, userID string, from []models.ScrapeState, to models.ScrapeState) (bool, error)
	Complete(ctx context.Context, userID string, startedAt *time.Time, state models.ScrapeState,
		postingCount int, failedSources []string) (bool, error)
	Get(ctx context.Context, userID string) (models.ScrapeStatus, error)
	ExpireStale(ctx context.Context, olderThan time.Time, userIDs ...string) (int64, error)
}

type scrapeRunner interface {
	Run(ctx context.Context, userID string, params models.SearchParams) (scraping.Outcome, error)
}

type OrchestratorOptions struct {
	RunTimeout   time.Duration
	LeaseTTL     time.Duration
	MaxPerSource int
}

// ScrapeOrchestrator starts at most one scrape per user and records how it ended.
type ScrapeOrchestrator struct {
	statuses   statusRegister
	profiles   profileReader
	aggregator scrapeRunner
	pool       taskSubmitter
	bus        EventBus.Bus
	options    OrchestratorOptions
}

func NewScrapeOrchestrator(statuses statusRegister, profiles profileReader, aggregator scrapeRunner,
	pool taskSubmitter, bus EventBus.Bus, options OrchestratorOptions) *ScrapeOrchestrator {

	return &ScrapeOrchestrator{
		statuses:   statuses,
		profiles:   profiles,
		aggregator: aggregator,
		pool:       pool,
		bus:        bus,
		options:    options,
	}
}

// StartScrape accepts a run and returns immediately, or returns ErrScrapeAlreadyRunning
// when the user already has one in progress.
func (o *ScrapeOrchestrator) StartScrape(ctx context.Context, userID string) error {
	accepted, err := o.statuses.Transition(ctx, userID, models.RestartableStates, models.ScrapeProcessing)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to start scrape: %v", err)
		return err
	}

	if !accepted {
		accepted, err = o.takeOverExpiredLease(ctx, userID)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrScrapeAlreadyRunning
		}
	}

	status, err := o.statuses.Get(ctx, userID)
	if err != nil {
		o.complete(ctx, userID, nil, models.ScrapeFailed, 0, nil)
		return err
	}
	startedAt := status.StartedAt

	err = o.pool.Submit("scrape:"+userID, func(ctx context.Context) {
		o.run(ctx, userID, startedAt)
	})
	if err != nil {
		log.Warnf("can't schedule scrape of %s: %v", userID, err)
		o.complete(ctx, userID, startedAt, models.ScrapeFailed, 0, nil)
		return fmt.Errorf("failed to schedule scrape: %w", err)
	}

	log.WithField("user_id", userID).Info("scrape accepted")
	return nil
}

func (o *ScrapeOrchestrator) Status(ctx context.Context, userID string) (models.ScrapeStatus, error) {
	return o.statuses.Get(ctx, userID)
}

// takeOverExpiredLease fails a processing run older than the lease and starts a new one.
func (o *ScrapeOrchestrator) takeOverExpiredLease(ctx context.Context, userID string) (bool, error) {
	expired, err := o.statuses.ExpireStale(ctx, time.Now().Add(-o.options.LeaseTTL), userID)
	if err != nil {
		return false, err
	}
	if expired == 0 {
		return false, nil
	}

	log.WithField("user_id", userID).Warn("previous scrape exceeded its lease, marked as failed")
	return o.statuses.Transition(ctx, userID, models.RestartableStates, models.ScrapeProcessing)
}

func (o *ScrapeOrchestrator) run(ctx context.Context, userID string, startedAt *time.Time) {
	started := time.Now()
	state := models.ScrapeFailed
	var outcome scraping.Outcome

	defer func() {
		if r := recover(); r != nil {
			log.WithField("user_id", userID).Errorf("scrape panicked: %v", r)
			state = models.ScrapeFailed
		}

		recorded := o.complete(ctx, userID, startedAt, state, len(outcome.Postings), outcome.FailedSources)
		metrics.ScrapeRunDuration.WithLabelValues(string(state)).Observe(time.Since(started).Seconds())
		log.WithField("user_id", userID).Infof("scrape %s in %v with %d postings, failed sources: %v",
			state, time.Since(started), len(outcome.Postings), outcome.FailedSources)

		if recorded && state == models.ScrapeFinished {
			o.bus.Publish(events.ScrapeFinishedTopic, events.ScrapeFinished{
				UserID:     userID,
				PostingIDs: outcome.PostingIDs(),
			})
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, o.options.RunTimeout)
	defer cancel()

	profile, err := o.profiles.Get(runCtx, userID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load profile of %s: %v", userID, err)
		return
	}
	params := models.SearchParamsFrom(profile, o.options.MaxPerSource)

	outcome, err = o.aggregator.Run(runCtx, userID, params)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("scrape of %s failed: %v", userID, err)
		return
	}
	if outcome.Kind == scraping.AllFailed {
		log.WithField("user_id", userID).Warn("no source returned postings")
		return
	}
	state = models.ScrapeFinished
}

// complete records the terminal state even when the run context is already cancelled.
func (o *ScrapeOrchestrator) complete(ctx context.Context, userID string, startedAt *time.Time,
	state models.ScrapeState, count int, failedSources []string) bool {

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completionTimeout)
	defer cancel()

	recorded, err := o.statuses.Complete(ctx, userID, startedAt, state, count, failedSources)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to record %s for %s: %v", state, userID, err)
		return false
	}
	if !recorded {
		log.WithField("user_id", userID).Warnf("scrape result %s dropped, the run no longer owns the status", state)
	}
	return recorded
}
