package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobscout/internal/clients"
	"github.com/maxaizer/jobscout/internal/domain/events"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/maxaizer/jobscout/internal/metrics"
	"github.com/maxaizer/jobscout/internal/workers"
	log "github.com/sirupsen/logrus"
	"math/rand/v2"
	"time"
)

// PostingScorer produces an analysis of one posting for a candidate profile.
type PostingScorer interface {
	ScorePosting(ctx context.Context, profileText string, posting models.JobPosting, description string) (models.AIAnalysis, error)
}

type postingDescriber interface {
	Describe(ctx context.Context, posting models.JobPosting) string
}

type scoringPostings interface {
	GetByIDs(ctx context.Context, userID string, ids []string) ([]models.JobPosting, error)
	ListUnscored(ctx context.Context, userID string) ([]models.JobPosting, error)
	SetAnalysis(ctx context.Context, postingID string, analysis models.AIAnalysis) error
}

type profileReader interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
}

type taskSubmitter interface {
	Submit(name string, task workers.Task) error
}

type ScoringOptions struct {
	ItemTimeout    time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

type ScoringReport struct {
	Scored int
	Failed int
}

// ScoringDispatcher scores postings after a finished scrape and on request.
// A posting whose scoring fails stays unscored and never affects the others.
type ScoringDispatcher struct {
	ctx       context.Context
	scorer    PostingScorer
	describer postingDescriber
	postings  scoringPostings
	profiles  profileReader
	pool      taskSubmitter
	options   ScoringOptions
}

// NewScoringDispatcher subscribes to finished scrapes. A nil scorer disables scoring.
// ctx bounds the background work started from events.
func NewScoringDispatcher(ctx context.Context, bus EventBus.Bus, scorer PostingScorer, describer postingDescriber,
	postings scoringPostings, profiles profileReader, pool taskSubmitter, options ScoringOptions) (*ScoringDispatcher, error) {

	if options.MaxAttempts < 1 {
		options.MaxAttempts = 1
	}
	d := &ScoringDispatcher{
		ctx:       ctx,
		scorer:    scorer,
		describer: describer,
		postings:  postings,
		profiles:  profiles,
		pool:      pool,
		options:   options,
	}

	err := bus.SubscribeAsync(events.ScrapeFinishedTopic, d.onScrapeFinished, false)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", events.ScrapeFinishedTopic, err)
	}
	return d, nil
}

func (d *ScoringDispatcher) Available() bool {
	return d.scorer != nil
}

func (d *ScoringDispatcher) onScrapeFinished(event events.ScrapeFinished) {
	if !d.Available() {
		log.Debugf("scoring is not configured, skipping %d postings of %s", len(event.PostingIDs), event.UserID)
		return
	}
	report, err := d.Dispatch(d.ctx, event.UserID, event.PostingIDs)
	if err != nil {
		log.Errorf("scoring after scrape of %s failed: %v", event.UserID, err)
		return
	}
	log.Infof("scored postings of %s: %d ok, %d failed", event.UserID, report.Scored, report.Failed)
}

// StartUnscored schedules scoring of all unscored postings of the user on the worker pool.
func (d *ScoringDispatcher) StartUnscored(userID string) error {
	if !d.Available() {
		return ErrScorerNotConfigured
	}
	return d.pool.Submit("score:"+userID, func(ctx context.Context) {
		report, err := d.DispatchUnscored(ctx, userID)
		if err != nil {
			log.Errorf("scoring of %s failed: %v", userID, err)
			return
		}
		log.Infof("scored unscored postings of %s: %d ok, %d failed", userID, report.Scored, report.Failed)
	})
}

// Dispatch scores the given postings that have no analysis yet.
func (d *ScoringDispatcher) Dispatch(ctx context.Context, userID string, postingIDs []string) (ScoringReport, error) {
	if !d.Available() {
		return ScoringReport{}, ErrScorerNotConfigured
	}
	postings, err := d.postings.GetByIDs(ctx, userID, postingIDs)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load postings: %v", err)
		return ScoringReport{}, err
	}

	unscored := make([]models.JobPosting, 0, len(postings))
	for _, posting := range postings {
		if posting.AIAnalysis == nil {
			unscored = append(unscored, posting)
		}
	}
	return d.score(ctx, userID, unscored)
}

// DispatchUnscored scores every posting of the user that has no analysis.
func (d *ScoringDispatcher) DispatchUnscored(ctx context.Context, userID string) (ScoringReport, error) {
	if !d.Available() {
		return ScoringReport{}, ErrScorerNotConfigured
	}
	postings, err := d.postings.ListUnscored(ctx, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load unscored postings: %v", err)
		return ScoringReport{}, err
	}
	return d.score(ctx, userID, postings)
}

func (d *ScoringDispatcher) score(ctx context.Context, userID string, postings []models.JobPosting) (ScoringReport, error) {
	var report ScoringReport
	if len(postings) == 0 {
		return report, nil
	}

	profile, err := d.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load profile of %s: %v", userID, err)
		return report, err
	}
	profileText := BuildProfileText(profile)

	for _, posting := range postings {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := d.scoreOne(ctx, profileText, posting); err != nil {
			if errors.Is(err, ErrScorerNotConfigured) {
				return report, err
			}
			report.Failed++
			continue
		}
		report.Scored++
	}
	return report, nil
}

func (d *ScoringDispatcher) scoreOne(ctx context.Context, profileText string, posting models.JobPosting) error {
	started := time.Now()
	defer func() { metrics.ScoringDuration.Observe(time.Since(started).Seconds()) }()

	description := posting.Description
	if d.describer != nil {
		describeCtx, cancel := context.WithTimeout(ctx, d.options.ItemTimeout)
		description = d.describer.Describe(describeCtx, posting)
		cancel()
	}

	var analysis models.AIAnalysis
	err := d.retry(ctx, posting.ID, func(ctx context.Context) error {
		itemCtx, cancel := context.WithTimeout(ctx, d.options.ItemTimeout)
		defer cancel()

		var err error
		analysis, err = d.scorer.ScorePosting(itemCtx, profileText, posting, description)
		return err
	})
	if err != nil {
		metrics.ScoredPostingsCounter.WithLabelValues("failed").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
			Errorf("failed to score posting %s: %v", posting.SourceURL, err)
		return err
	}

	if err = d.postings.SetAnalysis(ctx, posting.ID, analysis); err != nil {
		metrics.ScoredPostingsCounter.WithLabelValues("failed").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to save analysis of %s: %v", posting.ID, err)
		return err
	}
	metrics.ScoredPostingsCounter.WithLabelValues("scored").Inc()
	return nil
}

func (d *ScoringDispatcher) retry(ctx context.Context, postingID string, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= d.options.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil || !isRetryable(ctx, err) || attempt == d.options.MaxAttempts {
			return err
		}

		delay := backoffDelay(d.options.RetryBaseDelay, attempt)
		log.Warnf("scoring of %s failed (attempt %d/%d), retrying in %v: %v",
			postingID, attempt, d.options.MaxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// backoffDelay doubles the base delay per attempt with ±30% jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<(attempt-1))
	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrScorerNotConfigured) || errors.Is(err, clients.ErrRejected) {
		return false
	}
	return true
}
