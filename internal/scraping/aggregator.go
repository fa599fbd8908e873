package scraping

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/maxaizer/jobscout/internal/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"time"
)

type OutcomeKind string

const (
	AllFailed            OutcomeKind = "all_failed"
	PartialOrFullSuccess OutcomeKind = "partial_or_full_success"
)

type Outcome struct {
	Kind          OutcomeKind
	Postings      []models.JobPosting
	FailedSources []string
}

func (o Outcome) PostingIDs() []string {
	ids := make([]string, 0, len(o.Postings))
	for _, posting := range o.Postings {
		ids = append(ids, posting.ID)
	}
	return ids
}

type postingStore interface {
	Upsert(ctx context.Context, postings []models.JobPosting) ([]models.JobPosting, error)
}

type Aggregator struct {
	adapters       []Adapter
	postings       postingStore
	adapterTimeout time.Duration
	maxPostings    int
}

func NewAggregator(adapters []Adapter, postings postingStore, adapterTimeout time.Duration, maxPostings int) *Aggregator {
	return &Aggregator{
		adapters:       adapters,
		postings:       postings,
		adapterTimeout: adapterTimeout,
		maxPostings:    maxPostings,
	}
}

// Run queries every adapter in parallel, merges what succeeded and persists it.
// The returned error is set only when persisting failed.
func (a *Aggregator) Run(ctx context.Context, userID string, params models.SearchParams) (Outcome, error) {
	results := a.fetchAll(ctx, params)

	var failed []string
	merged := newMerger()
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result.Source)
			continue
		}
		for _, raw := range result.Postings {
			merged.add(raw.ToPosting(userID, result.Source))
		}
	}

	postings := merged.list(a.maxPostings)
	if len(postings) == 0 {
		return Outcome{Kind: AllFailed, Postings: []models.JobPosting{}, FailedSources: failed}, nil
	}

	saved, err := a.postings.Upsert(ctx, postings)
	if err != nil {
		return Outcome{Kind: AllFailed, FailedSources: failed}, errors.Wrap(err, "persisting postings")
	}
	metrics.ScrapedPostingsCounter.Add(float64(len(saved)))

	return Outcome{Kind: PartialOrFullSuccess, Postings: saved, FailedSources: failed}, nil
}

// fetchAll returns one result per adapter in configuration order.
func (a *Aggregator) fetchAll(ctx context.Context, params models.SearchParams) []AdapterResult {
	results := make([]AdapterResult, len(a.adapters))
	var g errgroup.Group

	for i, adapter := range a.adapters {
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, adapter, params)
			// never fail the group, siblings must keep running
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, adapter Adapter, params models.SearchParams) (result AdapterResult) {
	result.Source = adapter.Name()
	started := time.Now()

	defer func() {
		metrics.AdapterDuration.WithLabelValues(result.Source).Observe(time.Since(started).Seconds())
		if result.Err != nil {
			metrics.AdapterFailuresCounter.WithLabelValues(result.Source).Inc()
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeScraper).
				WithField("source", result.Source).
				Errorf("source failed: %v", result.Err)
		} else {
			log.Infof("[%s] fetched %d postings in %v", result.Source, len(result.Postings), time.Since(started))
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.adapterTimeout)
	defer cancel()

	type fetched struct {
		postings []models.RawPosting
		err      error
	}
	// buffered so an adapter that ignores its context can still finish and exit
	done := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetched{err: errors.Errorf("adapter panicked: %v", r)}
			}
		}()
		postings, err := adapter.Fetch(fetchCtx, params)
		done <- fetched{postings: postings, err: err}
	}()

	var out fetched
	select {
	case out = <-done:
		if out.err == nil && fetchCtx.Err() != nil {
			out.err = fetchCtx.Err()
		}
	case <-fetchCtx.Done():
		out.err = fetchCtx.Err()
	}

	if out.err != nil {
		result.Err = errors.Wrap(out.err, result.Source)
		return result
	}
	result.Postings = out.postings
	return result
}

// merger deduplicates by source url. A later duplicate overwrites the descriptive
// fields but keeps the position of the first one.
type merger struct {
	index    map[string]int
	postings []models.JobPosting
}

func newMerger() *merger {
	return &merger{index: map[string]int{}}
}

func (m *merger) add(posting models.JobPosting) {
	if posting.SourceURL == "" {
		return
	}
	if i, ok := m.index[posting.SourceURL]; ok {
		m.postings[i] = posting
		return
	}
	m.index[posting.SourceURL] = len(m.postings)
	m.postings = append(m.postings, posting)
}

func (m *merger) list(limit int) []models.JobPosting {
	if limit > 0 && len(m.postings) > limit {
		return m.postings[:limit]
	}
	return m.postings
}
