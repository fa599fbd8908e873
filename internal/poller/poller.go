package poller

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/services"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateDone    State = "done"
	StateError   State = "error"
	StateTimeout State = "timeout"
)

const (
	ReasonAlreadyRunning = "already running"
	ReasonNeverStarted   = "scrape did not start"
	ReasonScrapeFailed   = "scrape failed"
	ReasonCancelled      = "cancelled"
)

type Client interface {
	StartScrape(ctx context.Context) error
	Status(ctx context.Context) (models.ScrapeStatus, error)
	RelevantJobs(ctx context.Context, limit int) ([]models.JobPosting, error)
}

type Options struct {
	Interval     time.Duration
	Timeout      time.Duration
	MaxIdle      int
	MaxErrors    int
	Refetches    int
	RefetchDelay time.Duration
	JobsLimit    int
}

func DefaultOptions() Options {
	return Options{
		Interval:     3 * time.Second,
		Timeout:      5 * time.Minute,
		MaxIdle:      3,
		MaxErrors:    3,
		Refetches:    3,
		RefetchDelay: 10 * time.Second,
		JobsLimit:    50,
	}
}

// Outcome is the single terminal result of a Run.
type Outcome struct {
	State    State
	Reason   string
	Status   models.ScrapeStatus
	Postings []models.JobPosting
}

// RefetchFunc observes postings re-fetched after the scrape finished, n starts at 1.
type RefetchFunc func(n int, postings []models.JobPosting)

// Poller triggers a scrape and follows its status until one terminal outcome.
// A Poller is used for a single Run.
type Poller struct {
	client    Client
	options   Options
	onRefetch RefetchFunc
	scheduler *Scheduler

	mu       sync.Mutex
	state    State
	finished *Outcome

	idleCount  int
	errorCount int

	once   sync.Once
	result chan Outcome
}

func NewPoller(client Client, options Options, onRefetch RefetchFunc) *Poller {
	defaults := DefaultOptions()
	if options.MaxIdle <= 0 {
		options.MaxIdle = defaults.MaxIdle
	}
	if options.MaxErrors <= 0 {
		options.MaxErrors = defaults.MaxErrors
	}
	if options.JobsLimit <= 0 {
		options.JobsLimit = defaults.JobsLimit
	}
	if onRefetch == nil {
		onRefetch = func(int, []models.JobPosting) {}
	}
	return &Poller{
		client:    client,
		options:   options,
		onRefetch: onRefetch,
		scheduler: NewScheduler(),
		state:     StateIdle,
		result:    make(chan Outcome, 1),
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending is the number of scheduled polls and re-fetches that have not fired yet.
func (p *Poller) Pending() int {
	return p.scheduler.Pending()
}

// Cancel stops every scheduled poll. A blocked Run returns with an error outcome.
func (p *Poller) Cancel() {
	p.finish(Outcome{State: StateError, Reason: ReasonCancelled})
}

func (p *Poller) Run(ctx context.Context) Outcome {
	if err := p.client.StartScrape(ctx); err != nil {
		if errors.Is(err, services.ErrScrapeAlreadyRunning) {
			p.finish(Outcome{State: StateError, Reason: ReasonAlreadyRunning})
		} else {
			p.finish(Outcome{State: StateError, Reason: fmt.Sprintf("start scrape: %v", err)})
		}
		return <-p.result
	}

	p.setState(StatePolling)
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.scheduler.After(p.options.Timeout, p.onTimeout)
	p.scheduler.After(p.options.Interval, func() { p.poll(pollCtx) })

	select {
	case out := <-p.result:
		return out
	case <-ctx.Done():
		p.finish(Outcome{State: StateError, Reason: ctx.Err().Error()})
		return <-p.result
	}
}

func (p *Poller) poll(ctx context.Context) {
	status, err := p.client.Status(ctx)
	if p.scheduler.Cancelled() {
		return
	}

	if err != nil {
		p.errorCount++
		log.Warnf("status request failed (%d/%d): %v", p.errorCount, p.options.MaxErrors, err)
		if p.errorCount >= p.options.MaxErrors {
			p.finish(Outcome{State: StateError, Reason: fmt.Sprintf("status unavailable: %v", err)})
			return
		}
		p.scheduleNextPoll(ctx)
		return
	}
	p.errorCount = 0

	switch status.State {
	case models.ScrapeIdle:
		p.idleCount++
		log.Debugf("scrape status idle (%d/%d)", p.idleCount, p.options.MaxIdle)
		if p.idleCount >= p.options.MaxIdle {
			p.finish(Outcome{State: StateError, Reason: ReasonNeverStarted, Status: status})
			return
		}
		p.scheduleNextPoll(ctx)
	case models.ScrapeProcessing:
		p.idleCount = 0
		p.scheduleNextPoll(ctx)
	case models.ScrapeFinished:
		out := Outcome{State: StateDone, Status: status, Postings: p.fetchPostings(ctx, nil)}
		if p.options.Refetches <= 0 {
			p.finish(out)
			return
		}
		p.mu.Lock()
		p.finished = &out
		p.mu.Unlock()
		p.scheduler.After(p.options.RefetchDelay, func() { p.refetch(ctx, 1) })
	case models.ScrapeFailed:
		p.finish(Outcome{
			State:    StateError,
			Reason:   ReasonScrapeFailed,
			Status:   status,
			Postings: p.fetchPostings(ctx, nil),
		})
	default:
		p.finish(Outcome{State: StateError, Reason: fmt.Sprintf("unknown scrape status %q", status.State)})
	}
}

func (p *Poller) refetch(ctx context.Context, n int) {
	p.mu.Lock()
	previous := p.finished.Postings
	p.mu.Unlock()

	postings := p.fetchPostings(ctx, previous)
	if p.scheduler.Cancelled() {
		return
	}
	p.onRefetch(n, postings)

	p.mu.Lock()
	p.finished.Postings = postings
	out := *p.finished
	p.mu.Unlock()

	if n >= p.options.Refetches {
		p.finish(out)
		return
	}
	p.scheduler.After(p.options.RefetchDelay, func() { p.refetch(ctx, n+1) })
}

// onTimeout ends the run. When the scrape already finished the done outcome is kept
// and only the remaining re-fetches are dropped.
func (p *Poller) onTimeout() {
	p.mu.Lock()
	var finished *Outcome
	if p.finished != nil {
		out := *p.finished
		finished = &out
	}
	p.mu.Unlock()

	if finished != nil {
		p.finish(*finished)
		return
	}
	p.finish(Outcome{State: StateTimeout, Reason: fmt.Sprintf("no result after %s", p.options.Timeout)})
}

func (p *Poller) scheduleNextPoll(ctx context.Context) {
	p.scheduler.After(p.options.Interval, func() { p.poll(ctx) })
}

func (p *Poller) fetchPostings(ctx context.Context, fallback []models.JobPosting) []models.JobPosting {
	postings, err := p.client.RelevantJobs(ctx, p.options.JobsLimit)
	if err != nil {
		log.Warnf("failed to fetch postings: %v", err)
		return fallback
	}
	return postings
}

func (p *Poller) finish(out Outcome) {
	p.once.Do(func() {
		p.scheduler.Cancel()
		if out.Postings != nil {
			out.Postings = append([]models.JobPosting(nil), out.Postings...)
		}
		p.setState(out.State)
		p.result <- out
	})
}

func (p *Poller) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}
