package services

import (
	"context"
	"github.com/maxaizer/jobscout/internal/config"
	"github.com/maxaizer/jobscout/internal/domain/events"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/repositories"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
)

type testRepositories struct {
	dbContext *repositories.DbContext
	statuses  *repositories.ScrapeStatuses
	postings  *repositories.Postings
	profiles  *repositories.Profiles
}

func newTestRepositories(t *testing.T) testRepositories {
	t.Helper()
	dbContext, err := repositories.NewDbContext(config.DBConfig{
		Driver:           config.DriverSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })

	return testRepositories{
		dbContext: dbContext,
		statuses:  repositories.NewScrapeStatusesRepository(dbContext.DB),
		postings:  repositories.NewPostingsRepository(dbContext.DB),
		profiles:  repositories.NewProfilesRepository(dbContext.DB),
	}
}

type adapterStub struct {
	name     string
	postings []models.RawPosting
	err      error
	block    bool
	release  chan struct{}
	panics   bool
}

func (a *adapterStub) Name() string { return a.name }

func (a *adapterStub) Fetch(ctx context.Context, _ models.SearchParams) ([]models.RawPosting, error) {
	if a.panics {
		panic("broken adapter")
	}
	if a.release != nil {
		<-a.release
	}
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return a.postings, a.err
}

type scorerMock struct {
	mock.Mock
}

func (m *scorerMock) ScorePosting(_ context.Context, _ string, posting models.JobPosting,
	_ string) (models.AIAnalysis, error) {
	args := m.Called(posting.SourceURL)
	return args.Get(0).(models.AIAnalysis), args.Error(1)
}

type eventRecorder struct {
	mu       sync.Mutex
	received []events.ScrapeFinished
}

func (r *eventRecorder) record(event events.ScrapeFinished) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, event)
}

func (r *eventRecorder) list() []events.ScrapeFinished {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.ScrapeFinished(nil), r.received...)
}

func rawPosting(url, title string) models.RawPosting {
	return models.RawPosting{
		Title:       title,
		Company:     "Acme",
		SourceURL:   url,
		Description: "Design and operate Go services that scrape and score job postings at scale.",
	}
}
