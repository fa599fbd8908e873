package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobscout/internal/clients"
	"github.com/maxaizer/jobscout/internal/domain/events"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

var scoringOptions = ScoringOptions{ItemTimeout: time.Second, MaxAttempts: 3, RetryBaseDelay: time.Millisecond}

func seedPostings(t *testing.T, repos testRepositories, urls ...string) []models.JobPosting {
	t.Helper()
	postings := make([]models.JobPosting, 0, len(urls))
	for _, url := range urls {
		postings = append(postings, rawPosting(url, url).ToPosting("user", "indeed"))
	}
	saved, err := repos.postings.Upsert(context.Background(), postings)
	require.NoError(t, err)
	return saved
}

func score(value int) models.AIAnalysis {
	return models.AIAnalysis{MatchScore: &value, FitReason: "fits"}
}

func analysisByURL(t *testing.T, repos testRepositories) map[string]*models.AIAnalysis {
	t.Helper()
	postings, err := repos.postings.ListByUser(context.Background(), "user", 100)
	require.NoError(t, err)
	result := map[string]*models.AIAnalysis{}
	for _, posting := range postings {
		result[posting.SourceURL] = posting.AIAnalysis
	}
	return result
}

func Test_Dispatcher_WhenOneItemFails_ShouldScoreTheOthers(t *testing.T) {
	repos := newTestRepositories(t)
	seedPostings(t, repos, "https://a/1", "https://a/2", "https://a/3")

	scorer := &scorerMock{}
	scorer.On("ScorePosting", "https://a/1").Return(score(90), nil)
	scorer.On("ScorePosting", "https://a/2").Return(models.AIAnalysis{}, errors.New("upstream 503"))
	scorer.On("ScorePosting", "https://a/3").Return(score(40), nil)

	dispatcher, err := NewScoringDispatcher(context.Background(), EventBus.New(), scorer, nil,
		repos.postings, repos.profiles, nil, scoringOptions)
	require.NoError(t, err)

	report, err := dispatcher.DispatchUnscored(context.Background(), "user")

	require.NoError(t, err)
	assert.Equal(t, ScoringReport{Scored: 2, Failed: 1}, report)
	scorer.AssertNumberOfCalls(t, "ScorePosting", 5)

	analyses := analysisByURL(t, repos)
	require.NotNil(t, analyses["https://a/1"])
	assert.Equal(t, 90, *analyses["https://a/1"].MatchScore)
	assert.Nil(t, analyses["https://a/2"])
	require.NotNil(t, analyses["https://a/3"])
	assert.Equal(t, 40, *analyses["https://a/3"].MatchScore)
}

func Test_Dispatcher_WhenRequestRejected_ShouldNotRetry(t *testing.T) {
	repos := newTestRepositories(t)
	seedPostings(t, repos, "https://a/1")

	scorer := &scorerMock{}
	scorer.On("ScorePosting", "https://a/1").
		Return(models.AIAnalysis{}, fmt.Errorf("%w: invalid key", clients.ErrRejected))

	dispatcher, err := NewScoringDispatcher(context.Background(), EventBus.New(), scorer, nil,
		repos.postings, repos.profiles, nil, scoringOptions)
	require.NoError(t, err)

	report, err := dispatcher.DispatchUnscored(context.Background(), "user")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	scorer.AssertNumberOfCalls(t, "ScorePosting", 1)
}

func Test_Dispatcher_WhenNotConfigured_ShouldRefuse(t *testing.T) {
	repos := newTestRepositories(t)
	dispatcher, err := NewScoringDispatcher(context.Background(), EventBus.New(), nil, nil,
		repos.postings, repos.profiles, workers.NewPool(1, 1), scoringOptions)
	require.NoError(t, err)

	assert.False(t, dispatcher.Available())
	_, err = dispatcher.DispatchUnscored(context.Background(), "user")
	assert.ErrorIs(t, err, ErrScorerNotConfigured)
	assert.ErrorIs(t, dispatcher.StartUnscored("user"), ErrScorerNotConfigured)
}

func Test_Dispatcher_Dispatch_ShouldSkipAlreadyScored(t *testing.T) {
	repos := newTestRepositories(t)
	saved := seedPostings(t, repos, "https://a/1", "https://a/2")
	require.NoError(t, repos.postings.SetAnalysis(context.Background(), saved[0].ID, score(10)))

	scorer := &scorerMock{}
	scorer.On("ScorePosting", "https://a/2").Return(score(70), nil)

	dispatcher, err := NewScoringDispatcher(context.Background(), EventBus.New(), scorer, nil,
		repos.postings, repos.profiles, nil, scoringOptions)
	require.NoError(t, err)

	report, err := dispatcher.Dispatch(context.Background(), "user", []string{saved[0].ID, saved[1].ID})

	require.NoError(t, err)
	assert.Equal(t, ScoringReport{Scored: 1}, report)
	scorer.AssertNotCalled(t, "ScorePosting", "https://a/1")
	assert.Equal(t, 10, *analysisByURL(t, repos)["https://a/1"].MatchScore)
}

func Test_Dispatcher_ShouldScoreAfterScrapeFinishedEvent(t *testing.T) {
	repos := newTestRepositories(t)
	saved := seedPostings(t, repos, "https://a/1")

	scorer := &scorerMock{}
	scorer.On("ScorePosting", mock.Anything).Return(score(55), nil)

	bus := EventBus.New()
	_, err := NewScoringDispatcher(context.Background(), bus, scorer, nil,
		repos.postings, repos.profiles, nil, scoringOptions)
	require.NoError(t, err)

	bus.Publish(events.ScrapeFinishedTopic, events.ScrapeFinished{UserID: "user", PostingIDs: []string{saved[0].ID}})
	bus.WaitAsync()

	analysis := analysisByURL(t, repos)["https://a/1"]
	require.NotNil(t, analysis)
	assert.Equal(t, 55, *analysis.MatchScore)
}

func Test_Dispatcher_StartUnscored_ShouldRunOnPool(t *testing.T) {
	repos := newTestRepositories(t)
	seedPostings(t, repos, "https://a/1")

	scorer := &scorerMock{}
	scorer.On("ScorePosting", "https://a/1").Return(score(60), nil)

	pool := workers.NewPool(1, 4)
	pool.Start()
	defer pool.Stop()

	dispatcher, err := NewScoringDispatcher(context.Background(), EventBus.New(), scorer, nil,
		repos.postings, repos.profiles, pool, scoringOptions)
	require.NoError(t, err)

	require.NoError(t, dispatcher.StartUnscored("user"))

	require.Eventually(t, func() bool {
		return analysisByURL(t, repos)["https://a/1"] != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_BackoffDelay_ShouldGrowWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 4; attempt++ {
		expected := float64(100*time.Millisecond) * float64(int(1)<<(attempt-1))
		delay := float64(backoffDelay(100*time.Millisecond, attempt))
		assert.GreaterOrEqual(t, delay, expected*0.7)
		assert.LessOrEqual(t, delay, expected*1.3)
	}
}
