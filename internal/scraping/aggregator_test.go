package scraping

import (
	"context"
	"errors"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type fakeAdapter struct {
	name     string
	postings []models.RawPosting
	err      error
	block    bool
	sleep    time.Duration
	panics   bool
	calls    int
	mu       sync.Mutex
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, _ models.SearchParams) ([]models.RawPosting, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("selector changed")
	}
	if f.sleep > 0 {
		time.Sleep(f.sleep)
		return f.postings, f.err
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.postings, f.err
}

type memoryStore struct {
	saved []models.JobPosting
	err   error
}

func (m *memoryStore) Upsert(_ context.Context, postings []models.JobPosting) ([]models.JobPosting, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.saved = append(m.saved, postings...)
	return postings, nil
}

func raw(url, title string) models.RawPosting {
	return models.RawPosting{Title: title, Company: "Acme", SourceURL: url}
}

var params = models.SearchParams{Role: "engineer", Location: "remote", MaxPerSource: 15}

func Test_Aggregator_WhenSomeSourcesTimeOut_ShouldKeepTheRest(t *testing.T) {
	store := &memoryStore{}
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "slow1", block: true},
		&fakeAdapter{name: "ok", postings: []models.RawPosting{raw("https://a/1", "one"), raw("https://a/2", "two")}},
		&fakeAdapter{name: "slow2", block: true},
	}, store, 50*time.Millisecond, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Equal(t, PartialOrFullSuccess, outcome.Kind)
	assert.Len(t, outcome.Postings, 2)
	assert.Equal(t, []string{"slow1", "slow2"}, outcome.FailedSources)
	assert.Len(t, store.saved, 2)
	assert.Equal(t, "ok", store.saved[0].Source)
	assert.Equal(t, models.PostingID("user", "https://a/1"), outcome.PostingIDs()[0])
}

func Test_Aggregator_WhenSourceIgnoresContext_ShouldNotWaitForIt(t *testing.T) {
	store := &memoryStore{}
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "ok", postings: []models.RawPosting{raw("https://a/1", "one")}},
		&fakeAdapter{name: "stuck", sleep: 3 * time.Second, postings: []models.RawPosting{raw("https://b/1", "late")}},
	}, store, 100*time.Millisecond, 15)

	started := time.Now()
	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, PartialOrFullSuccess, outcome.Kind)
	assert.Equal(t, []string{"stuck"}, outcome.FailedSources)
	assert.Len(t, store.saved, 1)
}

func Test_Aggregator_WhenSourcePanics_ShouldTreatItAsFailed(t *testing.T) {
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "broken", panics: true},
		&fakeAdapter{name: "ok", postings: []models.RawPosting{raw("https://a/1", "one")}},
	}, &memoryStore{}, time.Second, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Equal(t, PartialOrFullSuccess, outcome.Kind)
	assert.Equal(t, []string{"broken"}, outcome.FailedSources)
}

func Test_Aggregator_WhenAllSourcesFail_ShouldPersistNothing(t *testing.T) {
	store := &memoryStore{}
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "a", err: errors.New("blocked")},
		&fakeAdapter{name: "b", block: true},
		&fakeAdapter{name: "c", err: errors.New("captcha")},
	}, store, 20*time.Millisecond, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Equal(t, AllFailed, outcome.Kind)
	assert.Empty(t, outcome.Postings)
	assert.Equal(t, []string{"a", "b", "c"}, outcome.FailedSources)
	assert.Empty(t, store.saved)
}

func Test_Aggregator_WhenSourcesReturnNothing_ShouldBeAllFailed(t *testing.T) {
	aggregator := NewAggregator([]Adapter{&fakeAdapter{name: "empty"}}, &memoryStore{}, time.Second, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Equal(t, AllFailed, outcome.Kind)
	assert.Empty(t, outcome.FailedSources)
}

func Test_Aggregator_ShouldDedupKeepingFirstPositionAndLastValues(t *testing.T) {
	store := &memoryStore{}
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "first", postings: []models.RawPosting{raw("https://a/1", "old"), raw("https://a/2", "two")}},
		&fakeAdapter{name: "second", postings: []models.RawPosting{raw("https://a/3", "three"), raw("https://a/1", "new")}},
	}, store, time.Second, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	require.Len(t, outcome.Postings, 3)
	assert.Equal(t, "https://a/1", outcome.Postings[0].SourceURL)
	assert.Equal(t, "new", outcome.Postings[0].Title)
	assert.Equal(t, "second", outcome.Postings[0].Source)
	assert.Equal(t, "https://a/2", outcome.Postings[1].SourceURL)
	assert.Equal(t, "https://a/3", outcome.Postings[2].SourceURL)
}

func Test_Aggregator_ShouldCapPostings(t *testing.T) {
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "a", postings: []models.RawPosting{raw("https://a/1", "1"), raw("https://a/2", "2"), raw("https://a/3", "3")}},
	}, &memoryStore{}, time.Second, 2)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	require.NoError(t, err)
	assert.Len(t, outcome.Postings, 2)
}

func Test_Aggregator_WhenStoreFails_ShouldReturnError(t *testing.T) {
	aggregator := NewAggregator([]Adapter{
		&fakeAdapter{name: "a", postings: []models.RawPosting{raw("https://a/1", "1")}},
	}, &memoryStore{err: errors.New("disk full")}, time.Second, 15)

	outcome, err := aggregator.Run(context.Background(), "user", params)

	assert.Error(t, err)
	assert.Equal(t, AllFailed, outcome.Kind)
}

func Test_CachedAdapter_ShouldServeRepeatedQueriesFromCache(t *testing.T) {
	inner := &fakeAdapter{name: "a", postings: []models.RawPosting{raw("https://a/1", "1")}}
	cached := NewCachedAdapter(inner, time.Minute)

	first, err := cached.Fetch(context.Background(), params)
	require.NoError(t, err)
	second, err := cached.Fetch(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func Test_CachedAdapter_ShouldNotCacheFailures(t *testing.T) {
	inner := &fakeAdapter{name: "a", err: errors.New("blocked")}
	cached := NewCachedAdapter(inner, time.Minute)

	_, _ = cached.Fetch(context.Background(), params)
	_, _ = cached.Fetch(context.Background(), params)

	assert.Equal(t, 2, inner.calls)
}
