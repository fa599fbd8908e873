package api

import (
	"bytes"
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func fileResponse(t *testing.T, status int, name string) *http.Response {
	t.Helper()
	file, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBuffer(file))}
}

func bodyResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(body))}
}

func Test_Client_Status_ShouldDecodeRunDetails(t *testing.T) {
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet &&
			req.URL.String() == "http://localhost:8000/data/scrape-status" &&
			req.Header.Get("Authorization") == "Bearer token"
	})).Return(fileResponse(t, http.StatusOK, "scrape_status.json"), nil)

	client := NewClient("http://localhost:8000/", "token")
	client.SetHTTPClient(mockClient)

	status, err := client.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.ScrapeFinished, status.State)
	assert.Equal(t, 2, status.PostingCount)
	assert.Equal(t, "glassdoor", status.FailedSources)
	require.NotNil(t, status.FinishedAt)
	assert.Equal(t, 2026, status.FinishedAt.Year())
}

func Test_Client_RelevantJobs_ShouldPassLimitAndDecodePostings(t *testing.T) {
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "http://localhost:8000/data/relevant-jobs?limit=20"
	})).Return(fileResponse(t, http.StatusOK, "relevant_jobs.json"), nil)

	client := NewClient("http://localhost:8000", "token")
	client.SetHTTPClient(mockClient)

	jobs, err := client.RelevantJobs(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Backend Go Developer", jobs[0].Title)
	require.NotNil(t, jobs[0].AIAnalysis)
	require.NotNil(t, jobs[0].AIAnalysis.MatchScore)
	assert.Equal(t, 82, *jobs[0].AIAnalysis.MatchScore)
	assert.Nil(t, jobs[1].AIAnalysis)
	require.NotNil(t, jobs[1].Status)
	assert.Equal(t, models.TrackingSaved, *jobs[1].Status)
}

func Test_Client_StartScrape_WhenConflict_ShouldReturnAlreadyRunning(t *testing.T) {
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(bodyResponse(http.StatusConflict,
		`{"error":{"code":"already_running","message":"a scrape is already running"}}`), nil)

	client := NewClient("http://localhost:8000", "token")
	client.SetHTTPClient(mockClient)

	err := client.StartScrape(context.Background())

	assert.ErrorIs(t, err, services.ErrScrapeAlreadyRunning)
}

func Test_Client_WhenServerRejects_ShouldReturnStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"invalid or expired token"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "expired").Status(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "unauthorized", statusErr.Code)
}

func Test_Client_StartScrape_WhenAccepted_ShouldPostWithToken(t *testing.T) {
	var gotMethod, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "token").StartScrape(context.Background())

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer token", gotAuth)
}
