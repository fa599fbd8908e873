package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/services"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for any non-2xx answer that has no dedicated sentinel.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request failed with status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type statusResponse struct {
	Status        models.ScrapeState `json:"status"`
	StartedAt     *time.Time         `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at"`
	PostingCount  int                `json:"posting_count"`
	FailedSources []string           `json:"failed_sources"`
}

type jobsResponse struct {
	Data []models.JobPosting `json:"data"`
}

// Client talks to the jobscout HTTP API on behalf of one user.
type Client struct {
	baseURL     string
	token       string
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

// StartScrape returns services.ErrScrapeAlreadyRunning when the server answers 409.
func (c *Client) StartScrape(ctx context.Context) error {
	_, err := c.sendRequest(ctx, http.MethodPost, "/data/scrape-my-jobs", nil)
	return err
}

func (c *Client) Status(ctx context.Context) (models.ScrapeStatus, error) {
	body, err := c.sendRequest(ctx, http.MethodGet, "/data/scrape-status", nil)
	if err != nil {
		return models.ScrapeStatus{}, err
	}

	var response statusResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return models.ScrapeStatus{}, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return models.ScrapeStatus{
		State:         response.Status,
		StartedAt:     response.StartedAt,
		FinishedAt:    response.FinishedAt,
		PostingCount:  response.PostingCount,
		FailedSources: models.JoinList(response.FailedSources),
	}, nil
}

func (c *Client) RelevantJobs(ctx context.Context, limit int) ([]models.JobPosting, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/data/relevant-jobs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var response jobsResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}
	return response.Data, nil
}

func (c *Client) sendRequest(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, services.ErrScrapeAlreadyRunning
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var envelope errorResponse
	if json.Unmarshal(body, &envelope) == nil {
		statusErr.Code = envelope.Error.Code
		statusErr.Message = envelope.Error.Message
	}
	return nil, statusErr
}
