package scraping

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
)

// Adapter fetches postings from a single job site. Each call is independent and
// failures never affect other adapters.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, params models.SearchParams) ([]models.RawPosting, error)
}

// AdapterResult is the outcome of one adapter within a run.
type AdapterResult struct {
	Source   string
	Postings []models.RawPosting
	Err      error
}
