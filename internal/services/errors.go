package services

import (
	"errors"
	"github.com/maxaizer/jobscout/internal/repositories"
)

var (
	ErrScrapeAlreadyRunning = errors.New("scrape already running")
	ErrScorerNotConfigured  = errors.New("scorer not configured")
	ErrProfileNotFound      = repositories.ErrProfileNotFound
	ErrNoResume             = errors.New("no resume uploaded")
	ErrUnsupportedResume    = errors.New("unsupported resume format")
	ErrResumeTooLarge       = errors.New("resume file is too large")
)
