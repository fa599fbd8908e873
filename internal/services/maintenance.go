package services

import (
	"context"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

type staleRunExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Time, userIDs ...string) (int64, error)
}

type postingCleanupRepository interface {
	RemoveOld(ctx context.Context, expirationTime time.Time) (int64, error)
}

// Maintenance runs the periodic jobs: failing runs that outlived their lease and
// removing old untracked postings.
type Maintenance struct {
	statuses             staleRunExpirer
	postings             postingCleanupRepository
	cron                 *cron.Cron
	leaseTTL             time.Duration
	expirationTimeInDays int
}

func NewMaintenance(statuses staleRunExpirer, postings postingCleanupRepository,
	leaseTTL time.Duration, expirationInDays int) (*Maintenance, error) {

	if leaseTTL <= 0 {
		return nil, errors.New("lease ttl must be greater than zero")
	}
	if expirationInDays <= 0 {
		return nil, errors.New("expiration in days must be greater than zero")
	}

	m := &Maintenance{
		statuses:             statuses,
		postings:             postings,
		cron:                 cron.New(),
		leaseTTL:             leaseTTL,
		expirationTimeInDays: expirationInDays,
	}

	if _, err := m.cron.AddFunc("@every 1m", m.expireStaleRuns); err != nil {
		return nil, err
	}
	if _, err := m.cron.AddFunc("0 0 * * *", m.cleanOldPostings); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Maintenance) Start() {
	m.cron.Start()
	log.Infof("maintenance started, lease ttl: %v, posting expiration in days: %d", m.leaseTTL, m.expirationTimeInDays)
}

func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Maintenance) expireStaleRuns() {
	expired, err := m.statuses.ExpireStale(context.Background(), time.Now().Add(-m.leaseTTL))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Failed to expire stale runs: %v", err)
		return
	}
	if expired > 0 {
		log.Warnf("%d scrape runs exceeded their lease and were marked as failed", expired)
	}
}

func (m *Maintenance) cleanOldPostings() {
	expirationTime := time.Now().Add(-time.Duration(m.expirationTimeInDays) * 24 * time.Hour)
	rowsAffected, err := m.postings.RemoveOld(context.Background(), expirationTime)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Failed to clean old postings: %v", err)
	} else {
		log.Infof("Old postings were cleaned at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
