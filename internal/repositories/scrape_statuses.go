package repositories

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"strings"
	"time"
)

// ScrapeStatuses is the per-user status register. Every transition is a single
// conditional update so concurrent callers can never both win.
type ScrapeStatuses struct {
	db  *gorm.DB
	now func() time.Time
}

func NewScrapeStatusesRepository(db *gorm.DB) *ScrapeStatuses {
	return &ScrapeStatuses{db: db, now: func() time.Time {
		// postgres keeps microseconds, the value is compared later
		return time.Now().UTC().Truncate(time.Microsecond)
	}}
}

// Transition moves the user's status to `to` only if the current state is one of `from`.
// It returns false when the state did not match.
func (s *ScrapeStatuses) Transition(ctx context.Context, userID string,
	from []models.ScrapeState, to models.ScrapeState) (bool, error) {

	if err := s.ensureRow(ctx, userID); err != nil {
		return false, err
	}

	now := s.now()
	updates := map[string]any{"state": to, "updated_at": now}
	switch {
	case to == models.ScrapeProcessing:
		updates["started_at"] = now
		updates["finished_at"] = nil
	case to.IsTerminal():
		updates["finished_at"] = now
	case to == models.ScrapeIdle:
		updates["started_at"] = nil
		updates["finished_at"] = nil
	}

	res := s.db.WithContext(ctx).
		Model(&models.ScrapeStatus{}).
		Where("user_id = ? AND state IN ?", userID, from).
		Updates(updates)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "transition of %s to %s", userID, to)
	}
	return res.RowsAffected == 1, nil
}

// Complete records the terminal state of the run that started at startedAt.
// A run whose lease was already taken over changes nothing.
func (s *ScrapeStatuses) Complete(ctx context.Context, userID string, startedAt *time.Time,
	state models.ScrapeState, postingCount int, failedSources []string) (bool, error) {

	if !state.IsTerminal() {
		return false, errors.Errorf("state %s is not terminal", state)
	}

	now := s.now()
	query := s.db.WithContext(ctx).
		Model(&models.ScrapeStatus{}).
		Where("user_id = ? AND state = ?", userID, models.ScrapeProcessing)
	if startedAt != nil {
		query = query.Where("started_at = ?", *startedAt)
	}

	res := query.Updates(map[string]any{
		"state":          state,
		"finished_at":    now,
		"updated_at":     now,
		"posting_count":  postingCount,
		"failed_sources": strings.Join(failedSources, ","),
	})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "completion of %s", userID)
	}
	return res.RowsAffected == 1, nil
}

// Get returns a snapshot of the user's status, a user without a row is idle.
func (s *ScrapeStatuses) Get(ctx context.Context, userID string) (models.ScrapeStatus, error) {
	var status models.ScrapeStatus
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.IdleStatus(userID), nil
		}
		return status, errors.Wrapf(err, "status of %s", userID)
	}
	return status, nil
}

// ExpireStale fails processing runs started before olderThan. When userIDs are given
// only their rows are considered.
func (s *ScrapeStatuses) ExpireStale(ctx context.Context, olderThan time.Time, userIDs ...string) (int64, error) {
	now := s.now()
	query := s.db.WithContext(ctx).
		Model(&models.ScrapeStatus{}).
		Where("state = ? AND started_at < ?", models.ScrapeProcessing, olderThan.UTC())
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}

	res := query.Updates(map[string]any{
		"state":          models.ScrapeFailed,
		"finished_at":    now,
		"updated_at":     now,
		"failed_sources": "lease_expired",
	})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expiring stale runs")
	}
	return res.RowsAffected, nil
}

func (s *ScrapeStatuses) ensureRow(ctx context.Context, userID string) error {
	status := models.IdleStatus(userID)
	status.UpdatedAt = s.now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&status).Error
	return errors.Wrapf(err, "status row for %s", userID)
}
