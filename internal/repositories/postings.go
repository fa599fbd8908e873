package repositories

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

// descriptiveColumns are the only columns a re-scrape may overwrite.
var descriptiveColumns = []string{
	"source", "title", "company", "location", "work_mode", "description", "salary_range", "updated_at",
}

type Postings struct {
	db *gorm.DB
}

func NewPostingsRepository(db *gorm.DB) *Postings {
	return &Postings{db: db}
}

// Upsert inserts postings or refreshes the descriptive fields of existing ones,
// keyed by owner and source url. Tracking state and analysis are left alone.
func (p *Postings) Upsert(ctx context.Context, postings []models.JobPosting) ([]models.JobPosting, error) {
	if len(postings) == 0 {
		return postings, nil
	}

	now := time.Now().UTC()
	for i := range postings {
		if postings[i].ID == "" {
			postings[i].ID = models.PostingID(postings[i].UserID, postings[i].SourceURL)
		}
		postings[i].CreatedAt = now
		postings[i].UpdatedAt = now
	}

	err := p.db.WithContext(ctx).
		Omit("ai_analysis", "status", "applied_at").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "source_url"}},
			DoUpdates: clause.AssignmentColumns(descriptiveColumns),
		}).
		Create(&postings).Error
	if err != nil {
		return nil, errors.Wrap(err, "upserting postings")
	}
	return postings, nil
}

func (p *Postings) ListByUser(ctx context.Context, userID string, limit int) ([]models.JobPosting, error) {
	var postings []models.JobPosting
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&postings).Error
	return postings, errors.Wrapf(err, "postings of %s", userID)
}

func (p *Postings) ListUnscored(ctx context.Context, userID string) ([]models.JobPosting, error) {
	var postings []models.JobPosting
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND ai_analysis IS NULL", userID).
		Order("created_at").
		Find(&postings).Error
	return postings, errors.Wrapf(err, "unscored postings of %s", userID)
}

func (p *Postings) GetByIDs(ctx context.Context, userID string, ids []string) ([]models.JobPosting, error) {
	var postings []models.JobPosting
	if len(ids) == 0 {
		return postings, nil
	}
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&postings).Error
	return postings, errors.Wrapf(err, "postings by ids of %s", userID)
}

// SetAnalysis overwrites the analysis column only.
func (p *Postings) SetAnalysis(ctx context.Context, postingID string, analysis models.AIAnalysis) error {
	err := p.db.WithContext(ctx).
		Model(&models.JobPosting{ID: postingID}).
		Select("ai_analysis").
		Updates(models.JobPosting{AIAnalysis: &analysis}).Error
	return errors.Wrapf(err, "analysis of posting %s", postingID)
}

// RemoveOld deletes untracked postings not refreshed since expirationTime.
func (p *Postings) RemoveOld(ctx context.Context, expirationTime time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Delete(&models.JobPosting{},
		"status IS NULL AND updated_at < ?", expirationTime.UTC())
	return res.RowsAffected, res.Error
}
