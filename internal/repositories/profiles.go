package repositories

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

type Profiles struct {
	db *gorm.DB
}

func NewProfilesRepository(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

func (p *Profiles) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, errors.Wrapf(err, "profile of %s", userID)
	}
	return &profile, nil
}

// SavePreferences creates the profile or replaces its preference fields, resume columns are kept.
func (p *Profiles) SavePreferences(ctx context.Context, profile models.UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	err := p.db.WithContext(ctx).
		Omit("resume_filename", "resume_data", "resume_text").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"roles", "locations", "work_modes", "skills_prefer", "job_status", "expected_salary", "updated_at",
			}),
		}).
		Create(&profile).Error
	return errors.Wrapf(err, "preferences of %s", profile.UserID)
}

// SaveResume stores an uploaded file and drops the previously extracted text.
func (p *Profiles) SaveResume(ctx context.Context, userID, filename string, data []byte) error {
	profile := models.UserProfile{
		UserID:         userID,
		ResumeFilename: filename,
		ResumeData:     data,
		UpdatedAt:      time.Now().UTC(),
	}
	err := p.db.WithContext(ctx).
		Select("user_id", "resume_filename", "resume_data", "resume_text", "updated_at").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"resume_filename", "resume_data", "resume_text", "updated_at"}),
		}).
		Create(&profile).Error
	return errors.Wrapf(err, "resume of %s", userID)
}

func (p *Profiles) SetResumeText(ctx context.Context, userID, text string) error {
	res := p.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"resume_text": text, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "resume text of %s", userID)
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
