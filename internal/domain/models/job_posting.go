package models

import (
	"github.com/google/uuid"
	"strings"
	"time"
)

type WorkMode string

const (
	WorkModeRemote   WorkMode = "Remote"
	WorkModeInPerson WorkMode = "In Person"
	WorkModeHybrid   WorkMode = "Hybrid"
)

// NormalizeWorkMode maps free-form site labels onto the known modes, anything else is kept as is.
func NormalizeWorkMode(raw string) WorkMode {
	m := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case m == "":
		return ""
	case strings.Contains(m, "hybrid"):
		return WorkModeHybrid
	case strings.Contains(m, "remote"):
		return WorkModeRemote
	case strings.Contains(m, "on-site"), strings.Contains(m, "onsite"),
		strings.Contains(m, "on site"), strings.Contains(m, "in person"), strings.Contains(m, "in-person"):
		return WorkModeInPerson
	default:
		return WorkMode(strings.TrimSpace(raw))
	}
}

type TrackingStatus string

const (
	TrackingSaved        TrackingStatus = "saved"
	TrackingApplied      TrackingStatus = "applied"
	TrackingInterviewing TrackingStatus = "interviewing"
	TrackingOffer        TrackingStatus = "offer"
	TrackingRejected     TrackingStatus = "rejected"
)

// AIAnalysis is the scorer output. A nil MatchScore means the model gave no score.
type AIAnalysis struct {
	MatchScore    *int     `json:"match_score"`
	FitReason     string   `json:"fit_reason,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	MissingSkills []string `json:"missing_skills,omitempty"`
}

type JobPosting struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"not null;uniqueIndex:idx_owner_source_url" json:"user_id"`
	SourceURL   string          `gorm:"not null;uniqueIndex:idx_owner_source_url" json:"source_url"`
	Source      string          `json:"source"`
	Title       string          `json:"title"`
	Company     string          `json:"company"`
	Location    string          `json:"location"`
	WorkMode    WorkMode        `json:"work_mode"`
	Description string          `json:"description"`
	SalaryRange string          `json:"salary_range"`
	AIAnalysis  *AIAnalysis     `gorm:"serializer:json;type:text" json:"ai_analysis"`
	Status      *TrackingStatus `json:"status"`
	AppliedAt   *time.Time      `json:"applied_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var postingNamespace = uuid.MustParse("5f0c8a4e-2f7b-4d3c-9a51-7b1e6d2c9f10")

// PostingID is stable for an owner and source url, so a re-scrape hits the same row.
func PostingID(userID, sourceURL string) string {
	return uuid.NewSHA1(postingNamespace, []byte(userID+"|"+sourceURL)).String()
}

// RawPosting is what a source adapter extracts from a listing page.
type RawPosting struct {
	Title       string
	Company     string
	Location    string
	WorkMode    string
	SourceURL   string
	Description string
	SalaryRange string
}

func (r RawPosting) ToPosting(userID, source string) JobPosting {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Job"
	}
	company := strings.TrimSpace(r.Company)
	if company == "" {
		company = "Company"
	}
	description := strings.TrimSpace(r.Description)
	if description == "" {
		description = "Click link for full details"
	}

	return JobPosting{
		ID:          PostingID(userID, r.SourceURL),
		UserID:      userID,
		SourceURL:   r.SourceURL,
		Source:      source,
		Title:       title,
		Company:     company,
		Location:    strings.TrimSpace(r.Location),
		WorkMode:    NormalizeWorkMode(r.WorkMode),
		Description: description,
		SalaryRange: strings.TrimSpace(r.SalaryRange),
	}
}
