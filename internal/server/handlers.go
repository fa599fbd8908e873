package server

import (
	"context"
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/maxaizer/jobscout/internal/services"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 100
)

type scrapeStarter interface {
	StartScrape(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (models.ScrapeStatus, error)
}

type scoringStarter interface {
	Available() bool
	StartUnscored(userID string) error
}

type resumeHandler interface {
	Upload(ctx context.Context, userID, filename string, data []byte) error
	ExtractText(ctx context.Context, userID string) (int, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	SavePreferences(ctx context.Context, profile models.UserProfile) error
}

type postingLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.JobPosting, error)
}

type handlers struct {
	scrapes  scrapeStarter
	scoring  scoringStarter
	resumes  resumeHandler
	profiles profileStore
	postings postingLister
	validate *validator.Validate
}

// scrapeStatusResponse carries the state under both "status" and "state".
type scrapeStatusResponse struct {
	Status        models.ScrapeState `json:"status"`
	State         models.ScrapeState `json:"state"`
	StartedAt     *time.Time         `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at"`
	PostingCount  int                `json:"posting_count"`
	FailedSources []string           `json:"failed_sources"`
}

type profileRequest struct {
	Roles          []string `json:"roles" validate:"max=20,dive,min=1,max=100"`
	Locations      []string `json:"locations" validate:"max=20,dive,min=1,max=100"`
	WorkModes      []string `json:"work_modes" validate:"max=3,dive,oneof=Remote 'In Person' Hybrid"`
	SkillsPrefer   []string `json:"skills_prefer" validate:"max=50,dive,min=1,max=100"`
	JobStatus      string   `json:"job_status" validate:"max=100"`
	ExpectedSalary string   `json:"expected_salary" validate:"max=100"`
}

type profileResponse struct {
	UserID         string    `json:"user_id"`
	Roles          []string  `json:"roles"`
	Locations      []string  `json:"locations"`
	WorkModes      []string  `json:"work_modes"`
	SkillsPrefer   []string  `json:"skills_prefer"`
	JobStatus      string    `json:"job_status"`
	ExpectedSalary string    `json:"expected_salary"`
	ResumeFilename string    `json:"resume_filename"`
	HasResumeText  bool      `json:"has_resume_text"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type dataResponse struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

func (h *handlers) startScrape(w http.ResponseWriter, r *http.Request) {
	if err := h.scrapes.StartScrape(r.Context(), UserIDFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": string(models.ScrapeProcessing)})
}

func (h *handlers) scrapeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.scrapes.Status(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, scrapeStatusResponse{
		Status:        status.State,
		State:         status.State,
		StartedAt:     status.StartedAt,
		FinishedAt:    status.FinishedAt,
		PostingCount:  status.PostingCount,
		FailedSources: status.FailedSourcesAsArray(),
	})
}

func (h *handlers) analyzeJobs(w http.ResponseWriter, r *http.Request) {
	if !h.scoring.Available() {
		writeServiceError(w, r, services.ErrScorerNotConfigured)
		return
	}
	if err := h.scoring.StartUnscored(UserIDFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": string(models.ScrapeProcessing)})
}

func (h *handlers) extractResumeText(w http.ResponseWriter, r *http.Request) {
	length, err := h.resumes.ExtractText(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "resume_text_length": length, "extracted_length": length})
}

func (h *handlers) uploadResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxResumeSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, services.ErrResumeTooLarge)
			return
		}
		WriteError(w, r, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxResumeSize+1))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_upload", "failed to read uploaded file")
		return
	}
	if err := h.resumes.Upload(r.Context(), UserIDFrom(r.Context()), header.Filename, data); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "size": len(data)})
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dataResponse{Data: toProfileResponse(profile)})
}

func (h *handlers) putProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}

	profile := models.UserProfile{
		UserID:         UserIDFrom(r.Context()),
		Roles:          models.JoinList(req.Roles),
		Locations:      models.JoinList(req.Locations),
		WorkModes:      models.JoinList(req.WorkModes),
		SkillsPrefer:   models.JoinList(req.SkillsPrefer),
		JobStatus:      req.JobStatus,
		ExpectedSalary: req.ExpectedSalary,
	}
	if err := h.profiles.SavePreferences(r.Context(), profile); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dataResponse{Data: toProfileResponse(&profile)})
}

func (h *handlers) relevantJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJobsLimit {
			WriteError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	postings, err := h.postings.ListByUser(r.Context(), UserIDFrom(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if postings == nil {
		postings = []models.JobPosting{}
	}
	WriteJSON(w, http.StatusOK, dataResponse{Data: postings})
}

func health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toProfileResponse(p *models.UserProfile) profileResponse {
	return profileResponse{
		UserID:         p.UserID,
		Roles:          p.RolesAsArray(),
		Locations:      p.LocationsAsArray(),
		WorkModes:      p.WorkModesAsArray(),
		SkillsPrefer:   p.SkillsAsArray(),
		JobStatus:      p.JobStatus,
		ExpectedSalary: p.ExpectedSalary,
		ResumeFilename: p.ResumeFilename,
		HasResumeText:  p.ResumeText != "",
		UpdatedAt:      p.UpdatedAt,
	}
}
