package services

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

type aiClientMock struct {
	mock.Mock
}

func (m *aiClientMock) GenerateResponse(ctx context.Context, request string) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func Test_ParseAnalysis_ShouldStripFencesAndClamp(t *testing.T) {
	analysis, err := ParseAnalysis("```json\n{\"match_score\": 140, \"fit_reason\": \"Strong Go match\", " +
		"\"summary\": \"Backend role\", \"missing_skills\": [\"Kubernetes\"]}\n```")

	require.NoError(t, err)
	assert.Equal(t, 100, *analysis.MatchScore)
	assert.Equal(t, "Strong Go match", analysis.FitReason)
	assert.Equal(t, "Backend role", analysis.Summary)
	assert.Equal(t, []string{"Kubernetes"}, analysis.MissingSkills)
}

func Test_ParseAnalysis_WhenScoreMissing_ShouldDefault(t *testing.T) {
	analysis, err := ParseAnalysis(`Here you go: {"fit_reason": "unclear"}`)

	require.NoError(t, err)
	assert.Equal(t, 50, *analysis.MatchScore)
	assert.Equal(t, "unclear", analysis.FitReason)
}

func Test_ParseAnalysis_ShouldClampNegativeAndTruncateReason(t *testing.T) {
	analysis, err := ParseAnalysis(`{"match_score": -3, "fit_reason": "` + strings.Repeat("x", 2500) + `"}`)

	require.NoError(t, err)
	assert.Equal(t, 0, *analysis.MatchScore)
	assert.Len(t, analysis.FitReason, 2000)
}

func Test_ParseAnalysis_WhenNotJson_ShouldFail(t *testing.T) {
	_, err := ParseAnalysis("I think it is a good fit")
	assert.Error(t, err)
}

func Test_AIService_WhenDescriptionTooShort_ShouldScoreZeroWithoutCallingModel(t *testing.T) {
	client := &aiClientMock{}
	service := NewAIService(client)

	analysis, err := service.ScorePosting(context.Background(), defaultProfile,
		models.JobPosting{Title: "Engineer"}, "Click link")

	require.NoError(t, err)
	assert.Equal(t, 0, *analysis.MatchScore)
	assert.Equal(t, "Job content too short to analyze.", analysis.FitReason)
	client.AssertNotCalled(t, "GenerateResponse", mock.Anything, mock.Anything)
}

func Test_AIService_ShouldSendProfileAndPostingToModel(t *testing.T) {
	client := &aiClientMock{}
	client.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return strings.Contains(request, "Go developer with 5 years") &&
			strings.Contains(request, "Title: Backend Engineer") &&
			strings.Contains(request, "Build reliable services")
	})).Return(`{"match_score": 81, "fit_reason": "good"}`, nil)
	service := NewAIService(client)

	analysis, err := service.ScorePosting(context.Background(), "Go developer with 5 years",
		models.JobPosting{Title: "Backend Engineer", Company: "Acme"},
		"Build reliable services in Go and operate them in production for millions of users.")

	require.NoError(t, err)
	assert.Equal(t, 81, *analysis.MatchScore)
	client.AssertExpectations(t)
}

func Test_AIService_WhenNoClient_ShouldBeNotConfigured(t *testing.T) {
	_, err := NewAIService(nil).ScorePosting(context.Background(), "", models.JobPosting{}, "")
	assert.ErrorIs(t, err, ErrScorerNotConfigured)
}

func Test_BuildProfileText(t *testing.T) {
	assert.Equal(t, defaultProfile, BuildProfileText(nil))
	assert.Equal(t, defaultProfile, BuildProfileText(&models.UserProfile{UserID: "user"}))

	text := BuildProfileText(&models.UserProfile{
		JobStatus:    "Student",
		Locations:    "Washington DC,Remote",
		SkillsPrefer: "Go,SQL",
		ResumeText:   "Built a scraper.",
	})
	assert.Contains(t, text, "Current Status: Student")
	assert.Contains(t, text, "Target Locations: Washington DC, Remote")
	assert.Contains(t, text, "Key Skills to highlight: Go, SQL")
	assert.Contains(t, text, "### PROFESSIONAL EXPERIENCE (RESUME) ###\nBuilt a scraper.")
}
