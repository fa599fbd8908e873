package services

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"regexp"
	"strings"
)

const (
	defaultProfile     = "CS Student in Washington D.C., Full-Stack developer."
	minJobInputLength  = 50
	maxProfileLength   = 2000
	maxJobInputLength  = 15000
	maxFitReasonLength = 2000
	defaultMatchScore  = 50
)

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

// AIService scores postings against the candidate profile with a language model.
type AIService struct {
	aiClient aiClient
}

func NewAIService(aiClient aiClient) *AIService {
	return &AIService{aiClient: aiClient}
}

func (a *AIService) ScorePosting(ctx context.Context, profileText string, posting models.JobPosting,
	description string) (models.AIAnalysis, error) {

	if a.aiClient == nil {
		return models.AIAnalysis{}, ErrScorerNotConfigured
	}

	jobInput := strings.TrimSpace(jobInputText(posting, description))
	if len(strings.TrimSpace(description)) < minJobInputLength {
		zero := 0
		return models.AIAnalysis{MatchScore: &zero, FitReason: "Job content too short to analyze."}, nil
	}

	response, err := a.aiClient.GenerateResponse(ctx, scoringRequest(profileText, jobInput))
	if err != nil {
		return models.AIAnalysis{}, err
	}
	return ParseAnalysis(response)
}

func jobInputText(posting models.JobPosting, description string) string {
	var sb strings.Builder
	sb.WriteString("Title: " + posting.Title + "\n")
	sb.WriteString("Company: " + posting.Company + "\n")
	if posting.Location != "" {
		sb.WriteString("Location: " + posting.Location + "\n")
	}
	if posting.WorkMode != "" {
		sb.WriteString("Work mode: " + string(posting.WorkMode) + "\n")
	}
	if posting.SalaryRange != "" {
		sb.WriteString("Salary: " + posting.SalaryRange + "\n")
	}
	sb.WriteString("\n" + description)
	return sb.String()
}

func scoringRequest(profileText, jobInput string) string {
	return fmt.Sprintf(`You are an expert recruiter. Compare the job posting to the candidate profile.
Return ONLY a valid JSON object with these keys:
- "match_score": number 0-100, how well the job fits the profile
- "fit_reason": string, 1-3 sentences explaining why the job is or is not a good fit
- "summary": string, one sentence describing the role
- "missing_skills": array of strings, required skills the candidate does not show

Candidate profile:
%s

Job posting:
%s

Return only the JSON object, no markdown or extra text.`,
		truncateRunes(profileText, maxProfileLength), truncateRunes(jobInput, maxJobInputLength))
}

// BuildProfileText combines preferences and resume text, an empty profile gets a default one.
func BuildProfileText(profile *models.UserProfile) string {
	if profile == nil {
		return defaultProfile
	}

	var lines []string
	if profile.JobStatus != "" {
		lines = append(lines, "Current Status: "+profile.JobStatus)
	}
	if profile.ExpectedSalary != "" {
		lines = append(lines, "Expected Salary: "+profile.ExpectedSalary)
	}
	if roles := profile.RolesAsArray(); len(roles) > 0 {
		lines = append(lines, "Target Roles: "+strings.Join(roles, ", "))
	}
	if locations := profile.LocationsAsArray(); len(locations) > 0 {
		lines = append(lines, "Target Locations: "+strings.Join(locations, ", "))
	}
	if modes := profile.WorkModesAsArray(); len(modes) > 0 {
		lines = append(lines, "Preferred Work Modes: "+strings.Join(modes, ", "))
	}
	if skills := profile.SkillsAsArray(); len(skills) > 0 {
		lines = append(lines, "Key Skills to highlight: "+strings.Join(skills, ", "))
	}

	resume := strings.TrimSpace(profile.ResumeText)
	if len(lines) == 0 && resume == "" {
		return defaultProfile
	}

	parts := []string{"### CANDIDATE PREFERENCES & CONSTRAINTS ###"}
	parts = append(parts, lines...)
	if resume != "" {
		parts = append(parts, "", "### PROFESSIONAL EXPERIENCE (RESUME) ###", resume)
	}
	return strings.Join(parts, "\n")
}

var (
	openingFence = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	closingFence = regexp.MustCompile("\\s*```\\s*$")
)

type analysisResponse struct {
	MatchScore    *float64 `json:"match_score"`
	FitReason     *string  `json:"fit_reason"`
	Summary       string   `json:"summary"`
	MissingSkills []string `json:"missing_skills"`
}

// ParseAnalysis reads the model's JSON answer. Markdown fences are tolerated, the score
// is clamped to [0,100] and defaults to 50 when missing.
func ParseAnalysis(response string) (models.AIAnalysis, error) {
	raw := strings.TrimSpace(response)
	if strings.HasPrefix(raw, "```") {
		raw = openingFence.ReplaceAllString(raw, "")
		raw = closingFence.ReplaceAllString(raw, "")
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("invalid analysis response: %w", err)
	}

	score := defaultMatchScore
	if parsed.MatchScore != nil {
		score = max(0, min(100, int(*parsed.MatchScore)))
	}
	fitReason := "Analysis completed."
	if parsed.FitReason != nil {
		fitReason = truncateRunes(strings.TrimSpace(*parsed.FitReason), maxFitReasonLength)
	}

	return models.AIAnalysis{
		MatchScore:    &score,
		FitReason:     fitReason,
		Summary:       strings.TrimSpace(parsed.Summary),
		MissingSkills: parsed.MissingSkills,
	}, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
