package services

import (
	"context"
	"errors"
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const MaxResumeSize = 5 << 20

type resumeStore interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveResume(ctx context.Context, userID, filename string, data []byte) error
	SetResumeText(ctx context.Context, userID, text string) error
}

type ResumeService struct {
	profiles resumeStore
}

func NewResumeService(profiles resumeStore) *ResumeService {
	return &ResumeService{profiles: profiles}
}

func (s *ResumeService) Upload(ctx context.Context, userID, filename string, data []byte) error {
	if len(data) == 0 {
		return ErrNoResume
	}
	if len(data) > MaxResumeSize {
		return ErrResumeTooLarge
	}
	return s.profiles.SaveResume(ctx, userID, filepath.Base(filename), data)
}

// ExtractText converts the stored resume to plain text, saves it and returns its length.
func (s *ResumeService) ExtractText(ctx context.Context, userID string) (int, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return 0, ErrNoResume
		}
		return 0, err
	}
	if len(profile.ResumeData) == 0 {
		return 0, ErrNoResume
	}

	text, err := ExtractResumeText(profile.ResumeFilename, profile.ResumeData)
	if err != nil {
		return 0, err
	}
	if err = s.profiles.SetResumeText(ctx, userID, text); err != nil {
		return 0, err
	}
	return utf8.RuneCountInString(text), nil
}

// ExtractResumeText supports pdf, docx, plain text, markdown and html resumes.
func ExtractResumeText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfText(data)
	case ".docx":
		return docxText(data)
	case ".txt", ".md", ".markdown", ".text":
		return plainText(data)
	case ".html", ".htm":
		return htmlText(data)
	case "":
		contentType := http.DetectContentType(data)
		switch {
		case contentType == "application/pdf":
			return pdfText(data)
		case contentType == "application/zip":
			return docxText(data)
		case strings.HasPrefix(contentType, "text/html"):
			return htmlText(data)
		case strings.HasPrefix(contentType, "text/plain"):
			return plainText(data)
		}
	}
	return "", ErrUnsupportedResume
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrUnsupportedResume
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n")), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return "", ErrUnsupportedResume
	}
	doc.Find("script, style, noscript").Remove()

	var lines []string
	doc.Find("body").Each(func(_ int, body *goquery.Selection) {
		for _, line := range strings.Split(body.Text(), "\n") {
			if line = strings.Join(strings.Fields(line), " "); line != "" {
				lines = append(lines, line)
			}
		}
	})
	return strings.Join(lines, "\n"), nil
}
