package scraping

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobscout/internal/domain/models"
	log "github.com/sirupsen/logrus"
	"strings"
	"unicode/utf8"
)

const (
	minDescriptionLength = 50
	maxDescriptionLength = 50000
)

// descriptionSelectors cover the posting pages of all supported sites, generic containers come last.
var descriptionSelectors = []string{
	"#jobDescriptionText",
	".jobsearch-JobComponent-description",
	".jobsearch-jobDescriptionText",
	".job-description",
	".description",
	"[class*='job-description']",
	"[class*='jobDescription']",
	"[class*='JobDescription']",
	".jobs-details__content",
	".show-more-less-html__markup",
	"[data-job-description]",
	"main",
	"article",
}

// Enricher loads the posting page to get the full description, listing cards only carry a snippet.
type Enricher struct {
	loader PageLoader
}

func NewEnricher(loader PageLoader) *Enricher {
	return &Enricher{loader: loader}
}

// Describe returns the best description available for the posting. It falls back
// to the stored one when the page can not be loaded or has no usable text.
func (e *Enricher) Describe(ctx context.Context, posting models.JobPosting) string {
	html, err := e.loader.Load(ctx, posting.SourceURL)
	if err != nil {
		log.Debugf("failed to load posting page %s: %v", posting.SourceURL, err)
		return posting.Description
	}

	text, err := ExtractDescription(html)
	if err != nil || len(text) < minDescriptionLength {
		return posting.Description
	}
	return text
}

// ExtractDescription keeps the longest selector match, or the page body when nothing matches.
func ExtractDescription(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	description := ""
	for _, selector := range descriptionSelectors {
		text := cleanText(doc.Find(selector).First().Text())
		if len(text) > len(description) && len(text) >= minDescriptionLength {
			description = text
		}
	}
	if description == "" {
		description = cleanText(doc.Find("body").Text())
	}
	return truncate(description, maxDescriptionLength), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	// drop a partially cut rune
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
