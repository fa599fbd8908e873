package scraping

import (
	"context"
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"net/url"
	"strings"
)

// Site describes how to search a listing site and where the fields sit in its result cards.
// Selector lists are tried in order, the first one that matches wins.
type Site struct {
	Name      string
	BaseURL   string
	SearchURL func(baseURL string, params models.SearchParams) string
	Cards     []string
	Link      string
	Title     string
	Company   string
	Location  string
	Salary    string
	Snippet   string
	// StripQuery drops tracking parameters from posting links.
	StripQuery bool
}

type ListingAdapter struct {
	site   Site
	loader PageLoader
}

func NewListingAdapter(site Site, loader PageLoader) *ListingAdapter {
	return &ListingAdapter{site: site, loader: loader}
}

func (a *ListingAdapter) Name() string {
	return a.site.Name
}

func (a *ListingAdapter) Fetch(ctx context.Context, params models.SearchParams) ([]models.RawPosting, error) {
	searchURL := a.site.SearchURL(a.site.BaseURL, params)
	html, err := a.loader.Load(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	postings, err := a.Parse(html, params.MaxPerSource)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.site.Name, err)
	}
	return postings, nil
}

// Parse extracts up to limit postings from a search result page.
func (a *ListingAdapter) Parse(html string, limit int) ([]models.RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards *goquery.Selection
	for _, selector := range a.site.Cards {
		if found := doc.Find(selector); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return []models.RawPosting{}, nil
	}

	seen := map[string]bool{}
	postings := make([]models.RawPosting, 0, limit)
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		posting, ok := a.parseCard(card)
		if ok && !seen[posting.SourceURL] {
			seen[posting.SourceURL] = true
			postings = append(postings, posting)
		}
		return limit <= 0 || len(postings) < limit
	})
	return postings, nil
}

func (a *ListingAdapter) parseCard(card *goquery.Selection) (models.RawPosting, bool) {
	link := card
	if goquery.NodeName(card) != "a" {
		link = card.Find(a.site.Link).First()
		if link.Length() == 0 {
			link = card.Find("a[href]").First()
		}
	}
	href, ok := link.Attr("href")
	if !ok {
		return models.RawPosting{}, false
	}
	postingURL := a.absoluteURL(href)
	if postingURL == "" {
		return models.RawPosting{}, false
	}

	title := textOf(card, a.site.Title)
	if title == "" {
		title = cleanText(link.Text())
	}
	location := textOf(card, a.site.Location)

	return models.RawPosting{
		Title:       title,
		Company:     textOf(card, a.site.Company),
		Location:    location,
		WorkMode:    detectWorkMode(location + " " + title),
		SourceURL:   postingURL,
		Description: textOf(card, a.site.Snippet),
		SalaryRange: textOf(card, a.site.Salary),
	}, true
}

func (a *ListingAdapter) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	base, err := url.Parse(a.site.BaseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if a.site.StripQuery {
		resolved.RawQuery = ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

func textOf(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return cleanText(card.Find(selector).First().Text())
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func detectWorkMode(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hybrid"):
		return string(models.WorkModeHybrid)
	case strings.Contains(lower, "remote"):
		return string(models.WorkModeRemote)
	default:
		return ""
	}
}
