package scraping

import (
	"fmt"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"net/url"
	"strings"
)

const (
	SourceIndeed       = "indeed"
	SourceZipRecruiter = "ziprecruiter"
	SourceGlassdoor    = "glassdoor"
	SourceLinkedIn     = "linkedin"
)

func IndeedSite() Site {
	return Site{
		Name:    SourceIndeed,
		BaseURL: "https://www.indeed.com",
		SearchURL: func(base string, p models.SearchParams) string {
			return fmt.Sprintf("%s/jobs?q=%s&l=%s", base, url.QueryEscape(p.Role), url.QueryEscape(p.Location))
		},
		Cards: []string{".job_seen_beacon", `div[data-tn-component="organicJob"]`, ".jobsearch-SerpJobCard", "td.resultContent"},
		Link: `a[data-tn-element="jobTitle"], h2.jobTitle a, a[data-jk], ` +
			`a[href*="viewjob"], a[href*="/rc/"], a[href*="jk="]`,
		Title:    "h2.jobTitle span[title], h2.jobTitle, .jobTitle",
		Company:  `[data-testid="company-name"], .companyName, span[itemprop="name"], [class*="companyName"]`,
		Location: `[data-testid="text-location"], .companyLocation, [class*="companyLocation"]`,
		Salary:   `[data-testid="attribute_snippet_testid"], .salary-snippet-container, .estimated-salary`,
		Snippet:  ".job-snippet, [data-testid='jobsnippet_footer']",
	}
}

func ZipRecruiterSite() Site {
	return Site{
		Name:    SourceZipRecruiter,
		BaseURL: "https://www.ziprecruiter.com",
		SearchURL: func(base string, p models.SearchParams) string {
			return fmt.Sprintf("%s/jobs-search?search=%s&location=%s", base,
				plusJoin(p.Role), plusJoin(p.Location))
		},
		Cards:    []string{"article[id^='job-card-']", ".job_result_two_pane_v2", "[data-job-id], .job_result, article[class*='job']"},
		Link:     "a[href*='/Job/'], a[href*='/job/'], a[href*='job-redirect'], a[href*='ziprecruiter']",
		Title:    "h2, .job_title, [class*='title']",
		Company:  "[data-testid='job-card-company'], .company_name, [class*='company']",
		Location: "[data-testid='job-card-location'], .location, [class*='location']",
		Salary:   "[data-testid='job-card-salary'], [class*='salary']",
	}
}

func GlassdoorSite() Site {
	return Site{
		Name:    SourceGlassdoor,
		BaseURL: "https://www.glassdoor.com",
		SearchURL: func(base string, p models.SearchParams) string {
			keyword := strings.ToLower(strings.Join(strings.Fields(p.Role), "-"))
			return fmt.Sprintf("%s/Job/%s-jobs-SRCH_KO0,%d.htm", base, url.PathEscape(keyword), min(99, len(p.Role)))
		},
		Cards:    []string{"li[class*='JobCard'], [data-job], .JobCard, .jobCard", "[class*='job-card'], [class*='JobCard']"},
		Link:     "a[data-test='job-link'], a[href*='job-listing'], a[href*='/Job/']",
		Title:    "a[data-test='job-link'], h2, [class*='title']",
		Company:  "[data-test='employer-name'], [class*='employer'], .EmployerCard",
		Location: "[data-test='location'], [class*='location']",
		Salary:   "[data-test='detailSalary'], [class*='salary']",
	}
}

func LinkedInSite() Site {
	return Site{
		Name:    SourceLinkedIn,
		BaseURL: "https://www.linkedin.com",
		SearchURL: func(base string, p models.SearchParams) string {
			return fmt.Sprintf("%s/jobs/search/?keywords=%s&location=%s", base,
				url.QueryEscape(p.Role), url.QueryEscape(p.Location))
		},
		Cards:      []string{".job-search-card, .jobs-search__results-list li, [data-job-id]", "a[href*='/jobs/view/']"},
		Link:       "a[href*='/jobs/view/'], a.base-card__full-link",
		Title:      ".job-search-card__title, .base-search-card__title, h3",
		Company:    ".job-search-card__subtitle, .base-search-card__subtitle, [class*='company']",
		Location:   ".job-search-card__location, [class*='location']",
		Salary:     ".job-search-card__salary-info",
		StripQuery: true,
	}
}

// Sites returns the known site definitions keyed by name.
func Sites() map[string]Site {
	return map[string]Site{
		SourceIndeed:       IndeedSite(),
		SourceZipRecruiter: ZipRecruiterSite(),
		SourceGlassdoor:    GlassdoorSite(),
		SourceLinkedIn:     LinkedInSite(),
	}
}

// NewAdapters builds adapters for the named sources, keeping their order.
func NewAdapters(names []string, loader PageLoader) ([]Adapter, error) {
	sites := Sites()
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		site, ok := sites[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		adapters = append(adapters, NewListingAdapter(site, loader))
	}
	return adapters, nil
}

func plusJoin(s string) string {
	return url.QueryEscape(strings.Join(strings.Fields(s), " "))
}
