package ingest

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// \p{Zs} catches the non-breaking spaces that &nbsp; entities decode to.
var spaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// CleanDescription strips HTML markup and entities from a scraped job
// description, used when the NLP pipeline did not supply a cleaned text.
func CleanDescription(s string) string {
	if s == "" {
		return ""
	}
	s = htmlPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var (
	hasKRe   = regexp.MustCompile(`(?i)\d+\s*K`)
	numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

	salaryRangeRe   = regexp.MustCompile(`\d+K?\s*-\s*\d+K?`)
	salaryRangeFrRe = regexp.MustCompile(`\d+K?\s*à\s*\d+K?`)
	salaryEntreRe   = regexp.MustCompile(`[Ee]ntre\s*(\d+K?\s*et\s*\d+K?)`)
)

// ParseSalary extracts annual salary bounds from free text. Numbers with a
// K suffix are thousands; without one, values below 100 are discarded as
// noise (experience years, "13ème mois" and the like).
func ParseSalary(text string) (*float64, *float64) {
	if text == "" {
		return nil, nil
	}

	hasK := hasKRe.MatchString(text)

	var numbers []float64
	for _, m := range numberRe.FindAllString(text, -1) {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if hasK {
			if n < 1000 {
				n *= 1000
			}
			numbers = append(numbers, n)
		} else if n >= 100 {
			numbers = append(numbers, n)
		}
	}

	switch {
	case len(numbers) >= 2:
		return &numbers[0], &numbers[1]
	case len(numbers) == 1:
		return &numbers[0], nil
	default:
		return nil, nil
	}
}

// ExtractSalaryFromDescription finds a salary-looking range inside the
// description, as a fallback when the posting has no salary field.
func ExtractSalaryFromDescription(description string) string {
	if description == "" {
		return ""
	}
	if m := salaryRangeRe.FindString(description); m != "" {
		return m
	}
	if m := salaryRangeFrRe.FindString(description); m != "" {
		return m
	}
	if m := salaryEntreRe.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

var titleCategories = []struct {
	keywords []string
	name     string
	code     string
}{
	{[]string{"data analyst", "analyste de données", "analyste data", "business analyst data"}, "Data Analyst", "WTTJ_DA"},
	{[]string{"data scientist", "scientist"}, "Data Scientist", "WTTJ_DS"},
	{[]string{"data engineer", "ingénieur data", "ingénieur données"}, "Data Engineer", "WTTJ_DE"},
	{[]string{"machine learning", "ml engineer", "ai engineer"}, "ML Engineer", "WTTJ_ML"},
	{[]string{"développeur", "developer", "dev "}, "Développeur", "DEV"},
}

// JobCategoryFromTitle is the heuristic fallback used when a posting
// carries no ROME referential code.
func JobCategoryFromTitle(title string) (name, code string) {
	lower := strings.ToLower(title)
	for _, c := range titleCategories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name, c.code
			}
		}
	}
	return "Autre", "OTHER"
}

// ExperienceYears collapses the extractor's min/max range to a single
// value: the midpoint when both bounds exist, otherwise the minimum.
func ExperienceYears(min, max *int) *int {
	switch {
	case min != nil && max != nil:
		mid := (*min + *max) / 2
		return &mid
	case min != nil:
		return min
	default:
		return nil
	}
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublishedDate accepts the ISO-8601 variants the scrapers emit.
// Unparseable input is a nil date, never an error.
func ParsePublishedDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}
