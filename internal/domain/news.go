package domain

import (
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSimilarityThreshold is the title similarity above which two
// articles are counted as the same event.
const DefaultSimilarityThreshold = 0.6

// TextRecord is a news article reduced to what event deduplication needs.
type TextRecord struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Domain   string `json:"domain,omitempty"`
	SeenDate string `json:"seen_date,omitempty"`
}

// NewTextRecord builds a TextRecord with the title lowercased for comparison.
func NewTextRecord(title, url, domain, seenDate string) TextRecord {
	return TextRecord{
		Title:    lower(title),
		URL:      url,
		Domain:   domain,
		SeenDate: seenDate,
	}
}

// lower folds s to lowercase. A Caser holds state, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// TitleSimilarity returns the Ratcliff/Obershelp ratio 2M/T of two titles,
// where M is the number of matched characters and T the combined length.
// Arguments are ordered before matching so the result does not depend on
// which title is passed first.
func TitleSimilarity(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// DeduplicateArticles drops articles whose title is more than threshold
// similar to any earlier accepted title. Input order is the priority order
// (newest first from the feed) and is preserved in the output. This is a
// nearest-prior-neighbor pass, not a transitive clustering.
func DeduplicateArticles(articles []TextRecord, threshold float64) []TextRecord {
	unique := make([]TextRecord, 0, len(articles))
	for _, a := range articles {
		duplicate := false
		for i := range unique {
			if TitleSimilarity(a.Title, unique[i].Title) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, a)
		}
	}
	return unique
}
