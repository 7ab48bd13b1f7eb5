// Package pagescore produces ground-truth content scores for fetched pages.
// A page's score per category is the confidence of the strongest matching
// HTML form on it; pages without forms score zero everywhere.
package pagescore

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// DefaultCategories is the closed set of form types of interest.
var DefaultCategories = []string{
	"search",
	"login",
	"registration",
	"password_recovery",
	"contact",
	"subscription",
}

var (
	registrationRe = regexp.MustCompile(`(?i)regist|sign\s*up|signup|create\s+(an\s+)?account|join`)
	loginRe        = regexp.MustCompile(`(?i)log\s*in|login|sign\s*in|signin`)
	recoveryRe     = regexp.MustCompile(`(?i)forgot|reset|recover`)
	searchRe       = regexp.MustCompile(`(?i)search|query|find`)
	contactRe      = regexp.MustCompile(`(?i)contact|message|enquir|inquir|feedback`)
	subscribeRe    = regexp.MustCompile(`(?i)subscri|newsletter|mailing\s*list|signup.*email|email.*signup`)
	searchNameRe   = regexp.MustCompile(`(?i)^(q|s|query|search|keywords?)$`)
)

// Scorer classifies the forms on a page into categories with a confidence
// in [0,1]. It is stateless and safe for concurrent use.
type Scorer struct {
	categories []string
}

// NewScorer creates a scorer over the default category set.
func NewScorer() *Scorer {
	return &Scorer{categories: DefaultCategories}
}

// Categories returns the fixed category set.
func (s *Scorer) Categories() []string {
	return s.categories
}

// Score returns the page's observed scores: per category, the maximum
// confidence over all forms on the page.
func (s *Scorer) Score(doc *goquery.Document) storage.Scores {
	scores := storage.ZeroScores(s.categories)
	if doc == nil {
		return scores
	}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		category, confidence := classifyForm(form)
		if category != "" && confidence > scores[category] {
			scores[category] = confidence
		}
	})

	return scores
}

// classifyForm maps one form to a category and a confidence, or ("", 0)
// when nothing matches.
func classifyForm(form *goquery.Selection) (string, float64) {
	passwords := form.Find(`input[type="password"]`).Length()
	emails := form.Find(`input[type="email"]`).Length()
	textareas := form.Find("textarea").Length()
	searchInputs := form.Find(`input[type="search"]`).Length()

	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok && searchNameRe.MatchString(name) {
			searchInputs++
		}
	})

	text := formText(form)

	switch {
	case passwords >= 2:
		return "registration", 0.95
	case passwords == 1 && registrationRe.MatchString(text):
		return "registration", 0.8
	case passwords == 1:
		return "login", 0.9
	case recoveryRe.MatchString(text) && loginRe.MatchString(text):
		return "password_recovery", 0.7
	case recoveryRe.MatchString(text) && emails+form.Find(`input[type="text"]`).Length() > 0:
		return "password_recovery", 0.85
	case searchInputs > 0:
		return "search", 0.9
	case searchRe.MatchString(text) && textareas == 0:
		return "search", 0.6
	case emails > 0 && subscribeRe.MatchString(text):
		return "subscription", 0.9
	case subscribeRe.MatchString(text):
		return "subscription", 0.7
	case textareas > 0 && contactRe.MatchString(text):
		return "contact", 0.9
	case contactRe.MatchString(text):
		return "contact", 0.6
	}

	return "", 0
}

// formText gathers the text the form presents to a user: visible text plus
// the attributes that commonly carry intent keywords.
func formText(form *goquery.Selection) string {
	var b strings.Builder
	b.WriteString(form.Text())

	for _, attr := range []string{"action", "id", "class", "name"} {
		if v, ok := form.Attr(attr); ok {
			b.WriteByte(' ')
			b.WriteString(v)
		}
	}

	form.Find("input, button").Each(func(_ int, el *goquery.Selection) {
		for _, attr := range []string{"placeholder", "value", "name", "aria-label"} {
			if v, ok := el.Attr(attr); ok {
				b.WriteByte(' ')
				b.WriteString(v)
			}
		}
	})

	return b.String()
}
