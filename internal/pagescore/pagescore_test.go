package pagescore_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-oracle/internal/pagescore"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestScoreNoForms(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<html><body><p>Just an article.</p></body></html>`)

	scores := scorer.Score(doc)
	for _, cat := range scorer.Categories() {
		assert.Equal(t, 0.0, scores[cat])
	}
}

func TestScoreNilDocument(t *testing.T) {
	scorer := pagescore.NewScorer()
	scores := scorer.Score(nil)
	assert.Len(t, scores, len(scorer.Categories()))
	assert.Equal(t, 0.0, scores["login"])
}

func TestLoginForm(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form action="/session">
		<input type="text" name="username">
		<input type="password" name="password">
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["login"])
	assert.Equal(t, 0.0, scores["registration"])
}

func TestRegistrationFormTwoPasswords(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form>
		<input type="email" name="email">
		<input type="password" name="password">
		<input type="password" name="confirm_password">
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.95, scores["registration"])
	assert.Equal(t, 0.0, scores["login"])
}

func TestRegistrationFormByKeyword(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form id="signup-form">
		<input type="email" name="email">
		<input type="password" name="password">
		<button>Create account</button>
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.8, scores["registration"])
}

func TestPasswordRecoveryForm(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form action="/password/reset">
		<p>Forgot your password? Enter your email.</p>
		<input type="email" name="email">
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.85, scores["password_recovery"])
}

func TestSearchFormByInputType(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form><input type="search" name="anything"></form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["search"])
}

func TestSearchFormByInputName(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form action="/results"><input type="text" name="q"></form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["search"])
}

func TestSubscriptionForm(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form class="newsletter">
		<input type="email" name="email" placeholder="Subscribe to our newsletter">
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["subscription"])
}

func TestContactForm(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `<form action="/contact">
		<input type="text" name="name">
		<textarea name="message"></textarea>
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["contact"])
}

func TestStrongestFormWinsPerCategory(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `
	<form action="/contact-us"><input type="text" name="name"></form>
	<form action="/contact">
		<input type="text" name="name">
		<textarea name="message"></textarea>
	</form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["contact"])
}

func TestMultipleFormsScoreIndependently(t *testing.T) {
	scorer := pagescore.NewScorer()
	doc := parse(t, `
	<form action="/search"><input type="text" name="q"></form>
	<form action="/session"><input type="password" name="pw"></form>`)

	scores := scorer.Score(doc)
	assert.Equal(t, 0.9, scores["search"])
	assert.Equal(t, 0.9, scores["login"])
	assert.Equal(t, 0.0, scores["contact"])
}
