// internal/rules/linter.go
package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/javajoker/verdict-cms/internal/models"
)

// Field labels used in linter errors.
const (
	FieldSummary    = "Summary"
	FieldReviewBody = "Review Body"
	FieldProsCons   = "Pros/Cons"
)

// Linter scans editorial text for legally risky wording.
type Linter struct {
	terms []string
}

// FieldMatch lists the prohibited terms found in one field.
type FieldMatch struct {
	Field string   `json:"field"`
	Terms []string `json:"terms"`
}

func (m FieldMatch) String() string {
	return fmt.Sprintf("PROHIBITED TERMS: %s contains prohibited terms: %s", m.Field, strings.Join(m.Terms, ", "))
}

func NewLinter(tables *Tables) *Linter {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Linter{terms: tables.ProhibitedTerms}
}

var defaultLinter = NewLinter(nil)

// ContainsProhibitedTerms scans text with the built-in term list.
func ContainsProhibitedTerms(text string) []string {
	return defaultLinter.Scan(text)
}

// Scan returns every term found in text as a case-insensitive substring, in
// table order. The result is empty, never nil, when nothing matches.
func (l *Linter) Scan(text string) []string {
	matches := []string{}
	if text == "" {
		return matches
	}

	lower := strings.ToLower(text)
	for _, term := range l.terms {
		if strings.Contains(lower, term) {
			matches = append(matches, term)
		}
	}
	return matches
}

// ScanProduct checks the summary, the review body as rendered text and the
// pros and cons joined together.
func (l *Linter) ScanProduct(p *models.Product) []FieldMatch {
	fields := []struct {
		name string
		text string
	}{
		{FieldSummary, p.Summary},
		{FieldReviewBody, htmlText(p.ReviewBody)},
		{FieldProsCons, strings.Join(append(append([]string{}, p.Pros...), p.Cons...), "\n")},
	}

	var found []FieldMatch
	for _, f := range fields {
		if terms := l.Scan(f.text); len(terms) > 0 {
			found = append(found, FieldMatch{Field: f.name, Terms: terms})
		}
	}
	return found
}

// htmlText flattens a rich-text review body to its text and comment nodes,
// wherever the parser places them. Tags and attribute values are not matched.
func htmlText(body string) string {
	if !strings.Contains(body, "<") {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}

	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(parts, " ")
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text", "#comment":
			if t := strings.TrimSpace(c.Nodes[0].Data); t != "" {
				*parts = append(*parts, t)
			}
		default:
			collectText(c, parts)
		}
	})
}
