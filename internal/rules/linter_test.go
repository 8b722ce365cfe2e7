// internal/rules/linter_test.go
package rules

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/verdict-cms/internal/models"
)

func TestContainsProhibitedTerms(t *testing.T) {
	assert.Equal(t, []string{"toxic"}, ContainsProhibitedTerms("This product is TOXIC"))
	assert.Equal(t, []string{}, ContainsProhibitedTerms("This product is great"))
	assert.Equal(t, []string{}, ContainsProhibitedTerms(""))
	assert.Equal(t, []string{"dangerous", "avoid"}, ContainsProhibitedTerms("Avoid it, it is dangerous"))
}

func TestLinterUsesConfiguredTerms(t *testing.T) {
	l := NewLinter(&Tables{ProhibitedTerms: []string{"meh"}})

	assert.Equal(t, []string{"meh"}, l.Scan("Honestly MEH."))
	assert.Empty(t, l.Scan("toxic"))
}

func TestScanProductReportsEachField(t *testing.T) {
	l := NewLinter(nil)
	p := &models.Product{
		Summary:    "A scam in a bottle",
		ReviewBody: `<p>Great texture.</p><p class="toxic-note">Smells nice</p>`,
		Pros:       pq.StringArray{"cheap"},
		Cons:       pq.StringArray{"we would never buy it again"},
	}

	matches := l.ScanProduct(p)

	require.Len(t, matches, 2)
	assert.Equal(t, FieldMatch{Field: FieldSummary, Terms: []string{"scam"}}, matches[0])
	assert.Equal(t, FieldMatch{Field: FieldProsCons, Terms: []string{"never buy"}}, matches[1])
	assert.Contains(t, matches[0].String(), "Summary")
}

func TestScanProductReadsReviewBodyText(t *testing.T) {
	l := NewLinter(nil)
	p := &models.Product{ReviewBody: "<div><h2>Verdict</h2><p>The formula is <strong>harmful</strong>.</p></div>"}

	matches := l.ScanProduct(p)

	require.Len(t, matches, 1)
	assert.Equal(t, FieldReviewBody, matches[0].Field)
	assert.Equal(t, []string{"harmful"}, matches[0].Terms)
}

func TestScanProductReadsTextOutsideBody(t *testing.T) {
	l := NewLinter(nil)

	for _, body := range []string{
		"<title>Toxic findings</title><p>fine</p>",
		"<!-- toxic --><p>ok</p>",
		"<p>ok</p><!-- toxic -->",
	} {
		matches := l.ScanProduct(&models.Product{ReviewBody: body})
		require.Len(t, matches, 1, body)
		assert.Equal(t, []string{"toxic"}, matches[0].Terms, body)
	}

	assert.Empty(t, l.ScanProduct(&models.Product{ReviewBody: `<a href="/toxic-report" title="deadly">report</a>`}))
}
