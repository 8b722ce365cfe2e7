// internal/rules/classifier_test.go
package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/javajoker/verdict-cms/internal/models"
)

func prob(v float64) *float64 { return &v }

func TestDisplayModeFor(t *testing.T) {
	tests := []struct {
		probability float64
		want        models.DisplayMode
	}{
		{100, models.DisplayModePrimary},
		{80, models.DisplayModePrimary},
		{79.9, models.DisplayModeLowConfidence},
		{50, models.DisplayModeLowConfidence},
		{49.99, models.DisplayModeHidden},
		{0, models.DisplayModeHidden},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayModeFor(tt.probability), "probability %v", tt.probability)
	}
}

func TestClassifyDetection(t *testing.T) {
	tests := []struct {
		name        string
		compound    string
		packageText string
		want        models.DetectionType
	}{
		{"disclosed by name and keyword", "Limonene", "Ingredients: Fragrance, Limonene, Water", models.DetectionTypeFragranceComponent},
		{"no disclosure", "Limonene", "Ingredients: Water", models.DetectionTypeStandard},
		{"disclosed by name only", "Linalool", "Ingredients: Water, LINALOOL", models.DetectionTypeFragranceComponent},
		{"disclosed by generic keyword", "Coumarin", "Aqua, Parfum", models.DetectionTypeFragranceComponent},
		{"may contain wording", "Geraniol", "May contain traces of nuts", models.DetectionTypeFragranceComponent},
		{"contaminant regardless of disclosure", "Lead", "Ingredients: Fragrance, Lead", models.DetectionTypeHiddenContaminant},
		{"contaminant substring", "Benzene (trace)", "", models.DetectionTypeHiddenContaminant},
		{"dioxane", "1,4-Dioxane", "Sodium Laureth Sulfate", models.DetectionTypeHiddenContaminant},
		{"keyword without whitelist", "Caffeine", "Fragrance", models.DetectionTypeStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDetection(tt.compound, tt.packageText))
		})
	}
}

func TestClassifierApplyFillsMissingFields(t *testing.T) {
	c := NewClassifier(nil)
	in := models.Detections{
		{Compound: "Limonene", MatchProbability: prob(92)},
		{Compound: "Lead", MatchProbability: prob(65)},
		{Compound: "Caffeine", MatchProbability: prob(12)},
		{Compound: "Mystery"},
	}

	out := c.Apply(in, "Ingredients: Water, Fragrance")

	assert.Equal(t, models.DisplayModePrimary, out[0].DisplayMode)
	assert.Equal(t, models.DetectionTypeFragranceComponent, out[0].DetectionType)
	assert.Equal(t, models.DisplayModeLowConfidence, out[1].DisplayMode)
	assert.Equal(t, models.DetectionTypeHiddenContaminant, out[1].DetectionType)
	assert.Equal(t, models.DisplayModeHidden, out[2].DisplayMode)
	assert.Equal(t, models.DetectionTypeStandard, out[2].DetectionType)
	assert.Empty(t, out[3].DisplayMode, "no probability means no derived display mode")

	// input untouched
	assert.Empty(t, in[0].DisplayMode)
}

func TestClassifierApplyIsIdempotent(t *testing.T) {
	c := NewClassifier(nil)
	in := models.Detections{
		{Compound: "Lead", MatchProbability: prob(95), DisplayMode: models.DisplayModeHidden, DetectionType: models.DetectionTypeStandard},
	}

	first := c.Apply(in, "")
	second := c.Apply(first, "Fragrance")

	assert.Equal(t, models.DisplayModeHidden, second[0].DisplayMode)
	assert.Equal(t, models.DetectionTypeStandard, second[0].DetectionType)
	assert.Equal(t, first, second)
}
