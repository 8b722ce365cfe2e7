// internal/rules/classifier.go
package rules

import (
	"strings"

	"github.com/javajoker/verdict-cms/internal/models"
)

// Match probability thresholds; each bound is inclusive on the higher tier.
const (
	PrimaryThreshold       = 80.0
	LowConfidenceThreshold = 50.0
)

// DisplayModeFor maps a match probability (0-100) to a display tier.
func DisplayModeFor(probability float64) models.DisplayMode {
	switch {
	case probability >= PrimaryThreshold:
		return models.DisplayModePrimary
	case probability >= LowConfidenceThreshold:
		return models.DisplayModeLowConfidence
	default:
		return models.DisplayModeHidden
	}
}

// Classifier assigns display tiers and detection types to lab detections.
type Classifier struct {
	fragrance    map[string]bool
	disclosures  []string
	contaminants []string
}

func NewClassifier(tables *Tables) *Classifier {
	if tables == nil {
		tables = DefaultTables()
	}

	fragrance := make(map[string]bool, len(tables.FragranceComponents))
	for _, c := range tables.FragranceComponents {
		fragrance[c] = true
	}

	return &Classifier{
		fragrance:    fragrance,
		disclosures:  tables.DisclosureKeywords,
		contaminants: tables.Contaminants,
	}
}

var defaultClassifier = NewClassifier(nil)

// ClassifyDetection classifies a compound with the built-in tables.
func ClassifyDetection(compound, packageText string) models.DetectionType {
	return defaultClassifier.Classify(compound, packageText)
}

// Classify decides whether a compound is a disclosed fragrance component, a
// hidden contaminant or a standard finding.
func (c *Classifier) Classify(compound, packageText string) models.DetectionType {
	name := strings.ToLower(strings.TrimSpace(compound))
	text := strings.ToLower(packageText)

	if c.fragrance[name] && (strings.Contains(text, name) || c.hasDisclosure(text)) {
		return models.DetectionTypeFragranceComponent
	}

	for _, contaminant := range c.contaminants {
		if strings.Contains(name, contaminant) {
			return models.DetectionTypeHiddenContaminant
		}
	}

	return models.DetectionTypeStandard
}

func (c *Classifier) hasDisclosure(text string) bool {
	for _, kw := range c.disclosures {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Apply fills in missing display modes and detection types. Values that are
// already set are kept, so repeat saves are stable.
func (c *Classifier) Apply(detections models.Detections, packageText string) models.Detections {
	if detections == nil {
		return nil
	}

	out := make(models.Detections, len(detections))
	for i, d := range detections {
		if d.DisplayMode == "" && d.MatchProbability != nil {
			d.DisplayMode = DisplayModeFor(*d.MatchProbability)
		}
		if d.DetectionType == "" && d.Compound != "" {
			d.DetectionType = c.Classify(d.Compound, packageText)
		}
		out[i] = d
	}
	return out
}
