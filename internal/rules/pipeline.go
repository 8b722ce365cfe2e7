// internal/rules/pipeline.go
package rules

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/models"
)

// Stage names, in execution order.
const (
	StageClassify        = "classify_detections"
	StageConflicts       = "conflict_detection"
	StageOverride        = "verdict_override"
	StageLegalDefense    = "legal_defense"
	StageProhibitedTerms = "prohibited_terms"
	StagePublication     = "publication"
)

// Actor is the user performing the save.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  models.UserRole
}

// SaveContext carries per-request state into every step.
type SaveContext struct {
	Actor    *Actor
	Previous *models.Product
	Now      time.Time
}

// Publishing reports whether the candidate is saved with status published.
func (sc *SaveContext) Publishing(p *models.Product) bool {
	return p.Status == models.ProductStatusPublished
}

// StepResult is what a step hands back to the pipeline.
type StepResult struct {
	Product   *models.Product
	Events    []AuditEvent
	Errors    []string
	Conflicts *ConflictResult
}

// Step is one rule in the save pipeline. A fatal step stops the pipeline on
// error; a non-fatal step's errors are collected and reported after every
// step has run.
type Step struct {
	Name    string
	Fatal   bool
	Run     func(ctx context.Context, sc *SaveContext, p *models.Product) StepResult
	Message func(errs []string) string
}

// Outcome is an accepted save.
type Outcome struct {
	Product   *models.Product
	Conflicts ConflictResult
	Events    []AuditEvent
}

type Pipeline struct {
	steps      []Step
	finalizers []Step
	classifier *Classifier
	detector   *ConflictDetector
	linter     *Linter
	log        logrus.FieldLogger
}

func NewPipeline(tables *Tables, categories CategoryRuleSource, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := &Pipeline{
		classifier: NewClassifier(tables),
		detector:   NewConflictDetector(categories, log),
		linter:     NewLinter(tables),
		log:        log,
	}
	p.steps = []Step{
		{Name: StageClassify, Run: p.classifyStep},
		{Name: StageConflicts, Fatal: true, Run: p.conflictStep, Message: conflictMessage},
		{Name: StageOverride, Run: overrideStep},
		{Name: StageLegalDefense, Fatal: true, Run: legalDefenseStep, Message: FormatPublicationErrors},
		{Name: StageProhibitedTerms, Run: p.prohibitedTermsStep, Message: prohibitedTermsMessage},
	}
	// Finalizers only run once every check has passed.
	p.finalizers = []Step{
		{Name: StagePublication, Run: publicationStep},
	}
	return p
}

// Steps returns the ordered step names.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.steps)+len(p.finalizers))
	for _, s := range p.steps {
		names = append(names, s.Name)
	}
	for _, s := range p.finalizers {
		names = append(names, s.Name)
	}
	return names
}

// Run executes every step over a copy of candidate. The candidate itself is
// never modified. On refusal the error is a *Rejection.
func (p *Pipeline) Run(ctx context.Context, sc SaveContext, candidate *models.Product) (*Outcome, error) {
	if sc.Now.IsZero() {
		sc.Now = time.Now()
	}

	doc := candidate.Clone()
	var (
		events    []AuditEvent
		conflicts ConflictResult
		lintStage string
		lintErrs  []string
		lintMsg   func([]string) string
	)

	for _, step := range p.steps {
		res := step.Run(ctx, &sc, doc)
		events = append(events, res.Events...)
		if res.Conflicts != nil {
			conflicts = *res.Conflicts
		}

		if len(res.Errors) > 0 {
			if step.Fatal {
				p.log.WithFields(logrus.Fields{
					"stage":      step.Name,
					"product_id": doc.ID.String(),
					"errors":     len(res.Errors),
				}).Info("Product save rejected")
				return nil, newRejection(step, res.Errors, events, conflicts)
			}
			if lintStage == "" {
				lintStage, lintMsg = step.Name, step.Message
			}
			lintErrs = append(lintErrs, res.Errors...)
			continue
		}

		if res.Product != nil {
			doc = res.Product
		}
	}

	if len(lintErrs) > 0 {
		p.log.WithFields(logrus.Fields{
			"stage":      lintStage,
			"product_id": doc.ID.String(),
			"errors":     len(lintErrs),
		}).Info("Product save rejected")
		return nil, newRejection(Step{Name: lintStage, Message: lintMsg}, lintErrs, events, conflicts)
	}

	for _, step := range p.finalizers {
		res := step.Run(ctx, &sc, doc)
		events = append(events, res.Events...)
		if res.Product != nil {
			doc = res.Product
		}
	}

	return &Outcome{Product: doc, Conflicts: conflicts, Events: events}, nil
}

func newRejection(step Step, errs []string, events []AuditEvent, conflicts ConflictResult) *Rejection {
	msg := strings.Join(errs, "\n")
	if step.Message != nil {
		msg = step.Message(errs)
	}
	r := &Rejection{Stage: step.Name, Errors: errs, Message: msg, Events: checkEvents(events)}
	if conflicts.Conflicts != nil {
		c := conflicts
		r.Conflicts = &c
	}
	return r
}

// checkEvents drops bookkeeping events that only make sense for a save that
// went through.
func checkEvents(events []AuditEvent) []AuditEvent {
	var out []AuditEvent
	for _, e := range events {
		if e.Action == models.AuditActionVerdictOverride || e.Action == models.AuditActionPublished {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (p *Pipeline) classifyStep(_ context.Context, _ *SaveContext, doc *models.Product) StepResult {
	doc.Detections = p.classifier.Apply(doc.Detections, doc.PackageText)
	return StepResult{Product: doc}
}

func (p *Pipeline) conflictStep(ctx context.Context, sc *SaveContext, doc *models.Product) StepResult {
	result := p.detector.Detect(ctx, CandidateFromProduct(doc))

	checkedAt := sc.Now
	doc.Conflicts = models.ConflictReport{Items: result.Conflicts, CheckedAt: &checkedAt}

	res := StepResult{Product: doc, Conflicts: &result}
	if result.HasConflicts {
		e := productEvent(sc, doc, models.AuditActionConflictDetected)
		e.Metadata = map[string]interface{}{
			"conflicts":        result.Conflicts,
			"can_save":         result.CanSave,
			"verdict":          string(doc.Verdict),
			"verdict_override": doc.VerdictOverride,
		}
		res.Events = append(res.Events, e)
	}
	if !result.CanSave {
		res.Errors = result.Errors()
	}
	return res
}

func conflictMessage(errs []string) string {
	return numbered("Cannot save: the verdict conflicts with category rules. Enable verdict override with a reason to proceed:", errs)
}

// OverrideTransition reports whether this save turns the verdict override on.
func OverrideTransition(previous, candidate *models.Product) bool {
	wasOverridden := previous != nil && previous.VerdictOverride
	return candidate.VerdictOverride && !wasOverridden
}

func overrideStep(_ context.Context, sc *SaveContext, doc *models.Product) StepResult {
	if !OverrideTransition(sc.Previous, doc) {
		// Stamps are write-once per transition and never cleared.
		doc.VerdictOverriddenBy, doc.VerdictOverriddenAt = nil, nil
		if sc.Previous != nil {
			doc.VerdictOverriddenBy = sc.Previous.VerdictOverriddenBy
			doc.VerdictOverriddenAt = sc.Previous.VerdictOverriddenAt
		}
		return StepResult{Product: doc}
	}

	at := sc.Now
	doc.VerdictOverriddenAt = &at
	doc.VerdictOverriddenBy = nil
	if sc.Actor != nil {
		id := sc.Actor.ID
		doc.VerdictOverriddenBy = &id
	}

	e := productEvent(sc, doc, models.AuditActionVerdictOverride)
	before := map[string]interface{}{"auto_verdict": string(doc.AutoVerdict)}
	if sc.Previous != nil {
		before["verdict"] = string(sc.Previous.Verdict)
	}
	e.Before = before
	e.After = map[string]interface{}{"verdict": string(doc.Verdict)}
	e.Metadata = map[string]interface{}{"reason": doc.VerdictOverrideReason}

	return StepResult{Product: doc, Events: []AuditEvent{e}}
}

func legalDefenseStep(_ context.Context, sc *SaveContext, doc *models.Product) StepResult {
	errs := ValidatePublication(doc)
	if len(errs) == 0 {
		return StepResult{Product: doc}
	}

	e := productEvent(sc, doc, models.AuditActionPublishBlocked)
	e.Metadata = map[string]interface{}{
		"stage":     StageLegalDefense,
		"errors":    errs,
		"timestamp": sc.Now.UTC().Format(time.RFC3339),
	}
	return StepResult{Events: []AuditEvent{e}, Errors: errs}
}

func (p *Pipeline) prohibitedTermsStep(_ context.Context, sc *SaveContext, doc *models.Product) StepResult {
	if !sc.Publishing(doc) {
		return StepResult{Product: doc}
	}

	matches := p.linter.ScanProduct(doc)
	if len(matches) == 0 {
		return StepResult{Product: doc}
	}

	errs := make([]string, len(matches))
	for i, m := range matches {
		errs[i] = m.String()
	}

	e := productEvent(sc, doc, models.AuditActionPublishBlocked)
	e.Metadata = map[string]interface{}{
		"stage":     StageProhibitedTerms,
		"matches":   matches,
		"timestamp": sc.Now.UTC().Format(time.RFC3339),
	}
	return StepResult{Events: []AuditEvent{e}, Errors: errs}
}

func prohibitedTermsMessage(errs []string) string {
	return numbered("Cannot publish: prohibited terms found.", errs)
}

func publicationStep(_ context.Context, sc *SaveContext, doc *models.Product) StepResult {
	if !sc.Publishing(doc) {
		return StepResult{Product: doc}
	}

	if sc.Previous != nil && sc.Previous.Status == models.ProductStatusPublished {
		if doc.PublishedAt == nil {
			doc.PublishedAt = sc.Previous.PublishedAt
		}
		return StepResult{Product: doc}
	}

	at := sc.Now
	doc.PublishedAt = &at

	e := productEvent(sc, doc, models.AuditActionPublished)
	if sc.Previous != nil {
		e.Before = map[string]interface{}{"status": string(sc.Previous.Status)}
	}
	e.After = map[string]interface{}{"status": string(doc.Status), "verdict": string(doc.Verdict)}
	return StepResult{Product: doc, Events: []AuditEvent{e}}
}
