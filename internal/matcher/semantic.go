package matcher

import (
	"context"
	"errors"
	"time"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/nlu"
	"home_dispatch/internal/render"
)

// Reasons reported when the semantic stage does not produce a match.
const (
	ReasonDisabled        = "semantic_disabled"
	ReasonTimeout         = "timeout"
	ReasonClassifierError = "classifier_error"
	ReasonNoMatch         = "no_match"
	ReasonUnknownPair     = "unknown_pair"
	ReasonEmpty           = "empty_instruction"
)

// DefaultSemanticTimeout bounds a classifier call when none is configured.
const DefaultSemanticTimeout = 10 * time.Second

// SemanticResult is the outcome of a semantic resolution attempt.
type SemanticResult struct {
	Matched bool
	Match   Match
	Reason  string // set when !Matched
	Detail  string // provider reason or error text
}

// SemanticMatcher asks a classifier for a pair and validates it against the
// snapshot it was given.
type SemanticMatcher struct {
	classifier nlu.Classifier
	timeout    time.Duration
	log        *logger.Logger
}

// NewSemanticMatcher wraps classifier. A nil classifier disables the stage.
func NewSemanticMatcher(classifier nlu.Classifier, timeout time.Duration, log *logger.Logger) *SemanticMatcher {
	if timeout <= 0 {
		timeout = DefaultSemanticTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SemanticMatcher{classifier: classifier, timeout: timeout, log: log}
}

// Enabled reports whether a classifier is configured.
func (s *SemanticMatcher) Enabled() bool { return s != nil && s.classifier != nil }

// Resolve classifies text under the matcher timeout.
func (s *SemanticMatcher) Resolve(ctx context.Context, cat *catalog.Catalog, text string) SemanticResult {
	if !s.Enabled() {
		return SemanticResult{Reason: ReasonDisabled}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cls, err := s.classifier.Classify(ctx, text, Summarize(cat))
	switch {
	case err != nil && (errors.Is(err, nlu.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)):
		s.log.Warnw("semantic_match_timeout", "text", text, "timeout", s.timeout)
		return SemanticResult{Reason: ReasonTimeout, Detail: err.Error()}
	case err != nil:
		s.log.Errorw("semantic_match_failed", "text", text, "error", err)
		return SemanticResult{Reason: ReasonClassifierError, Detail: err.Error()}
	case cls.None:
		return SemanticResult{Reason: ReasonNoMatch, Detail: cls.Reason}
	}

	d, a, err := cat.FindAction(cls.DeviceID, cls.ActionID)
	if err != nil {
		s.log.Warnw("semantic_match_unknown_pair", "device_id", cls.DeviceID, "action_id", cls.ActionID)
		return SemanticResult{Reason: ReasonUnknownPair, Detail: err.Error()}
	}
	return SemanticResult{
		Matched: true,
		Match: Match{
			Device:     d,
			Action:     a,
			Rule:       RuleSemantic,
			Confidence: cls.Confidence,
			Reason:     cls.Reason,
		},
	}
}

// Summarize builds the classifier's view of a catalog. Actions carry their
// rendered command as a description.
func Summarize(cat *catalog.Catalog) nlu.CatalogSummary {
	devices := cat.ListDevices()
	out := nlu.CatalogSummary{Devices: make([]nlu.DeviceSummary, 0, len(devices))}
	for _, d := range devices {
		ds := nlu.DeviceSummary{ID: d.ID, Name: d.Name, App: d.App}
		for _, a := range d.Actions {
			desc, _ := render.Render(a, d)
			ds.Actions = append(ds.Actions, nlu.ActionSummary{ID: a.ID, Name: a.Name, Description: desc})
		}
		out.Devices = append(out.Devices, ds)
	}
	return out
}
