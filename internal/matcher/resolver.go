package matcher

import (
	"context"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/models"
)

// Resolver chains the rule matcher and the semantic matcher.
type Resolver struct {
	Rules    RuleMatcher
	Semantic *SemanticMatcher
}

// NewResolver builds a resolver. semantic may be nil.
func NewResolver(semantic *SemanticMatcher) *Resolver {
	return &Resolver{Semantic: semantic}
}

// Resolve maps text to a pair against one catalog snapshot. The returned
// Resolution is always filled; Match is only meaningful when it is matched.
func (r *Resolver) Resolve(ctx context.Context, cat *catalog.Catalog, text string) (Match, models.Resolution) {
	if catalog.Normalize(text) == "" {
		return Match{}, Unresolved(ReasonEmpty)
	}
	if m, ok := r.Rules.Match(cat, text); ok {
		return m, Resolved(m, models.MethodRule)
	}

	res := r.Semantic.Resolve(ctx, cat, text)
	if !res.Matched {
		u := Unresolved(res.Reason)
		if res.Detail != "" {
			u.Reason = res.Reason + ": " + res.Detail
		}
		return Match{}, u
	}
	return res.Match, Resolved(res.Match, models.MethodSemantic)
}

// Resolved describes a match as a matched Resolution.
func Resolved(m Match, method models.ResolutionMethod) models.Resolution {
	return models.Resolution{
		Status:     models.ResolutionMatched,
		Method:     method,
		Rule:       string(m.Rule),
		DeviceID:   m.Device.ID,
		ActionID:   m.Action.ID,
		DeviceName: m.Device.Name,
		ActionName: m.Action.Name,
		Confidence: m.Confidence,
		Reason:     m.Reason,
	}
}

// Unresolved builds an unresolved Resolution carrying reason.
func Unresolved(reason string) models.Resolution {
	return models.Resolution{Status: models.ResolutionUnresolved, Reason: reason}
}
