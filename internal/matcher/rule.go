// Package matcher resolves instruction text to a catalog (device, action)
// pair: deterministic rules first, then an optional semantic classifier.
package matcher

import (
	"strings"
	"unicode/utf8"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/models"
)

// Rule names the matching stage that produced a Match.
type Rule string

const (
	RuleActionName   Rule = "action_name"
	RuleDeviceAction Rule = "device_action_name"
	RuleAppAction    Rule = "app_action_name"
	RuleTokenCover   Rule = "token_cover"
	RuleSemantic     Rule = "semantic"
	RuleDirect       Rule = "direct"
)

const (
	confidenceExact    = 1.0
	confidenceCombined = 0.9
	confidenceTokenCap = 0.8
)

// Match is a resolved (device, action) pair.
type Match struct {
	Device     models.Device
	Action     models.Action
	Rule       Rule
	Confidence float64
	Reason     string
}

// RuleMatcher is the deterministic matcher. The zero value is ready to use.
type RuleMatcher struct {
	// MinTokenRunes is the shortest action-name token counted by the
	// token rule. Zero means 2.
	MinTokenRunes int
}

// Match returns the highest-priority match for text. A miss is (Match{}, false).
func (m RuleMatcher) Match(cat *catalog.Catalog, text string) (Match, bool) {
	if catalog.Normalize(text) == "" {
		return Match{}, false
	}

	if cands := cat.FindByLabel(text); len(cands) > 0 {
		c := cands[0]
		switch c.Kind {
		case catalog.LabelAction:
			return Match{Device: c.Device, Action: c.Action, Rule: RuleActionName, Confidence: confidenceExact}, true
		case catalog.LabelDeviceAction:
			return Match{Device: c.Device, Action: c.Action, Rule: RuleDeviceAction, Confidence: confidenceCombined}, true
		default:
			return Match{Device: c.Device, Action: c.Action, Rule: RuleAppAction, Confidence: confidenceCombined}, true
		}
	}

	return m.tokenCover(cat, text)
}

// tokenCover matches when every qualifying token of an action name occurs in
// the instruction. The best coverage wins; ties keep declaration order.
func (m RuleMatcher) tokenCover(cat *catalog.Catalog, text string) (Match, bool) {
	minRunes := m.MinTokenRunes
	if minRunes <= 0 {
		minRunes = 2
	}
	norm := catalog.Normalize(text)
	total := utf8.RuneCountInString(catalog.Compact(text))

	var (
		best  Match
		found bool
	)
	for _, d := range cat.ListDevices() {
		for _, a := range d.Actions {
			covered, ok := coverage(catalog.Normalize(a.Name), norm, minRunes)
			if !ok {
				continue
			}
			conf := float64(covered) / float64(total)
			if conf > confidenceTokenCap {
				conf = confidenceTokenCap
			}
			if !found || conf > best.Confidence {
				best = Match{Device: d, Action: a, Rule: RuleTokenCover, Confidence: conf}
				found = true
			}
		}
	}
	return best, found
}

// coverage returns the rune count of name's qualifying tokens when all of
// them occur in text. Names without a qualifying token never match.
func coverage(name, text string, minRunes int) (int, bool) {
	covered := 0
	for _, tok := range strings.Fields(name) {
		n := utf8.RuneCountInString(tok)
		if n < minRunes {
			continue
		}
		if !strings.Contains(text, tok) {
			return 0, false
		}
		covered += n
	}
	return covered, covered > 0
}
