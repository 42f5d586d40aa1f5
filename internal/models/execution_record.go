package models

import "time"

// Source identifies where an instruction came from.
type Source string

const (
	SourcePanel     Source = "panel"
	SourceVoice     Source = "voice"
	SourceScheduler Source = "scheduler"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourcePanel, SourceVoice, SourceScheduler:
		return true
	}
	return false
}

// ResolutionStatus is the outcome of mapping an instruction to an action.
type ResolutionStatus string

const (
	ResolutionMatched    ResolutionStatus = "matched"
	ResolutionUnresolved ResolutionStatus = "unresolved"
)

// ResolutionMethod tells which stage produced a match.
type ResolutionMethod string

const (
	MethodDirect   ResolutionMethod = "direct"   // (device, action) pair supplied by caller
	MethodRule     ResolutionMethod = "rule"     // deterministic rule matcher
	MethodSemantic ResolutionMethod = "semantic" // NLU classifier
)

// Resolution describes how an instruction was (or was not) resolved.
type Resolution struct {
	Status     ResolutionStatus `json:"status"`
	Method     ResolutionMethod `json:"method,omitempty"`
	Rule       string           `json:"rule,omitempty"`
	DeviceID   string           `json:"device_id,omitempty"`
	ActionID   string           `json:"action_id,omitempty"`
	DeviceName string           `json:"device_name,omitempty"`
	ActionName string           `json:"action_name,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Matched reports whether the resolution points at an action.
func (r Resolution) Matched() bool { return r.Status == ResolutionMatched }

// DispatchOutcome captures what happened when a rendered command was submitted.
type DispatchOutcome struct {
	Success    bool   `json:"success"`
	Command    string `json:"command,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ExecutionRecord is a single append-only log entry for one resolution attempt.
type ExecutionRecord struct {
	ID          string           `json:"id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Source      Source           `json:"source"`
	Instruction string           `json:"instruction"`
	Resolution  Resolution       `json:"resolution"`
	Dispatch    *DispatchOutcome `json:"dispatch,omitempty"` // nil when unresolved
}
