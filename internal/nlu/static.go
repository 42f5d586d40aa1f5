package nlu

import (
	"context"
	"sync/atomic"
	"time"
)

// Static is a deterministic classifier keyed by exact instruction text.
// Unknown text yields a None classification.
type Static struct {
	Answers map[string]Classification
	Delay   time.Duration // simulated latency, honours ctx
	Err     error         // returned for every call when set

	calls atomic.Int64
}

// Calls reports how many times Classify ran.
func (s *Static) Calls() int64 { return s.calls.Load() }

// Classify implements Classifier.
func (s *Static) Classify(ctx context.Context, text string, _ CatalogSummary) (Classification, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Classification{}, deadlineErr(ctx, ctx.Err())
		case <-t.C:
		}
	}
	if s.Err != nil {
		return Classification{}, s.Err
	}
	if c, ok := s.Answers[text]; ok {
		return c, nil
	}
	return Classification{None: true, Reason: "no static answer"}, nil
}
