package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/matcher"
	"home_dispatch/internal/models"
	"home_dispatch/internal/render"

	"github.com/google/uuid"
)

// InstructionService turns triggers into dispatches. Each call works on one
// catalog snapshot taken at entry, so a concurrent reload never mixes two
// catalogs within a resolution.
type InstructionService struct {
	store      *catalog.Store
	resolver   *matcher.Resolver
	dispatcher Dispatcher
	execLog    ExecutionLog
	log        *logger.Logger
	now        func() time.Time
	newID      func() string
}

func NewInstructionService(store *catalog.Store, resolver *matcher.Resolver, dispatcher Dispatcher, execLog ExecutionLog, log *logger.Logger) *InstructionService {
	if log == nil {
		log = logger.Nop()
	}
	return &InstructionService{
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		execLog:    execLog,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *InstructionService) snapshot() *catalog.Catalog {
	if s.store == nil {
		return catalog.Empty()
	}
	return s.store.Current()
}

// Submit resolves text and dispatches the match.
func (s *InstructionService) Submit(ctx context.Context, text string, source models.Source) (models.ExecutionRecord, error) {
	if source == "" {
		source = models.SourcePanel
	}
	if !source.Valid() {
		return models.ExecutionRecord{}, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, source)
	}
	text = strings.TrimSpace(text)

	cat := s.snapshot()
	m, res := s.resolver.Resolve(ctx, cat, text)
	if !res.Matched() {
		s.log.Infow("instruction_unresolved", "source", source, "instruction", text, "reason", res.Reason)
		return s.recordUnresolved(ctx, text, source, res), nil
	}

	s.log.Infow("instruction_resolved",
		"source", source, "device_id", m.Device.ID, "action_id", m.Action.ID,
		"method", res.Method, "rule", res.Rule, "confidence", res.Confidence)

	return s.dispatcher.Dispatch(ctx, DispatchRequest{
		Instruction: text,
		Source:      source,
		Device:      m.Device,
		Action:      m.Action,
		Resolution:  res,
	})
}

// ExecuteAction dispatches a known pair. An unknown pair is recorded as
// unresolved and reported as ErrNotFound.
func (s *InstructionService) ExecuteAction(ctx context.Context, req ActionRequest) (models.ExecutionRecord, error) {
	if req.Source == "" {
		req.Source = models.SourcePanel
	}
	if !req.Source.Valid() {
		return models.ExecutionRecord{}, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, req.Source)
	}

	device, action, err := s.snapshot().FindAction(req.DeviceID, req.ActionID)
	if err != nil {
		label := req.Label
		if label == "" {
			label = req.DeviceID + "/" + req.ActionID
		}
		res := matcher.Unresolved(matcher.ReasonUnknownPair)
		res.DeviceID, res.ActionID = req.DeviceID, req.ActionID
		s.log.Warnw("unknown_action_pair", "source", req.Source, "device_id", req.DeviceID, "action_id", req.ActionID)
		rec := s.recordUnresolved(ctx, label, req.Source, res)
		return rec, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	label := req.Label
	if label == "" {
		label = action.Name
	}
	res := matcher.Resolved(matcher.Match{
		Device:     device,
		Action:     action,
		Rule:       matcher.RuleDirect,
		Confidence: 1,
	}, models.MethodDirect)

	return s.dispatcher.Dispatch(ctx, DispatchRequest{
		Instruction: label,
		Source:      req.Source,
		Device:      device,
		Action:      action,
		Resolution:  res,
	})
}

// Preview resolves and renders text without dispatching or recording.
func (s *InstructionService) Preview(ctx context.Context, text string) (Preview, error) {
	m, res := s.resolver.Resolve(ctx, s.snapshot(), strings.TrimSpace(text))
	p := Preview{Resolution: res}
	if !res.Matched() {
		return p, nil
	}
	cmd, err := render.Render(m.Action, m.Device)
	if err != nil {
		return p, err
	}
	p.Command = cmd
	return p, nil
}

func (s *InstructionService) recordUnresolved(ctx context.Context, text string, source models.Source, res models.Resolution) models.ExecutionRecord {
	rec := models.ExecutionRecord{
		ID:          s.newID(),
		OccurredAt:  s.now().UTC(),
		Source:      source,
		Instruction: text,
		Resolution:  res,
	}
	if err := s.execLog.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Errorw("execution_record_persist_failed", "record_id", rec.ID, "error", err)
	}
	return rec
}
