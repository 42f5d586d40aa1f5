package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"home_dispatch/internal/agent"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
	"home_dispatch/internal/render"

	"github.com/google/uuid"
)

// DefaultAgentTimeout bounds one agent submission when none is configured.
const DefaultAgentTimeout = 30 * time.Second

// DispatcherService renders a resolved action and submits it to the agent.
// There is no automatic retry: each call submits at most once.
type DispatcherService struct {
	agent   agent.Executor
	log     ExecutionLog
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time
	newID   func() string
}

func NewDispatcherService(exec agent.Executor, execLog ExecutionLog, timeout time.Duration, log *logger.Logger) *DispatcherService {
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DispatcherService{
		agent:   exec,
		log:     execLog,
		timeout: timeout,
		logger:  log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Dispatch records exactly one execution record. A template failure is
// recorded and returned as an error wrapping render.ErrTemplateResolution.
// An agent failure is recorded in the outcome and the returned error is nil.
func (s *DispatcherService) Dispatch(ctx context.Context, req DispatchRequest) (models.ExecutionRecord, error) {
	rec := models.ExecutionRecord{
		ID:          s.newID(),
		OccurredAt:  s.now().UTC(),
		Source:      req.Source,
		Instruction: req.Instruction,
		Resolution:  req.Resolution,
	}

	command, err := render.Render(req.Action, req.Device)
	if err != nil {
		rec.Dispatch = &models.DispatchOutcome{Success: false, Error: err.Error()}
		s.logger.Errorw("template_resolution_failed",
			"device_id", req.Device.ID, "action_id", req.Action.ID, "error", err)
		s.persist(ctx, rec)
		return rec, fmt.Errorf("dispatch %s/%s: %w", req.Device.ID, req.Action.ID, err)
	}

	rec.Dispatch = s.submit(ctx, command)
	if rec.Dispatch.Success {
		s.logger.Infow("dispatch_succeeded",
			"device_id", req.Device.ID, "action_id", req.Action.ID, "source", req.Source,
			"duration_ms", rec.Dispatch.DurationMs)
	} else {
		s.logger.Warnw("dispatch_failed",
			"device_id", req.Device.ID, "action_id", req.Action.ID, "source", req.Source,
			"error", rec.Dispatch.Error)
	}
	s.persist(ctx, rec)
	return rec, nil
}

func (s *DispatcherService) submit(ctx context.Context, command string) *models.DispatchOutcome {
	out := &models.DispatchOutcome{Command: command}
	if s.agent == nil {
		out.Error = "no automation agent configured"
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.agent.Execute(ctx, command)
	out.DurationMs = time.Since(start).Milliseconds()
	out.Detail = res.Detail

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Error = fmt.Sprintf("agent timed out after %s", s.timeout)
	case err != nil:
		out.Error = err.Error()
	case !res.Success && strings.TrimSpace(res.Detail) != "":
		out.Error = strings.TrimSpace(res.Detail)
	case !res.Success:
		out.Error = "agent reported failure"
	default:
		out.Success = true
	}
	return out
}

// persist outlives request cancellation so a dispatched command always leaves a record.
func (s *DispatcherService) persist(ctx context.Context, rec models.ExecutionRecord) {
	if err := s.log.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Errorw("execution_record_persist_failed", "record_id", rec.ID, "error", err)
	}
}
