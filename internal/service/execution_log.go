package service

import (
	"context"
	"errors"
	"fmt"

	"home_dispatch/internal/hub"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
	"home_dispatch/internal/repository"
)

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// ExecutionLogService persists records and fans them out to live subscribers.
type ExecutionLogService struct {
	repo repository.ExecutionRepo
	hub  *hub.Hub
	log  *logger.Logger
}

func NewExecutionLogService(repo repository.ExecutionRepo, h *hub.Hub, log *logger.Logger) *ExecutionLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &ExecutionLogService{repo: repo, hub: h, log: log}
}

// Append stores the record and publishes it. Subscribers see the record even
// when storage failed; the error is still returned to the caller.
func (s *ExecutionLogService) Append(ctx context.Context, rec models.ExecutionRecord) error {
	err := s.repo.Append(ctx, rec)
	if s.hub != nil {
		s.hub.PublishRecord(rec)
	}
	if err != nil {
		return fmt.Errorf("append execution record: %w", err)
	}
	return nil
}

// List returns records newest first after validating the filter.
func (s *ExecutionLogService) List(ctx context.Context, f LogFilter) ([]models.ExecutionRecord, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rf)
}

// Subscribe attaches a live subscriber. The caller must Close it.
func (s *ExecutionLogService) Subscribe(buffer int) *hub.Subscription {
	return s.hub.Subscribe(buffer)
}

func normalizeAndValidateFilter(f LogFilter) (repository.ExecutionFilter, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return repository.ExecutionFilter{}, fmt.Errorf("%w: %w", ErrInvalidInput, errInvalidTimeRange)
	}
	rf := repository.ExecutionFilter{
		From:     f.From,
		To:       f.To,
		DeviceID: f.DeviceID,
		Limit:    f.Limit,
	}
	if f.Source != "" {
		src := models.Source(f.Source)
		if !src.Valid() {
			return repository.ExecutionFilter{}, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, f.Source)
		}
		rf.Source = src
	}
	switch models.ResolutionStatus(f.Status) {
	case "":
	case models.ResolutionMatched, models.ResolutionUnresolved:
		rf.Status = models.ResolutionStatus(f.Status)
	default:
		return repository.ExecutionFilter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Limit < 0 {
		return repository.ExecutionFilter{}, fmt.Errorf("%w: negative limit", ErrInvalidInput)
	}
	return rf, nil
}
