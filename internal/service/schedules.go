package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
	"home_dispatch/internal/repository"
	"home_dispatch/internal/schedule"

	"github.com/google/uuid"
)

// ScheduleService stores job definitions and keeps the scheduler's live set
// in step with them.
type ScheduleService struct {
	repo      repository.ScheduleRepo
	store     *catalog.Store
	scheduler *SchedulerService
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewScheduleService(repo repository.ScheduleRepo, store *catalog.Store, scheduler *SchedulerService, log *logger.Logger) *ScheduleService {
	if log == nil {
		log = logger.Nop()
	}
	return &ScheduleService{
		repo:      repo,
		store:     store,
		scheduler: scheduler,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *ScheduleService) ListJobs(ctx context.Context) ([]JobView, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, s.view(j))
	}
	return out, nil
}

func (s *ScheduleService) GetJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobView{}, jobNotFound(err)
	}
	return s.view(job), nil
}

func (s *ScheduleService) CreateJob(ctx context.Context, in JobInput) (JobView, error) {
	job := models.ScheduledJob{ID: s.newID(), Enabled: true}
	if err := s.apply(&job, in); err != nil {
		return JobView{}, err
	}
	now := s.now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	if err := s.repo.Create(ctx, job); err != nil {
		return JobView{}, err
	}
	s.scheduler.Register(job)
	s.log.Infow("scheduled_job_created", "job_id", job.ID, "device_id", job.DeviceID, "action_id", job.ActionID)
	return s.view(job), nil
}

// UpdateJob replaces a job definition. A nil Enabled keeps the stored flag.
func (s *ScheduleService) UpdateJob(ctx context.Context, id string, in JobInput) (JobView, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobView{}, jobNotFound(err)
	}
	if err := s.apply(&job, in); err != nil {
		return JobView{}, err
	}
	job.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, job); err != nil {
		return JobView{}, jobNotFound(err)
	}
	s.scheduler.Register(job)
	s.log.Infow("scheduled_job_updated", "job_id", job.ID, "enabled", job.Enabled)
	return s.view(job), nil
}

func (s *ScheduleService) DeleteJob(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return jobNotFound(err)
	}
	s.scheduler.Unregister(id)
	s.log.Infow("scheduled_job_deleted", "job_id", id)
	return nil
}

// apply validates in against the current catalog and copies it onto job.
func (s *ScheduleService) apply(job *models.ScheduledJob, in JobInput) error {
	deviceID := strings.TrimSpace(in.DeviceID)
	actionID := strings.TrimSpace(in.ActionID)
	if deviceID == "" || actionID == "" {
		return fmt.Errorf("%w: device_id and action_id are required", ErrInvalidInput)
	}
	if err := schedule.Validate(in.Recurrence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	_, action, err := s.store.Current().FindAction(deviceID, actionID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	job.Name = strings.TrimSpace(in.Name)
	if job.Name == "" {
		job.Name = action.Name
	}
	job.DeviceID = deviceID
	job.ActionID = actionID
	job.Recurrence = in.Recurrence
	if in.Enabled != nil {
		job.Enabled = *in.Enabled
	}
	return nil
}

func (s *ScheduleService) view(job models.ScheduledJob) JobView {
	v := JobView{
		ScheduledJob: job,
		Description:  schedule.Describe(job.Recurrence),
		State:        JobIdle,
	}
	if d, a, err := s.store.Current().FindAction(job.DeviceID, job.ActionID); err == nil {
		v.DeviceName, v.ActionName = d.Name, a.Name
	}
	if st, ok := s.scheduler.statusOf(job.ID); ok {
		v.State = st.State
		v.NextFire = st.NextFire
	}
	return v
}

func jobNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
