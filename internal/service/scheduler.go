package service

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"home_dispatch/internal/logger"
	"home_dispatch/internal/models"
	"home_dispatch/internal/repository"
	"home_dispatch/internal/schedule"
)

// DefaultSchedulerTick is how often the scheduler evaluates due jobs.
const DefaultSchedulerTick = time.Second

// SchedulerService keeps the live job set and fires due jobs through the
// same path as panel requests. Each job moves Idle -> Due -> Dispatching -> Idle.
// Missed fires are never backfilled: a job registered after its time of day
// first fires at the next occurrence.
type SchedulerService struct {
	repo  repository.ScheduleRepo
	instr Instructions
	loc   *time.Location
	log   *logger.Logger
	now   func() time.Time

	mu   sync.Mutex
	jobs map[string]*jobEntry
	wg   sync.WaitGroup // in-flight dispatches
}

type jobEntry struct {
	job     models.ScheduledJob
	state   JobState
	next    time.Time // zero while disabled
	last    time.Time
	lastRec string
	lastErr string
}

func NewSchedulerService(repo repository.ScheduleRepo, instr Instructions, loc *time.Location, log *logger.Logger) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerService{
		repo:  repo,
		instr: instr,
		loc:   loc,
		log:   log,
		now:   time.Now,
		jobs:  make(map[string]*jobEntry),
	}
}

// Run evaluates jobs every tick until ctx is cancelled, then waits for
// in-flight dispatches to finish.
func (s *SchedulerService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	if err := s.Reload(ctx); err != nil {
		s.log.Errorw("scheduler_reload_failed", "error", err)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.log.Infow("scheduler_started", "tick", tick.String(), "location", s.loc.String())
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Infow("scheduler_stopped")
			return
		case <-ticker.C:
			s.evaluate(ctx, s.now())
		}
	}
}

// Reload replaces the live job set with the stored one. Jobs whose
// recurrence did not change keep their pending fire instant.
func (s *SchedulerService) Reload(ctx context.Context) error {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		keep[j.ID] = true
		s.Register(j)
	}

	s.mu.Lock()
	for id := range s.jobs {
		if !keep[id] {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	return nil
}

// Register adds or replaces a job in the live set.
func (s *SchedulerService) Register(job models.ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[job.ID]
	if !ok {
		e = &jobEntry{state: JobIdle}
		s.jobs[job.ID] = e
	}
	reschedule := !ok || !e.job.Enabled || !reflect.DeepEqual(e.job.Recurrence, job.Recurrence)
	e.job = job

	switch {
	case !job.Enabled:
		e.next = time.Time{}
	case reschedule || e.next.IsZero():
		e.next = s.nextAfter(job, s.now())
	}
}

// Unregister drops a job from the live set. An in-flight dispatch finishes
// but the job is not rescheduled.
func (s *SchedulerService) Unregister(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Status returns a snapshot of every registered job, ordered by id.
func (s *SchedulerService) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for id, e := range s.jobs {
		out = append(out, e.status(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

func (s *SchedulerService) statusOf(id string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return e.status(id), true
}

func (e *jobEntry) status(id string) JobStatus {
	st := JobStatus{
		JobID:        id,
		State:        e.state,
		Enabled:      e.job.Enabled,
		LastRecordID: e.lastRec,
		LastError:    e.lastErr,
	}
	if !e.next.IsZero() {
		next := e.next
		st.NextFire = &next
	}
	if !e.last.IsZero() {
		last := e.last
		st.LastFire = &last
	}
	return st
}

func (s *SchedulerService) evaluate(ctx context.Context, now time.Time) {
	for _, id := range s.markDue(now) {
		s.fire(ctx, id)
	}
}

// markDue moves every idle, enabled job whose fire instant has passed to Due.
func (s *SchedulerService) markDue(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for id, e := range s.jobs {
		if e.state != JobIdle || !e.job.Enabled || e.next.IsZero() || now.Before(e.next) {
			continue
		}
		e.state = JobDue
		due = append(due, id)
	}
	sort.Strings(due)
	return due
}

// fire re-checks the live job at the Due -> Dispatching boundary and starts
// the dispatch. It reports whether a dispatch was started.
func (s *SchedulerService) fire(ctx context.Context, id string) bool {
	s.mu.Lock()
	e, ok := s.jobs[id]
	if !ok || e.state != JobDue {
		s.mu.Unlock()
		return false
	}
	if !e.job.Enabled {
		e.state = JobIdle
		s.mu.Unlock()
		s.log.Infow("scheduled_job_skipped", "job_id", id, "reason", "disabled")
		return false
	}
	e.state = JobDispatching
	job, firedAt := e.job, e.next
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rec, err := s.instr.ExecuteAction(ctx, ActionRequest{
			DeviceID: job.DeviceID,
			ActionID: job.ActionID,
			Source:   models.SourceScheduler,
			Label:    job.Name,
		})
		s.complete(job, firedAt, rec, err)
	}()
	return true
}

func (s *SchedulerService) complete(job models.ScheduledJob, firedAt time.Time, rec models.ExecutionRecord, err error) {
	var failure string
	switch {
	case err != nil:
		failure = err.Error()
	case rec.Dispatch == nil:
		failure = rec.Resolution.Reason
	case !rec.Dispatch.Success:
		failure = rec.Dispatch.Error
	}
	if failure != "" {
		s.log.Warnw("scheduled_job_failed", "job_id", job.ID, "record_id", rec.ID, "error", failure)
	} else {
		s.log.Infow("scheduled_job_fired", "job_id", job.ID, "record_id", rec.ID)
	}

	once := job.Recurrence.Type == models.RecurrenceOnce

	s.mu.Lock()
	e, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.state = JobIdle
	e.last = firedAt
	e.lastRec = rec.ID
	e.lastErr = failure
	switch {
	case once:
		e.job.Enabled = false
		e.next = time.Time{}
	case e.job.Enabled:
		next := s.nextAfter(e.job, firedAt)
		if now := s.now(); !next.IsZero() && !next.After(now) {
			next = s.nextAfter(e.job, now)
		}
		e.next = next
	}
	disabled := e.job
	s.mu.Unlock()

	if once {
		disabled.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(context.Background(), disabled); err != nil {
			s.log.Errorw("scheduled_job_disable_failed", "job_id", job.ID, "error", err)
		}
	}
}

func (s *SchedulerService) nextAfter(job models.ScheduledJob, after time.Time) time.Time {
	next, err := schedule.Next(job.Recurrence, after, s.loc)
	if err != nil {
		s.log.Errorw("scheduled_job_invalid", "job_id", job.ID, "error", err)
		return time.Time{}
	}
	return next
}
