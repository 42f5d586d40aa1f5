package service

import (
	"context"
	"testing"
	"time"

	"home_dispatch/internal/agent"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/matcher"
	"home_dispatch/internal/models"
)

var cst = time.FixedZone("CST", 8*3600)

type schedulerFixture struct {
	sched *SchedulerService
	jobs  *memScheduleRepo
	execs *memExecRepo
	agent *recordingAgent
	clock *fakeClock
}

func newSchedulerFixture(t *testing.T, now time.Time, jobs ...models.ScheduledJob) schedulerFixture {
	t.Helper()
	clock := &fakeClock{t: now}
	execs := &memExecRepo{}
	ag := &recordingAgent{result: agent.Result{Success: true}, fired: make(chan string, 16)}
	execLog := newTestExecLog(execs)
	dispatcher := NewDispatcherService(ag, execLog, time.Second, logger.Nop())
	dispatcher.now = clock.Now
	instr := NewInstructionService(newTestStore(t), matcher.NewResolver(nil), dispatcher, execLog, logger.Nop())
	instr.now = clock.Now

	repo := newMemScheduleRepo(jobs...)
	sched := NewSchedulerService(repo, instr, cst, logger.Nop())
	sched.now = clock.Now
	if err := sched.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return schedulerFixture{sched: sched, jobs: repo, execs: execs, agent: ag, clock: clock}
}

// tick evaluates at t and waits for the dispatches it started.
func (f schedulerFixture) tick(t time.Time) {
	f.clock.Set(t)
	f.sched.evaluate(context.Background(), t)
	f.sched.wg.Wait()
}

func dailyJob(id, hhmm string) models.ScheduledJob {
	return models.ScheduledJob{
		ID:         id,
		Name:       "morning ac",
		DeviceID:   "living_room_ac",
		ActionID:   "turn_on",
		Recurrence: models.Recurrence{Type: models.RecurrenceDaily, Time: hhmm},
		Enabled:    true,
	}
}

func statusOf(t *testing.T, s *SchedulerService, id string) JobStatus {
	t.Helper()
	st, ok := s.statusOf(id)
	if !ok {
		t.Fatalf("job %s not registered", id)
	}
	return st
}

func TestScheduler_NoBackfillOnRegistration(t *testing.T) {
	// registered at 10:00, after today's 09:00 has passed
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, cst)
	f := newSchedulerFixture(t, now, dailyJob("j1", "09:00"))

	st := statusOf(t, f.sched, "j1")
	want := time.Date(2026, 10, 15, 9, 0, 0, 0, cst)
	if st.NextFire == nil || !st.NextFire.Equal(want) {
		t.Fatalf("next fire = %v, want %v", st.NextFire, want)
	}

	f.tick(now.Add(time.Minute))
	if n := len(f.agent.calls()); n != 0 {
		t.Fatalf("missed fire was backfilled: %d calls", n)
	}
}

func TestScheduler_DailyFiresOncePerDay(t *testing.T) {
	start := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	f := newSchedulerFixture(t, start, dailyJob("j1", "09:00"))

	for at := start; at.Before(start.Add(72 * time.Hour)); at = at.Add(10 * time.Minute) {
		f.tick(at)
	}

	recs := f.execs.all()
	if len(recs) != 3 {
		t.Fatalf("expected 3 fires over 3 days, got %d", len(recs))
	}
	seen := map[string]bool{}
	for _, r := range recs {
		if r.Source != models.SourceScheduler {
			t.Errorf("source = %s", r.Source)
		}
		day := r.OccurredAt.In(cst).Format("2006-01-02")
		if seen[day] {
			t.Fatalf("fired twice on %s", day)
		}
		seen[day] = true
	}

	st := statusOf(t, f.sched, "j1")
	if st.State != JobIdle || st.LastRecordID == "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestScheduler_DisabledBeforeDueDoesNotFire(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	job := dailyJob("j1", "09:00")
	f := newSchedulerFixture(t, now, job)

	job.Enabled = false
	f.sched.Register(job)

	f.tick(time.Date(2026, 10, 14, 9, 0, 30, 0, cst))
	if n := len(f.agent.calls()); n != 0 {
		t.Fatalf("disabled job fired %d times", n)
	}
	if st := statusOf(t, f.sched, "j1"); st.NextFire != nil {
		t.Fatalf("disabled job has next fire %v", st.NextFire)
	}
}

func TestScheduler_DisabledAtDueBoundaryDoesNotFire(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	job := dailyJob("j1", "09:00")
	f := newSchedulerFixture(t, now, job)

	due := f.sched.markDue(time.Date(2026, 10, 14, 9, 0, 0, 0, cst))
	if len(due) != 1 || statusOf(t, f.sched, "j1").State != JobDue {
		t.Fatalf("expected j1 due, got %v", due)
	}

	job.Enabled = false
	f.sched.Register(job)

	if f.sched.fire(context.Background(), "j1") {
		t.Fatalf("fire started a dispatch for a disabled job")
	}
	f.sched.wg.Wait()
	if n := len(f.agent.calls()); n != 0 {
		t.Fatalf("disabled job fired %d times", n)
	}
	if st := statusOf(t, f.sched, "j1"); st.State != JobIdle {
		t.Fatalf("state = %s", st.State)
	}
}

func TestScheduler_OnceDisablesItself(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	job := dailyJob("j1", "09:00")
	job.Recurrence.Type = models.RecurrenceOnce
	f := newSchedulerFixture(t, now, job)

	f.tick(time.Date(2026, 10, 14, 9, 0, 0, 0, cst))
	f.tick(time.Date(2026, 10, 15, 9, 0, 0, 0, cst))

	if n := len(f.agent.calls()); n != 1 {
		t.Fatalf("once job fired %d times", n)
	}
	stored, err := f.jobs.Get(context.Background(), "j1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Enabled {
		t.Fatalf("once job still enabled in storage")
	}
	if st := statusOf(t, f.sched, "j1"); st.Enabled || st.NextFire != nil {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestScheduler_FailingJobDoesNotHaltOthers(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	broken := dailyJob("a_broken", "09:00")
	broken.DeviceID = "garage"
	good := dailyJob("b_good", "09:00")
	f := newSchedulerFixture(t, now, broken, good)

	f.tick(time.Date(2026, 10, 14, 9, 0, 0, 0, cst))

	if n := len(f.agent.calls()); n != 1 {
		t.Fatalf("expected the good job to dispatch once, got %d", n)
	}
	st := statusOf(t, f.sched, "a_broken")
	if st.LastError == "" || st.State != JobIdle {
		t.Fatalf("broken job status %+v", st)
	}
	want := time.Date(2026, 10, 15, 9, 0, 0, 0, cst)
	if st.NextFire == nil || !st.NextFire.Equal(want) {
		t.Fatalf("broken job not rescheduled: %v", st.NextFire)
	}
	if recs := f.execs.all(); len(recs) != 2 {
		t.Fatalf("expected two records, got %d", len(recs))
	}
}

func TestScheduler_ReloadDropsDeletedJobs(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, cst)
	f := newSchedulerFixture(t, now, dailyJob("j1", "09:00"), dailyJob("j2", "10:00"))

	if err := f.jobs.Delete(context.Background(), "j1"); err != nil {
		t.Fatal(err)
	}
	if err := f.sched.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := f.sched.Status()
	if len(st) != 1 || st[0].JobID != "j2" {
		t.Fatalf("unexpected live set %+v", st)
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 59, 59, 0, cst)
	f := newSchedulerFixture(t, now, dailyJob("j1", "09:00"))
	f.clock.Set(time.Date(2026, 10, 14, 9, 0, 1, 0, cst))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case cmd := <-f.agent.fired:
		if cmd != "打开美的美居应用，打开客厅空调" {
			t.Errorf("command = %q", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not fire")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
