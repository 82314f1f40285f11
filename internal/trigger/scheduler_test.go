package trigger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
)

func scheduledTrigger(workflowID uuid.UUID, cronExpr string) *domain.Trigger {
	trig := testTrigger(workflowID, domain.TriggerTypeScheduled)
	trig.Config.CronExpression = cronExpr
	return trig
}

func testScheduler(store *memTriggerStore, activator *Activator) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Triggers:  store,
		Activator: activator,
		Logger:    slog.Default(),
	})
}

func TestSchedulerFiresNeverRunTrigger(t *testing.T) {
	workflow := testWorkflow()
	// Каждую минуту: следующее срабатывание всегда в пределах окна
	trig := scheduledTrigger(workflow.ID, "* * * * *")

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 1 {
		t.Errorf("starts = %d, want 1", starter.count())
	}
}

func TestSchedulerSkipsNotDueTrigger(t *testing.T) {
	workflow := testWorkflow()
	trig := scheduledTrigger(workflow.ID, "0 0 1 1 *") // раз в год
	lastRun := time.Now().Add(-time.Hour)
	trig.LastExecutedAt = &lastRun

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 0 {
		t.Errorf("starts = %d, want 0", starter.count())
	}
}

func TestSchedulerFiresOverdueTrigger(t *testing.T) {
	workflow := testWorkflow()
	trig := scheduledTrigger(workflow.ID, "* * * * *")
	lastRun := time.Now().Add(-5 * time.Minute)
	trig.LastExecutedAt = &lastRun

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 1 {
		t.Errorf("starts = %d, want 1", starter.count())
	}
}

func TestSchedulerRespectsStartDate(t *testing.T) {
	workflow := testWorkflow()
	trig := scheduledTrigger(workflow.ID, "* * * * *")
	future := time.Now().Add(24 * time.Hour)
	trig.Config.StartDate = &future

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 0 {
		t.Errorf("starts = %d, want 0 before start date", starter.count())
	}
	if !store.get(trig.ID).Enabled {
		t.Error("trigger before start date must stay enabled")
	}
}

func TestSchedulerDisablesExpiredTrigger(t *testing.T) {
	workflow := testWorkflow()
	trig := scheduledTrigger(workflow.ID, "* * * * *")
	past := time.Now().Add(-time.Hour)
	trig.Config.EndDate = &past

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 0 {
		t.Errorf("starts = %d, want 0 after end date", starter.count())
	}
	if store.get(trig.ID).Enabled {
		t.Error("expected expired trigger to be disabled")
	}
}

func TestSchedulerDisablesExhaustedTrigger(t *testing.T) {
	workflow := testWorkflow()
	trig := scheduledTrigger(workflow.ID, "* * * * *")
	trig.Config.MaxExecutions = 3
	trig.ExecutionCount = 3

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 0 {
		t.Errorf("starts = %d, want 0 for exhausted trigger", starter.count())
	}
	if store.get(trig.ID).Enabled {
		t.Error("expected exhausted trigger to be disabled")
	}
}

func TestSchedulerContinuesAfterBadCron(t *testing.T) {
	workflow := testWorkflow()
	bad := scheduledTrigger(workflow.ID, "not a cron")
	good := scheduledTrigger(workflow.ID, "* * * * *")

	store := newMemTriggerStore(bad, good)
	starter := &fakeStarter{}
	activator := testActivator(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)
	sched := testScheduler(store, activator)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	sched.Wait()

	if starter.count() != 1 {
		t.Errorf("starts = %d, want 1 (bad trigger must not block good one)", starter.count())
	}
}

func TestNextExecution(t *testing.T) {
	cfg := &domain.TriggerConfig{CronExpression: "0 12 * * *", Timezone: "UTC"}
	from := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	next, err := NextExecution(cfg, from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextExecutionInvalidTimezoneFallsBackToUTC(t *testing.T) {
	cfg := &domain.TriggerConfig{CronExpression: "0 12 * * *", Timezone: "Mars/Olympus"}
	from := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	next, err := NextExecution(cfg, from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("invalid expression accepted")
	}
}
