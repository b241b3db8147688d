package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, registry *Registry, lock Lock, m *metrics.CronJobMetrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  m,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	failing := &countingJob{name: "low_stock_alert", err: errors.New("catalog unavailable")}
	retention := &countingJob{name: "outbox_retention"}
	lock := &fakeLock{}
	svc := newTestService(t, NewRegistry(failing, retention), lock, nil)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if failing.runs != 1 || retention.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", failing.runs, retention.runs)
	}
	if lock.held || lock.released != 1 {
		t.Fatalf("expected lock released once, held=%v released=%d", lock.held, lock.released)
	}
}

func TestRunCycleHonorsJobCadence(t *testing.T) {
	hourly := &countingJob{name: "low_stock_alert"}
	daily := &countingJob{name: "outbox_retention"}
	registry := NewRegistry(hourly)
	if err := registry.Schedule(daily, 24*time.Hour); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	svc := newTestService(t, registry, &fakeLock{}, nil)
	clock := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := svc.runCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		clock = clock.Add(time.Hour)
	}
	if hourly.runs != 3 || daily.runs != 1 {
		t.Fatalf("expected hourly=3 daily=1, got %d and %d", hourly.runs, daily.runs)
	}

	clock = clock.Add(24 * time.Hour)
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("late cycle: %v", err)
	}
	if daily.runs != 2 {
		t.Fatalf("expected daily job to run again after a day, got %d", daily.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "low_stock_alert"}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, NewRegistry(job), &fakeLock{held: true}, metrics.NewCronJobMetrics(reg))

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock, ran %d", job.runs)
	}
	expected := `
# HELP storefront_cron_cycles_skipped_total Cycles skipped because another worker held the lock.
# TYPE storefront_cron_cycles_skipped_total counter
storefront_cron_cycles_skipped_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_cron_cycles_skipped_total"); err != nil {
		t.Fatalf("unexpected skipped counter: %v", err)
	}
}
