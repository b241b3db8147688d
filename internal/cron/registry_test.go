package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCadence(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "low_stock_alert"})
	if err := registry.Schedule(&stubJob{name: "outbox_retention"}, 24*time.Hour); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := registry.Schedule(nil, time.Hour); err != nil {
		t.Fatalf("nil jobs are ignored, got %v", err)
	}

	entries := registry.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Job.Name() != "low_stock_alert" || entries[0].Every != 0 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Job.Name() != "outbox_retention" || entries[1].Every != 24*time.Hour {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}

	entries[0].Every = time.Minute
	if registry.Entries()[0].Every != 0 {
		t.Fatal("Entries leaked the internal slice")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox_retention"})
	if err := registry.Schedule(&stubJob{name: "outbox_retention"}, time.Hour); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}
