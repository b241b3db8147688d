package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is one scheduled task. Run receives a context bounded by the job timeout.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its cadence. Every == 0 runs the job on every cycle.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Registry holds uniquely named jobs in registration order.
type Registry struct {
	entries []Entry
	names   map[string]struct{}
}

// NewRegistry registers each non-nil job to run every cycle. It panics on a
// duplicate name since that is a wiring bug.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Schedule(job, 0); err != nil {
			panic(err)
		}
	}
	return registry
}

// Schedule adds job with its own cadence. Cadences shorter than the service
// interval behave as every cycle.
func (r *Registry) Schedule(job Job, every time.Duration) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	name := job.Name()
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	if every < 0 {
		every = 0
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, Entry{Job: job, Every: every})
	return nil
}

// Entries returns a copy of the schedule.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}
