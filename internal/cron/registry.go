package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one scheduled maintenance task of the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Names are unique because they label logs,
// metrics and outbox dedupe windows.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers every non-nil job, failing on a duplicate or blank name.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. Nil jobs are ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
