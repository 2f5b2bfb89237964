package cron

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Job is one unit of scheduled work. Name is also the metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they run within a cycle.
type Registry struct {
	jobs []Job
}

// NewRegistry panics on a duplicate name; that is a wiring mistake in main.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends job. A nil job is ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.lookup(job.Name()) != nil {
		return fmt.Errorf("cron job %q already registered", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

// Select narrows the registry to the named jobs, keeping registration
// order. No names keeps everything; an unknown name is an error.
func (r *Registry) Select(names []string) (*Registry, error) {
	var keep []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			keep = append(keep, n)
		}
	}
	if len(keep) == 0 {
		return r, nil
	}
	for _, n := range keep {
		if r.lookup(n) == nil {
			return nil, fmt.Errorf("unknown cron job %q", n)
		}
	}
	selected := &Registry{}
	for _, job := range r.jobs {
		if slices.Contains(keep, job.Name()) {
			selected.jobs = append(selected.jobs, job)
		}
	}
	return selected, nil
}

func (r *Registry) lookup(name string) Job {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job
		}
	}
	return nil
}
