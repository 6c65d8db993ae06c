// Package discovery collects leads from local business search APIs for
// every (niche, city) pair.
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Source searches one backend for businesses of a niche in a city.
type Source interface {
	Name() string
	Search(ctx context.Context, niche, city string) ([]model.Lead, error)
}

// UsageReporter is implemented by sources that count billable API calls.
type UsageReporter interface {
	Usage() cost.Usage
}

// Query builds the free-text search query for a niche in a city.
func Query(niche, city string) string {
	return niche + " em " + city
}

// Task is one (source, niche, city) search.
type Task struct {
	Source string
	Niche  string
	City   string
}

// TaskResult records the outcome of one task.
type TaskResult struct {
	Task     Task
	Leads    int
	Err      error
	Duration time.Duration
}

// Collector fans searches out across all configured sources. A failed task
// contributes no leads and never affects its siblings.
type Collector struct {
	sources  []Source
	maxTasks int

	mu      sync.Mutex
	results []TaskResult
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithMaxConcurrentTasks bounds the number of in-flight tasks. Zero or less
// means unlimited.
func WithMaxConcurrentTasks(n int) CollectorOption {
	return func(c *Collector) {
		c.maxTasks = n
	}
}

// NewCollector creates a Collector over the given sources. Nil sources are
// skipped.
func NewCollector(sources []Source, opts ...CollectorOption) *Collector {
	c := &Collector{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Sources returns the names of the registered sources.
func (c *Collector) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Usage sums the API call counts of every source that reports them.
func (c *Collector) Usage() cost.Usage {
	var total cost.Usage
	for _, s := range c.sources {
		r, ok := s.(UsageReporter)
		if !ok {
			continue
		}
		u := r.Usage()
		total.PlacesTextSearch += u.PlacesTextSearch
		total.PlacesDetails += u.PlacesDetails
		total.SerpAPISearch += u.SerpAPISearch
	}
	return total
}

// Collect runs one task per (source, niche, city) and returns every lead
// found. Order across tasks is unspecified.
func (c *Collector) Collect(ctx context.Context, niches, cities []string) []model.Lead {
	log := zap.L().With(zap.String("component", "collector"))

	var (
		mu    sync.Mutex
		leads []model.Lead
	)

	c.mu.Lock()
	c.results = nil
	c.mu.Unlock()

	// Tasks run on the parent ctx, never on a group-derived one, so that one
	// failure cannot cancel the others.
	var g errgroup.Group
	if c.maxTasks > 0 {
		g.SetLimit(c.maxTasks)
	}

	for _, niche := range niches {
		for _, city := range cities {
			for _, src := range c.sources {
				g.Go(func() error {
					task := Task{Source: src.Name(), Niche: niche, City: city}
					start := time.Now()

					found, err := src.Search(ctx, niche, city)
					c.record(TaskResult{Task: task, Leads: len(found), Err: err, Duration: time.Since(start)})
					if err != nil {
						log.Warn("search task failed",
							zap.String("source", task.Source),
							zap.String("niche", niche),
							zap.String("city", city),
							zap.Error(err),
						)
						return nil // don't abort the run
					}

					log.Debug("search task complete",
						zap.String("source", task.Source),
						zap.String("niche", niche),
						zap.String("city", city),
						zap.Int("leads", len(found)),
					)

					mu.Lock()
					leads = append(leads, found...)
					mu.Unlock()
					return nil
				})
			}
		}
	}

	_ = g.Wait()

	log.Info("collection complete",
		zap.Int("tasks", len(niches)*len(cities)*len(c.sources)),
		zap.Int("leads", len(leads)),
	)
	return leads
}

// Results returns the per-task outcomes of the last Collect call.
func (c *Collector) Results() []TaskResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TaskResult, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Collector) record(r TaskResult) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}
