// Package pipeline runs one prospecting pass: collect leads, drop the ones
// already known, score and rank them, then persist the result.
package pipeline

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/dedup"
	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scorer"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Phase names, in execution order.
const (
	PhaseConnect = "connect"
	PhaseLoad    = "load_known"
	PhaseCollect = "collect"
	PhaseDedup   = "dedup"
	PhaseScore   = "score"
	PhasePersist = "persist"
)

// Collector gathers leads for every (niche, city) pair.
type Collector interface {
	Collect(ctx context.Context, niches, cities []string) []model.Lead
	Results() []discovery.TaskResult
	Usage() cost.Usage
}

var _ Collector = (*discovery.Collector)(nil)

// PhaseResult records the outcome of one phase.
type PhaseResult struct {
	Name     string
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Result summarizes a run.
type Result struct {
	RunID         string
	Collected     int
	FailedTasks   []discovery.TaskResult
	Duplicates    int
	Final         int
	MaxScore      int
	Usage         cost.Usage
	EstimatedCost float64
	Duration      time.Duration
	Phases        []PhaseResult
	// PersistErr is set when the sink rejected the batch. The run itself
	// still succeeds.
	PersistErr error
	// Leads holds the final ranked batch, highest score first.
	Leads []model.Lead
}

// Pipeline wires collection, dedup, scoring and persistence.
type Pipeline struct {
	open      store.Opener
	collector Collector
	scorer    *scorer.Scorer
	costCalc  *cost.Calculator

	niches []string
	cities []string

	runID     string
	dryRun    bool
	dedupOpts []dedup.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunID sets the run identifier. By default a random UUID is used.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}

// WithDryRun skips the persist phase.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithSimilarityThreshold sets the fuzzy name match threshold used by dedup.
func WithSimilarityThreshold(t float64) Option {
	return func(p *Pipeline) {
		p.dedupOpts = append(p.dedupOpts, dedup.WithThreshold(t))
	}
}

// WithCostCalculator sets the rates used for the spend estimate.
func WithCostCalculator(c *cost.Calculator) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.costCalc = c
		}
	}
}

// New creates a Pipeline searching every niche in every city.
func New(open store.Opener, collector Collector, sc *scorer.Scorer, niches, cities []string, opts ...Option) *Pipeline {
	p := &Pipeline{
		open:      open,
		collector: collector,
		scorer:    sc,
		costCalc:  cost.NewCalculator(cost.DefaultRates()),
		niches:    niches,
		cities:    cities,
		runID:     uuid.NewString(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunID returns the identifier stamped on this run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes one prospecting pass. Only a sink connection failure aborts
// the run; a failed known-phone read degrades to an empty set and a failed
// append is reported through Result.PersistErr.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("run_id", p.runID))
	log.Info("pipeline: starting run",
		zap.Strings("niches", p.niches),
		zap.Strings("cities", p.cities),
		zap.Bool("dry_run", p.dryRun),
	)

	start := time.Now()
	result := &Result{RunID: p.runID}

	track := func(name string, fn func() error) error {
		phaseStart := time.Now()
		err := fn()
		phase := PhaseResult{Name: name, Duration: time.Since(phaseStart), Err: err}
		result.Phases = append(result.Phases, phase)

		if err != nil {
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Duration("duration", phase.Duration),
				zap.Error(err),
			)
		} else {
			log.Debug("pipeline: phase complete",
				zap.String("phase", name),
				zap.Duration("duration", phase.Duration),
			)
		}
		return err
	}

	var sink store.Sink
	if err := track(PhaseConnect, func() error {
		var err error
		sink, err = p.open(ctx)
		return eris.Wrap(err, "pipeline: connect sink")
	}); err != nil {
		return nil, err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn("pipeline: close sink", zap.Error(err))
		}
	}()

	var known []string
	_ = track(PhaseLoad, func() error {
		phones, err := sink.ExistingPhones(ctx)
		if err != nil {
			log.Warn("pipeline: could not read known phones, continuing without them", zap.Error(err))
			return nil
		}
		known = phones
		log.Info("pipeline: loaded known phones", zap.Int("count", len(known)))
		return nil
	})

	var leads []model.Lead
	_ = track(PhaseCollect, func() error {
		leads = p.collector.Collect(ctx, p.niches, p.cities)
		result.Collected = len(leads)
		for _, r := range p.collector.Results() {
			if r.Err != nil {
				result.FailedTasks = append(result.FailedTasks, r)
			}
		}
		return nil
	})

	_ = track(PhaseDedup, func() error {
		d := dedup.New(known, p.dedupOpts...)
		leads, result.Duplicates = d.Deduplicate(leads)
		return nil
	})

	_ = track(PhaseScore, func() error {
		p.scorer.Apply(leads)
		slices.SortStableFunc(leads, func(a, b model.Lead) int {
			return cmp.Compare(b.Score, a.Score)
		})
		return nil
	})

	result.Leads = leads
	result.Final = len(leads)
	if len(leads) > 0 {
		result.MaxScore = leads[0].Score
	}

	if p.dryRun {
		result.Phases = append(result.Phases, PhaseResult{Name: PhasePersist, Skipped: true})
		log.Info("pipeline: dry run, skipping persist")
	} else {
		result.PersistErr = track(PhasePersist, func() error {
			return eris.Wrap(sink.AppendLeads(ctx, leads), "pipeline: persist leads")
		})
	}

	result.Usage = p.collector.Usage()
	result.EstimatedCost = p.costCalc.Estimate(result.Usage)
	result.Duration = time.Since(start)

	log.Info("pipeline: run complete",
		zap.Int("collected", result.Collected),
		zap.Int("failed_tasks", len(result.FailedTasks)),
		zap.Int("duplicates_removed", result.Duplicates),
		zap.Int("final", result.Final),
		zap.Int("max_score", result.MaxScore),
		zap.Int64("api_calls", result.Usage.Total()),
		zap.Float64("estimated_cost_usd", result.EstimatedCost),
		zap.Duration("duration", result.Duration),
		zap.Bool("persisted", !p.dryRun && result.PersistErr == nil),
	)

	return result, nil
}
