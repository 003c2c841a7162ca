// Package pipeline orchestrates the four-phase documentation run:
// discover, analyze, write, publish. Phases have a fixed linear order; each
// one is either executed fresh, satisfied from cache, or skipped by the
// configured bounds. All generator-produced state lives in the cache store,
// so a crashed or failed run resumes from its last checkpoint.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/core/ports"
	"go.trai.ch/tome/internal/engine/invalidate"
)

// Cache layout. The first key segment is the namespace; the clean command
// clears these wholesale.
const (
	graphKey     = "discover/graph"
	siteIndexKey = "site/index"
)

// Namespaces lists every cache namespace the pipeline writes.
var Namespaces = []string{"discover", "analysis", "article", "site", "meta"}

func analysisKey(id string) string { return "analysis/" + id }
func articleKey(id string) string  { return "article/" + id }

// GraphDiscoverer produces the unit graph for the configured source tree.
type GraphDiscoverer interface {
	Run(ctx context.Context) (*domain.UnitGraph, error)
}

// Params carries everything a pipeline needs for one invocation. The caller
// constructs a fresh Pipeline per run; there is no shared module state.
type Params struct {
	Config     *domain.Config
	Store      *cache.Store
	Identity   string
	Discoverer GraphDiscoverer
	Generator  ports.Generator
	Logger     ports.Logger
	Telemetry  ports.Telemetry

	// IsCancelled is polled between unit dispatches; in-flight generator
	// calls finish naturally after it reports true.
	IsCancelled func() bool
}

// RunOptions bounds and hardens one run. From/Until select the phase range;
// phases before From must already have usable cached results. Force ignores
// every cached result. Strict turns any unit failure into a run failure.
type RunOptions struct {
	From   domain.Phase
	Until  domain.Phase
	Strict bool
	Force  bool
}

type Pipeline struct {
	cfg         *domain.Config
	store       *cache.Store
	identity    string
	tracker     *invalidate.Tracker
	discoverer  GraphDiscoverer
	gen         ports.Generator
	log         ports.Logger
	tel         ports.Telemetry
	isCancelled func() bool
}

func New(p Params) *Pipeline {
	cancelled := p.IsCancelled
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	return &Pipeline{
		cfg:         p.Config,
		store:       p.Store,
		identity:    p.Identity,
		tracker:     invalidate.New(p.Store, p.Identity),
		discoverer:  p.Discoverer,
		gen:         p.Generator,
		log:         p.Logger,
		tel:         p.Telemetry,
		isCancelled: cancelled,
	}
}

// runState threads the per-run data between phases. ids is the surviving unit
// id set in graph order; lenient phases shrink it, and downstream phases see
// only the survivors. recomputed is the set of ids the analyze phase actually
// regenerated, which forces their articles to be rewritten.
type runState struct {
	opts       RunOptions
	graph      *domain.UnitGraph
	ids        []string
	recomputed []string
	result     *domain.RunResult
}

// Run executes the configured phase range and returns the structured result.
// The result is populated as far as the run got even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	start := time.Now()

	res := &domain.RunResult{Status: domain.StatusSuccess}
	if err := domain.ValidatePhaseRange(opts.From, opts.Until); err != nil {
		res.Status = domain.StatusFailed
		return res, err
	}

	st := &runState{opts: opts, result: res}

	steps := []struct {
		phase domain.Phase
		run   func(context.Context, *runState) error
	}{
		{domain.PhaseDiscover, p.discover},
		{domain.PhaseAnalyze, p.analyze},
		{domain.PhaseWrite, p.write},
		{domain.PhasePublish, p.publish},
	}

	for _, step := range steps {
		if step.phase > opts.Until {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Status = domain.StatusFailed
			res.Duration = time.Since(start)
			return res, err
		}
		if err := step.run(ctx, st); err != nil {
			res.Status = domain.StatusFailed
			res.Duration = time.Since(start)
			return res, err
		}
	}

	if len(res.FailedUnitIDs) > 0 {
		res.Status = domain.StatusPartial
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (p *Pipeline) info(format string, args ...any) {
	if p.log != nil {
		p.log.Info(fmt.Sprintf(format, args...))
	}
}

func (p *Pipeline) warn(format string, args ...any) {
	if p.log != nil {
		p.log.Warn(fmt.Sprintf(format, args...))
	}
}

// record starts a telemetry vertex, falling back to a no-op when no recorder
// is attached.
func (p *Pipeline) record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	if p.tel == nil {
		return ctx, nopVertex{}
	}
	return p.tel.Record(ctx, name)
}

// markCached emits a cache-hit vertex per reused unit so the progress display
// accounts for every unit, not only the regenerated ones.
func (p *Pipeline) markCached(ctx context.Context, phase domain.Phase, ids []string) {
	if p.tel == nil {
		return
	}
	for _, id := range ids {
		_, v := p.tel.Record(ctx, phase.String()+" "+id)
		v.Cached()
	}
}

type nopVertex struct{}

func (nopVertex) Stdout() io.Writer           { return io.Discard }
func (nopVertex) Log(domain.LogLevel, string) {}
func (nopVertex) Complete(error)              {}
func (nopVertex) Cached()                     {}

func idsOf(g *domain.UnitGraph) []string {
	ids := make([]string, len(g.Units))
	for i, u := range g.Units {
		ids[i] = u.ID.String()
	}
	return ids
}

func unitsByID(g *domain.UnitGraph, ids []string) []domain.Unit {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var units []domain.Unit
	for _, u := range g.Units {
		if _, ok := want[u.ID.String()]; ok {
			units = append(units, u)
		}
	}
	return units
}

// keep returns ids restricted to the allowed set, preserving order.
func keep(ids []string, allowed ...[]string) []string {
	ok := make(map[string]struct{})
	for _, set := range allowed {
		for _, id := range set {
			ok[id] = struct{}{}
		}
	}
	var out []string
	for _, id := range ids {
		if _, found := ok[id]; found {
			out = append(out, id)
		}
	}
	return out
}
