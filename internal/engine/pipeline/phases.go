package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/engine/decode"
	"go.trai.ch/tome/internal/engine/invalidate"
	"go.trai.ch/tome/internal/engine/mapreduce"
	"go.trai.ch/zerr"
)

func (p *Pipeline) discover(ctx context.Context, st *runState) error {
	start := time.Now()
	outcome := domain.PhaseOutcome{Phase: domain.PhaseDiscover}

	switch {
	case domain.PhaseDiscover < st.opts.From:
		// Below the start bound the graph is required, whatever identity it
		// carries: skipping discovery is an explicit request to reuse it.
		g, ok := cache.Read[domain.UnitGraph](p.store, graphKey, nil)
		if !ok {
			return zerr.With(domain.ErrMissingUpstreamCache, "phase", domain.PhaseDiscover.String())
		}
		st.graph = g
		outcome.FromCache = true

	default:
		if !st.opts.Force {
			if g, ok := cache.Read(p.store, graphKey, cache.WithIdentity[domain.UnitGraph](p.identity)); ok {
				st.graph = g
				outcome.FromCache = true
				p.info("discover: graph reused from cache (%d units)", len(g.Units))
			}
		}
		if st.graph == nil {
			_, v := p.record(ctx, "discover")
			g, err := p.discoverer.Run(ctx)
			v.Complete(err)
			if err != nil {
				st.result.Phases = append(st.result.Phases, outcome)
				return err
			}
			if err := cache.Write(p.store, graphKey, p.identity, *g); err != nil {
				return err
			}
			st.graph = g
			outcome.Executed = true
			p.info("discover: %d units across %d areas", len(g.Units), len(g.Areas))
		}
	}

	st.ids = idsOf(st.graph)
	outcome.Completed = len(st.ids)
	outcome.Duration = time.Since(start)
	st.result.Phases = append(st.result.Phases, outcome)
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, st *runState) error {
	start := time.Now()
	outcome := domain.PhaseOutcome{Phase: domain.PhaseAnalyze}

	if domain.PhaseAnalyze < st.opts.From {
		_, missing := cache.ScanMap[domain.Analysis](p.store, st.ids, analysisKey, nil)
		if len(missing) > 0 {
			return zerr.With(zerr.With(domain.ErrMissingUpstreamCache,
				"phase", domain.PhaseAnalyze.String()),
				"missing_units", strings.Join(missing, ","))
		}
		outcome.FromCache = true
		outcome.Completed = len(st.ids)
		outcome.Duration = time.Since(start)
		st.result.Phases = append(st.result.Phases, outcome)
		return nil
	}

	stale, cached := p.plan(domain.PhaseAnalyze, st, analysisKey)
	p.markCached(ctx, domain.PhaseAnalyze, cached)

	if len(stale) == 0 {
		outcome.FromCache = true
		outcome.Completed = len(st.ids)
		outcome.Duration = time.Since(start)
		st.result.Phases = append(st.result.Phases, outcome)
		p.info("analyze: all %d units reusable", len(st.ids))
		return nil
	}

	outcome.Executed = true
	p.info("analyze: %d stale units, %d reusable", len(stale), len(cached))

	res, _ := mapreduce.Run(ctx, mapreduce.Options[domain.Unit, *domain.Analysis, struct{}]{
		Phase:       domain.PhaseAnalyze.String(),
		Concurrency: p.cfg.Concurrency,
		KeyOf:       func(u domain.Unit) string { return u.ID.String() },
		Map:         p.analyzeUnit,
		Checkpoint: func(id string, a *domain.Analysis, err error) {
			if err != nil {
				return
			}
			if werr := cache.Write(p.store, analysisKey(id), p.identity, *a); werr != nil {
				p.warn("analyze: checkpoint for %s failed: %v", id, werr)
			}
		},
		OnProgress:  p.progress,
		IsCancelled: p.isCancelled,
	}, unitsByID(st.graph, stale))

	succeeded := make([]string, 0, len(res.Outputs))
	for _, a := range res.Outputs {
		succeeded = append(succeeded, a.UnitID.String())
	}
	st.recomputed = succeeded

	outcome.Completed = len(succeeded)
	outcome.Failed = len(res.FailedIDs)
	outcome.FailedUnitIDs = res.FailedIDs
	outcome.Duration = time.Since(start)
	st.result.Phases = append(st.result.Phases, outcome)

	skipped := len(stale) - len(succeeded) - len(res.FailedIDs)
	return p.settle(domain.PhaseAnalyze, st, cached, succeeded, res.FailedIDs, skipped)
}

func (p *Pipeline) analyzeUnit(ctx context.Context, u domain.Unit) (*domain.Analysis, error) {
	_, v := p.record(ctx, domain.PhaseAnalyze.String()+" "+u.ID.String())

	unitJSON, err := json.Marshal(u)
	if err != nil {
		v.Complete(err)
		return nil, zerr.Wrap(err, "failed to serialize unit")
	}

	text, err := p.gen.Invoke(ctx, domain.PromptSpec{
		Kind:    domain.PromptAnalyzeUnit,
		Subject: u.Name,
		Path:    u.Path,
		Context: string(unitJSON),
	})
	if err != nil {
		v.Complete(err)
		return nil, err
	}

	a, err := decode.ParseAnalysis(text, u.ID)
	v.Complete(err)
	return a, err
}

func (p *Pipeline) write(ctx context.Context, st *runState) error {
	start := time.Now()
	outcome := domain.PhaseOutcome{Phase: domain.PhaseWrite}

	if domain.PhaseWrite < st.opts.From {
		_, missing := cache.ScanMap[domain.Article](p.store, st.ids, articleKey, nil)
		if len(missing) > 0 {
			return zerr.With(zerr.With(domain.ErrMissingUpstreamCache,
				"phase", domain.PhaseWrite.String()),
				"missing_units", strings.Join(missing, ","))
		}
		outcome.FromCache = true
		outcome.Completed = len(st.ids)
		outcome.Duration = time.Since(start)
		st.result.Phases = append(st.result.Phases, outcome)
		return nil
	}

	p.restamp(st.recomputed)

	stale, cached := p.plan(domain.PhaseWrite, st, articleKey)
	p.markCached(ctx, domain.PhaseWrite, cached)

	if len(stale) == 0 {
		// Nothing to regenerate; the reduce artifacts may still be reusable.
		if _, ok := cache.Read(p.store, siteIndexKey, cache.WithIdentity[domain.Artifact](p.identity)); ok {
			outcome.FromCache = true
			outcome.Completed = len(st.ids)
			outcome.Duration = time.Since(start)
			st.result.Phases = append(st.result.Phases, outcome)
			p.info("write: all %d articles and site index reusable", len(st.ids))
			return nil
		}

		if err := p.buildSiteIndex(st.graph, st.ids); err != nil {
			return err
		}
		outcome.Executed = true
		outcome.Completed = len(st.ids)
		outcome.Duration = time.Since(start)
		st.result.Phases = append(st.result.Phases, outcome)
		return p.settle(domain.PhaseWrite, st, cached, nil, nil, 0)
	}

	outcome.Executed = true
	p.info("write: %d stale units, %d reusable", len(stale), len(cached))

	res, reduceErr := mapreduce.Run(ctx, mapreduce.Options[domain.Unit, *domain.Article, domain.Artifact]{
		Phase:       domain.PhaseWrite.String(),
		Concurrency: p.cfg.WriteConcurrency(),
		KeyOf:       func(u domain.Unit) string { return u.ID.String() },
		Map:         p.writeUnit,
		Checkpoint: func(id string, a *domain.Article, err error) {
			if err != nil {
				return
			}
			if werr := cache.Write(p.store, articleKey(id), p.identity, *a); werr != nil {
				p.warn("write: checkpoint for %s failed: %v", id, werr)
			}
		},
		OnProgress:  p.progress,
		IsCancelled: p.isCancelled,
		Reduce: func(ok []*domain.Article) ([]domain.Artifact, error) {
			succeeded := make([]string, 0, len(ok))
			for _, a := range ok {
				succeeded = append(succeeded, a.UnitID.String())
			}
			survivors := keep(st.ids, cached, succeeded)
			if len(survivors) == 0 {
				return nil, nil
			}
			if err := p.buildSiteIndex(st.graph, survivors); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}, unitsByID(st.graph, stale))

	succeeded := make([]string, 0, len(res.Outputs))
	for _, a := range res.Outputs {
		succeeded = append(succeeded, a.UnitID.String())
	}

	outcome.Completed = len(succeeded)
	outcome.Failed = len(res.FailedIDs)
	outcome.FailedUnitIDs = res.FailedIDs
	outcome.Duration = time.Since(start)
	st.result.Phases = append(st.result.Phases, outcome)

	if reduceErr != nil {
		return reduceErr
	}

	skipped := len(stale) - len(succeeded) - len(res.FailedIDs)
	return p.settle(domain.PhaseWrite, st, cached, succeeded, res.FailedIDs, skipped)
}

func (p *Pipeline) writeUnit(ctx context.Context, u domain.Unit) (*domain.Article, error) {
	_, v := p.record(ctx, domain.PhaseWrite.String()+" "+u.ID.String())

	id := u.ID.String()
	analysis, ok := cache.Read[domain.Analysis](p.store, analysisKey(id), nil)
	if !ok {
		err := zerr.With(domain.ErrMissingUpstreamCache, "unit_id", id)
		v.Complete(err)
		return nil, err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		v.Complete(err)
		return nil, zerr.Wrap(err, "failed to serialize analysis")
	}

	text, err := p.gen.Invoke(ctx, domain.PromptSpec{
		Kind:    domain.PromptWriteArticle,
		Subject: u.Name,
		Path:    u.Path,
		Context: string(analysisJSON),
	})
	if err != nil {
		v.Complete(err)
		return nil, err
	}

	article, err := decode.ParseArticle(text, u.ID)
	v.Complete(err)
	return article, err
}

// plan splits the surviving ids into stale and reusable for the phase. Force
// marks everything stale without touching the cache.
func (p *Pipeline) plan(phase domain.Phase, st *runState, keyOf func(string) string) (stale, cached []string) {
	if st.opts.Force {
		return st.ids, nil
	}
	report := p.tracker.Plan(phase, st.ids, keyOf)
	if report.FullRebuild {
		p.warn("%s: run metadata missing, probing every unit entry", phase.String())
	}
	return report.Stale, report.Cached
}

// restamp clears the stored identity of the articles covering recomputed
// analyses, keeping their payloads. The write planner then sees them as stale
// and regenerates them from the fresh analyses. The write phase metadata is
// dropped for the same reason: its fast path would mask the restamped entries.
func (p *Pipeline) restamp(recomputed []string) {
	if len(recomputed) == 0 {
		return
	}
	if _, err := p.store.Clear(invalidate.MetaKey(domain.PhaseWrite)); err != nil {
		p.warn("write: failed to drop phase metadata: %v", err)
	}
	for _, id := range recomputed {
		env, ok := cache.ReadEnvelope[domain.Article](p.store, articleKey(id))
		if !ok || env.ContentIdentity == "" {
			continue
		}
		if err := cache.Write(p.store, articleKey(id), "", env.Payload); err != nil {
			p.warn("write: failed to restamp article for %s: %v", id, err)
		}
	}
}

// settle applies the strict/lenient contract after a map phase. The phase
// metadata records the failing ids so the next run retries exactly those;
// it is withheld when cancellation skipped units, since their reusability is
// then unknown. Lenient runs shrink the surviving id set to what downstream
// phases can actually consume.
func (p *Pipeline) settle(phase domain.Phase, st *runState, cached, succeeded, failed []string, skipped int) error {
	if skipped == 0 {
		if err := p.tracker.Commit(phase, failed); err != nil {
			p.warn("%s: failed to record phase metadata: %v", phase.String(), err)
		}
	}

	if len(failed) > 0 {
		st.result.FailedUnitIDs = append(st.result.FailedUnitIDs, failed...)

		if len(cached)+len(succeeded) == 0 {
			return zerr.With(domain.ErrNoUnitsSucceeded, "phase", phase.String())
		}
		if st.opts.Strict {
			return zerr.With(zerr.Wrap(domain.ErrPipelineFailed, phase.String()+" phase had unit failures"),
				"failed_units", strings.Join(failed, ","))
		}
		p.warn("%s: continuing without %d failed units: %s", phase.String(), len(failed), strings.Join(failed, ", "))
	}

	st.ids = keep(st.ids, cached, succeeded)
	return nil
}

func (p *Pipeline) progress(pr mapreduce.Progress) {
	p.info("%s: %d/%d done, %d failed", pr.Phase, pr.Completed+pr.Failed, pr.Total, pr.Failed)
}
