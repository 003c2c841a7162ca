// Package discovery drives the generator calls that turn a source tree into a
// unit graph, and merges per-area sub-graphs into one coherent result.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/core/ports"
	"go.trai.ch/tome/internal/engine/decode"
	"go.trai.ch/zerr"
)

// Discoverer runs the one- or two-round discovery protocol.
//
// Round 1 is a cheap structural scan reporting the approximate file count and
// the top-level areas. Small trees (at or below the scan threshold) are then
// probed with a single full-graph call. Large trees get one focused discovery
// call per area, sequentially, and the sub-graphs are merged.
type Discoverer struct {
	gen       ports.Generator
	log       ports.Logger
	root      string
	threshold int
}

func New(gen ports.Generator, log ports.Logger, root string, threshold int) *Discoverer {
	if threshold <= 0 {
		threshold = domain.DefaultScanThreshold
	}
	return &Discoverer{gen: gen, log: log, root: root, threshold: threshold}
}

// Run produces the unit graph for the configured source root.
func (d *Discoverer) Run(ctx context.Context) (*domain.UnitGraph, error) {
	scan, err := generate(ctx, d.gen, domain.PromptSpec{
		Kind: domain.PromptStructureScan,
		Path: d.root,
	}, decode.ParseScan)
	if err != nil {
		return nil, zerr.Wrap(err, "structural scan failed")
	}

	if scan.FileCount <= d.threshold || len(scan.Areas) == 0 {
		return d.discoverWhole(ctx, scan)
	}
	return d.discoverByArea(ctx, scan)
}

func (d *Discoverer) discoverWhole(ctx context.Context, scan *domain.ScanReport) (*domain.UnitGraph, error) {
	g, err := generate(ctx, d.gen, domain.PromptSpec{
		Kind: domain.PromptFullDiscovery,
		Path: d.root,
	}, decode.ParseGraph)
	if err != nil {
		return nil, zerr.Wrap(err, "full discovery failed")
	}

	mergeProject(&g.Project, scan.Project)
	finalize(g)
	return g, nil
}

func (d *Discoverer) discoverByArea(ctx context.Context, scan *domain.ScanReport) (*domain.UnitGraph, error) {
	var results []AreaResult
	for _, area := range scan.Areas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sub, err := generate(ctx, d.gen, domain.PromptSpec{
			Kind:    domain.PromptAreaDiscovery,
			Subject: area.Name,
			Path:    area.Path,
		}, decode.ParseGraph)
		if err != nil {
			// One bad area does not abort discovery; its units are absent
			// from this run and dangling references to them get pruned.
			if d.log != nil {
				d.log.Warn(fmt.Sprintf("discovery of area %q failed: %v", area.Name, err))
			}
			continue
		}
		results = append(results, AreaResult{Area: area, Graph: sub})
	}

	if len(results) == 0 {
		return nil, zerr.With(domain.ErrAllAreasFailed, "areas", len(scan.Areas))
	}

	return Merge(scan, results), nil
}

// generate runs one generation call through the bounded repair protocol: a
// malformed response earns exactly one re-ask with the parse error attached,
// and a timed-out call earns exactly one retry. Errors after that are
// terminal.
func generate[T any](
	ctx context.Context,
	gen ports.Generator,
	spec domain.PromptSpec,
	parse func(string) (T, error),
) (T, error) {
	var zero T

	text, err := invoke(ctx, gen, spec)
	if err != nil {
		return zero, err
	}

	out, perr := parse(text)
	if perr == nil {
		return out, nil
	}
	if !errors.Is(perr, domain.ErrParse) {
		return zero, perr
	}

	spec.Amendment = perr.Error()
	text, err = invoke(ctx, gen, spec)
	if err != nil {
		return zero, err
	}
	return parse(text)
}

func invoke(ctx context.Context, gen ports.Generator, spec domain.PromptSpec) (string, error) {
	text, err := gen.Invoke(ctx, spec)
	if err != nil && errors.Is(err, domain.ErrGeneratorTimeout) && ctx.Err() == nil {
		text, err = gen.Invoke(ctx, spec)
	}
	return text, err
}
