// Package app implements the application layer for tome.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/adapters/config"
	"go.trai.ch/tome/internal/adapters/fs"
	"go.trai.ch/tome/internal/adapters/llm"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/core/ports"
	"go.trai.ch/tome/internal/engine/discovery"
	"go.trai.ch/tome/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	telemetry    ports.Telemetry

	// Construction seams, replaced in tests.
	newGenerator func(cfg *domain.Config) ports.Generator
	newIdentity  func(cfg *domain.Config) ports.ContentIdentity
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, log ports.Logger, telemetry ports.Telemetry) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		telemetry:    telemetry,
		newGenerator: func(cfg *domain.Config) ports.Generator {
			return llm.New(cfg.Model, cfg.TimeoutMs)
		},
		newIdentity: func(cfg *domain.Config) ports.ContentIdentity {
			// The cache and output trees must not feed the identity, or every
			// run would invalidate the next one.
			return fs.NewTreeIdentity(fs.NewWalker(), cfg.CacheDir, cfg.OutputDir, config.DefaultFilename)
		},
	}
}

// RunOptions carries the run command's flags.
type RunOptions struct {
	From    string
	Until   string
	Lenient bool
	Force   bool
}

// Run executes the documentation pipeline for the configured source tree.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	bounds, err := parseBounds(opts)
	if err != nil {
		return err
	}

	identity, err := a.newIdentity(cfg).Identity(cfg.SourceRoot)
	if err != nil {
		return zerr.Wrap(err, "failed to compute source tree identity")
	}
	if identity == "" {
		a.logger.Warn("source tree identity unknown; no cached result will be reused")
	}

	gen := a.newGenerator(cfg)
	pipe := pipeline.New(pipeline.Params{
		Config:      cfg,
		Store:       cache.NewStore(cfg.CacheDir),
		Identity:    identity,
		Discoverer:  discovery.New(gen, a.logger, cfg.SourceRoot, cfg.ScanThreshold),
		Generator:   gen,
		Logger:      a.logger,
		Telemetry:   a.telemetry,
		IsCancelled: func() bool { return ctx.Err() != nil },
	})

	result, err := pipe.Run(ctx, pipeline.RunOptions{
		From:   bounds.from,
		Until:  bounds.until,
		Strict: cfg.Strict && !opts.Lenient,
		Force:  opts.Force,
	})
	a.summarize(result)
	if err != nil {
		return zerr.Wrap(err, "pipeline execution failed")
	}
	return nil
}

type phaseBounds struct {
	from  domain.Phase
	until domain.Phase
}

func parseBounds(opts RunOptions) (phaseBounds, error) {
	bounds := phaseBounds{from: domain.PhaseDiscover, until: domain.PhasePublish}

	var err error
	if opts.From != "" {
		if bounds.from, err = domain.ParsePhase(opts.From); err != nil {
			return bounds, err
		}
	}
	if opts.Until != "" {
		if bounds.until, err = domain.ParsePhase(opts.Until); err != nil {
			return bounds, err
		}
	}
	return bounds, domain.ValidatePhaseRange(bounds.from, bounds.until)
}

func (a *App) summarize(result *domain.RunResult) {
	if result == nil {
		return
	}

	for _, phase := range result.Phases {
		switch {
		case phase.FromCache:
			a.logger.Info(fmt.Sprintf("%s: reused from cache (%d units)", phase.Phase, phase.Completed))
		case phase.Failed > 0:
			a.logger.Info(fmt.Sprintf("%s: %d completed, %d failed (%s) in %s",
				phase.Phase, phase.Completed, phase.Failed,
				strings.Join(phase.FailedUnitIDs, ", "), phase.Duration.Round(time.Millisecond)))
		default:
			a.logger.Info(fmt.Sprintf("%s: %d completed in %s", phase.Phase, phase.Completed, phase.Duration.Round(time.Millisecond)))
		}
	}

	a.logger.Info(fmt.Sprintf("run %s in %s", result.Status, result.Duration.Round(time.Millisecond)))
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Namespace limits cleaning to one cache namespace; empty means all.
	Namespace string
}

// Clean removes cached pipeline results, reporting what actually existed.
func (a *App) Clean(_ context.Context, opts CleanOptions) error {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	store := cache.NewStore(cfg.CacheDir)

	namespaces := pipeline.Namespaces
	if opts.Namespace != "" {
		namespaces = []string{opts.Namespace}
	}

	cleaned := 0
	for _, ns := range namespaces {
		existed, err := store.ClearNamespace(ns)
		if err != nil {
			return err
		}
		if existed {
			cleaned++
			a.logger.Info(fmt.Sprintf("cleared cache namespace %q", ns))
		}
	}
	if cleaned == 0 {
		a.logger.Info("cache already clean")
	}
	return nil
}
