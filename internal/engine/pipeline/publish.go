package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/zerr"
)

// indexEntry is one row of the machine-readable site index.
type indexEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Area     string `json:"area,omitempty"`
	Category string `json:"category,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// buildSiteIndex assembles the index artifact over the surviving articles and
// caches it under the current identity. Articles are required here: a survivor
// without one means the write phase's contract was broken.
func (p *Pipeline) buildSiteIndex(g *domain.UnitGraph, ids []string) error {
	articles, missing := cache.ScanMap[domain.Article](p.store, ids, articleKey, nil)
	if len(missing) > 0 {
		return zerr.With(zerr.With(domain.ErrMissingUpstreamCache,
			"phase", domain.PhaseWrite.String()),
			"missing_units", strings.Join(missing, ","))
	}
	analyses, _ := cache.ScanMap[domain.Analysis](p.store, ids, analysisKey, nil)

	entries := make([]indexEntry, 0, len(ids))
	for _, id := range ids {
		article := articles[id]
		entry := indexEntry{
			ID:      id,
			Title:   article.Title,
			Path:    id + ".md",
			Summary: analyses[id].Summary,
		}
		if u := g.Unit(domain.NewInternedString(id)); u != nil {
			entry.Area = u.Area.String()
			entry.Category = u.Category
		}
		entries = append(entries, entry)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal site index")
	}

	artifact := domain.Artifact{Name: "index.json", Content: string(data)}
	return cache.Write(p.store, siteIndexKey, p.identity, artifact)
}

func (p *Pipeline) publish(_ context.Context, st *runState) error {
	start := time.Now()
	outcome := domain.PhaseOutcome{Phase: domain.PhasePublish, Executed: true}

	articles, missing := cache.ScanMap[domain.Article](p.store, st.ids, articleKey, nil)
	if len(articles) == 0 {
		return zerr.With(domain.ErrMissingUpstreamCache, "phase", domain.PhasePublish.String())
	}
	if len(missing) > 0 {
		p.warn("publish: no article cached for %s", strings.Join(missing, ", "))
	}

	outDir := p.cfg.OutputDir
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "dir", outDir)
	}

	written := 0
	for _, id := range st.ids {
		article, ok := articles[id]
		if !ok {
			continue
		}
		path := filepath.Join(outDir, id+".md")
		if err := os.WriteFile(path, []byte(renderArticle(article)), 0o600); err != nil {
			// Output files are a materialized view of the cache; a failed
			// write costs a re-publish, not regeneration.
			p.warn("publish: failed to write %s: %v", path, err)
			continue
		}
		written++
	}

	if err := p.publishIndex(st, outDir); err != nil {
		p.warn("publish: failed to write index: %v", err)
	}

	p.info("publish: %d articles written to %s", written, outDir)

	outcome.Completed = written
	outcome.Duration = time.Since(start)
	st.result.Phases = append(st.result.Phases, outcome)
	return nil
}

// publishIndex materializes the cached index artifact, rebuilding it first if
// the cache holds none for any identity (e.g. publish-only runs over caches
// from older versions).
func (p *Pipeline) publishIndex(st *runState, outDir string) error {
	artifact, ok := cache.Read[domain.Artifact](p.store, siteIndexKey, nil)
	if !ok {
		if err := p.buildSiteIndex(st.graph, st.ids); err != nil {
			return err
		}
		artifact, ok = cache.Read[domain.Artifact](p.store, siteIndexKey, nil)
		if !ok {
			return zerr.New("site index unreadable after rebuild")
		}
	}
	return os.WriteFile(filepath.Join(outDir, artifact.Name), []byte(artifact.Content), 0o600)
}

func renderArticle(a domain.Article) string {
	var b strings.Builder
	if !strings.HasPrefix(a.Body, "# ") {
		b.WriteString("# ")
		b.WriteString(a.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(a.Body)
	if !strings.HasSuffix(a.Body, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}
