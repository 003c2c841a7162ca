// Package invalidate decides which cached per-unit results are reusable for
// the current source tree and which must be regenerated. Staleness is pull
// based: nothing is marked dirty up front, entries are judged when a phase is
// about to run.
package invalidate

import (
	"encoding/json"
	"time"

	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/core/domain"
)

// Report is the outcome of planning one phase. Stale lists the unit ids that
// must be regenerated, Cached the ids whose entries are reusable as-is.
// FullRebuild marks the degraded case of missing phase metadata, where every
// entry had to be probed individually.
type Report struct {
	FullRebuild bool
	Stale       []string
	Cached      []string
}

// Tracker plans cache reuse against a single content identity. An empty
// identity means the tree could not be hashed; nothing is then reusable.
type Tracker struct {
	store    *cache.Store
	identity string
}

func New(store *cache.Store, identity string) *Tracker {
	return &Tracker{store: store, identity: identity}
}

// MetaKey returns the cache key of a phase's run metadata.
func MetaKey(phase domain.Phase) string {
	return "meta/" + phase.String()
}

// Meta loads the phase's run metadata, identity-checked.
func (t *Tracker) Meta(phase domain.Phase) (*domain.RunMeta, bool) {
	meta, ok := cache.Read(t.store, MetaKey(phase), func(env *cache.Envelope[domain.RunMeta]) bool {
		return t.identity != "" && env.Payload.Identity == t.identity
	})
	if !ok {
		return nil, false
	}
	return meta, true
}

// Commit records that the phase completed against the current identity, with
// the ids that failed (if any) so the next run retries exactly those.
func (t *Tracker) Commit(phase domain.Phase, failed []string) error {
	meta := domain.RunMeta{
		Identity:      t.identity,
		GeneratedAt:   time.Now().UTC(),
		FailedUnitIDs: failed,
	}
	return cache.Write(t.store, MetaKey(phase), t.identity, meta)
}

// Plan splits ids into stale and cached for the given phase.
//
// When the phase's metadata matches the current identity, the answer comes
// from the metadata alone: only the ids it recorded as failed are stale, and
// no per-unit entry is touched. Without usable metadata every entry is probed;
// the missing-metadata case is additionally flagged as a full rebuild, but
// entries already stamped with the current identity are still salvaged rather
// than thrown away.
func (t *Tracker) Plan(phase domain.Phase, ids []string, keyOf func(id string) string) Report {
	if t.identity == "" {
		// Unknown tree identity: no entry can be trusted.
		return Report{FullRebuild: true, Stale: append([]string(nil), ids...)}
	}

	if meta, ok := t.Meta(phase); ok {
		return t.planFromMeta(meta, ids)
	}

	_, metaExists := cache.ReadEnvelope[domain.RunMeta](t.store, MetaKey(phase))

	report := Report{FullRebuild: !metaExists}
	for _, id := range ids {
		if t.probe(keyOf(id)) {
			report.Cached = append(report.Cached, id)
		} else {
			report.Stale = append(report.Stale, id)
		}
	}
	return report
}

func (t *Tracker) planFromMeta(meta *domain.RunMeta, ids []string) Report {
	failed := make(map[string]struct{}, len(meta.Failed()))
	for _, id := range meta.Failed() {
		failed[id] = struct{}{}
	}

	var report Report
	for _, id := range ids {
		if _, ok := failed[id]; ok {
			report.Stale = append(report.Stale, id)
		} else {
			report.Cached = append(report.Cached, id)
		}
	}
	return report
}

// probe reports whether the entry under key carries the current identity. The
// payload shape is irrelevant here, so it is left undecoded.
func (t *Tracker) probe(key string) bool {
	env, ok := cache.ReadEnvelope[json.RawMessage](t.store, key)
	return ok && env.ContentIdentity == t.identity
}
