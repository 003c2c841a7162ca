package invalidate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tome/internal/adapters/cache"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/engine/invalidate"
)

func analysisKey(id string) string { return "analysis/" + id }

func seedAnalysis(t *testing.T, s *cache.Store, id, identity string) {
	t.Helper()
	err := cache.Write(s, analysisKey(id), identity, domain.Analysis{
		UnitID:  domain.NewInternedString(id),
		Summary: "summary of " + id,
	})
	require.NoError(t, err)
}

func TestPlan_MetaFastPath(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	tracker := invalidate.New(s, "id-1")
	require.NoError(t, tracker.Commit(domain.PhaseAnalyze, nil))

	// No per-unit entries exist; the fast path must not probe for them.
	report := tracker.Plan(domain.PhaseAnalyze, []string{"a", "b"}, analysisKey)

	assert.False(t, report.FullRebuild)
	assert.Empty(t, report.Stale)
	assert.Equal(t, []string{"a", "b"}, report.Cached)
}

func TestPlan_MetaRecordsFailures(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	tracker := invalidate.New(s, "id-1")
	require.NoError(t, tracker.Commit(domain.PhaseAnalyze, []string{"b"}))

	report := tracker.Plan(domain.PhaseAnalyze, []string{"a", "b", "c"}, analysisKey)

	assert.Equal(t, []string{"b"}, report.Stale, "previously failed units are retried")
	assert.Equal(t, []string{"a", "c"}, report.Cached)
}

func TestPlan_MetaAbsentSalvagesMatchingEntries(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	seedAnalysis(t, s, "a", "id-1")
	seedAnalysis(t, s, "b", "id-0") // stale identity

	tracker := invalidate.New(s, "id-1")
	report := tracker.Plan(domain.PhaseAnalyze, []string{"a", "b", "c"}, analysisKey)

	assert.True(t, report.FullRebuild)
	assert.Equal(t, []string{"a"}, report.Cached, "entry with current identity survives missing metadata")
	assert.Equal(t, []string{"b", "c"}, report.Stale)
}

func TestPlan_MetaStaleIdentityProbesPerUnit(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	old := invalidate.New(s, "id-0")
	require.NoError(t, old.Commit(domain.PhaseAnalyze, nil))
	seedAnalysis(t, s, "a", "id-0")
	seedAnalysis(t, s, "b", "id-1")

	tracker := invalidate.New(s, "id-1")
	report := tracker.Plan(domain.PhaseAnalyze, []string{"a", "b"}, analysisKey)

	assert.False(t, report.FullRebuild, "metadata exists, merely stale")
	assert.Equal(t, []string{"a"}, report.Stale)
	assert.Equal(t, []string{"b"}, report.Cached)
}

func TestPlan_UnknownIdentity(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	tracker := invalidate.New(s, "id-1")
	require.NoError(t, tracker.Commit(domain.PhaseAnalyze, nil))
	seedAnalysis(t, s, "a", "id-1")

	report := invalidate.New(s, "").Plan(domain.PhaseAnalyze, []string{"a", "b"}, analysisKey)

	assert.True(t, report.FullRebuild)
	assert.Equal(t, []string{"a", "b"}, report.Stale)
	assert.Empty(t, report.Cached)
}

func TestMeta_IdentityChecked(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	require.NoError(t, invalidate.New(s, "id-0").Commit(domain.PhaseWrite, nil))

	_, ok := invalidate.New(s, "id-1").Meta(domain.PhaseWrite)
	assert.False(t, ok)

	meta, ok := invalidate.New(s, "id-0").Meta(domain.PhaseWrite)
	require.True(t, ok)
	assert.Equal(t, "id-0", meta.Identity)
	assert.False(t, meta.GeneratedAt.IsZero())
}
