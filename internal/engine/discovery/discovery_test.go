package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/core/ports/mocks"
	"go.trai.ch/tome/internal/engine/discovery"
	"go.uber.org/mock/gomock"
)

const smallScan = `{"fileCount": 120, "areas": [{"name": "Backend", "path": "services"}], "project": {"name": "shop"}}`

const largeScan = `{
	"fileCount": 5000,
	"areas": [
		{"name": "Backend", "path": "services", "description": "APIs"},
		{"name": "Frontend", "path": "web"}
	],
	"project": {"name": "shop", "architectureNotes": ["monorepo"]}
}`

func id(s string) domain.InternedString { return domain.NewInternedString(s) }

func TestRun_SmallTreeSingleCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	var kinds []domain.PromptKind
	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			kinds = append(kinds, spec.Kind)
			switch spec.Kind {
			case domain.PromptStructureScan:
				assert.Equal(t, "/src", spec.Path)
				return smallScan, nil
			case domain.PromptFullDiscovery:
				return `{"units": [{"id": "auth", "path": "services/auth"}]}`, nil
			default:
				t.Fatalf("unexpected prompt kind %q", spec.Kind)
				return "", nil
			}
		})

	g, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.PromptKind{domain.PromptStructureScan, domain.PromptFullDiscovery}, kinds)
	require.Len(t, g.Units, 1)
	assert.Equal(t, "shop", g.Project.Name, "project info backfilled from the scan")
}

func TestRun_LargeTreeMergesAreas(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	backend := `{
		"project": {"name": "shop", "description": "web shop", "architectureNotes": ["monorepo", "event driven"]},
		"units": [
			{"id": "auth", "path": "services/auth", "dependencies": ["shop-ui"]},
			{"id": "cart", "path": "services/cart"}
		],
		"categories": [{"name": "service"}]
	}`
	frontend := `{
		"units": [
			{"id": "shop-ui", "path": "web/ui", "dependencies": ["auth", "ghost"]},
			{"id": "cart", "path": "web/cart-widget", "purpose": "duplicate, must lose"}
		],
		"categories": [{"name": "service", "description": "dup"}, {"name": "app"}]
	}`

	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			switch {
			case spec.Kind == domain.PromptStructureScan:
				return largeScan, nil
			case spec.Kind == domain.PromptAreaDiscovery && spec.Subject == "Backend":
				return backend, nil
			case spec.Kind == domain.PromptAreaDiscovery && spec.Subject == "Frontend":
				return frontend, nil
			default:
				t.Fatalf("unexpected call %q %q", spec.Kind, spec.Subject)
				return "", nil
			}
		})

	g, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, g.Units, 3, "duplicate id unioned, first area wins")
	cart := g.Unit(id("cart"))
	require.NotNil(t, cart)
	assert.Equal(t, "services/cart", cart.Path)
	assert.Equal(t, id("backend"), cart.Area)

	// Cross-area dependency resolves; the undiscovered one is pruned.
	ui := g.Unit(id("shop-ui"))
	require.NotNil(t, ui)
	assert.Equal(t, id("frontend"), ui.Area)
	assert.Equal(t, []domain.InternedString{id("auth")}, ui.Dependencies)
	assert.Equal(t, []domain.InternedString{id("shop-ui")}, g.Unit(id("auth")).Dependents)

	// Categories union by name, first wins.
	require.Len(t, g.Categories, 2)
	assert.Empty(t, g.Categories[0].Description)

	assert.Equal(t, []string{"monorepo", "event driven"}, g.Project.ArchitectureNotes)

	require.Len(t, g.Areas, 2)
	assert.Equal(t, []domain.InternedString{id("auth"), id("cart")}, g.Areas[0].Members)
}

func TestRun_FailedAreaSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any())

	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			switch {
			case spec.Kind == domain.PromptStructureScan:
				return largeScan, nil
			case spec.Subject == "Backend":
				return "", domain.ErrGeneratorFailure
			default:
				return `{"units": [{"id": "shop-ui", "path": "web/ui"}]}`, nil
			}
		})

	g, err := discovery.New(gen, log, "/src", 3000).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Units, 1)
	assert.Equal(t, id("frontend"), g.Units[0].Area)
}

func TestRun_AllAreasFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(2)

	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			if spec.Kind == domain.PromptStructureScan {
				return largeScan, nil
			}
			return "", domain.ErrGeneratorFailure
		})

	_, err := discovery.New(gen, log, "/src", 3000).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAllAreasFailed))
}

func TestRun_MalformedResponseRetriedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	calls := 0
	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			if spec.Kind == domain.PromptStructureScan {
				return smallScan, nil
			}
			calls++
			if calls == 1 {
				assert.Empty(t, spec.Amendment)
				return "I cannot answer in JSON today.", nil
			}
			assert.NotEmpty(t, spec.Amendment, "second attempt carries the parse error")
			return `{"units": [{"id": "auth", "path": "services/auth"}]}`, nil
		})

	g, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Units, 1)
}

func TestRun_MalformedTwiceIsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			if spec.Kind == domain.PromptStructureScan {
				return smallScan, nil
			}
			return "still not JSON", nil
		})

	_, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestRun_TimeoutRetriedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	calls := 0
	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			if spec.Kind == domain.PromptStructureScan {
				return smallScan, nil
			}
			calls++
			if calls == 1 {
				return "", domain.ErrGeneratorTimeout
			}
			return `{"units": [{"id": "auth", "path": "services/auth"}]}`, nil
		})

	g, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Units, 1)
}

func TestRun_DeclaredAreasClaimUnits(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	full := `{
		"units": [
			{"id": "auth", "path": "services/auth"},
			{"id": "stray", "path": "tools/stray"}
		],
		"areas": [{"name": "Backend", "path": "services", "members": ["auth"]}]
	}`

	gen.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, spec domain.PromptSpec) (string, error) {
			if spec.Kind == domain.PromptStructureScan {
				return smallScan, nil
			}
			return full, nil
		})

	g, err := discovery.New(gen, nil, "/src", 3000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, id("backend"), g.Unit(id("auth")).Area)
	assert.Equal(t, domain.OtherAreaID, g.Unit(id("stray")).Area, "unclaimed unit falls into the implicit area")

	require.Len(t, g.Areas, 2)
	assert.Equal(t, domain.OtherAreaID, g.Areas[1].ID)
	assert.Equal(t, []domain.InternedString{id("stray")}, g.Areas[1].Members)
}
