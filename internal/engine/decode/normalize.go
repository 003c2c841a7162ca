package decode

import (
	"encoding/json"
	"slices"
	"time"

	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/zerr"
)

// Loosely-typed shapes as the generator produces them. Numbers arrive as
// float64 because generators do not distinguish integer kinds.
type projectDTO struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ArchitectureNotes []string `json:"architectureNotes"`
}

type unitDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Purpose      string   `json:"purpose"`
	Complexity   string   `json:"complexity"`
	Category     string   `json:"category"`
	Dependencies []string `json:"dependencies"`
}

type categoryDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type graphAreaDTO struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type graphDTO struct {
	Project    projectDTO     `json:"project"`
	Units      []unitDTO      `json:"units"`
	Categories []categoryDTO  `json:"categories"`
	Areas      []graphAreaDTO `json:"areas"`
}

type areaDTO struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

type scanDTO struct {
	FileCount float64    `json:"fileCount"`
	Areas     []areaDTO  `json:"areas"`
	Project   projectDTO `json:"project"`
}

type analysisDTO struct {
	Summary    string   `json:"summary"`
	Details    string   `json:"details"`
	Interfaces []string `json:"interfaces"`
	Risks      []string `json:"risks"`
}

type articleDTO struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// unmarshalTolerant extracts the embedded JSON object from text and decodes
// it into v, applying the string-level repair pass if the first parse fails.
func unmarshalTolerant(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return zerr.Wrap(domain.ErrParse, "no JSON object found in generator output")
	}
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(RepairJSON(raw)), v); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrParse, "invalid JSON in generator output"), "cause", err.Error())
	}
	return nil
}

// ParseGraph decodes a discovery response into a UnitGraph. Units missing an
// id and name, or missing a path, are rejected; duplicate ids keep the first
// occurrence; dependency edges are slugified, dangling ones pruned, and
// dependent edges derived as the reverse of dependencies.
func ParseGraph(text string) (*domain.UnitGraph, error) {
	var dto graphDTO
	if err := unmarshalTolerant(text, &dto); err != nil {
		return nil, err
	}

	g := &domain.UnitGraph{
		Project: domain.ProjectInfo{
			Name:              dto.Project.Name,
			Description:       dto.Project.Description,
			ArchitectureNotes: nonEmpty(dto.Project.ArchitectureNotes),
		},
	}

	for _, u := range dto.Units {
		slug := domain.Slugify(u.ID)
		if slug == "" {
			slug = domain.Slugify(u.Name)
		}
		if slug == "" || u.Path == "" {
			continue // schema-incomplete unit
		}
		id := domain.NewInternedString(slug)
		if g.HasUnit(id) {
			continue // first occurrence wins
		}

		name := u.Name
		if name == "" {
			name = slug
		}

		var deps []domain.InternedString
		for _, d := range u.Dependencies {
			if ds := domain.Slugify(d); ds != "" {
				deps = append(deps, domain.NewInternedString(ds))
			}
		}

		_ = g.AddUnit(domain.Unit{
			ID:           id,
			Name:         name,
			Path:         u.Path,
			Purpose:      u.Purpose,
			Complexity:   domain.NormalizeComplexity(u.Complexity),
			Category:     u.Category,
			Dependencies: deps,
		})
	}

	if len(g.Units) == 0 {
		return nil, zerr.Wrap(domain.ErrParse, "discovery response contains no usable units")
	}

	for _, c := range dto.Categories {
		if c.Name == "" || g.HasCategory(c.Name) {
			continue
		}
		g.Categories = append(g.Categories, domain.Category{Name: c.Name, Description: c.Description})
	}

	for _, a := range dto.Areas {
		slug := domain.Slugify(a.Name)
		if slug == "" {
			continue
		}
		id := domain.NewInternedString(slug)
		if slices.ContainsFunc(g.Areas, func(ex domain.Area) bool { return ex.ID == id }) {
			continue
		}
		var members []domain.InternedString
		for _, m := range a.Members {
			if ms := domain.Slugify(m); ms != "" {
				members = append(members, domain.NewInternedString(ms))
			}
		}
		g.Areas = append(g.Areas, domain.Area{
			ID:          id,
			Name:        a.Name,
			Path:        a.Path,
			Description: a.Description,
			Members:     members,
		})
	}

	g.PruneDanglingRefs()
	DeriveDependents(g)

	return g, nil
}

// DeriveDependents rebuilds every unit's dependent list as the reverse of the
// (already pruned) dependency edges.
func DeriveDependents(g *domain.UnitGraph) {
	back := make(map[domain.InternedString][]domain.InternedString)
	for _, u := range g.Units {
		for _, d := range u.Dependencies {
			back[d] = append(back[d], u.ID)
		}
	}
	for i := range g.Units {
		g.Units[i].Dependents = back[g.Units[i].ID]
	}
}

// ParseScan decodes a structural-scan response.
func ParseScan(text string) (*domain.ScanReport, error) {
	var dto scanDTO
	if err := unmarshalTolerant(text, &dto); err != nil {
		return nil, err
	}

	report := &domain.ScanReport{
		FileCount: int(dto.FileCount),
		Project: domain.ProjectInfo{
			Name:              dto.Project.Name,
			Description:       dto.Project.Description,
			ArchitectureNotes: nonEmpty(dto.Project.ArchitectureNotes),
		},
	}

	for _, a := range dto.Areas {
		slug := domain.Slugify(a.Name)
		if slug == "" || a.Path == "" {
			continue
		}
		report.Areas = append(report.Areas, domain.Area{
			ID:          domain.NewInternedString(slug),
			Name:        a.Name,
			Path:        a.Path,
			Description: a.Description,
		})
	}

	return report, nil
}

// ParseAnalysis decodes an analyze-unit response. A missing summary is
// schema-incomplete and rejected.
func ParseAnalysis(text string, unitID domain.InternedString) (*domain.Analysis, error) {
	var dto analysisDTO
	if err := unmarshalTolerant(text, &dto); err != nil {
		return nil, err
	}
	if dto.Summary == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrParse, "analysis missing summary"), "unit_id", unitID.String())
	}

	return &domain.Analysis{
		UnitID:      unitID,
		Summary:     dto.Summary,
		Details:     dto.Details,
		Interfaces:  nonEmpty(dto.Interfaces),
		Risks:       nonEmpty(dto.Risks),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ParseArticle decodes a write-article response. A missing body is rejected;
// a missing title defaults to the unit id.
func ParseArticle(text string, unitID domain.InternedString) (*domain.Article, error) {
	var dto articleDTO
	if err := unmarshalTolerant(text, &dto); err != nil {
		return nil, err
	}
	if dto.Body == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrParse, "article missing body"), "unit_id", unitID.String())
	}

	title := dto.Title
	if title == "" {
		title = unitID.String()
	}

	return &domain.Article{
		UnitID:      unitID,
		Title:       title,
		Body:        dto.Body,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
