package discovery

import (
	"slices"

	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/engine/decode"
)

// AreaResult pairs one scanned area with the sub-graph its focused discovery
// call produced.
type AreaResult struct {
	Area  domain.Area
	Graph *domain.UnitGraph
}

// Merge combines per-area sub-graphs into one graph.
//
// Units are unioned by id; on a collision the first area's version wins and is
// not re-evaluated. Every merged unit is tagged with its originating area.
// Categories union by name, first occurrence winning. Architecture notes from
// all sub-graphs are concatenated. Dependency edges crossing area boundaries
// resolve if the target was discovered anywhere; the rest are pruned.
func Merge(scan *domain.ScanReport, results []AreaResult) *domain.UnitGraph {
	g := &domain.UnitGraph{
		Project: scan.Project,
		Areas:   slices.Clone(scan.Areas),
	}
	for i := range g.Areas {
		g.Areas[i].Members = nil
	}

	for _, res := range results {
		mergeProject(&g.Project, res.Graph.Project)

		for _, u := range res.Graph.Units {
			if g.HasUnit(u.ID) {
				continue
			}
			u.Area = res.Area.ID
			u.Dependents = nil
			_ = g.AddUnit(u)
		}

		for _, c := range res.Graph.Categories {
			if !g.HasCategory(c.Name) {
				g.Categories = append(g.Categories, c)
			}
		}
	}

	finalize(g)
	return g
}

// mergeProject fills empty fields of dst from src and concatenates
// architecture notes, dropping empty and repeated entries.
func mergeProject(dst *domain.ProjectInfo, src domain.ProjectInfo) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	for _, note := range src.ArchitectureNotes {
		if note != "" && !slices.Contains(dst.ArchitectureNotes, note) {
			dst.ArchitectureNotes = append(dst.ArchitectureNotes, note)
		}
	}
}

// finalize settles the area partition and the reverse edges of a freshly
// assembled graph. Declared member lists tag units that carry no area yet;
// units left unclaimed fall into the implicit "other" area. Member lists are
// then rebuilt from the tags so the index and the tags can never disagree.
func finalize(g *domain.UnitGraph) {
	if len(g.Areas) > 0 {
		for _, a := range g.Areas {
			for _, m := range a.Members {
				if u := g.Unit(m); u != nil && u.Area == (domain.InternedString{}) {
					u.Area = a.ID
				}
			}
		}

		var unclaimed bool
		for i := range g.Units {
			if g.Units[i].Area == (domain.InternedString{}) {
				g.Units[i].Area = domain.OtherAreaID
				unclaimed = true
			}
		}
		if unclaimed && !slices.ContainsFunc(g.Areas, func(a domain.Area) bool { return a.ID == domain.OtherAreaID }) {
			g.Areas = append(g.Areas, domain.Area{ID: domain.OtherAreaID, Name: "Other"})
		}

		members := make(map[domain.InternedString][]domain.InternedString)
		for _, u := range g.Units {
			members[u.Area] = append(members[u.Area], u.ID)
		}
		for i := range g.Areas {
			g.Areas[i].Members = members[g.Areas[i].ID]
		}
	}

	g.PruneDanglingRefs()
	decode.DeriveDependents(g)
}
