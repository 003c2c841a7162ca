package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// ProjectInfo describes the project a unit graph was discovered from.
type ProjectInfo struct {
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	ArchitectureNotes []string `json:"architectureNotes,omitempty"`
}

// Category groups units by their role (e.g. "service", "library").
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Area is a top-level region of the source tree reported by the structural
// scan. Members lists the ids of units that belong to the area.
type Area struct {
	ID          InternedString   `json:"id"`
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	Description string           `json:"description,omitempty"`
	Members     []InternedString `json:"members,omitempty"`
}

// OtherAreaID is the implicit area that collects units no area claims.
var OtherAreaID = NewInternedString("other")

// UnitGraph is the full discovery result: project metadata plus the ordered
// set of units, their categories, and the optional area partition.
type UnitGraph struct {
	Project    ProjectInfo `json:"project"`
	Units      []Unit      `json:"units"`
	Categories []Category  `json:"categories,omitempty"`
	Areas      []Area      `json:"areas,omitempty"`
}

// AddUnit appends a unit to the graph.
// It returns an error if a unit with the same id already exists.
func (g *UnitGraph) AddUnit(u Unit) error {
	if g.HasUnit(u.ID) {
		return zerr.With(ErrUnitAlreadyExists, "unit_id", u.ID.String())
	}
	g.Units = append(g.Units, u)
	return nil
}

// HasUnit reports whether a unit with the given id is present.
func (g *UnitGraph) HasUnit(id InternedString) bool {
	return slices.ContainsFunc(g.Units, func(u Unit) bool { return u.ID == id })
}

// Unit returns the unit with the given id, or nil if absent.
func (g *UnitGraph) Unit(id InternedString) *Unit {
	for i := range g.Units {
		if g.Units[i].ID == id {
			return &g.Units[i]
		}
	}
	return nil
}

// UnitIDs returns the ids of all units in graph order.
func (g *UnitGraph) UnitIDs() []InternedString {
	ids := make([]InternedString, len(g.Units))
	for i, u := range g.Units {
		ids[i] = u.ID
	}
	return ids
}

// PruneDanglingRefs removes every dependency or dependent reference that
// points at a unit id absent from the graph. Sub-graphs are produced
// independently, so references to units that were never merged in are
// expected and must not survive.
func (g *UnitGraph) PruneDanglingRefs() {
	known := make(map[InternedString]struct{}, len(g.Units))
	for _, u := range g.Units {
		known[u.ID] = struct{}{}
	}

	keep := func(refs []InternedString) []InternedString {
		out := refs[:0]
		for _, r := range refs {
			if _, ok := known[r]; ok {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	for i := range g.Units {
		g.Units[i].Dependencies = keep(g.Units[i].Dependencies)
		g.Units[i].Dependents = keep(g.Units[i].Dependents)
	}
	for i := range g.Areas {
		g.Areas[i].Members = keep(g.Areas[i].Members)
	}
}

// HasCategory reports whether a category with the given name is present.
func (g *UnitGraph) HasCategory(name string) bool {
	return slices.ContainsFunc(g.Categories, func(c Category) bool { return c.Name == name })
}
