// Package catalog derives lookup tables and prompt-ready descriptions from a
// snapshot's pillar, trait, stat and difficulty rows.
package catalog

import (
	"fmt"
	"strings"

	"innerbloom-server/internal/model"
)

// PillarEntry is a pillar with its display name resolved.
type PillarEntry struct {
	ID   model.ID
	Code string
	Name string
}

// TraitEntry is a trait with its parent pillar resolved.
type TraitEntry struct {
	ID         model.ID
	Code       string
	Name       string
	PillarID   model.ID
	PillarCode string // parent code, or pillar_<id> when the parent row is missing
}

// StatEntry is a stat with its parent trait resolved.
type StatEntry struct {
	ID        model.ID
	Code      string
	Name      string
	TraitCode string
}

// DifficultyEntry is a difficulty with its display name resolved.
type DifficultyEntry struct {
	ID     model.ID
	Code   string
	Name   string
	XPBase int
}

// Catalog is read-only after Build.
type Catalog struct {
	Pillars      []PillarEntry
	Traits       []TraitEntry
	Stats        []StatEntry
	Difficulties []DifficultyEntry

	PillarsByCode      map[string]PillarEntry
	PillarsByID        map[model.ID]PillarEntry
	TraitsByCode       map[string]TraitEntry
	TraitsByID         map[model.ID]TraitEntry
	StatsByCode        map[string]StatEntry
	DifficultiesByCode map[string]DifficultyEntry
	DifficultiesByID   map[model.ID]DifficultyEntry

	// Pre-rendered strings injected verbatim into prompts.
	PillarsText      string
	TraitsText       string
	StatsText        string
	DifficultiesText string
}

// Build derives a Catalog from snap. It has no side effects.
func Build(snap *model.Snapshot) *Catalog {
	c := &Catalog{
		PillarsByCode:      make(map[string]PillarEntry),
		PillarsByID:        make(map[model.ID]PillarEntry),
		TraitsByCode:       make(map[string]TraitEntry),
		TraitsByID:         make(map[model.ID]TraitEntry),
		StatsByCode:        make(map[string]StatEntry),
		DifficultiesByCode: make(map[string]DifficultyEntry),
		DifficultiesByID:   make(map[model.ID]DifficultyEntry),
	}
	if snap == nil {
		return c
	}

	for _, p := range snap.Pillars {
		e := PillarEntry{ID: p.PillarID, Code: p.Code, Name: nameOr(p.Name, p.Code)}
		c.Pillars = append(c.Pillars, e)
		c.PillarsByCode[e.Code] = e
		c.PillarsByID[e.ID] = e
	}

	for _, t := range snap.Traits {
		e := TraitEntry{
			ID:         t.TraitID,
			Code:       t.Code,
			Name:       nameOr(t.Name, t.Code),
			PillarID:   t.PillarID,
			PillarCode: c.pillarLabel(t.PillarID),
		}
		c.Traits = append(c.Traits, e)
		c.TraitsByCode[e.Code] = e
		c.TraitsByID[e.ID] = e
	}

	if len(snap.Stats) > 0 {
		for _, s := range snap.Stats {
			traitCode := ""
			if t, ok := c.TraitsByID[s.TraitID]; ok {
				traitCode = t.Code
			}
			e := StatEntry{ID: s.StatID, Code: s.Code, Name: nameOr(s.Name, s.Code), TraitCode: traitCode}
			c.Stats = append(c.Stats, e)
			c.StatsByCode[e.Code] = e
		}
	} else {
		// Without a stat table every trait is its own stat.
		for _, t := range c.Traits {
			e := StatEntry{ID: t.ID, Code: t.Code, Name: t.Name, TraitCode: t.Code}
			c.Stats = append(c.Stats, e)
			c.StatsByCode[e.Code] = e
		}
	}

	for _, d := range snap.Difficulties {
		e := DifficultyEntry{ID: d.DifficultyID, Code: d.Code, Name: nameOr(d.Name, d.Code), XPBase: d.XPBase}
		c.Difficulties = append(c.Difficulties, e)
		c.DifficultiesByCode[e.Code] = e
		c.DifficultiesByID[e.ID] = e
	}

	c.PillarsText = c.renderPillars()
	c.TraitsText = c.renderTraits()
	c.StatsText = c.renderStats()
	c.DifficultiesText = c.renderDifficulties()
	return c
}

func (c *Catalog) pillarLabel(id model.ID) string {
	if p, ok := c.PillarsByID[id]; ok {
		return p.Code
	}
	return "pillar_" + string(id)
}

// TraitsForPillar returns the traits whose parent is pillarCode, in catalog order.
func (c *Catalog) TraitsForPillar(pillarCode string) []TraitEntry {
	var out []TraitEntry
	for _, t := range c.Traits {
		if t.PillarCode == pillarCode {
			out = append(out, t)
		}
	}
	return out
}

// StatFor returns the first stat attached to traitCode. With no attached stat
// it falls back to the first stat in the catalog.
func (c *Catalog) StatFor(traitCode string) (StatEntry, bool) {
	for _, s := range c.Stats {
		if s.TraitCode == traitCode {
			return s, true
		}
	}
	if len(c.Stats) > 0 {
		return c.Stats[0], true
	}
	return StatEntry{}, false
}

func (c *Catalog) renderPillars() string {
	parts := make([]string, 0, len(c.Pillars))
	for _, p := range c.Pillars {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Code, p.Name))
	}
	return strings.Join(parts, ", ")
}

func (c *Catalog) renderTraits() string {
	parts := make([]string, 0, len(c.Traits))
	for _, t := range c.Traits {
		parts = append(parts, fmt.Sprintf("%s (%s) [%s]", t.Code, t.Name, t.PillarCode))
	}
	return strings.Join(parts, ", ")
}

func (c *Catalog) renderStats() string {
	parts := make([]string, 0, len(c.Stats))
	for _, s := range c.Stats {
		if s.TraitCode != "" {
			parts = append(parts, fmt.Sprintf("%s (%s) [%s]", s.Code, s.Name, s.TraitCode))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Code, s.Name))
		}
	}
	return strings.Join(parts, ", ")
}

func (c *Catalog) renderDifficulties() string {
	parts := make([]string, 0, len(c.Difficulties))
	for _, d := range c.Difficulties {
		parts = append(parts, fmt.Sprintf("%s (%s)", d.Code, d.Name))
	}
	return strings.Join(parts, ", ")
}

func nameOr(name, code string) string {
	if strings.TrimSpace(name) == "" {
		return code
	}
	return name
}
