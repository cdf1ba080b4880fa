package store

import (
	"context"
	"sort"

	"github.com/digital-blueprint/apiserver/internal/catalog"
	"github.com/digital-blueprint/apiserver/types"
)

// CatalogMemory serves the catalog from process memory. It is filled once at
// construction and read-only afterwards, so reads need no locking.
type CatalogMemory struct {
	sections []types.Section
	byID     map[string]int
	bySlug   map[string]int
	prompts  map[string][]types.Prompt
}

func NewCatalogMemory(cat catalog.Catalog) *CatalogMemory {
	sections := append([]types.Section(nil), cat.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Phase < sections[j].Phase })

	m := &CatalogMemory{
		sections: sections,
		byID:     make(map[string]int, len(sections)),
		bySlug:   make(map[string]int, len(sections)),
		prompts:  make(map[string][]types.Prompt, len(sections)),
	}
	for i, s := range sections {
		m.byID[s.ID] = i
		m.bySlug[s.Slug] = i
	}
	for _, p := range cat.Prompts {
		m.prompts[p.SectionID] = append(m.prompts[p.SectionID], p)
	}
	for id := range m.prompts {
		prompts := m.prompts[id]
		sort.SliceStable(prompts, func(i, j int) bool { return prompts[i].Order < prompts[j].Order })
	}
	return m
}

func (m *CatalogMemory) ListSections(ctx context.Context) ([]types.Section, error) {
	out := make([]types.Section, len(m.sections))
	copy(out, m.sections)
	return out, nil
}

func (m *CatalogMemory) GetSection(ctx context.Context, id string) (types.Section, error) {
	i, ok := m.byID[id]
	if !ok {
		return types.Section{}, ErrNotFound
	}
	return m.sections[i], nil
}

func (m *CatalogMemory) GetSectionBySlug(ctx context.Context, slug string) (types.Section, error) {
	i, ok := m.bySlug[slug]
	if !ok {
		return types.Section{}, ErrNotFound
	}
	return m.sections[i], nil
}

func (m *CatalogMemory) ListPrompts(ctx context.Context, sectionID string) ([]types.Prompt, error) {
	prompts := m.prompts[sectionID]
	out := make([]types.Prompt, len(prompts))
	copy(out, prompts)
	return out, nil
}
