package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/digital-blueprint/apiserver/types"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default(time.Now())
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}

	if len(cat.Sections) != types.TotalPhases {
		t.Fatalf("expected %d sections, got %d", types.TotalPhases, len(cat.Sections))
	}
	seen := make(map[int]bool)
	for i, s := range cat.Sections {
		if s.Phase != i+1 {
			t.Fatalf("section %q at index %d has phase %d", s.Slug, i, s.Phase)
		}
		if seen[s.Phase] {
			t.Fatalf("duplicate phase %d", s.Phase)
		}
		seen[s.Phase] = true
		if s.ID != SectionID(s.Slug) {
			t.Fatalf("section %q has unstable id", s.Slug)
		}
	}

	if cat.Sections[0].Slug != "personal-power" {
		t.Fatalf("unexpected first section %q", cat.Sections[0].Slug)
	}

	for _, p := range cat.Prompts {
		if p.Type == types.PromptSelect && len(p.Options) == 0 {
			t.Fatalf("select prompt %q has no options", p.Title)
		}
	}
	if len(cat.Prompts) != 21 {
		t.Fatalf("expected 21 prompts, got %d", len(cat.Prompts))
	}
}

func TestLoadOrdersByPhase(t *testing.T) {
	const doc = `
sections:
  - slug: second
    title: Second
    phase: 2
    prompts:
      - {order: 2, title: B, type: text}
      - {order: 1, title: A, type: checkbox}
  - slug: first
    title: First
    phase: 1
`
	cat, err := Load(strings.NewReader(doc), time.Now())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Sections[0].Slug != "first" || cat.Sections[1].Slug != "second" {
		t.Fatalf("sections not ordered by phase: %q, %q", cat.Sections[0].Slug, cat.Sections[1].Slug)
	}
	if cat.Prompts[0].Title != "A" || cat.Prompts[1].Title != "B" {
		t.Fatalf("prompts not ordered by order")
	}
	if cat.Prompts[0].Description != nil {
		t.Fatalf("expected empty description to be nil")
	}
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "phase gap",
			doc:  "sections:\n  - {slug: a, title: A, phase: 1}\n  - {slug: b, title: B, phase: 3}\n",
			want: "missing 2",
		},
		{
			name: "duplicate slug",
			doc:  "sections:\n  - {slug: a, title: A, phase: 1}\n  - {slug: a, title: B, phase: 2}\n",
			want: "duplicate slug",
		},
		{
			name: "select without options",
			doc:  "sections:\n  - slug: a\n    title: A\n    phase: 1\n    prompts:\n      - {order: 1, title: Q, type: select}\n",
			want: "needs options",
		},
		{
			name: "duplicate order",
			doc:  "sections:\n  - slug: a\n    title: A\n    phase: 1\n    prompts:\n      - {order: 1, title: Q, type: text}\n      - {order: 1, title: R, type: text}\n",
			want: "duplicate prompt order",
		},
		{
			name: "bad slug",
			doc:  "sections:\n  - {slug: Not Safe, title: A, phase: 1}\n",
			want: "url-safe",
		},
		{
			name: "unknown field",
			doc:  "sections:\n  - {slug: a, title: A, phase: 1, colour: red}\n",
			want: "colour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc), time.Now())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
