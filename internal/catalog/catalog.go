// Package catalog loads the immutable section and prompt reference data.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/digital-blueprint/apiserver/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// namespace roots the deterministic identifiers of catalog entities, so ids
// survive restarts and match rows already persisted in Postgres.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://digital-blueprint/catalog"))

// Catalog is the seeded reference data.
type Catalog struct {
	Sections []types.Section
	Prompts  []types.Prompt
}

type catalogFile struct {
	Sections []sectionEntry `yaml:"sections"`
}

type sectionEntry struct {
	Slug        string        `yaml:"slug"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Icon        string        `yaml:"icon"`
	Color       string        `yaml:"color"`
	Phase       int           `yaml:"phase"`
	PromptCount int           `yaml:"prompt_count"`
	Insights    []string      `yaml:"insights"`
	Prompts     []promptEntry `yaml:"prompts"`
}

type promptEntry struct {
	Order       int      `yaml:"order"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Options     []string `yaml:"options"`
	Placeholder string   `yaml:"placeholder"`
}

// Default returns the built-in seven-phase catalog.
func Default(now time.Time) (Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog), now)
}

// LoadFile reads a catalog from a YAML file. An empty path yields the default catalog.
func LoadFile(path string, now time.Time) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(now)
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return Load(f, now)
}

// Load parses and validates a YAML catalog. Sections are returned ordered by
// phase and prompts by section phase then order.
func Load(r io.Reader, now time.Time) (Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate(file); err != nil {
		return Catalog{}, err
	}

	entries := file.Sections
	sort.Slice(entries, func(i, j int) bool { return entries[i].Phase < entries[j].Phase })

	var cat Catalog
	for _, entry := range entries {
		section := types.Section{
			ID:          SectionID(entry.Slug),
			Title:       entry.Title,
			Slug:        entry.Slug,
			Description: entry.Description,
			Icon:        entry.Icon,
			Color:       entry.Color,
			Phase:       entry.Phase,
			PromptCount: entry.PromptCount,
			Insights:    entry.Insights,
			CreatedAt:   now,
		}
		cat.Sections = append(cat.Sections, section)

		prompts := entry.Prompts
		sort.Slice(prompts, func(i, j int) bool { return prompts[i].Order < prompts[j].Order })
		for _, p := range prompts {
			cat.Prompts = append(cat.Prompts, types.Prompt{
				ID:          PromptID(entry.Slug, p.Order),
				SectionID:   section.ID,
				Title:       p.Title,
				Description: optional(p.Description),
				Type:        types.PromptKind(p.Type),
				Required:    p.Required,
				Options:     p.Options,
				Placeholder: optional(p.Placeholder),
				Order:       p.Order,
				CreatedAt:   now,
			})
		}
	}
	return cat, nil
}

// SectionID returns the stable identifier of the section with the given slug.
func SectionID(slug string) string {
	return uuid.NewSHA1(namespace, []byte("section/"+slug)).String()
}

// PromptID returns the stable identifier of a prompt by section slug and order.
func PromptID(slug string, order int) string {
	return uuid.NewSHA1(namespace, []byte("prompt/"+slug+"/"+strconv.Itoa(order))).String()
}

func validate(file catalogFile) error {
	if len(file.Sections) == 0 {
		return errors.New("catalog has no sections")
	}

	var errs []error
	slugs := make(map[string]bool, len(file.Sections))
	phases := make(map[int]bool, len(file.Sections))
	for _, s := range file.Sections {
		if !slugPattern.MatchString(s.Slug) {
			errs = append(errs, fmt.Errorf("section %q: slug must be lowercase and url-safe", s.Slug))
		}
		if slugs[s.Slug] {
			errs = append(errs, fmt.Errorf("section %q: duplicate slug", s.Slug))
		}
		slugs[s.Slug] = true
		if strings.TrimSpace(s.Title) == "" {
			errs = append(errs, fmt.Errorf("section %q: title is required", s.Slug))
		}
		if phases[s.Phase] {
			errs = append(errs, fmt.Errorf("section %q: duplicate phase %d", s.Slug, s.Phase))
		}
		phases[s.Phase] = true

		orders := make(map[int]bool, len(s.Prompts))
		for _, p := range s.Prompts {
			if orders[p.Order] {
				errs = append(errs, fmt.Errorf("section %q: duplicate prompt order %d", s.Slug, p.Order))
			}
			orders[p.Order] = true
			kind := types.PromptKind(p.Type)
			if !kind.Valid() {
				errs = append(errs, fmt.Errorf("section %q prompt %d: unknown type %q", s.Slug, p.Order, p.Type))
			}
			if kind == types.PromptSelect && len(p.Options) == 0 {
				errs = append(errs, fmt.Errorf("section %q prompt %d: select prompt needs options", s.Slug, p.Order))
			}
			if kind != types.PromptSelect && len(p.Options) > 0 {
				errs = append(errs, fmt.Errorf("section %q prompt %d: options are only allowed on select prompts", s.Slug, p.Order))
			}
		}
	}

	for phase := 1; phase <= len(file.Sections); phase++ {
		if !phases[phase] {
			errs = append(errs, fmt.Errorf("phases must be dense over 1..%d: missing %d", len(file.Sections), phase))
		}
	}

	return errors.Join(errs...)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
