package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digital-blueprint/apiserver/internal/catalog"
	"github.com/digital-blueprint/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SectionRepository handles persistence for sections and their prompts.
type SectionRepository struct {
	db *sql.DB
}

func NewSectionRepository(db *sql.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, title, slug, description, icon, color, phase, prompt_count, insights, created_at`

func (r *SectionRepository) ListSections(ctx context.Context) ([]types.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections ORDER BY phase`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]types.Section, 0, types.TotalPhases)
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *SectionRepository) GetSection(ctx context.Context, id string) (types.Section, error) {
	if !isUUID(id) {
		return types.Section{}, ErrNotFound
	}
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1`
	section, err := scanSection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Section{}, ErrNotFound
		}
		return types.Section{}, err
	}
	return section, nil
}

func (r *SectionRepository) GetSectionBySlug(ctx context.Context, slug string) (types.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE slug = $1`
	section, err := scanSection(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Section{}, ErrNotFound
		}
		return types.Section{}, err
	}
	return section, nil
}

func (r *SectionRepository) ListPrompts(ctx context.Context, sectionID string) ([]types.Prompt, error) {
	if !isUUID(sectionID) {
		return []types.Prompt{}, nil
	}
	const query = `
		SELECT id, section_id, title, description, type, required, options, placeholder, "order", created_at
		FROM prompts
		WHERE section_id = $1
		ORDER BY "order"`
	rows, err := r.db.QueryContext(ctx, query, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prompts := make([]types.Prompt, 0)
	for rows.Next() {
		var prompt types.Prompt
		var description, placeholder sql.NullString
		if err := rows.Scan(
			&prompt.ID,
			&prompt.SectionID,
			&prompt.Title,
			&description,
			&prompt.Type,
			&prompt.Required,
			pq.Array(&prompt.Options),
			&placeholder,
			&prompt.Order,
			&prompt.CreatedAt,
		); err != nil {
			return nil, err
		}
		prompt.Description = nullableString(description)
		prompt.Placeholder = nullableString(placeholder)
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prompts, nil
}

// Seed writes the catalog in one transaction. Existing rows keep their
// identity and slug; descriptive columns are refreshed from the seed.
func (r *SectionRepository) Seed(ctx context.Context, cat catalog.Catalog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const sectionQuery = `
		INSERT INTO sections (id, title, slug, description, icon, color, phase, prompt_count, insights, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			color = EXCLUDED.color,
			phase = EXCLUDED.phase,
			prompt_count = EXCLUDED.prompt_count,
			insights = EXCLUDED.insights`
	for _, s := range cat.Sections {
		if _, err := tx.ExecContext(
			ctx,
			sectionQuery,
			s.ID,
			s.Title,
			s.Slug,
			s.Description,
			s.Icon,
			s.Color,
			s.Phase,
			s.PromptCount,
			pq.Array(s.Insights),
			s.CreatedAt,
		); err != nil {
			return fmt.Errorf("seed section %s: %w", s.Slug, err)
		}
	}

	const promptQuery = `
		INSERT INTO prompts (id, section_id, title, description, type, required, options, placeholder, "order", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			required = EXCLUDED.required,
			options = EXCLUDED.options,
			placeholder = EXCLUDED.placeholder`
	for _, p := range cat.Prompts {
		if _, err := tx.ExecContext(
			ctx,
			promptQuery,
			p.ID,
			p.SectionID,
			p.Title,
			p.Description,
			string(p.Type),
			p.Required,
			pq.Array(p.Options),
			p.Placeholder,
			p.Order,
			p.CreatedAt,
		); err != nil {
			return fmt.Errorf("seed prompt %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSection(row rowScanner) (types.Section, error) {
	var section types.Section
	err := row.Scan(
		&section.ID,
		&section.Title,
		&section.Slug,
		&section.Description,
		&section.Icon,
		&section.Color,
		&section.Phase,
		&section.PromptCount,
		pq.Array(&section.Insights),
		&section.CreatedAt,
	)
	return section, err
}

// isUUID guards uuid columns, where Postgres rejects malformed input with an
// error instead of matching no rows.
func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
