package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/digital-blueprint/apiserver/types"
	"github.com/google/uuid"
)

// ProgressRepository handles persistence for user progress.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, section_id, completed_prompts, total_prompts, responses, is_completed, last_updated`

func (r *ProgressRepository) Create(ctx context.Context, progress types.Progress) (types.Progress, error) {
	progress.ID = uuid.NewString()
	progress.LastUpdated = nextTimestamp(time.Time{}, time.Now())

	// The unique index on (user_id, section_id) turns a concurrent duplicate
	// into an empty RETURNING set instead of a second row.
	const query = `
		INSERT INTO user_progress (id, user_id, section_id, completed_prompts, total_prompts, responses, is_completed, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, section_id) DO NOTHING
		RETURNING id`
	var id string
	err := r.db.QueryRowContext(
		ctx,
		query,
		progress.ID,
		progress.UserID,
		progress.SectionID,
		progress.CompletedPrompts,
		progress.TotalPrompts,
		progress.Responses,
		progress.IsCompleted,
		progress.LastUpdated,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Progress{}, ErrConflict
		}
		return types.Progress{}, err
	}
	return progress, nil
}

func (r *ProgressRepository) GetForSection(ctx context.Context, userID, sectionID string) (types.Progress, error) {
	if !isUUID(sectionID) {
		return types.Progress{}, ErrNotFound
	}
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND section_id = $2`
	progress, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, sectionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Progress{}, ErrNotFound
		}
		return types.Progress{}, err
	}
	return progress, nil
}

func (r *ProgressRepository) ListForUser(ctx context.Context, userID string) ([]types.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 ORDER BY last_updated DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Progress, 0)
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies patch to the existing record under a row lock.
func (r *ProgressRepository) Update(ctx context.Context, userID, sectionID string, patch types.ProgressPatch) (types.Progress, error) {
	if !isUUID(sectionID) {
		return types.Progress{}, ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Progress{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND section_id = $2 FOR UPDATE`
	existing, err := scanProgress(tx.QueryRowContext(ctx, query, userID, sectionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Progress{}, ErrNotFound
		}
		return types.Progress{}, err
	}

	updated := patch.Apply(existing)
	updated.LastUpdated = nextTimestamp(existing.LastUpdated, time.Now())

	const update = `
		UPDATE user_progress
		SET completed_prompts = $1,
			total_prompts = $2,
			responses = $3,
			is_completed = $4,
			last_updated = $5
		WHERE id = $6`
	if _, err := tx.ExecContext(
		ctx,
		update,
		updated.CompletedPrompts,
		updated.TotalPrompts,
		updated.Responses,
		updated.IsCompleted,
		updated.LastUpdated,
		updated.ID,
	); err != nil {
		return types.Progress{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Progress{}, err
	}
	return updated, nil
}

func scanProgress(row rowScanner) (types.Progress, error) {
	var progress types.Progress
	err := row.Scan(
		&progress.ID,
		&progress.UserID,
		&progress.SectionID,
		&progress.CompletedPrompts,
		&progress.TotalPrompts,
		&progress.Responses,
		&progress.IsCompleted,
		&progress.LastUpdated,
	)
	if err != nil {
		return types.Progress{}, err
	}
	progress.LastUpdated = progress.LastUpdated.UTC()
	return progress, nil
}
