package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/digital-blueprint/apiserver/internal/events"
	"github.com/digital-blueprint/apiserver/internal/lock"
	"github.com/digital-blueprint/apiserver/types"
)

// ProgressRepository defines persistence operations for progress records.
type ProgressRepository interface {
	Create(ctx context.Context, progress types.Progress) (types.Progress, error)
	GetForSection(ctx context.Context, userID, sectionID string) (types.Progress, error)
	ListForUser(ctx context.Context, userID string) ([]types.Progress, error)
	Update(ctx context.Context, userID, sectionID string, patch types.ProgressPatch) (types.Progress, error)
}

// EventPublisher receives an event after every successful progress write.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ProgressInput carries the fields of a create or update request. Nil
// fields were not supplied. UserID and SectionID, when present, must agree
// with the addressed record.
type ProgressInput struct {
	UserID           *string
	SectionID        *string
	CompletedPrompts *int
	TotalPrompts     *int
	Responses        types.Responses
	IsCompleted      *bool
}

// ProgressService encapsulates progress queries and writes.
type ProgressService struct {
	repo      ProgressRepository
	catalog   CatalogRepository
	locker    lock.Locker
	publisher EventPublisher
}

// NewProgressService wires the service. A nil locker serializes in process;
// a nil publisher disables events.
func NewProgressService(repo ProgressRepository, catalog CatalogRepository, locker lock.Locker, publisher EventPublisher) *ProgressService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &ProgressService{repo: repo, catalog: catalog, locker: locker, publisher: publisher}
}

func (s *ProgressService) List(ctx context.Context, userID string) ([]types.Progress, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *ProgressService) Get(ctx context.Context, userID, sectionID string) (types.Progress, error) {
	return s.repo.GetForSection(ctx, userID, sectionID)
}

// Create stores the first progress record of userID for the section named in
// the input.
func (s *ProgressService) Create(ctx context.Context, userID string, in ProgressInput) (types.Progress, error) {
	var v violations
	if strings.TrimSpace(userID) == "" {
		v.add("userId", "is required")
	}
	if in.UserID != nil && *in.UserID != userID {
		v.add("userId", "must match the user in the path")
	}
	sectionID := ""
	if in.SectionID != nil {
		sectionID = strings.TrimSpace(*in.SectionID)
	}
	if sectionID == "" {
		v.add("sectionId", "is required")
	}
	if err := v.err(); err != nil {
		return types.Progress{}, err
	}

	if _, err := s.catalog.GetSection(ctx, sectionID); err != nil {
		return types.Progress{}, fmt.Errorf("section %s: %w", sectionID, err)
	}
	prompts, err := s.catalog.ListPrompts(ctx, sectionID)
	if err != nil {
		return types.Progress{}, fmt.Errorf("list prompts: %w", err)
	}

	progress := types.Progress{
		UserID:       userID,
		SectionID:    sectionID,
		TotalPrompts: len(prompts),
		Responses:    in.Responses.Clone(),
	}
	if progress.Responses == nil {
		progress.Responses = types.Responses{}
	}
	if in.TotalPrompts != nil {
		progress.TotalPrompts = *in.TotalPrompts
	}
	if in.CompletedPrompts != nil {
		progress.CompletedPrompts = *in.CompletedPrompts
	}
	if in.IsCompleted != nil {
		progress.IsCompleted = *in.IsCompleted
	}

	checkCounts(&v, progress.CompletedPrompts, progress.TotalPrompts)
	checkResponses(&v, progress.Responses, prompts)
	if err := v.err(); err != nil {
		return types.Progress{}, err
	}

	release, err := s.locker.Acquire(ctx, lockKey(userID, sectionID))
	if err != nil {
		return types.Progress{}, err
	}
	defer release()

	created, err := s.repo.Create(ctx, progress)
	if err != nil {
		return types.Progress{}, err
	}

	s.publish(ctx, events.ProgressUpdated, created)
	if created.IsCompleted {
		s.publish(ctx, events.SectionCompleted, created)
	}
	return created, nil
}

// Update applies the supplied fields to an existing record. With merge set,
// responses are merged into the stored map instead of replacing it.
func (s *ProgressService) Update(ctx context.Context, userID, sectionID string, in ProgressInput, merge bool) (types.Progress, error) {
	var v violations
	if in.UserID != nil && *in.UserID != userID {
		v.add("userId", "must match the user in the path")
	}
	if in.SectionID != nil && *in.SectionID != sectionID {
		v.add("sectionId", "must match the section in the path")
	}
	if err := v.err(); err != nil {
		return types.Progress{}, err
	}

	release, err := s.locker.Acquire(ctx, lockKey(userID, sectionID))
	if err != nil {
		return types.Progress{}, err
	}
	defer release()

	existing, err := s.repo.GetForSection(ctx, userID, sectionID)
	if err != nil {
		return types.Progress{}, err
	}

	patch := types.ProgressPatch{
		CompletedPrompts: in.CompletedPrompts,
		TotalPrompts:     in.TotalPrompts,
		Responses:        in.Responses,
		IsCompleted:      in.IsCompleted,
		MergeResponses:   merge,
	}
	next := patch.Apply(existing)
	checkCounts(&v, next.CompletedPrompts, next.TotalPrompts)

	if in.Responses != nil {
		prompts, err := s.catalog.ListPrompts(ctx, sectionID)
		if err != nil {
			return types.Progress{}, fmt.Errorf("list prompts: %w", err)
		}
		checkResponses(&v, in.Responses, prompts)
	}
	if err := v.err(); err != nil {
		return types.Progress{}, err
	}

	updated, err := s.repo.Update(ctx, userID, sectionID, patch)
	if err != nil {
		return types.Progress{}, err
	}

	s.publish(ctx, events.ProgressUpdated, updated)
	if updated.IsCompleted && !existing.IsCompleted {
		s.publish(ctx, events.SectionCompleted, updated)
	}
	return updated, nil
}

// publish reports failures without failing the write that already happened.
func (s *ProgressService) publish(ctx context.Context, eventType string, p types.Progress) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.FromProgress(eventType, p)); err != nil {
		log.Printf("publish %s for %s/%s: %v", eventType, p.UserID, p.SectionID, err)
	}
}

func lockKey(userID, sectionID string) string {
	return "progress/" + userID + "/" + sectionID
}
