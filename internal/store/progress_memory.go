package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/digital-blueprint/apiserver/types"
	"github.com/google/uuid"
)

type progressKey struct {
	userID    string
	sectionID string
}

// ProgressMemory keeps progress records in process memory.
type ProgressMemory struct {
	mu      sync.RWMutex
	records map[progressKey]types.Progress
	now     func() time.Time
}

func NewProgressMemory() *ProgressMemory {
	return &ProgressMemory{
		records: make(map[progressKey]types.Progress),
		now:     time.Now,
	}
}

func (m *ProgressMemory) Create(ctx context.Context, progress types.Progress) (types.Progress, error) {
	key := progressKey{userID: progress.UserID, sectionID: progress.SectionID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[key]; exists {
		return types.Progress{}, ErrConflict
	}

	progress.ID = uuid.NewString()
	progress.LastUpdated = nextTimestamp(time.Time{}, m.now())
	progress.Responses = progress.Responses.Clone()
	m.records[key] = progress
	return progress, nil
}

func (m *ProgressMemory) GetForSection(ctx context.Context, userID, sectionID string) (types.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	progress, ok := m.records[progressKey{userID: userID, sectionID: sectionID}]
	if !ok {
		return types.Progress{}, ErrNotFound
	}
	progress.Responses = progress.Responses.Clone()
	return progress, nil
}

func (m *ProgressMemory) ListForUser(ctx context.Context, userID string) ([]types.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Progress, 0)
	for key, progress := range m.records {
		if key.userID != userID {
			continue
		}
		progress.Responses = progress.Responses.Clone()
		out = append(out, progress)
	}
	sortProgress(out)
	return out, nil
}

func (m *ProgressMemory) Update(ctx context.Context, userID, sectionID string, patch types.ProgressPatch) (types.Progress, error) {
	key := progressKey{userID: userID, sectionID: sectionID}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[key]
	if !ok {
		return types.Progress{}, ErrNotFound
	}

	updated := patch.Apply(existing)
	updated.LastUpdated = nextTimestamp(existing.LastUpdated, m.now())
	m.records[key] = updated

	updated.Responses = updated.Responses.Clone()
	return updated, nil
}

// nextTimestamp returns now, or the smallest instant after prev when the clock
// has not moved past it.
func nextTimestamp(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func sortProgress(items []types.Progress) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastUpdated.Equal(items[j].LastUpdated) {
			return items[i].LastUpdated.After(items[j].LastUpdated)
		}
		return items[i].ID < items[j].ID
	})
}
