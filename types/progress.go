package types

import "time"

// Progress is a user's accumulated answers and completion state for one section.
// At most one Progress exists per (UserID, SectionID) pair.
type Progress struct {
	// ID is the opaque unique identifier of the record.
	ID string `json:"id" db:"id"`

	// UserID identifies the user owning the record.
	UserID string `json:"userId" db:"user_id"`

	// SectionID identifies the section the record is about.
	SectionID string `json:"sectionId" db:"section_id"`

	// CompletedPrompts is the number of prompts the user has completed.
	CompletedPrompts int `json:"completedPrompts" db:"completed_prompts"`

	// TotalPrompts is a snapshot of the section's prompt count at creation.
	TotalPrompts int `json:"totalPrompts" db:"total_prompts"`

	// Responses maps prompt identifiers to answers.
	Responses Responses `json:"responses" db:"responses"`

	// IsCompleted marks the section as finished by the user.
	IsCompleted bool `json:"isCompleted" db:"is_completed"`

	// LastUpdated is refreshed on every write.
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
}

// ProgressPatch carries the fields of a partial progress update.
// Nil fields are left unchanged.
type ProgressPatch struct {
	CompletedPrompts *int
	TotalPrompts     *int
	Responses        Responses
	IsCompleted      *bool

	// MergeResponses merges Responses into the stored map instead of
	// replacing it.
	MergeResponses bool
}

// Apply returns p with the patch fields applied. LastUpdated is not touched.
func (patch ProgressPatch) Apply(p Progress) Progress {
	if patch.CompletedPrompts != nil {
		p.CompletedPrompts = *patch.CompletedPrompts
	}
	if patch.TotalPrompts != nil {
		p.TotalPrompts = *patch.TotalPrompts
	}
	if patch.Responses != nil {
		if patch.MergeResponses {
			merged := p.Responses.Clone()
			if merged == nil {
				merged = make(Responses, len(patch.Responses))
			}
			for id, answer := range patch.Responses {
				merged[id] = answer
			}
			p.Responses = merged
		} else {
			p.Responses = patch.Responses.Clone()
		}
	}
	if patch.IsCompleted != nil {
		p.IsCompleted = *patch.IsCompleted
	}
	return p
}
