package types

import "time"

// TotalPhases is the number of phases in the blueprint program.
const TotalPhases = 7

// Section represents one fixed phase of the brand-strategy program.
// Sections are reference data: seeded once and never mutated.
type Section struct {
	// ID is the opaque unique identifier of the section.
	ID string `json:"id" db:"id"`

	// Title is the human-readable name of the phase.
	Title string `json:"title" db:"title"`

	// Slug is the stable, URL-safe external key of the section.
	// It is unique and never changes once created.
	Slug string `json:"slug" db:"slug"`

	// Description summarizes what the phase is about.
	Description string `json:"description" db:"description"`

	// Icon is a reference to the icon rendered by the presentation layer.
	Icon string `json:"icon" db:"icon"`

	// Color is the display color of the section, as a CSS hex string.
	Color string `json:"color" db:"color"`

	// Phase is the position of the section in the program (1..7).
	// Phase numbers are unique and define the ordering of sections.
	Phase int `json:"phase" db:"phase"`

	// PromptCount is the declared number of prompts in the phase.
	PromptCount int `json:"promptCount" db:"prompt_count"`

	// Insights are short quotes shown alongside the section.
	Insights []string `json:"insights" db:"insights"`

	// CreatedAt is the timestamp at which the section was seeded.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
