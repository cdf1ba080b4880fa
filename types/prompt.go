package types

import "time"

// PromptKind is the input kind of a prompt.
type PromptKind string

// Supported prompt kinds.
const (
	// PromptText is a single-line free text answer.
	PromptText PromptKind = "text"

	// PromptTextarea is a multi-line free text answer.
	PromptTextarea PromptKind = "textarea"

	// PromptSelect is a single choice out of Options.
	PromptSelect PromptKind = "select"

	// PromptRange is an integer rating between RangeMin and RangeMax.
	PromptRange PromptKind = "range"

	// PromptCheckbox is a yes/no answer.
	PromptCheckbox PromptKind = "checkbox"
)

// Bounds of a range prompt answer.
const (
	RangeMin = 1
	RangeMax = 10
)

// Valid reports whether k is a known prompt kind.
func (k PromptKind) Valid() bool {
	switch k {
	case PromptText, PromptTextarea, PromptSelect, PromptRange, PromptCheckbox:
		return true
	default:
		return false
	}
}

// AnswerKind returns the answer variant accepted by prompts of this kind.
func (k PromptKind) AnswerKind() AnswerKind {
	switch k {
	case PromptRange:
		return AnswerNumber
	case PromptCheckbox:
		return AnswerBool
	default:
		return AnswerText
	}
}

// Prompt represents a single question belonging to a Section.
type Prompt struct {
	// ID is the opaque unique identifier of the prompt.
	ID string `json:"id" db:"id"`

	// SectionID identifies the section this prompt belongs to.
	SectionID string `json:"sectionId" db:"section_id"`

	// Title is the question shown to the user.
	Title string `json:"title" db:"title"`

	// Description optionally explains the question.
	Description *string `json:"description" db:"description"`

	// Type is the input kind of the prompt.
	Type PromptKind `json:"type" db:"type"`

	// Required indicates whether an answer is mandatory.
	Required bool `json:"required" db:"required"`

	// Options lists the allowed choices. Only set for select prompts.
	Options []string `json:"options" db:"options"`

	// Placeholder is an optional input hint.
	Placeholder *string `json:"placeholder" db:"placeholder"`

	// Order is the position of the prompt within its section.
	Order int `json:"order" db:"order"`

	// CreatedAt is the timestamp at which the prompt was seeded.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
