package services

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/digital-blueprint/apiserver/types"
)

// Violation is a single rejected field of a request.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a request. Nothing is
// written when it is returned.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type violations []Violation

func (v *violations) add(field, format string, args ...any) {
	*v = append(*v, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}

// checkResponses validates every answer against the prompt it answers.
func checkResponses(v *violations, responses types.Responses, prompts []types.Prompt) {
	byID := make(map[string]types.Prompt, len(prompts))
	for _, p := range prompts {
		byID[p.ID] = p
	}

	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		field := "responses." + id
		prompt, ok := byID[id]
		if !ok {
			v.add(field, "unknown prompt")
			continue
		}
		if msg := checkAnswer(prompt, responses[id]); msg != "" {
			v.add(field, "%s", msg)
		}
	}
}

// checkAnswer returns why answer is not acceptable for prompt, or "".
func checkAnswer(prompt types.Prompt, answer types.Answer) string {
	want := prompt.Type.AnswerKind()
	if answer.Kind() != want {
		return fmt.Sprintf("%s prompt expects a %s, got %s", prompt.Type, want, answer.Kind())
	}

	switch prompt.Type {
	case types.PromptSelect:
		text, _ := answer.Text()
		if !slices.Contains(prompt.Options, text) {
			return fmt.Sprintf("must be one of: %s", strings.Join(prompt.Options, ", "))
		}
	case types.PromptRange:
		n, _ := answer.Number()
		if n != math.Trunc(n) || n < types.RangeMin || n > types.RangeMax {
			return fmt.Sprintf("must be an integer between %d and %d", types.RangeMin, types.RangeMax)
		}
	}
	return ""
}

// checkCounts validates the completed/total pair after defaults are applied.
func checkCounts(v *violations, completed, total int) {
	if total < 0 {
		v.add("totalPrompts", "must not be negative")
	}
	if completed < 0 {
		v.add("completedPrompts", "must not be negative")
	} else if total >= 0 && completed > total {
		v.add("completedPrompts", "must not exceed totalPrompts (%d)", total)
	}
}
