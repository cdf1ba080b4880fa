package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// AnswerKind identifies the variant held by an Answer.
type AnswerKind int

// Answer variants.
const (
	AnswerInvalid AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerBool
)

// String returns the name of the variant used in validation messages.
func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "string"
	case AnswerNumber:
		return "number"
	case AnswerBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// ErrInvalidAnswer is returned when a JSON value is not a string, number or boolean.
var ErrInvalidAnswer = errors.New("answer must be a string, number or boolean")

// Answer is a single prompt response. On the wire it is the bare JSON scalar.
type Answer struct {
	kind   AnswerKind
	text   string
	number float64
	flag   bool
}

// TextAnswer returns a text answer.
func TextAnswer(s string) Answer { return Answer{kind: AnswerText, text: s} }

// NumberAnswer returns a numeric answer.
func NumberAnswer(n float64) Answer { return Answer{kind: AnswerNumber, number: n} }

// BoolAnswer returns a boolean answer.
func BoolAnswer(b bool) Answer { return Answer{kind: AnswerBool, flag: b} }

// Kind returns the variant held by a.
func (a Answer) Kind() AnswerKind { return a.kind }

// Text returns the text value and whether a holds text.
func (a Answer) Text() (string, bool) { return a.text, a.kind == AnswerText }

// Number returns the numeric value and whether a holds a number.
func (a Answer) Number() (float64, bool) { return a.number, a.kind == AnswerNumber }

// Bool returns the boolean value and whether a holds a boolean.
func (a Answer) Bool() (bool, bool) { return a.flag, a.kind == AnswerBool }

// String renders the answer as report text.
func (a Answer) String() string {
	switch a.kind {
	case AnswerText:
		return a.text
	case AnswerNumber:
		return strconv.FormatFloat(a.number, 'f', -1, 64)
	case AnswerBool:
		return strconv.FormatBool(a.flag)
	default:
		return ""
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerText:
		return json.Marshal(a.text)
	case AnswerNumber:
		return json.Marshal(a.number)
	case AnswerBool:
		return json.Marshal(a.flag)
	default:
		return nil, ErrInvalidAnswer
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*a = TextAnswer(v)
	case bool:
		*a = BoolAnswer(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", v, err)
		}
		*a = NumberAnswer(n)
	default:
		return ErrInvalidAnswer
	}
	return nil
}

// Responses maps prompt identifiers to answers.
type Responses map[string]Answer

// Clone returns a shallow copy of r. A nil map stays nil.
func (r Responses) Clone() Responses {
	if r == nil {
		return nil
	}
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Value stores the responses as a JSON document. The document is passed as
// text so Postgres parses it as jsonb rather than bytea.
func (r Responses) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads responses from a JSON column.
func (r *Responses) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported responses column type %T", src)
	}
	if len(data) == 0 || string(data) == "null" {
		*r = nil
		return nil
	}
	return json.Unmarshal(data, r)
}
