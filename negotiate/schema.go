package negotiate

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	answerField          = "answer"
	answerTypeName       = "ClarifyAnswer"
	choiceAnswerTypeName = "ClarifyAnswerChoices"
)

// ClarifyAnswer is the static one-field form most clients render as a single
// text input.
type ClarifyAnswer struct {
	Answer string `json:"answer" jsonschema:"short answer, five words or fewer"`
}

// Compat carries what is discovered about the schema toolchain once, at
// process start. It is passed to New instead of being read from globals.
type Compat struct {
	answerType    *jsonschema.Schema
	answerTypeErr error
}

// DetectCompat reflects the static answer type. A failure is kept and
// reported by every variant that needs the type, so the remaining variants
// can still be tried.
func DetectCompat() Compat {
	s, err := jsonschema.For[ClarifyAnswer](nil)
	if err != nil {
		return Compat{answerTypeErr: fmt.Errorf("reflect %s: %w", answerTypeName, err)}
	}
	s.Title = answerTypeName
	return Compat{answerType: s}
}

// AnswerType returns a private copy of the static answer type schema.
func (c Compat) AnswerType() (*jsonschema.Schema, error) {
	if c.answerTypeErr != nil {
		return nil, c.answerTypeErr
	}
	if c.answerType == nil {
		return nil, fmt.Errorf("%s type unavailable", answerTypeName)
	}
	return c.answerType.CloneSchemas(), nil
}

// ChoiceType derives the restricted-value answer type: the static type with
// the answer field pinned to the allowed values.
func (c Compat) ChoiceType(choices []string) (*jsonschema.Schema, error) {
	allowed := Dedupe(choices)
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%s requires at least one choice", choiceAnswerTypeName)
	}
	s, err := c.AnswerType()
	if err != nil {
		return nil, err
	}
	prop, ok := s.Properties[answerField]
	if !ok || prop == nil {
		return nil, fmt.Errorf("%s has no %q field", answerTypeName, answerField)
	}
	prop.Enum = enumValues(allowed)
	s.Title = choiceAnswerTypeName
	return s, nil
}

// Dedupe drops repeated choices, keeping the first occurrence of each.
func Dedupe(choices []string) []string {
	out := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Descriptor builds the JSON schema for the reply form. With choices the
// answer is constrained twice: as an enum and as a oneOf of const/title
// pairs, since renderers differ in which of the two they honor.
func Descriptor(choices []string) *jsonschema.Schema {
	answer := &jsonschema.Schema{
		Type:  "string",
		Title: "Answer",
	}
	if allowed := Dedupe(choices); len(allowed) > 0 {
		answer.Enum = enumValues(allowed)
		answer.OneOf = make([]*jsonschema.Schema, 0, len(allowed))
		for _, c := range allowed {
			answer.OneOf = append(answer.OneOf, &jsonschema.Schema{
				Const: jsonschema.Ptr[any](c),
				Title: c,
			})
		}
	}

	return &jsonschema.Schema{
		Type:                 "object",
		Title:                answerTypeName,
		Properties:           map[string]*jsonschema.Schema{answerField: answer},
		Required:             []string{answerField},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func enumValues(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
