package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	envs := []string{"dev", "staging", "prod"}
	tests := []struct {
		name    string
		text    string
		choices []string
		want    string
		res     Resolution
	}{
		{name: "index", text: "2", choices: envs, want: "staging", res: ResolutionIndex},
		{name: "index with paren", text: "2) staging", choices: envs, want: "staging", res: ResolutionIndex},
		{name: "index with colon", text: "3: prod please", choices: envs, want: "prod", res: ResolutionIndex},
		{name: "index with dot", text: "1.", choices: envs, want: "dev", res: ResolutionIndex},
		{name: "index with bracket", text: "1]", choices: envs, want: "dev", res: ResolutionIndex},
		{name: "index out of range", text: "4", choices: envs, want: "4", res: ResolutionFreeText},
		{name: "zero index", text: "0", choices: envs, want: "0", res: ResolutionFreeText},
		{name: "huge index", text: "99999999999999999999", choices: envs, want: "99999999999999999999", res: ResolutionFreeText},
		{name: "case insensitive", text: "dev", choices: []string{"Dev", "Staging"}, want: "Dev", res: ResolutionMatch},
		{name: "case insensitive upper", text: "STAGING", choices: []string{"Dev", "Staging"}, want: "Staging", res: ResolutionMatch},
		{name: "first match wins", text: "a", choices: []string{"A", "a"}, want: "A", res: ResolutionMatch},
		{name: "no match passthrough", text: "custom answer", choices: []string{"a", "b"}, want: "custom answer", res: ResolutionFreeText},
		{name: "partial match is not a match", text: "staging please", choices: envs, want: "staging please", res: ResolutionFreeText},
		{name: "no choices", text: "2", want: "2", res: ResolutionFreeText},
		{name: "empty", text: "", choices: envs, want: "", res: ResolutionEmpty},
		{name: "index into duplicated choices", text: "2", choices: []string{"x", "x", "y"}, want: "x", res: ResolutionIndex},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, res := Normalize(tc.text, tc.choices)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.res, res)
		})
	}
}

func TestNormalizeIsIdempotentForChoiceValues(t *testing.T) {
	choices := []string{"Dev", "Staging", "Prod"}
	for _, c := range choices {
		once, _ := Normalize(c, choices)
		twice, _ := Normalize(once, choices)
		assert.Equal(t, c, once)
		assert.Equal(t, once, twice)
	}
}

func TestCanonical(t *testing.T) {
	choices := []string{"dev", "staging", "prod"}

	got, res := Canonical(map[string]any{"action": "accept", "data": map[string]any{"answer": "2"}}, choices)
	assert.Equal(t, "staging", got)
	assert.Equal(t, ResolutionIndex, res)

	got, res = Canonical(map[string]any{"action": "decline", "data": nil}, choices)
	assert.Equal(t, "", got)
	assert.Equal(t, ResolutionDeclined, res)

	got, res = Canonical(nil, choices)
	assert.Equal(t, "", got)
	assert.Equal(t, ResolutionEmpty, res)
}
