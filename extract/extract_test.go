package extract

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

type outcome struct {
	action string
	data   any
}

func (o outcome) OutcomeAction() string { return o.action }
func (o outcome) OutcomeData() any      { return o.data }

type answerer struct{ answer any }

func (a answerer) AnswerValue() any { return a.answer }

type panicky struct{}

func (panicky) AnswerValue() any { panic("broken response") }

type label string

func (l label) String() string { return "label:" + string(l) }

func TestExtractShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{name: "action mapping", raw: map[string]any{"action": "accept", "data": map[string]any{"answer": "x"}}, want: "x"},
		{name: "outcome with answerer data", raw: outcome{action: "accept", data: answerer{answer: "x"}}, want: "x"},
		{name: "answerer", raw: answerer{answer: "x"}, want: "x"},
		{name: "mapping", raw: map[string]any{"answer": "x"}, want: "x"},
		{name: "bare value", raw: "x", want: "x"},
		{name: "mcp result", raw: &mcp.ElicitResult{Action: "accept", Content: map[string]any{"answer": " x "}}, want: "x"},
		{name: "mcp result value", raw: mcp.ElicitResult{Action: "accept", Content: map[string]any{"answer": "x"}}, want: "x"},
		{name: "chat reply", raw: contract.Reply{Text: "  x\n"}, want: "x"},
		{name: "string mapping", raw: map[string]string{"answer": "x"}, want: "x"},
		{name: "data without answer key", raw: outcome{action: "accept", data: map[string]any{"choice": "x"}}, want: `{"choice":"x"}`},
		{name: "scalar data", raw: outcome{action: "accept", data: 42}, want: "42"},
		{name: "numeric answer", raw: map[string]any{"answer": 3}, want: "3"},
		{name: "mapping without answer", raw: map[string]any{"value": "x"}, want: `{"value":"x"}`},
		{name: "stringer", raw: label("x"), want: "label:x"},
		{name: "nil", raw: nil, want: ""},
		{name: "nil mcp result", raw: (*mcp.ElicitResult)(nil), want: ""},
		{name: "accept without data", raw: &mcp.ElicitResult{Action: "accept"}, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, declined := Extract(tc.raw)
			assert.False(t, declined)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractNonAcceptActions(t *testing.T) {
	for _, raw := range []any{
		map[string]any{"action": "decline", "data": nil},
		&mcp.ElicitResult{Action: "cancel"},
		outcome{action: "decline", data: map[string]any{"answer": "ignored"}},
		outcome{action: "something-new", data: "x"},
	} {
		got, declined := Extract(raw)
		assert.True(t, declined, "%#v", raw)
		assert.Equal(t, "", got)
	}
}

func TestExtractRecoversFromPanics(t *testing.T) {
	got, declined := Extract(panicky{})
	assert.Equal(t, "", got)
	assert.False(t, declined)
}

func TestClassifyPrecedence(t *testing.T) {
	assert.Equal(t, ShapeOutcome, Classify(map[string]any{"action": "accept", "data": "x", "answer": "y"}).Shape)
	assert.Equal(t, ShapeMapping, Classify(map[string]any{"action": "accept"}).Shape)
	assert.Equal(t, ShapeAnswerer, Classify(contract.Reply{Text: "x"}).Shape)
	assert.Equal(t, ShapeOpaque, Classify(12).Shape)
	assert.Equal(t, "mapping", ShapeMapping.String())
}
