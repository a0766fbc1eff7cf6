package extract

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// Shape is the discriminant of a classified raw response.
type Shape int

const (
	// ShapeOutcome is an action/data pair, such as an MCP elicit result.
	ShapeOutcome Shape = iota
	// ShapeAnswerer exposes the answer directly.
	ShapeAnswerer
	// ShapeMapping is a key/value mapping.
	ShapeMapping
	// ShapeOpaque is anything else; its string form is the answer.
	ShapeOpaque
)

func (s Shape) String() string {
	switch s {
	case ShapeOutcome:
		return "outcome"
	case ShapeAnswerer:
		return "answerer"
	case ShapeMapping:
		return "mapping"
	default:
		return "opaque"
	}
}

// Response is a raw response sorted into exactly one Shape. Only the fields
// belonging to that shape are set.
type Response struct {
	Shape   Shape
	Action  string
	Data    any
	Answer  any
	Mapping map[string]any
	Value   any
}

// Classify sorts a raw channel response into its Shape. The order of the
// cases decides precedence when a value would fit more than one.
func Classify(raw any) Response {
	switch v := raw.(type) {
	case *mcp.ElicitResult:
		if v == nil {
			return Response{Shape: ShapeOpaque}
		}
		return Response{Shape: ShapeOutcome, Action: v.Action, Data: contentData(v.Content)}
	case mcp.ElicitResult:
		return Response{Shape: ShapeOutcome, Action: v.Action, Data: contentData(v.Content)}
	case contract.Outcome:
		return Response{Shape: ShapeOutcome, Action: v.OutcomeAction(), Data: v.OutcomeData()}
	case contract.Answerer:
		return Response{Shape: ShapeAnswerer, Answer: v.AnswerValue()}
	}

	if m, ok := asMapping(raw); ok {
		action, hasAction := m["action"]
		data, hasData := m["data"]
		if hasAction && hasData {
			s, _ := action.(string)
			return Response{Shape: ShapeOutcome, Action: s, Data: data}
		}
		return Response{Shape: ShapeMapping, Mapping: m}
	}
	return Response{Shape: ShapeOpaque, Value: raw}
}

// contentData keeps a missing MCP content map distinguishable from an empty
// one.
func contentData(content map[string]any) any {
	if content == nil {
		return nil
	}
	return content
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}
