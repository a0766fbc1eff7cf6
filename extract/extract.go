package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

const answerKey = "answer"

// Extract pulls the answer text out of a raw channel response. declined
// reports that the human answered with an action other than accept. Extract
// never fails: anything unexpected, including a panicking response value,
// yields "".
func Extract(raw any) (text string, declined bool) {
	defer func() {
		if r := recover(); r != nil {
			text, declined = "", false
		}
	}()

	r := Classify(raw)
	switch r.Shape {
	case ShapeOutcome:
		if r.Action != contract.ActionAccept {
			return "", true
		}
		if r.Data == nil {
			return "", false
		}
		return fromData(r.Data), false
	case ShapeAnswerer:
		return stringify(r.Answer), false
	case ShapeMapping:
		if v, ok := r.Mapping[answerKey]; ok {
			return stringify(v), false
		}
		return stringify(r.Mapping), false
	default:
		return stringify(r.Value), false
	}
}

func fromData(data any) string {
	if a, ok := data.(contract.Answerer); ok {
		return stringify(a.AnswerValue())
	}
	if m, ok := asMapping(data); ok {
		if v, ok := m[answerKey]; ok {
			return stringify(v)
		}
		return stringify(m)
	}
	return stringify(data)
}

func stringify(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case []byte:
		s = string(t)
	case fmt.Stringer:
		s = t.String()
	case map[string]any, map[string]string, []any, []string:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(b)
		}
	default:
		s = fmt.Sprint(t)
	}
	return strings.TrimSpace(s)
}
