package contract

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Elicitation actions reported by a client after it showed the question.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionCancel  = "cancel"
)

type Question struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
}

// Answer is the canonical result handed back to the calling agent.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type TextKey string

const (
	TextKeyMessage TextKey = "message"
	TextKeyPrompt  TextKey = "prompt"
)

// SchemaArg names the argument a schema is delivered under. ArgPositional
// means the schema is passed ahead of the named arguments, ArgNone that no
// schema is passed at all.
type SchemaArg string

const (
	ArgResponseSchema SchemaArg = "response_schema"
	ArgSchema         SchemaArg = "schema"
	ArgResponseType   SchemaArg = "response_type"
	ArgResponseModel  SchemaArg = "response_model"
	ArgPositional     SchemaArg = "positional"
	ArgNone           SchemaArg = ""
)

type SchemaEncoding string

const (
	// EncodingJSON is a plain JSON schema object.
	EncodingJSON SchemaEncoding = "json"
	// EncodingChoiceType is a type restricted to the exact allowed values.
	EncodingChoiceType SchemaEncoding = "choice_type"
	// EncodingAnswerType is the static one-field text answer type.
	EncodingAnswerType SchemaEncoding = "answer_type"
	EncodingNone       SchemaEncoding = "none"
)

// ElicitCall is one fully packaged call to an elicitation channel.
type ElicitCall struct {
	TextKey  TextKey
	Text     string
	Arg      SchemaArg
	Encoding SchemaEncoding
	// TypeName is set for the type encodings, e.g. "ClarifyAnswer".
	TypeName string
	Schema   *jsonschema.Schema
}

// Elicitor presents a call to a human and returns whatever the channel
// produced. The wait is unbounded unless ctx says otherwise.
type Elicitor interface {
	Name() string
	Elicit(ctx context.Context, call ElicitCall) (any, error)
}

// Outcome is implemented by raw responses that carry an action/data pair.
type Outcome interface {
	OutcomeAction() string
	OutcomeData() any
}

// Answerer is implemented by raw responses that carry the answer directly.
type Answerer interface {
	AnswerValue() any
}

type Reply struct {
	RequestID         string    `json:"request_id"`
	Text              string    `json:"text"`
	From              string    `json:"from,omitempty"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

func (r Reply) AnswerValue() any { return r.Text }
