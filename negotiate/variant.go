package negotiate

import (
	"fmt"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// Variant is one way of delivering the answer schema to an elicitation
// channel. It is pure data; Negotiator turns it into a contract.ElicitCall.
type Variant struct {
	Arg      contract.SchemaArg
	Encoding contract.SchemaEncoding
}

// TextKeys are tried in this order, each against the whole Ladder.
var TextKeys = []contract.TextKey{
	contract.TextKeyMessage,
	contract.TextKeyPrompt,
}

// Ladder is the fixed order in which schema deliveries are tried.
var Ladder = []Variant{
	{Arg: contract.ArgResponseSchema, Encoding: contract.EncodingJSON},
	{Arg: contract.ArgSchema, Encoding: contract.EncodingJSON},
	{Arg: contract.ArgPositional, Encoding: contract.EncodingJSON},
	{Arg: contract.ArgResponseType, Encoding: contract.EncodingChoiceType},
	{Arg: contract.ArgResponseType, Encoding: contract.EncodingAnswerType},
	{Arg: contract.ArgResponseSchema, Encoding: contract.EncodingAnswerType},
	{Arg: contract.ArgResponseModel, Encoding: contract.EncodingAnswerType},
	{Arg: contract.ArgSchema, Encoding: contract.EncodingAnswerType},
	{Arg: contract.ArgPositional, Encoding: contract.EncodingAnswerType},
	{Arg: contract.ArgNone, Encoding: contract.EncodingNone},
}

// Step is a variant bound to a text key.
type Step struct {
	TextKey contract.TextKey
	Variant Variant
}

func (s Step) String() string {
	switch s.Variant.Arg {
	case contract.ArgNone:
		return fmt.Sprintf("%s+no-schema", s.TextKey)
	default:
		return fmt.Sprintf("%s+%s(%s)", s.TextKey, s.Variant.Arg, s.Variant.Encoding)
	}
}

// Plan lists the steps in the order Request tries them. The restricted
// choice type only exists when there are choices to restrict to.
func Plan(hasChoices bool) []Step {
	steps := make([]Step, 0, len(TextKeys)*len(Ladder))
	for _, key := range TextKeys {
		for _, v := range Ladder {
			if v.Encoding == contract.EncodingChoiceType && !hasChoices {
				continue
			}
			steps = append(steps, Step{TextKey: key, Variant: v})
		}
	}
	return steps
}
