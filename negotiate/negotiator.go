package negotiate

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// Observer receives one event per attempted step. metrics.Metrics implements
// it; nil disables observation.
type Observer interface {
	ObserveAttempt(channel, step string, ok bool)
	ObserveExhausted(channel string)
}

type Result struct {
	Raw    any
	Step   Step
	Failed []Attempt
}

// Negotiator finds a call shape an elicitation channel accepts by walking
// the step plan in order. It holds no per-request state.
type Negotiator struct {
	compat   Compat
	logger   zerolog.Logger
	observer Observer
}

func New(compat Compat, logger zerolog.Logger, observer Observer) *Negotiator {
	return &Negotiator{
		compat:   compat,
		logger:   logger.With().Str("component", "negotiator").Logger(),
		observer: observer,
	}
}

// Request asks q through e. The first step whose call returns without error
// wins and no further steps are tried. If all steps fail the error is an
// *ExhaustedError. A cancelled ctx stops the walk with ctx's error.
func (n *Negotiator) Request(ctx context.Context, q contract.Question, e contract.Elicitor) (Result, error) {
	if e == nil {
		return Result{}, fmt.Errorf("nil elicitor")
	}

	text := DisplayPrompt(q.Prompt, q.Choices)
	descriptor := Descriptor(q.Choices)
	channel := e.Name()

	var failed []Attempt
	for _, step := range Plan(len(q.Choices) > 0) {
		raw, err := n.attempt(ctx, e, step, text, descriptor, q.Choices)
		if err == nil {
			n.observe(channel, step, true)
			n.logger.Info().
				Str("channel", channel).
				Str("variant", step.String()).
				Int("failed_attempts", len(failed)).
				Msg("elicitation accepted call shape")
			return Result{Raw: raw, Step: step, Failed: failed}, nil
		}

		n.observe(channel, step, false)
		n.logger.Debug().
			Str("channel", channel).
			Str("variant", step.String()).
			Err(err).
			Msg("elicitation variant failed")
		failed = append(failed, Attempt{Step: step, Err: err})

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Failed: failed}, fmt.Errorf("elicitation interrupted at %s: %w", step, ctxErr)
		}
	}

	if n.observer != nil {
		n.observer.ObserveExhausted(channel)
	}
	exhausted := &ExhaustedError{Attempts: failed}
	n.logger.Warn().
		Str("channel", channel).
		Int("attempts", len(failed)).
		Msg("no elicitation call shape accepted")
	return Result{Failed: failed}, exhausted
}

func (n *Negotiator) attempt(ctx context.Context, e contract.Elicitor, step Step, text string, descriptor *jsonschema.Schema, choices []string) (raw any, err error) {
	call, err := n.buildCall(step, text, descriptor, choices)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = fmt.Errorf("elicitor panic: %v", r)
		}
	}()
	return e.Elicit(ctx, call)
}

func (n *Negotiator) buildCall(step Step, text string, descriptor *jsonschema.Schema, choices []string) (contract.ElicitCall, error) {
	call := contract.ElicitCall{
		TextKey:  step.TextKey,
		Text:     text,
		Arg:      step.Variant.Arg,
		Encoding: step.Variant.Encoding,
	}

	switch step.Variant.Encoding {
	case contract.EncodingJSON:
		call.Schema = descriptor.CloneSchemas()
	case contract.EncodingChoiceType:
		s, err := n.compat.ChoiceType(choices)
		if err != nil {
			return call, err
		}
		call.TypeName = choiceAnswerTypeName
		call.Schema = s
	case contract.EncodingAnswerType:
		s, err := n.compat.AnswerType()
		if err != nil {
			return call, err
		}
		call.TypeName = answerTypeName
		call.Schema = s
	case contract.EncodingNone:
	default:
		return call, fmt.Errorf("unknown schema encoding %q", step.Variant.Encoding)
	}
	return call, nil
}

func (n *Negotiator) observe(channel string, step Step, ok bool) {
	if n.observer == nil {
		return
	}
	n.observer.ObserveAttempt(channel, step.String(), ok)
}
