package negotiate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// nthElicitor accepts only its succeedAt-th call (1-based); zero rejects all.
type nthElicitor struct {
	succeedAt int
	calls     []contract.ElicitCall
}

func (f *nthElicitor) Name() string { return "fake" }

func (f *nthElicitor) Elicit(_ context.Context, call contract.ElicitCall) (any, error) {
	f.calls = append(f.calls, call)
	if len(f.calls) == f.succeedAt {
		return map[string]any{"answer": fmt.Sprintf("reply-%d", len(f.calls))}, nil
	}
	return nil, fmt.Errorf("rejected call %d", len(f.calls))
}

type recordingObserver struct {
	accepted  []string
	failed    []string
	exhausted int
}

func (o *recordingObserver) ObserveAttempt(_ string, step string, ok bool) {
	if ok {
		o.accepted = append(o.accepted, step)
		return
	}
	o.failed = append(o.failed, step)
}

func (o *recordingObserver) ObserveExhausted(string) { o.exhausted++ }

func newTestNegotiator(obs Observer) *Negotiator {
	return New(DetectCompat(), zerolog.Nop(), obs)
}

func TestRequestStopsAtFirstAcceptedVariant(t *testing.T) {
	q := contract.Question{Prompt: "Which env?", Choices: []string{"dev", "staging", "prod"}}
	plan := Plan(true)

	for _, n := range []int{1, 2, 4, 10, len(plan)} {
		t.Run(fmt.Sprintf("succeed_at_%d", n), func(t *testing.T) {
			e := &nthElicitor{succeedAt: n}
			obs := &recordingObserver{}
			res, err := newTestNegotiator(obs).Request(context.Background(), q, e)
			require.NoError(t, err)

			assert.Len(t, e.calls, n)
			assert.Equal(t, map[string]any{"answer": fmt.Sprintf("reply-%d", n)}, res.Raw)
			assert.Equal(t, plan[n-1], res.Step)
			assert.Len(t, res.Failed, n-1)
			for i, a := range res.Failed {
				assert.Equal(t, plan[i], a.Step)
			}
			assert.Equal(t, []string{plan[n-1].String()}, obs.accepted)
			assert.Len(t, obs.failed, n-1)
			assert.Zero(t, obs.exhausted)
		})
	}
}

func TestRequestExhaustedCarriesOneMessagePerVariant(t *testing.T) {
	for _, tc := range []struct {
		name    string
		choices []string
	}{
		{name: "with choices", choices: []string{"a", "b"}},
		{name: "free text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := &nthElicitor{}
			obs := &recordingObserver{}
			_, err := newTestNegotiator(obs).Request(context.Background(), contract.Question{Prompt: "q", Choices: tc.choices}, e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExhausted))

			var exhausted *ExhaustedError
			require.True(t, errors.As(err, &exhausted))
			want := len(Plan(len(tc.choices) > 0))
			assert.Len(t, exhausted.Messages(), want)
			assert.Len(t, e.calls, want)
			assert.Equal(t, "rejected call 1", exhausted.Messages()[0])
			assert.Equal(t, 1, obs.exhausted)
		})
	}
}

func TestPlanOrder(t *testing.T) {
	withChoices := Plan(true)
	require.Len(t, withChoices, 20)
	assert.Equal(t, "message+response_schema(json)", withChoices[0].String())
	assert.Equal(t, "message+schema(json)", withChoices[1].String())
	assert.Equal(t, "message+positional(json)", withChoices[2].String())
	assert.Equal(t, "message+response_type(choice_type)", withChoices[3].String())
	assert.Equal(t, "message+response_type(answer_type)", withChoices[4].String())
	assert.Equal(t, "message+positional(answer_type)", withChoices[8].String())
	assert.Equal(t, "message+no-schema", withChoices[9].String())
	assert.Equal(t, "prompt+response_schema(json)", withChoices[10].String())
	assert.Equal(t, "prompt+no-schema", withChoices[19].String())

	freeText := Plan(false)
	require.Len(t, freeText, 18)
	for _, s := range freeText {
		assert.NotEqual(t, contract.EncodingChoiceType, s.Variant.Encoding)
	}
}

func TestRequestBuildsCallsPerEncoding(t *testing.T) {
	q := contract.Question{Prompt: "Pick", Choices: []string{"x", "x", "y"}}
	e := &nthElicitor{}
	_, _ = newTestNegotiator(nil).Request(context.Background(), q, e)
	require.Len(t, e.calls, 20)

	first := e.calls[0]
	assert.Equal(t, contract.TextKeyMessage, first.TextKey)
	assert.Equal(t, contract.ArgResponseSchema, first.Arg)
	assert.Equal(t, DisplayPrompt("Pick", q.Choices), first.Text)
	require.NotNil(t, first.Schema)
	assert.Equal(t, []any{"x", "y"}, first.Schema.Properties["answer"].Enum)

	choiceType := e.calls[3]
	assert.Equal(t, contract.EncodingChoiceType, choiceType.Encoding)
	assert.Equal(t, "ClarifyAnswerChoices", choiceType.TypeName)
	assert.Equal(t, []any{"x", "y"}, choiceType.Schema.Properties["answer"].Enum)

	answerType := e.calls[4]
	assert.Equal(t, "ClarifyAnswer", answerType.TypeName)
	assert.Empty(t, answerType.Schema.Properties["answer"].Enum)

	last := e.calls[19]
	assert.Equal(t, contract.TextKeyPrompt, last.TextKey)
	assert.Equal(t, contract.EncodingNone, last.Encoding)
	assert.Nil(t, last.Schema)
}

func TestRequestReportsAnswerTypeFailurePerVariant(t *testing.T) {
	broken := Compat{answerTypeErr: errors.New("no reflection")}
	n := New(broken, zerolog.Nop(), nil)
	e := &nthElicitor{}

	_, err := n.Request(context.Background(), contract.Question{Prompt: "q"}, e)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Messages(), 18)
	// Only json and schema-less variants reach the channel.
	assert.Len(t, e.calls, 8)
	assert.Contains(t, exhausted.Messages(), "no reflection")
}

type cancellingElicitor struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingElicitor) Name() string { return "cancel" }

func (c *cancellingElicitor) Elicit(ctx context.Context, _ contract.ElicitCall) (any, error) {
	c.calls++
	c.cancel()
	return nil, ctx.Err()
}

func TestRequestStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := &cancellingElicitor{cancel: cancel}

	_, err := newTestNegotiator(nil).Request(ctx, contract.Question{Prompt: "q"}, e)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, e.calls)
}

type panickingElicitor struct{ calls int }

func (p *panickingElicitor) Name() string { return "panic" }

func (p *panickingElicitor) Elicit(context.Context, contract.ElicitCall) (any, error) {
	p.calls++
	if p.calls == 1 {
		panic("boom")
	}
	return "ok", nil
}

func TestRequestIsolatesPanickingVariant(t *testing.T) {
	res, err := newTestNegotiator(nil).Request(context.Background(), contract.Question{Prompt: "q"}, &panickingElicitor{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Raw)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Err.Error(), "boom")
}
