package clarify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/contract"
	"github.com/AlhasanIQ/mcp-clarify/extract"
	"github.com/AlhasanIQ/mcp-clarify/negotiate"
)

var ErrEmptyPrompt = errors.New("prompt is required")

// Recorder receives per-question outcomes. metrics.Metrics implements it.
type Recorder interface {
	negotiate.Observer
	ObserveAnswer(resolution string)
	ObserveElicitation(channel string, ok bool, dur time.Duration)
}

type Options struct {
	// Timeout bounds the whole negotiation; zero waits indefinitely.
	Timeout  time.Duration
	Logger   zerolog.Logger
	Recorder Recorder
}

// Service asks one question through an elicitation channel and turns
// whatever comes back into a canonical answer.
type Service struct {
	negotiator *negotiate.Negotiator
	timeout    time.Duration
	logger     zerolog.Logger
	recorder   Recorder
}

func NewService(compat negotiate.Compat, opts Options) *Service {
	var observer negotiate.Observer
	if opts.Recorder != nil {
		observer = opts.Recorder
	}
	return &Service{
		negotiator: negotiate.New(compat, opts.Logger, observer),
		timeout:    opts.Timeout,
		logger:     opts.Logger.With().Str("component", "clarify").Logger(),
		recorder:   opts.Recorder,
	}
}

// Ask returns {question, answer}. Only a failed negotiation, a cancelled
// context or an empty prompt are errors; a declined or unreadable reply
// yields an empty answer.
func (s *Service) Ask(ctx context.Context, q contract.Question, e contract.Elicitor) (contract.Answer, error) {
	if strings.TrimSpace(q.Prompt) == "" {
		return contract.Answer{}, ErrEmptyPrompt
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	channel := "unknown"
	if e != nil {
		channel = e.Name()
	}
	start := time.Now()

	res, err := s.negotiator.Request(ctx, q, e)
	if err != nil {
		s.observeElicitation(channel, false, time.Since(start))
		s.logger.Error().
			Err(err).
			Str("channel", channel).
			Int("choices", len(q.Choices)).
			Msg("clarification failed")
		return contract.Answer{}, err
	}

	answer, resolution := extract.Canonical(res.Raw, q.Choices)
	s.observeElicitation(channel, true, time.Since(start))
	if s.recorder != nil {
		s.recorder.ObserveAnswer(string(resolution))
	}
	s.logger.Info().
		Str("channel", channel).
		Str("variant", res.Step.String()).
		Str("resolution", string(resolution)).
		Dur("elapsed", time.Since(start)).
		Msg("clarification answered")

	return contract.Answer{Question: q.Prompt, Answer: answer}, nil
}

func (s *Service) observeElicitation(channel string, ok bool, dur time.Duration) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveElicitation(channel, ok, dur)
}
