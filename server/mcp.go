package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/contract"
	"github.com/AlhasanIQ/mcp-clarify/provider"
)

const ToolName = "ask_clarification"

const toolDescription = "Ask the human operator a single clarification question and return a concise answer. " +
	"Pass suggested answers in choices; the operator may pick one by value or number, or type something else. " +
	"Returns {question, answer}; answer is empty when the operator declines."

type AskInput struct {
	Prompt  string   `json:"prompt" jsonschema:"the question to ask the human"`
	Choices []string `json:"choices,omitempty" jsonschema:"optional suggested answers, shown as a numbered list"`
}

// Asker is satisfied by *clarify.Service.
type Asker interface {
	Ask(ctx context.Context, q contract.Question, e contract.Elicitor) (contract.Answer, error)
}

// ChannelResolver picks the elicitation channel for one tool call. It is
// satisfied by *provider.Resolver.
type ChannelResolver interface {
	For(session provider.Session) (contract.Elicitor, error)
}

type Options struct {
	Name    string
	Version string
	Logger  zerolog.Logger
}

// NewServer returns an MCP server exposing the ask_clarification tool.
func NewServer(asker Asker, channels ChannelResolver, opts Options) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil)
	logger := opts.Logger.With().Str("component", "server").Logger()

	mcp.AddTool(s, &mcp.Tool{Name: ToolName, Description: toolDescription},
		func(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, contract.Answer, error) {
			var session provider.Session
			if req != nil && req.Session != nil {
				session = req.Session
			}
			e, err := channels.For(session)
			if err != nil {
				logger.Error().Err(err).Msg("no elicitation channel")
				return nil, contract.Answer{}, fmt.Errorf("no elicitation channel: %w", err)
			}

			ans, err := asker.Ask(ctx, contract.Question{Prompt: in.Prompt, Choices: in.Choices}, e)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug().Msg("tool call cancelled by client")
				}
				return nil, contract.Answer{}, err
			}
			return nil, ans, nil
		})

	return s
}
