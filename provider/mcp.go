package provider

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// Session is the part of an MCP server session the mcp channel uses.
// *mcp.ServerSession satisfies it.
type Session interface {
	Elicit(ctx context.Context, params *mcp.ElicitParams) (*mcp.ElicitResult, error)
}

// MCPProvider elicits through the client connected on the calling session.
type MCPProvider struct {
	session Session
	dialect Dialect
}

func NewMCP(session Session, dialect Dialect) (*MCPProvider, error) {
	if session == nil {
		return nil, fmt.Errorf("mcp channel requires a client session")
	}
	return &MCPProvider{session: session, dialect: dialect}, nil
}

func (p *MCPProvider) Name() string { return config.ChannelMCP }

func (p *MCPProvider) Close() error { return nil }

// Elicit maps call onto ElicitParams. The text goes to Message whichever
// key carried it and any schema, named or positional, becomes the requested
// schema. The *mcp.ElicitResult is returned as is.
func (p *MCPProvider) Elicit(ctx context.Context, call contract.ElicitCall) (any, error) {
	if err := p.dialect.Check(call); err != nil {
		return nil, err
	}

	params := &mcp.ElicitParams{Message: call.Text}
	if call.Schema != nil {
		params.RequestedSchema = call.Schema
	}

	res, err := p.session.Elicit(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("mcp elicit: %w", err)
	}
	return res, nil
}
