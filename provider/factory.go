package provider

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

func channelName(cfg config.Config, override string) string {
	name := strings.ToLower(strings.TrimSpace(override))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(cfg.Channel))
	}
	return name
}

// New builds a channel that does not depend on an MCP client session, for
// one-off questions asked from the command line.
func New(cfg config.Config, override string, logger zerolog.Logger) (Channel, error) {
	config.ApplyDefaults(&cfg)
	switch name := channelName(cfg, override); name {
	case config.ChannelTelegram:
		dialect, err := DialectFromConfig(cfg.Telegram.DialectConfig)
		if err != nil {
			return nil, fmt.Errorf("telegram dialect: %w", err)
		}
		return NewTelegram(cfg, dialect, logger)
	case config.ChannelMCP:
		return nil, fmt.Errorf("the mcp channel needs a connected client; run `mcp-clarify serve` or pick --channel telegram")
	default:
		return nil, fmt.Errorf("unknown channel %q", name)
	}
}

// Resolver hands out the channel for each tool call. The mcp channel is
// bound to the calling session; other channels are shared for the life of
// the server.
type Resolver struct {
	channel    string
	mcpDialect Dialect
	shared     Channel
}

func NewResolver(cfg config.Config, override string, logger zerolog.Logger) (*Resolver, error) {
	config.ApplyDefaults(&cfg)
	name := channelName(cfg, override)
	r := &Resolver{channel: name}

	if name == config.ChannelMCP {
		d, err := DialectFromConfig(cfg.MCP)
		if err != nil {
			return nil, fmt.Errorf("mcp dialect: %w", err)
		}
		r.mcpDialect = d
		return r, nil
	}

	shared, err := New(cfg, name, logger)
	if err != nil {
		return nil, err
	}
	r.shared = shared
	return r, nil
}

func (r *Resolver) Channel() string { return r.channel }

func (r *Resolver) For(session Session) (contract.Elicitor, error) {
	if r.shared != nil {
		return r.shared, nil
	}
	return NewMCP(session, r.mcpDialect)
}

func (r *Resolver) Close() error {
	if r.shared == nil {
		return nil
	}
	return r.shared.Close()
}
