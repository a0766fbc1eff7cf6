package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AlhasanIQ/mcp-clarify/clarify"
	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/metrics"
	"github.com/AlhasanIQ/mcp-clarify/negotiate"
	"github.com/AlhasanIQ/mcp-clarify/provider"
	"github.com/AlhasanIQ/mcp-clarify/server"
)

func runServe(args []string, io IO) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)

	var transport, addr, channel string
	fs.StringVar(&transport, "transport", "", "Override configured transport (stdio|http)")
	fs.StringVar(&addr, "addr", "", "Override configured HTTP listen address")
	fs.StringVar(&channel, "channel", "", "Override configured elicitation channel (mcp|telegram)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: mcp-clarify serve [--transport stdio|http] [--addr host:port] [--channel mcp|telegram]")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	for key, value := range map[string]string{"transport": transport, "http_addr": addr, "channel": channel} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := config.Set(&cfg, key, value); err != nil {
			return fmt.Errorf("--%s: %w", strings.TrimPrefix(key, "http_"), err)
		}
	}

	logger, err := newLogger(cfg.Log, io.ErrOut)
	if err != nil {
		return err
	}
	timeout, err := config.EffectiveTimeout(cfg)
	if err != nil {
		return err
	}

	compat := negotiate.DetectCompat()
	if _, err := compat.AnswerType(); err != nil {
		logger.Warn().Err(err).Msg("answer type unavailable; typed variants will be skipped")
	}

	m := metrics.New()
	svc := clarify.NewService(compat, clarify.Options{Timeout: timeout, Logger: logger, Recorder: m})

	resolver, err := provider.NewResolver(cfg, "", logger)
	if err != nil {
		return err
	}
	defer resolver.Close()

	s := server.NewServer(svc, resolver, server.Options{Name: cfg.ServerName, Version: Version, Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("transport", cfg.Transport).
		Str("channel", resolver.Channel()).
		Dur("request_timeout", timeout).
		Msg("starting mcp-clarify")

	switch cfg.Transport {
	case config.TransportHTTP:
		opts := server.HTTPOptions{
			Addr:               cfg.HTTPAddr,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			Metrics:            m.Handler(),
			Logger:             logger,
		}
		return server.ListenAndServe(ctx, server.NewHandler(s, opts), opts)
	case config.TransportStdio:
		err := s.Run(ctx, &mcp.StdioTransport{})
		if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
