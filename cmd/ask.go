package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AlhasanIQ/mcp-clarify/clarify"
	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
	"github.com/AlhasanIQ/mcp-clarify/negotiate"
	"github.com/AlhasanIQ/mcp-clarify/provider"
)

func runAsk(args []string, io IO) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)

	var choicesRaw stringSliceFlag
	var channelOverride string
	var timeoutOverride string

	fs.Var(&choicesRaw, "choice", "Suggested answer. Repeatable.")
	fs.StringVar(&channelOverride, "channel", "", "Override configured channel (telegram)")
	fs.StringVar(&timeoutOverride, "timeout", "", "Override configured timeout (e.g. 5m, 30s)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("missing question")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	timeout, err := config.EffectiveTimeout(cfg)
	if err != nil {
		return err
	}
	if strings.TrimSpace(timeoutOverride) != "" {
		timeout, err = time.ParseDuration(strings.TrimSpace(timeoutOverride))
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("--timeout must be > 0")
		}
	}

	logger, err := newLogger(cfg.Log, io.ErrOut)
	if err != nil {
		return err
	}

	ch, err := provider.New(cfg, channelOverride, logger)
	if err != nil {
		return err
	}
	defer ch.Close()

	svc := clarify.NewService(negotiate.DetectCompat(), clarify.Options{Timeout: timeout, Logger: logger})

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	sp := newSty(io.ErrOut).startSpinner(fmt.Sprintf("Waiting for a reply via %s...", ch.Name()))
	answer, err := svc.Ask(ctx, contract.Question{Prompt: question, Choices: choicesRaw.choices()}, ch)
	sp.stop()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(io.Out)
	enc.SetEscapeHTML(false)
	return enc.Encode(answer)
}
