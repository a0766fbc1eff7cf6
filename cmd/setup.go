package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/provider"
)

const defaultSetupLinkTimeout = 2 * time.Minute

func runSetup(args []string, io IO) error {
	if isSetupHelpRequest(args) {
		printSetupUsage(io.Out)
		return nil
	}

	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)
	fs.Usage = func() { printSetupUsage(io.ErrOut) }

	var nonInteractive bool
	var token string
	var linkTimeout time.Duration
	fs.BoolVar(&nonInteractive, "non-interactive", false, "Print setup checklist instead of prompting")
	fs.StringVar(&token, "token", "", "Telegram bot token (skips the prompt)")
	fs.DurationVar(&linkTimeout, "link-timeout", defaultSetupLinkTimeout, "How long to wait for /start")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		printSetupUsage(io.ErrOut)
		return fmt.Errorf("setup does not take positional arguments")
	}
	if linkTimeout <= 0 {
		return fmt.Errorf("--link-timeout must be > 0")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if nonInteractive {
		return runSetupNonInteractive(io.Out, cfg)
	}
	return runSetupInteractive(io, cfg, strings.TrimSpace(token), linkTimeout)
}

func isSetupHelpRequest(args []string) bool {
	if len(args) > 0 && strings.EqualFold(strings.TrimSpace(args[0]), "help") {
		return true
	}
	for _, arg := range args {
		switch strings.TrimSpace(strings.ToLower(arg)) {
		case "--help", "-h":
			return true
		}
	}
	return false
}

func isTelegramSetupComplete(cfg config.Config) bool {
	return strings.TrimSpace(cfg.Telegram.BotToken) != "" && cfg.Telegram.ChatID != 0
}

func runSetupInteractive(io IO, cfg config.Config, token string, linkTimeout time.Duration) error {
	if isTelegramSetupComplete(cfg) {
		return fmt.Errorf("telegram is already set up. Run `mcp-clarify config reset --channel telegram` first")
	}

	s := newSty(io.ErrOut)
	s.header("mcp-clarify · telegram setup")

	if token == "" {
		s.section("Bot token")
		s.step(1, "In Telegram, open "+s.bold("@BotFather")+" and run /newbot.")
		s.step(2, "Copy the token it prints.")
		var err error
		token, err = promptRequiredLine(bufio.NewReader(io.In), s, "  Bot token: ")
		if err != nil {
			return err
		}
	}

	cfg.Telegram.BotToken = token
	cfg.Telegram.ChatID = 0
	if err := config.Save(cfg); err != nil {
		return err
	}

	dialect, err := provider.DialectFromConfig(cfg.Telegram.DialectConfig)
	if err != nil {
		return fmt.Errorf("telegram dialect: %w", err)
	}
	tg, err := provider.NewTelegram(cfg, dialect, zerolog.Nop())
	if err != nil {
		return err
	}
	defer tg.Close()

	s.section("Link chat")
	s.step(1, "Open a chat with your bot and send "+s.bold("/start")+".")

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithTimeout(ctx, linkTimeout)
	defer cancel()

	sp := s.startSpinner("Waiting for /start...")
	chatID, err := tg.Link(ctx)
	sp.stop()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no /start received within %s; run `mcp-clarify setup` again", linkTimeout)
		}
		return err
	}

	// Link persisted the chat already; reload so the channel switch keeps it.
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	cfg.Telegram.ChatID = chatID
	cfg.Channel = config.ChannelTelegram
	if err := config.Save(cfg); err != nil {
		return err
	}

	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(s.w)
	s.success(fmt.Sprintf("Telegram linked to chat %d", chatID))
	s.info(s.dim(fmt.Sprintf("Config saved to %s", path)))
	s.info("Try it: " + s.cyan(`mcp-clarify ask "Ready?"`))
	return nil
}

func runSetupNonInteractive(w io.Writer, cfg config.Config) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Setup checklist (non-interactive)")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Config path: %s\n", path)
	fmt.Fprintln(w)

	if isTelegramSetupComplete(cfg) {
		fmt.Fprintln(w, "Telegram (already set up):")
		fmt.Fprintf(w, "  Linked chat: %d\n", cfg.Telegram.ChatID)
		fmt.Fprintln(w, "  Reconfigure first: `mcp-clarify config reset --channel telegram`.")
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Telegram:")
		fmt.Fprintln(w, "  Step 1: In Telegram, open @BotFather, run /newbot, and copy BOT_TOKEN.")
		fmt.Fprintln(w, "  Step 2: Run `mcp-clarify config set telegram.bot_token \"<BOT_TOKEN>\"`.")
		fmt.Fprintln(w, "  Step 3: Run `mcp-clarify setup` to link the chat via /start.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "MCP clients with elicitation support need no setup: `mcp-clarify serve`.")
	fmt.Fprintln(w, "To route questions to Telegram: `mcp-clarify config set channel telegram`.")
	return nil
}

func printSetupUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcp-clarify setup [--token <BOT_TOKEN>] [--link-timeout 2m]")
	fmt.Fprintln(w, "  mcp-clarify setup --non-interactive")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Interactive Telegram setup, or checklist-only mode.")
}

func promptRequiredLine(reader *bufio.Reader, s *sty, prompt string) (string, error) {
	for {
		line, err := promptLine(reader, s.w, prompt)
		if err != nil {
			return "", err
		}
		if line == "" {
			s.info(s.dim("This value is required."))
			continue
		}
		return line, nil
	}
}

func promptLine(reader *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("input closed before a value was entered")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
