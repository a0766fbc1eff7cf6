package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlhasanIQ/mcp-clarify/config"
)

func runConfig(args []string, io IO) error {
	if len(args) == 0 {
		printConfigUsage(io.ErrOut)
		return fmt.Errorf("missing config subcommand")
	}

	sub := strings.ToLower(strings.TrimSpace(args[0]))
	subArgs := args[1:]

	switch sub {
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(io.Out, path)
		return nil
	case "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		reveal := len(subArgs) > 0 && subArgs[0] == "--reveal"
		if !reveal {
			cfg.Telegram.BotToken = maskSecret(cfg.Telegram.BotToken)
		}
		b, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = io.Out.Write(b)
		return err
	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		_, statErr := os.Stat(path)
		if statErr == nil {
			fmt.Fprintf(io.ErrOut, "Config already exists at %s\n", path)
			return nil
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			return statErr
		}
		cfg := config.Default()
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(io.ErrOut, "Initialized config at %s\n", path)
		return nil
	case "set":
		if len(subArgs) < 2 {
			printConfigUsage(io.ErrOut)
			return fmt.Errorf("usage: mcp-clarify config set <key> <value>")
		}
		key := subArgs[0]
		value := strings.Join(subArgs[1:], " ")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.Set(&cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(io.ErrOut, "Updated %s\n", key)
		return nil
	case "reset":
		return runConfigReset(subArgs, io)
	case "help", "--help", "-h":
		printConfigUsage(io.Out)
		return nil
	default:
		printConfigUsage(io.ErrOut)
		return fmt.Errorf("unknown config subcommand %q", sub)
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcp-clarify config path")
	fmt.Fprintln(w, "  mcp-clarify config show [--reveal]")
	fmt.Fprintln(w, "  mcp-clarify config init")
	fmt.Fprintln(w, "  mcp-clarify config set <key> <value>")
	fmt.Fprintln(w, "  mcp-clarify config reset [--channel mcp|telegram]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Supported keys:")
	fmt.Fprintln(w, "  server_name | transport | http_addr | cors_allowed_origins")
	fmt.Fprintln(w, "  channel | provider")
	fmt.Fprintln(w, "  request_timeout (0 waits indefinitely)")
	fmt.Fprintln(w, "  log.level | log.format")
	fmt.Fprintln(w, "  mcp.text_keys | mcp.schema_args | mcp.encodings")
	fmt.Fprintln(w, "  telegram.bot_token | telegram.chat_id | telegram.poll_interval_seconds")
	fmt.Fprintln(w, "  telegram.pending_store_path")
	fmt.Fprintln(w, "  telegram.text_keys | telegram.schema_args | telegram.encodings")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "List values are comma separated, e.g. mcp.encodings \"json,answer_type,none\".")
}

// runConfigReset deletes the config file, or with --channel restores one
// channel section to its defaults.
func runConfigReset(args []string, io IO) error {
	fs := flag.NewFlagSet("config reset", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)

	var channel string
	fs.StringVar(&channel, "channel", "", "Reset only one channel section (mcp|telegram)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: mcp-clarify config reset [--channel mcp|telegram]")
	}

	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(io.ErrOut, "Config not found at %s\n", path)
				return nil
			}
			return err
		}
		fmt.Fprintf(io.ErrOut, "Deleted config at %s\n", path)
		return nil
	}

	if channel != config.ChannelMCP && channel != config.ChannelTelegram {
		return fmt.Errorf("channel must be mcp or telegram")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(io.ErrOut, "Config not found at %s\n", path)
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	def := config.Default()
	switch channel {
	case config.ChannelMCP:
		cfg.MCP = def.MCP
	case config.ChannelTelegram:
		cfg.Telegram = def.Telegram
		if cfg.Channel == config.ChannelTelegram {
			cfg.Channel = def.Channel
		}
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(io.ErrOut, "Reset channel %s\n", channel)
	return nil
}

// maskSecret keeps the last four characters so a token can still be told
// apart from another.
func maskSecret(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
