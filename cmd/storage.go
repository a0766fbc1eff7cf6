package cmd

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/provider"
)

func runStorage(args []string, io IO) error {
	if len(args) == 0 {
		printStorageUsage(io.ErrOut)
		return fmt.Errorf("missing storage subcommand")
	}

	sub := strings.ToLower(strings.TrimSpace(args[0]))
	switch sub {
	case "clear":
		return runStorageClear(args[1:], io)
	case "path":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, err := config.EffectiveTelegramPendingStorePath(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(io.Out, path)
		return nil
	case "help", "--help", "-h":
		printStorageUsage(io.Out)
		return nil
	default:
		printStorageUsage(io.ErrOut)
		return fmt.Errorf("unknown storage subcommand %q", sub)
	}
}

func printStorageUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcp-clarify storage path")
	fmt.Fprintln(w, "  mcp-clarify storage clear")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Clears the telegram pending-question store and shared inbox. Open questions lose their reply threading.")
}

func runStorageClear(args []string, io IO) error {
	fs := flag.NewFlagSet("storage clear", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: mcp-clarify storage clear")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	removed, err := provider.ClearTelegramStorage(cfg)
	s := newSty(io.ErrOut)
	for _, path := range removed {
		s.success("Deleted " + path)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		path, err := config.EffectiveTelegramPendingStorePath(cfg)
		if err != nil {
			return err
		}
		s.info("No storage files found in " + filepath.Dir(path))
	}
	return nil
}
