package cmd

import (
	"fmt"
	"io"
	"strings"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

func Execute(args []string, io IO) error {
	if io.In == nil || io.Out == nil || io.ErrOut == nil {
		return fmt.Errorf("invalid IO")
	}

	if len(args) == 0 {
		printRootUsage(io.ErrOut)
		return fmt.Errorf("missing command")
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "serve":
		return runServe(args[1:], io)
	case "ask":
		return runAsk(args[1:], io)
	case "variants":
		return runVariants(args[1:], io)
	case "setup":
		return runSetup(args[1:], io)
	case "config":
		return runConfig(args[1:], io)
	case "storage":
		return runStorage(args[1:], io)
	case "version", "--version":
		fmt.Fprintln(io.Out, Version)
		return nil
	case "help", "--help", "-h":
		printRootUsage(io.Out)
		return nil
	default:
		printRootUsage(io.ErrOut)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage(w io.Writer) {
	fmt.Fprintln(w, "mcp-clarify: MCP server that asks a human one clarification question at a time")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcp-clarify serve [--transport stdio|http] [--addr host:port] [--channel mcp|telegram]")
	fmt.Fprintln(w, "  mcp-clarify ask [--choice X]... [--channel telegram] [--timeout 5m] <question>")
	fmt.Fprintln(w, "  mcp-clarify variants [--choice X]...")
	fmt.Fprintln(w, "  mcp-clarify setup [--non-interactive] [--token <BOT_TOKEN>]")
	fmt.Fprintln(w, "  mcp-clarify config <path|show|init|set|reset>")
	fmt.Fprintln(w, "  mcp-clarify storage clear")
	fmt.Fprintln(w, "  mcp-clarify version")
}
