package provider

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv(config.EnvTelegramPendingStorePath, "")
	cfg := config.Default()
	cfg.Telegram.BotToken = "test-token"
	cfg.Telegram.PendingStorePath = filepath.Join(t.TempDir(), "pending.json")
	return cfg
}

func TestFactoryRejectsMCPWithoutSession(t *testing.T) {
	_, err := New(testConfig(t), "mcp", zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "mcp-clarify serve") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFactoryRejectsUnknownChannel(t *testing.T) {
	if _, err := New(testConfig(t), "sms", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown channel")
	}
}

func TestFactoryUsesTelegram(t *testing.T) {
	cfg := testConfig(t)
	cfg.Channel = config.ChannelTelegram

	p, err := New(cfg, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer p.Close()
	if p.Name() != "telegram" {
		t.Fatalf("expected telegram channel, got %q", p.Name())
	}
}

func TestResolverBindsMCPToSession(t *testing.T) {
	r, err := NewResolver(testConfig(t), "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	if _, err := r.For(nil); err == nil {
		t.Fatalf("expected error without a session")
	}
	e, err := r.For(&fakeSession{})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if e.Name() != "mcp" || r.Channel() != "mcp" {
		t.Fatalf("unexpected channel %q / %q", e.Name(), r.Channel())
	}
}

func TestResolverSharesTelegram(t *testing.T) {
	r, err := NewResolver(testConfig(t), "telegram", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	a, _ := r.For(&fakeSession{})
	b, _ := r.For(nil)
	if a != b || a.Name() != "telegram" {
		t.Fatalf("expected one shared telegram channel")
	}
}

func TestResolverRejectsBadDialect(t *testing.T) {
	cfg := testConfig(t)
	cfg.MCP.Encodings = []string{"xml"}
	if _, err := NewResolver(cfg, "", zerolog.Nop()); err == nil {
		t.Fatalf("expected dialect error")
	}
}
