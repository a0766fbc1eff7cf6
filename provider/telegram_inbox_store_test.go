package provider

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestTelegramInboxAppendAndClaimThreadedReply(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())

	added, err := inbox.Append([]telegramUpdate{replyTo(11, 7001, 5001, "Ship it")})
	if err != nil || added != 1 {
		t.Fatalf("Append: added=%d err=%v", added, err)
	}

	got, needsReminder, err := inbox.Claim(7001, 5001, 2)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if needsReminder {
		t.Fatalf("did not expect reminder")
	}
	if got == nil || got.Text != "Ship it" || got.From != "operator" {
		t.Fatalf("unexpected claimed entry: %#v", got)
	}

	again, _, err := inbox.Claim(7001, 5001, 2)
	if err != nil || again != nil {
		t.Fatalf("entry must be claimed once: %#v err=%v", again, err)
	}
}

func TestTelegramInboxTracksOffset(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())

	if _, err := inbox.Append([]telegramUpdate{plainMessage(4, 1, "a"), {UpdateID: 9}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	offset, err := inbox.NextOffset()
	if err != nil || offset != 10 {
		t.Fatalf("NextOffset = %d, %v; want 10", offset, err)
	}

	// Re-delivered updates are not filed twice.
	added, err := inbox.Append([]telegramUpdate{plainMessage(4, 1, "a")})
	if err != nil || added != 0 {
		t.Fatalf("duplicate append: added=%d err=%v", added, err)
	}
}

func TestTelegramInboxDropsAmbiguousMessageWhenMultiplePending(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())
	if _, err := inbox.Append([]telegramUpdate{
		plainMessage(1, 42, "yes"),          // message id 5001, after the question
		replyTo(2, 42, 9999, "for another"), // threaded to a different question
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, needsReminder, err := inbox.Claim(42, 1001, 2)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if got != nil || !needsReminder {
		t.Fatalf("expected reminder and no claim, got %#v reminder=%v", got, needsReminder)
	}

	other, _, err := inbox.Claim(42, 9999, 2)
	if err != nil || other == nil || other.Text != "for another" {
		t.Fatalf("reply to the other question must survive: %#v err=%v", other, err)
	}
}

func TestTelegramInboxSinglePendingFallbacks(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())
	early := plainMessage(1, 42, "before")
	early.Message.MessageID = 900
	if _, err := inbox.Append([]telegramUpdate{
		early,
		replyTo(2, 42, 777, "stale thread"),
		plainMessage(3, 42, "after"),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, needsReminder, err := inbox.Claim(42, 1001, 1)
	if err != nil || needsReminder {
		t.Fatalf("Claim: reminder=%v err=%v", needsReminder, err)
	}
	if got == nil || got.Text != "after" || got.From != "Ada L" {
		t.Fatalf("unexpected claim: %#v", got)
	}

	state, err := inbox.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Entries) != 0 {
		t.Fatalf("expected irrelevant entries dropped, got %#v", state.Entries)
	}
}

func TestTelegramInboxPrunesExpiredEntries(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())
	b, _ := json.Marshal(telegramInboxState{
		NextUpdateID: 5,
		Entries: []telegramInboxEntry{
			{UpdateID: 3, ChatID: 42, MessageID: 2000, Text: "old", ExpiresAt: time.Now().Add(-time.Minute)},
		},
	})
	if err := os.WriteFile(inbox.path, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, _, err := inbox.Claim(42, 1001, 1)
	if err != nil || got != nil {
		t.Fatalf("expired entry must not be claimed: %#v err=%v", got, err)
	}
	if offset, _ := inbox.NextOffset(); offset != 5 {
		t.Fatalf("offset lost while pruning: %d", offset)
	}
}

func TestTelegramInboxPollIsExclusive(t *testing.T) {
	inbox := openTelegramInbox(t.TempDir())

	var inner bool
	ran, err := inbox.poll(func() error {
		var err error
		inner, err = inbox.poll(func() error { return nil })
		return err
	})
	if err != nil || !ran {
		t.Fatalf("outer poll: ran=%v err=%v", ran, err)
	}
	if inner {
		t.Fatalf("a second poller must not run while the lock is held")
	}
}
