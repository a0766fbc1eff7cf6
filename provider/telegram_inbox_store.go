package provider

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/AlhasanIQ/mcp-clarify/contract"
)

const (
	telegramInboxFileName      = "telegram-inbox.json"
	telegramPollerLockFileName = "telegram-poller.lock"

	telegramInboxReplyTTL      = 20 * time.Minute
	telegramInboxLooseTTL      = 5 * time.Minute
	telegramInboxLockWait      = 3 * time.Second
	telegramInboxLockMaxAge    = 10 * time.Second
	telegramInboxMaxEntries    = 4096
	telegramPollerLockMaxAge   = 2 * time.Minute
	telegramPollerWaitInterval = 150 * time.Millisecond
)

// telegramInboxEntry is a chat message fetched by whichever process held
// the poller lock, waiting to be claimed by the question it answers.
type telegramInboxEntry struct {
	UpdateID         int64     `json:"update_id"`
	ChatID           int64     `json:"chat_id"`
	MessageID        int64     `json:"message_id"`
	ReplyToMessageID int64     `json:"reply_to_message_id,omitempty"`
	Text             string    `json:"text"`
	Date             int64     `json:"date"`
	From             string    `json:"from,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (e telegramInboxEntry) reply(requestID string) contract.Reply {
	return contract.Reply{
		RequestID:         requestID,
		Text:              e.Text,
		From:              e.From,
		ProviderMessageID: strconv.FormatInt(e.MessageID, 10),
		ReceivedAt:        time.Unix(e.Date, 0).UTC(),
	}
}

type telegramInboxState struct {
	NextUpdateID int64                `json:"next_update_id"`
	Entries      []telegramInboxEntry `json:"entries"`
}

// telegramInbox lets several mcp-clarify processes share one bot. Only the
// process holding the poller lock calls getUpdates; it files every message
// here and each process claims the replies to its own questions.
type telegramInbox struct {
	path   string
	lock   lockFile
	poller lockFile
}

// openTelegramInbox places the inbox next to the pending store.
func openTelegramInbox(dir string) *telegramInbox {
	path := filepath.Join(dir, telegramInboxFileName)
	return &telegramInbox{
		path:   path,
		lock:   lockFile{path: path + ".lock", maxAge: telegramInboxLockMaxAge},
		poller: lockFile{path: filepath.Join(dir, telegramPollerLockFileName), maxAge: telegramPollerLockMaxAge},
	}
}

// NextOffset is the getUpdates offset after the last filed update.
func (s *telegramInbox) NextOffset() (int64, error) {
	var offset int64
	err := s.update(func(state *telegramInboxState, _ time.Time) bool {
		offset = state.NextUpdateID
		return false
	})
	return offset, err
}

// Append files text messages from updates and advances the offset. It
// returns the number of entries added.
func (s *telegramInbox) Append(updates []telegramUpdate) (int, error) {
	var added int
	err := s.update(func(state *telegramInboxState, now time.Time) bool {
		seen := make(map[int64]struct{}, len(state.Entries))
		for _, e := range state.Entries {
			seen[e.UpdateID] = struct{}{}
		}

		changed := false
		for _, up := range updates {
			if up.UpdateID+1 > state.NextUpdateID {
				state.NextUpdateID = up.UpdateID + 1
				changed = true
			}
			if _, dup := seen[up.UpdateID]; dup || up.Message == nil {
				continue
			}
			msg := up.Message
			text := strings.TrimSpace(msg.Text)
			if text == "" {
				continue
			}

			entry := telegramInboxEntry{
				UpdateID:  up.UpdateID,
				ChatID:    msg.Chat.ID,
				MessageID: msg.MessageID,
				Text:      text,
				Date:      msg.Date,
				From:      msg.From.displayName(),
				ExpiresAt: now.Add(telegramInboxLooseTTL),
			}
			if msg.ReplyToMessage != nil && msg.ReplyToMessage.MessageID > 0 {
				entry.ReplyToMessageID = msg.ReplyToMessage.MessageID
				entry.ExpiresAt = now.Add(telegramInboxReplyTTL)
			}
			state.Entries = append(state.Entries, entry)
			seen[up.UpdateID] = struct{}{}
			added++
			changed = true
		}

		slices.SortFunc(state.Entries, func(a, b telegramInboxEntry) int {
			return cmp.Compare(a.UpdateID, b.UpdateID)
		})
		if n := len(state.Entries); n > telegramInboxMaxEntries {
			state.Entries = state.Entries[n-telegramInboxMaxEntries:]
		}
		return changed
	})
	return added, err
}

// Claim removes and returns the entry answering the question carried by
// targetMessageID in chatID. A threaded reply always matches. An unthreaded
// message newer than the question matches only while it is the sole open
// question in the chat; otherwise it is dropped and needsReminder is set.
// Entries that can never match this question are dropped as well.
func (s *telegramInbox) Claim(chatID, targetMessageID int64, open int) (claimed *telegramInboxEntry, needsReminder bool, err error) {
	err = s.update(func(state *telegramInboxState, _ time.Time) bool {
		changed := false
		kept := state.Entries[:0]
		for _, e := range state.Entries {
			if claimed != nil || e.ChatID != chatID {
				kept = append(kept, e)
				continue
			}

			switch {
			case e.ReplyToMessageID == targetMessageID:
				c := e
				claimed = &c
			case e.ReplyToMessageID == 0 && e.MessageID <= targetMessageID:
				// Chatter from before the question.
			case open > 1 && e.ReplyToMessageID == 0:
				needsReminder = true
			case open > 1:
				// A reply to another open question.
				kept = append(kept, e)
				continue
			case e.ReplyToMessageID != 0:
				// A reply to a question nobody waits for anymore.
			default:
				c := e
				claimed = &c
			}
			changed = true
		}
		state.Entries = kept
		return changed
	})
	return claimed, needsReminder, err
}

// Clear removes the inbox file. It reports whether one existed.
func (s *telegramInbox) Clear() (bool, error) {
	existed := false
	err := s.withLock(func() error {
		err := os.Remove(s.path)
		switch {
		case err == nil:
			existed = true
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
		return nil
	})
	return existed, err
}

// poll runs fn if no other process is polling. It reports whether fn ran.
func (s *telegramInbox) poll(fn func() error) (bool, error) {
	return s.poller.hold(0, fn)
}

// update loads the state under the lock, prunes expired entries, applies
// fn and saves when anything changed.
func (s *telegramInbox) update(fn func(*telegramInboxState, time.Time) bool) error {
	return s.withLock(func() error {
		state, err := s.load()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		pruned := pruneInbox(&state, now)
		if fn(&state, now) || pruned {
			return s.save(state)
		}
		return nil
	})
}

func (s *telegramInbox) withLock(fn func() error) error {
	ok, err := s.lock.hold(telegramInboxLockWait, fn)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("timeout waiting for telegram inbox lock %s", s.lock.path)
	}
	return nil
}

func pruneInbox(state *telegramInboxState, now time.Time) bool {
	n := len(state.Entries)
	state.Entries = slices.DeleteFunc(state.Entries, func(e telegramInboxEntry) bool {
		return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(now)
	})
	return len(state.Entries) != n
}

func (s *telegramInbox) load() (telegramInboxState, error) {
	var state telegramInboxState
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(b, &state); err != nil {
		return state, fmt.Errorf("parse telegram inbox: %w", err)
	}
	return state, nil
}

func (s *telegramInbox) save(state telegramInboxState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, b)
}
