package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/AlhasanIQ/mcp-clarify/config"
)

const (
	telegramPendingTTL        = 24 * time.Hour
	telegramPendingLockWait   = 3 * time.Second
	telegramPendingLockMaxAge = 10 * time.Second
)

// telegramPendingRecord ties an open question to the chat message that
// carries it, so replies can be matched by reply-to id.
type telegramPendingRecord struct {
	RequestID string    `json:"request_id"`
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	OwnerPID  int       `json:"owner_pid,omitempty"`
	OwnerHost string    `json:"owner_host,omitempty"`
}

// telegramPendingStore is a JSON file shared by every mcp-clarify process
// on the host. Access is serialized with an exclusive lock file.
type telegramPendingStore struct {
	path string
	lock lockFile
}

type pendingState map[string]telegramPendingRecord

var telegramLocalHostname = localHostname()

func newTelegramPendingStore(cfg config.Config) (*telegramPendingStore, error) {
	path, err := config.EffectiveTelegramPendingStorePath(cfg)
	if err != nil {
		return nil, err
	}
	return openTelegramPendingStore(path)
}

func openTelegramPendingStore(path string) (*telegramPendingStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("invalid telegram pending store path")
	}
	return &telegramPendingStore{
		path: path,
		lock: lockFile{path: path + ".lock", maxAge: telegramPendingLockMaxAge},
	}, nil
}

func (s *telegramPendingStore) Upsert(rec telegramPendingRecord) error {
	return s.update(func(state pendingState) {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		if rec.ExpiresAt.IsZero() {
			rec.ExpiresAt = rec.CreatedAt.Add(telegramPendingTTL)
		}
		state[rec.RequestID] = rec
	})
}

func (s *telegramPendingStore) Delete(requestID string) error {
	return s.update(func(state pendingState) {
		delete(state, requestID)
	})
}

func (s *telegramPendingStore) Get(requestID string) (telegramPendingRecord, bool, error) {
	var (
		rec telegramPendingRecord
		ok  bool
	)
	err := s.update(func(state pendingState) {
		rec, ok = state[requestID]
	})
	return rec, ok, err
}

func (s *telegramPendingStore) CountByChat(chatID int64) (int, error) {
	var n int
	err := s.update(func(state pendingState) {
		for _, rec := range state {
			if rec.ChatID == chatID {
				n++
			}
		}
	})
	return n, err
}

// Clear removes the store and its lock file. It reports whether a store
// file existed.
func (s *telegramPendingStore) Clear() (bool, error) {
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

// update loads the state under the lock, drops expired and orphaned
// records, applies fn and writes the result back.
func (s *telegramPendingStore) update(fn func(pendingState)) error {
	return s.withLock(func() error {
		state, err := s.load()
		if err != nil {
			return err
		}
		prunePendingState(state, time.Now().UTC())
		fn(state)
		return s.save(state)
	})
}

func (s *telegramPendingStore) withLock(fn func() error) error {
	ok, err := s.lock.hold(telegramPendingLockWait, fn)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("timeout waiting for telegram pending store lock %s", s.lock.path)
	}
	return nil
}

func prunePendingState(state pendingState, now time.Time) {
	for id, rec := range state {
		if pendingRecordExpired(rec, now) {
			delete(state, id)
		}
	}
}

func pendingRecordExpired(rec telegramPendingRecord, now time.Time) bool {
	if pendingRecordOrphaned(rec) {
		return true
	}
	switch {
	case !rec.ExpiresAt.IsZero():
		return !rec.ExpiresAt.After(now)
	case !rec.CreatedAt.IsZero():
		return !rec.CreatedAt.Add(telegramPendingTTL).After(now)
	default:
		return false
	}
}

// pendingRecordOrphaned reports records left behind by a process on this
// host that has since exited.
func pendingRecordOrphaned(rec telegramPendingRecord) bool {
	if rec.OwnerPID <= 0 || runtime.GOOS == "windows" {
		return false
	}
	if rec.OwnerHost != "" && !strings.EqualFold(rec.OwnerHost, telegramLocalHostname) {
		return false
	}
	return !processExists(rec.OwnerPID)
}

func localHostname() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(host))
}

func (s *telegramPendingStore) load() (pendingState, error) {
	state := make(pendingState)
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("parse telegram pending store: %w", err)
	}
	return state, nil
}

func (s *telegramPendingStore) save(state pendingState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, b)
}

// ClearTelegramStorage removes the pending store and the shared inbox
// configured by cfg, along with leftover temp files. It returns the paths
// it deleted.
func ClearTelegramStorage(cfg config.Config) ([]string, error) {
	store, err := newTelegramPendingStore(cfg)
	if err != nil {
		return nil, err
	}
	inbox := openTelegramInbox(filepath.Dir(store.path))

	var removed []string
	for _, c := range []struct {
		path  string
		clear func() (bool, error)
	}{
		{store.path, store.Clear},
		{inbox.path, inbox.Clear},
	} {
		existed, err := c.clear()
		if err != nil {
			return removed, fmt.Errorf("clear %s: %w", c.path, err)
		}
		if existed {
			removed = append(removed, c.path)
		}
		tmp := c.path + ".tmp"
		if err := os.Remove(tmp); err == nil {
			removed = append(removed, tmp)
		} else if !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("delete %s: %w", tmp, err)
		}
	}
	return removed, nil
}
