package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

const (
	telegramAPIBase                = "https://api.telegram.org"
	telegramReplyReminderCooldown  = 20 * time.Second
	telegramMaxLongPollSeconds     = 50
	telegramHTTPTimeoutMarginSecs  = 15
	telegramErrorBodyReadLimit     = 2048
	telegramNotLinkedErrorTemplate = "telegram chat is not linked; send /start to the bot first: %w"
	telegramLinkedText             = "Linked. Clarification questions will arrive in this chat; reply to them directly."
)

// TelegramProvider relays questions to a linked Telegram chat and waits for
// the human's reply. Questions from this process are asked one at a time so
// that concurrent questions do not consume each other's updates.
type TelegramProvider struct {
	pollInterval time.Duration
	baseURL      string
	client       *http.Client
	pendingStore *telegramPendingStore
	inbox        *telegramInbox
	dialect      Dialect
	logger       zerolog.Logger

	// asks holds one token; a question waits for it or for ctx to end.
	asks chan struct{}

	mu             sync.Mutex
	chatID         int64
	nextUpdateID   int64
	pending        map[string]int64
	lastReminderAt time.Time
}

func NewTelegram(cfg config.Config, dialect Dialect, logger zerolog.Logger) (*TelegramProvider, error) {
	config.ApplyDefaults(&cfg)
	token := strings.TrimSpace(cfg.Telegram.BotToken)
	if token == "" {
		return nil, fmt.Errorf(
			"telegram.bot_token is required.\n" +
				"First-time Telegram setup:\n" +
				"1) Open Telegram and chat with @BotFather\n" +
				"2) Run /newbot and copy the bot token\n" +
				"3) Run: `mcp-clarify config set telegram.bot_token \"<BOT_TOKEN>\"`\n" +
				"4) Ask a question, then send /start to your bot to link the chat",
		)
	}
	pendingStore, err := newTelegramPendingStore(cfg)
	if err != nil {
		return nil, err
	}

	apiBase := strings.TrimRight(strings.TrimSpace(cfg.Telegram.APIBase), "/")
	if apiBase == "" {
		apiBase = telegramAPIBase
	}

	poll := time.Duration(cfg.Telegram.PollIntervalSeconds) * time.Second
	return &TelegramProvider{
		chatID:       cfg.Telegram.ChatID,
		pollInterval: poll,
		baseURL:      fmt.Sprintf("%s/bot%s", apiBase, token),
		client: &http.Client{
			Timeout: time.Duration(telegramMaxLongPollSeconds+telegramHTTPTimeoutMarginSecs) * time.Second,
		},
		pendingStore: pendingStore,
		inbox:        openTelegramInbox(filepath.Dir(pendingStore.path)),
		dialect:      dialect,
		logger:       logger.With().Str("channel", config.ChannelTelegram).Logger(),
		pending:      make(map[string]int64),
		asks:         make(chan struct{}, 1),
	}, nil
}

func (p *TelegramProvider) Name() string { return config.ChannelTelegram }

func (p *TelegramProvider) Close() error { return nil }

// Elicit posts call.Text to the chat and blocks until a reply arrives or
// ctx ends. The reply is returned as a contract.Reply.
func (p *TelegramProvider) Elicit(ctx context.Context, call contract.ElicitCall) (any, error) {
	if err := p.dialect.Check(call); err != nil {
		return nil, err
	}

	select {
	case p.asks <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.asks }()

	requestID := uuid.NewString()
	if err := p.send(ctx, requestID, call.Text); err != nil {
		return nil, err
	}
	return p.receive(ctx, requestID)
}

func (p *TelegramProvider) send(ctx context.Context, requestID, text string) error {
	if err := p.ensureChatID(ctx); err != nil {
		return err
	}

	chatID := p.chatIDValue()
	messageID, err := p.sendMessage(ctx, chatID, text)
	if err != nil {
		return err
	}
	return p.registerPending(requestID, chatID, messageID)
}

func (p *TelegramProvider) receive(ctx context.Context, requestID string) (contract.Reply, error) {
	chatID, targetMessageID, err := p.lookupPending(requestID)
	if err != nil {
		return contract.Reply{}, err
	}
	defer p.clearPending(requestID)

	for {
		if err := ctx.Err(); err != nil {
			return contract.Reply{}, err
		}

		open := p.pendingCountForChat(chatID)
		entry, needsReminder, err := p.inbox.Claim(chatID, targetMessageID, open)
		if err != nil {
			return contract.Reply{}, err
		}
		if needsReminder {
			p.maybeSendThreadingReminder(chatID, open)
		}
		if entry != nil {
			p.logger.Debug().
				Str("request_id", requestID).
				Int64("message_id", entry.MessageID).
				Bool("threaded", entry.ReplyToMessageID == targetMessageID).
				Msg("telegram reply received")
			return entry.reply(requestID), nil
		}

		if err := p.pollInbox(ctx); err != nil {
			if ctx.Err() != nil {
				return contract.Reply{}, ctx.Err()
			}
			return contract.Reply{}, err
		}
	}
}

// pollInbox fetches updates into the shared inbox, or waits briefly when
// another process is already polling.
func (p *TelegramProvider) pollInbox(ctx context.Context) error {
	polled, err := p.inbox.poll(func() error {
		offset, err := p.inbox.NextOffset()
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.nextUpdateID = max(p.nextUpdateID, offset)
		p.mu.Unlock()

		updates, err := p.getUpdates(ctx)
		if err != nil {
			return err
		}
		_, err = p.inbox.Append(updates)
		return err
	})
	if err != nil || polled {
		return err
	}

	t := time.NewTimer(telegramPollerWaitInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (u *telegramUser) displayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (p *TelegramProvider) chatIDValue() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatID
}

// ensureChatID waits for a /start command when no chat is linked yet and
// remembers the chat in the config file.
func (p *TelegramProvider) ensureChatID(ctx context.Context) error {
	if p.chatIDValue() != 0 {
		return nil
	}
	p.logger.Info().Msg("waiting for /start to link a telegram chat")

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf(telegramNotLinkedErrorTemplate, err)
		}

		updates, err := p.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf(telegramNotLinkedErrorTemplate, ctx.Err())
			}
			return err
		}

		for _, up := range updates {
			if up.Message == nil || !isTelegramStartCommand(up.Message.Text) {
				continue
			}
			chatID := up.Message.Chat.ID
			p.mu.Lock()
			p.chatID = chatID
			p.mu.Unlock()
			if err := persistTelegramChatID(chatID); err != nil {
				p.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("could not save linked telegram chat")
			} else {
				p.logger.Info().Int64("chat_id", chatID).Msg("telegram chat linked")
			}
			return nil
		}
	}
}

// Link waits for /start when no chat is linked yet, confirms the link in
// the chat and returns the chat id.
func (p *TelegramProvider) Link(ctx context.Context) (int64, error) {
	if err := p.ensureChatID(ctx); err != nil {
		return 0, err
	}
	chatID := p.chatIDValue()
	if _, err := p.sendMessage(ctx, chatID, telegramLinkedText); err != nil {
		return 0, err
	}
	return chatID, nil
}

func isTelegramStartCommand(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	cmd := fields[0]
	return cmd == "/start" || (strings.HasPrefix(cmd, "/start@") && len(cmd) > len("/start@"))
}

func persistTelegramChatID(chatID int64) error {
	if chatID == 0 {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Telegram.ChatID == chatID {
		return nil
	}
	cfg.Telegram.ChatID = chatID
	return config.Save(cfg)
}

func (p *TelegramProvider) registerPending(requestID string, chatID, messageID int64) error {
	if strings.TrimSpace(requestID) == "" || chatID == 0 || messageID == 0 {
		return fmt.Errorf("invalid telegram pending request")
	}

	p.mu.Lock()
	p.pending[requestID] = messageID
	p.mu.Unlock()

	if p.pendingStore == nil {
		return nil
	}
	err := p.pendingStore.Upsert(telegramPendingRecord{
		RequestID: requestID,
		ChatID:    chatID,
		MessageID: messageID,
		OwnerPID:  os.Getpid(),
		OwnerHost: telegramLocalHostname,
	})
	if err != nil {
		p.mu.Lock()
		delete(p.pending, requestID)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *TelegramProvider) lookupPending(requestID string) (int64, int64, error) {
	if p.pendingStore != nil {
		rec, ok, err := p.pendingStore.Get(requestID)
		if err != nil {
			p.logger.Warn().Err(err).Msg("telegram pending store read failed")
		} else if ok && rec.ChatID != 0 && rec.MessageID != 0 {
			return rec.ChatID, rec.MessageID, nil
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	msgID, ok := p.pending[requestID]
	if !ok || msgID == 0 || p.chatID == 0 {
		return 0, 0, fmt.Errorf("unknown request id %q", requestID)
	}
	return p.chatID, msgID, nil
}

func (p *TelegramProvider) clearPending(requestID string) {
	p.mu.Lock()
	delete(p.pending, requestID)
	p.mu.Unlock()

	if p.pendingStore != nil {
		if err := p.pendingStore.Delete(requestID); err != nil {
			p.logger.Warn().Err(err).Msg("telegram pending store delete failed")
		}
	}
}

// pendingCountForChat counts open questions in the chat across every
// process sharing the pending store.
func (p *TelegramProvider) pendingCountForChat(chatID int64) int {
	if chatID == 0 {
		return 0
	}
	if p.pendingStore != nil {
		if n, err := p.pendingStore.CountByChat(chatID); err == nil {
			return n
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *TelegramProvider) maybeSendThreadingReminder(chatID int64, open int) {
	p.mu.Lock()
	now := time.Now()
	if open <= 1 || (!p.lastReminderAt.IsZero() && now.Sub(p.lastReminderAt) < telegramReplyReminderCooldown) {
		p.mu.Unlock()
		return
	}
	p.lastReminderAt = now
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.sendMessage(ctx, chatID, telegramThreadingReminderText(open)); err != nil {
		p.logger.Debug().Err(err).Msg("threading reminder not sent")
	}
}

func telegramThreadingReminderText(open int) string {
	return fmt.Sprintf(
		"%d questions are waiting for an answer. Please reply directly to the message you are answering.",
		open,
	)
}

func (p *TelegramProvider) sendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	var res telegramMessage
	err := p.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &res)
	if err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

func (p *TelegramProvider) getUpdates(ctx context.Context) ([]telegramUpdate, error) {
	p.mu.Lock()
	offset := p.nextUpdateID
	p.mu.Unlock()

	timeout := int(p.pollInterval / time.Second)
	timeout = max(1, min(timeout, telegramMaxLongPollSeconds))
	payload := map[string]any{
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	var updates []telegramUpdate
	if err := p.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}

	var last int64
	for _, up := range updates {
		last = max(last, up.UpdateID)
	}
	if last > 0 {
		p.mu.Lock()
		p.nextUpdateID = max(p.nextUpdateID, last+1)
		p.mu.Unlock()
	}
	return updates, nil
}

// call posts payload to a Bot API method and decodes the result field.
func (p *TelegramProvider) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, telegramErrorBodyReadLimit))
		return fmt.Errorf("telegram %s status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var env telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("telegram %s failed: %s", method, env.Description)
	}
	if result == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, result)
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message,omitempty"`
}

type telegramMessage struct {
	MessageID      int64            `json:"message_id"`
	Date           int64            `json:"date"`
	Text           string           `json:"text"`
	Chat           telegramChat     `json:"chat"`
	From           *telegramUser    `json:"from,omitempty"`
	ReplyToMessage *telegramMessage `json:"reply_to_message,omitempty"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramUser struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
