// Package bot is the Telegram front-end: a buttons-only private chat
// through which a single owner drives peer management. All VPN
// semantics live in wgadmin and bootstrap; this package only maps
// updates to operations and results to messages.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/RajshekharX12/vpn/internal/bootstrap"
	"github.com/RajshekharX12/vpn/internal/config"
	"github.com/RajshekharX12/vpn/internal/wgadmin"
)

// API is the slice of the Telegram client the bot uses. Satisfied by
// *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot routes Telegram updates to the peer manager and installer.
type Bot struct {
	log  *slog.Logger
	api  API
	cfg  *config.Config
	mgr  *wgadmin.Manager
	inst *bootstrap.Installer

	// prompts maps a user to the id of the "send a name" message we
	// posted, so it can be cleaned up once answered. Unlike pending
	// steps this is not persisted: after a restart the stale prompt
	// simply stays in the chat.
	mu      sync.Mutex
	prompts map[int64]int
}

// New wires a Bot. A nil logger falls back to slog.Default().
func New(logger *slog.Logger, api API, cfg *config.Config, mgr *wgadmin.Manager, inst *bootstrap.Installer) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		log:     logger.With("component", "bot"),
		api:     api,
		cfg:     cfg,
		mgr:     mgr,
		inst:    inst,
		prompts: make(map[int64]int),
	}
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Chat != nil && upd.Message.Chat.IsPrivate():
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("telegram send failed", "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

// deleteMessage removes a message, ignoring failures (already deleted,
// too old, insufficient rights).
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message failed", "error", err)
	}
}

func (b *Bot) setPrompt(userID int64, messageID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts[userID] = messageID
}

func (b *Bot) popPrompt(userID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.prompts[userID]
	delete(b.prompts, userID)
	return id
}

func (b *Bot) isOwner(userID int64) bool {
	id, _, ok := b.mgr.Store().Owner()
	return ok && id == userID
}

func (b *Bot) ownerSet() bool {
	_, _, ok := b.mgr.Store().Owner()
	return ok
}
