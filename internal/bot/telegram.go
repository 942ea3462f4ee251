package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram is the chat transport. It serves exactly one configured chat;
// updates from anywhere else are dropped.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	secret string
	interp *Interpreter
}

func NewTelegram(token string, chatID int64, secret string, interp *Interpreter) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Telegram{api: api, chatID: chatID, secret: secret, interp: interp}, nil
}

// Send delivers a message to the configured chat, optionally as a reply.
func (t *Telegram) Send(text string, replyTo int) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// VerifySecret checks the webhook secret token from the request header.
func (t *Telegram) VerifySecret(token string) bool {
	return token == t.secret
}

// HandleUpdate processes one update, from either the webhook endpoint or
// the polling loop. responded reports whether a reply was sent.
func (t *Telegram) HandleUpdate(ctx context.Context, update tgbotapi.Update) (responded bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return false
	}
	if msg.Chat.ID != t.chatID {
		slog.DebugContext(ctx, "Ignoring message from foreign chat", "chat_id", msg.Chat.ID)
		return false
	}
	if !strings.HasPrefix(msg.Text, "/") {
		return false
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
		if username == "" {
			username = msg.From.FirstName
		}
	}

	reply, ok := t.interp.HandleMessage(ctx, msg.Text, username)
	if !ok {
		return false
	}
	if err := t.Send(reply, msg.MessageID); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "error", err, "command", msg.Text)
		return false
	}
	return true
}

// Poll consumes updates via long polling until the context is cancelled.
// The webhook endpoint is the usual deployment; polling covers local runs.
func (t *Telegram) Poll(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, open := <-updates:
			if !open {
				return nil
			}
			t.HandleUpdate(ctx, update)
		}
	}
}

// SetWebhook registers the webhook URL with Telegram, restricted to message
// updates and protected by the secret token when one is configured.
func (t *Telegram) SetWebhook(url string) error {
	params := tgbotapi.Params{
		"url":             url,
		"allowed_updates": `["message"]`,
	}
	if t.secret != "" {
		params["secret_token"] = t.secret
	}
	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes the webhook, switching the bot back to polling.
func (t *Telegram) DeleteWebhook() error {
	if _, err := t.api.MakeRequest("deleteWebhook", tgbotapi.Params{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// WebhookInfo returns the current webhook registration.
func (t *Telegram) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	return t.api.GetWebhookInfo()
}
