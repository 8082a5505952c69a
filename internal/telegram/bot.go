package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/config"
	"newsbot/internal/logger"
	"newsbot/internal/service/assistant"
	"newsbot/internal/worker"
)

const (
	greeting    = "👋 Hi! Ask me anything. When a question is past what I know, I read the latest news before answering."
	busyMessage = "⚠️ Server is busy, please retry."
)

// Assistant answers a single question.
type Assistant interface {
	GetFinalAnswer(ctx context.Context, query string) (string, error)
}

// Runner executes a job on a worker pool.
type Runner interface {
	Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot relays Telegram chat messages to the assistant over long polling.
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    sender
	assistant Assistant
	pool      Runner
	timeout   int
	log       *zap.Logger
}

// NewBot authorizes against the Bot API with the configured token.
func NewBot(cfg config.TelegramConfig, asst Assistant, pool Runner) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	b := &Bot{
		api:       api,
		sender:    api,
		assistant: asst,
		pool:      pool,
		timeout:   cfg.TimeoutSeconds,
		log:       logger.Named("telegram"),
	}
	b.log.Info("bot authorized", zap.String("username", api.Self.UserName))
	return b, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.replyTo(ctx, msg))
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.sender.Send(reply); err != nil {
		b.log.Warn("send reply failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) replyTo(ctx context.Context, msg *tgbotapi.Message) string {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			return greeting
		}
	}

	query := strings.TrimSpace(msg.Text)
	answer, err := b.pool.Do(ctx, func(ctx context.Context) (string, error) {
		return b.assistant.GetFinalAnswer(ctx, query)
	})
	if err != nil {
		b.log.Warn("answer failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		if errors.Is(err, worker.ErrDispatcherBusy) || errors.Is(err, worker.ErrPoolStopped) {
			return busyMessage
		}
		return assistant.ReplyFor(err)
	}
	return answer
}
