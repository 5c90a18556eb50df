// Package notify forwards human-readable activity summaries to an external
// chat channel. Delivery is best-effort and at-most-once.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/pkg/clients/telegram"
	"github.com/mamadbah2/dispatch/pkg/worker"
)

const sendTimeout = 10 * time.Second

// Notifier never returns an error; failures are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// Submitter runs a task in the background.
type Submitter interface {
	Submit(task worker.Task) error
}

// ChatNotifier delivers messages to one Telegram chat from a worker pool so
// callers never wait on the network. Give it a non-blocking pool: when every
// worker is busy the message is dropped and logged.
type ChatNotifier struct {
	client telegram.Client
	chatID string
	pool   Submitter
	logger *zap.Logger
}

// NewChatNotifier wires a chat notifier.
func NewChatNotifier(client telegram.Client, chatID string, pool Submitter, logger *zap.Logger) *ChatNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatNotifier{client: client, chatID: chatID, pool: pool, logger: logger}
}

// Notify queues text for delivery. The caller's context only contributes
// values; delivery outlives the request.
func (n *ChatNotifier) Notify(_ context.Context, text string) {
	if text == "" {
		return
	}

	err := n.pool.Submit(func(ctx context.Context) {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		if _, err := n.client.SendMessage(sendCtx, telegram.SendMessageRequest{
			ChatID:                n.chatID,
			Text:                  text,
			DisableWebPagePreview: true,
		}); err != nil {
			n.logger.Warn("chat notification failed", zap.Error(err))
			return
		}
		n.logger.Debug("chat notification sent")
	})
	if err != nil {
		n.logger.Warn("chat notification dropped", zap.Error(err))
	}
}
