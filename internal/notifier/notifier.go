// Package notifier delivers signal alerts by email and Telegram.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"QuantSuperior/internal/metrics"
)

// Message is a channel-neutral alert.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message on one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Name() string
}

// Broadcast sends msg on every notifier and returns the channels that
// accepted it. A failing channel is logged and does not stop the others.
func Broadcast(ctx context.Context, notifiers []Notifier, msg Message, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sent []string
	for _, n := range notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			metrics.NotificationsSent.WithLabelValues(n.Name(), "error").Inc()
			logger.Error("notification failed", zap.String("channel", n.Name()), zap.Error(err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues(n.Name(), "ok").Inc()
		sent = append(sent, n.Name())
	}
	return sent
}
