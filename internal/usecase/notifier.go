package usecase

import (
	"context"
	"fmt"

	"SignalFlow/internal/domain/models"
	pkghttp "SignalFlow/pkg/http"
	"SignalFlow/pkg/logger"
)

// Notifier delivers one signal to one consumer endpoint.
type Notifier interface {
	// ConsumerID identifies the consumer this notifier delivers to. Used as
	// the subscription and throttle key.
	ConsumerID() string
	Notify(ctx context.Context, s models.Signal) error
}

// WebhookNotifier posts signals as JSON to a consumer webhook.
type WebhookNotifier struct {
	id      string
	url     string
	headers map[string]string
	client  *pkghttp.Client
}

func NewWebhookNotifier(id, url string, headers map[string]string, client *pkghttp.Client) *WebhookNotifier {
	if client == nil {
		client = pkghttp.NewClient()
	}
	return &WebhookNotifier{id: id, url: url, headers: headers, client: client}
}

func (n *WebhookNotifier) ConsumerID() string { return n.id }

func (n *WebhookNotifier) Notify(ctx context.Context, s models.Signal) error {
	if err := n.client.PostJSON(ctx, n.url, n.headers, s); err != nil {
		return fmt.Errorf("webhook %s: %w", n.id, err)
	}
	return nil
}

// LogNotifier writes signals to the application log. Used as a development
// consumer and in tests.
type LogNotifier struct {
	id  string
	log *logger.Logger
}

func NewLogNotifier(id string, log *logger.Logger) *LogNotifier {
	return &LogNotifier{id: id, log: log}
}

func (n *LogNotifier) ConsumerID() string { return n.id }

func (n *LogNotifier) Notify(_ context.Context, s models.Signal) error {
	n.log.Info("signal",
		logger.String("consumer", n.id),
		logger.String("rule", s.RuleName),
		logger.String("symbol", s.Symbol),
		logger.String("direction", string(s.Direction)),
		logger.String("message", s.Message))
	return nil
}
