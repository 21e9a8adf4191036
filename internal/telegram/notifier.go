package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/telemetry"
)

const notifyQueueSize = 64

// Notifier tells telegram chat when a device goes up or down.
type Notifier struct {
	client  Client
	apiKey  string
	chatID  string
	timeout time.Duration

	queue  chan model.Observation
	logger zerolog.Logger
}

// NewNotifier creates notifier. Call Run to start sending.
func NewNotifier(c Client, apiKey, chatID string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client:  c,
		apiKey:  apiKey,
		chatID:  chatID,
		timeout: time.Second * 10,
		queue:   make(chan model.Observation, notifyQueueSize),
		logger:  logger.With().Str("pkg", "telegram").Logger(),
	}
}

// Handle accepts observation, it never blocks. First observation of a device
// is not a transition and is ignored.
func (n *Notifier) Handle(o model.Observation) {
	if !o.Changed() || o.Previous == model.StatusUnknown {
		return
	}

	select {
	case n.queue <- o:
	default:
		telemetry.NotificationsDropped.WithLabelValues("telegram").Inc()
		n.logger.Warn().Str("device", o.Name).Msg("notification queue is full, dropping")
	}
}

// Run sends queued notifications until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-n.queue:
			n.send(ctx, o)
		}
	}
}

func (n *Notifier) send(ctx context.Context, o model.Observation) {
	ctx, cancel := context.WithTimeout(n.logger.WithContext(ctx), n.timeout)
	defer cancel()

	err := n.client.SendMessageViaHTTP(ctx, n.apiKey, n.chatID, Message(o))
	if err != nil {
		n.logger.Error().Err(err).Str("device", o.Name).Msg("unable to send notification")
	}
}

// Message renders text of the notification.
func Message(o model.Observation) string {
	return fmt.Sprintf("%s (%s) is %s since %s",
		o.Name, o.Address, o.Status, o.ObservedAt.Format("2006-01-02 15:04:05"))
}
