package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glamour-salon/salon_api/internal/logging"
)

const (
	// KindAccountVerification carries a one-time verification code.
	KindAccountVerification = "account_verification"

	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// ErrChannelUnavailable is returned when no sender is configured for a channel.
var ErrChannelUnavailable = errors.New("notification channel unavailable")

// Message describes a notification payload.
type Message struct {
	Kind        string
	Channel     string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message Message) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, message Message) error { return f(ctx, message) }

// Router dispatches messages to the sender registered for their channel.
type Router struct {
	senders map[string]Notifier
	logger  *slog.Logger
}

// NewRouter builds an empty channel router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Router{senders: make(map[string]Notifier), logger: logger}
}

// Register installs the sender for a channel, replacing any previous one.
func (r *Router) Register(channel string, sender Notifier) *Router {
	if sender != nil {
		r.senders[channel] = sender
	}
	return r
}

// Supports reports whether a sender is configured for the channel.
func (r *Router) Supports(channel string) bool {
	_, ok := r.senders[channel]
	return ok
}

// Send routes the message by channel.
func (r *Router) Send(ctx context.Context, message Message) error {
	sender, ok := r.senders[message.Channel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelUnavailable, message.Channel)
	}
	if err := sender.Send(ctx, message); err != nil {
		r.logger.Warn("notification failed",
			"kind", message.Kind,
			"channel", message.Channel,
			"destination", logging.MaskDestination(message.Destination),
			"error", err,
		)
		return fmt.Errorf("send %s notification: %w", message.Channel, err)
	}
	return nil
}

// LoggerNotifier stands in for a real provider in development. It records that
// a message would have gone out but never writes the body.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message metadata to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"channel", message.Channel,
		"destination", logging.MaskDestination(message.Destination),
	)
	return nil
}
