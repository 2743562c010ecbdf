// Package notify delivers verification messages (temporary passwords, token
// links, one-time codes) over email and SMS.
//
// Notifiers are called from the Engine's background delivery queue, never on
// the verification path, so a slow or failing transport cannot change an
// authentication result.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Channel is a delivery medium.
type Channel string

const (
	Email Channel = "email"
	SMS   Channel = "sms"
)

// ErrUnsupportedChannel is returned by a notifier that cannot serve a channel.
var ErrUnsupportedChannel = errors.New("unsupported notification channel")

// Message is one outbound notification.
type Message struct {
	ID      string
	Channel Channel
	Kind    string
	To      string
	Subject string
	Body    string
}

// Notifier delivers a message.
type Notifier interface {
	Deliver(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Deliver calls f.
func (f NotifierFunc) Deliver(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Router sends each message to the notifier registered for its channel.
type Router struct {
	Email Notifier
	SMS   Notifier
}

// Deliver implements Notifier.
func (r Router) Deliver(ctx context.Context, msg Message) error {
	var n Notifier
	switch msg.Channel {
	case Email:
		n = r.Email
	case SMS:
		n = r.SMS
	}
	if n == nil {
		return ErrUnsupportedChannel
	}
	return n.Deliver(ctx, msg)
}

// LogNotifier records deliveries in the structured log. Bodies carry secrets
// and are never logged.
type LogNotifier struct {
	Logger *slog.Logger
}

// Deliver implements Notifier.
func (n LogNotifier) Deliver(ctx context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification delivered",
		"id", msg.ID,
		"channel", string(msg.Channel),
		"kind", msg.Kind,
		"body_bytes", len(msg.Body),
	)
	return nil
}

// Recorder keeps delivered messages in memory. Useful for tests and demos.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Deliver implements Notifier.
func (r *Recorder) Deliver(_ context.Context, msg Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything delivered so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message for to on channel.
func (r *Recorder) Last(channel Channel, to string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if m := r.messages[i]; m.Channel == channel && m.To == to {
			return m, true
		}
	}
	return Message{}, false
}
