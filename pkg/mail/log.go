package mail

import (
	"context"
	"log/slog"
	"sync"
)

// LogTransport writes messages to the logger instead of sending them. It also
// keeps them in memory so callers can inspect what would have been sent.
type LogTransport struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger.With("module", "log_transport")}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrMissingRecipient
	}

	t.mu.Lock()
	t.sent = append(t.sent, msg)
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "Email delivered to log",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body_length", len(msg.HTMLBody))

	return nil
}

// Sent returns a copy of every message sent so far.
func (t *LogTransport) Sent() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.sent))
	copy(out, t.sent)

	return out
}
