package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the relay settings for SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From replaces the per-message sender when set.
	From string
}

// SMTPTransport relays messages through an SMTP server, upgrading to TLS when
// the server offers STARTTLS.
type SMTPTransport struct {
	client *gomail.Client
	from   string
	logger *slog.Logger
}

func NewSMTPTransport(config SMTPConfig, logger *slog.Logger) (*SMTPTransport, error) {
	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	if config.Port > 0 {
		opts = append(opts, gomail.WithPort(config.Port))
	}

	if config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(config.Username),
			gomail.WithPassword(config.Password),
		)
	}

	client, err := gomail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPTransport{
		client: client,
		from:   config.From,
		logger: logger.With("module", "smtp_transport"),
	}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := t.build(msg)
	if err != nil {
		return err
	}

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	t.logger.DebugContext(ctx, "Email sent", "to", msg.To, "subject", msg.Subject)

	return nil
}

func (t *SMTPTransport) build(msg Message) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, ErrMissingRecipient
	}

	from := msg.From
	if t.from != "" {
		from = t.from
	}

	m := gomail.NewMsg()

	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)

	return m, nil
}
