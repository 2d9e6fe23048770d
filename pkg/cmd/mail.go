package cmd

import (
	"fmt"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/mailflow/pkg/mail"
)

// SMTPFlags are the mail transport flags shared by every binary that sends.
func SMTPFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host; empty logs emails instead of sending them",
			Sources: cli.EnvVars("SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Usage:   "SMTP relay port",
			Value:   587,
			Sources: cli.EnvVars("SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:    "smtp-user",
			Usage:   "SMTP username",
			Sources: cli.EnvVars("SMTP_USER"),
		},
		&cli.StringFlag{
			Name:    "smtp-pass",
			Usage:   "SMTP password",
			Sources: cli.EnvVars("SMTP_PASS"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address replacing the flow owner's address",
			Sources: cli.EnvVars("SMTP_FROM"),
		},
	}
}

// SMTPConfigFrom reads the values of SMTPFlags.
func SMTPConfigFrom(command *cli.Command) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     command.String("smtp-host"),
		Port:     command.Int("smtp-port"),
		Username: command.String("smtp-user"),
		Password: command.String("smtp-pass"),
		From:     command.String("smtp-from"),
	}
}

// NewTransport returns an SMTP transport, or a log transport when no host is configured.
func NewTransport(config mail.SMTPConfig, logger *slog.Logger) mail.Transport {
	if config.Host == "" {
		logger.Warn("SMTP host not configured, emails will only be logged")

		return mail.NewLogTransport(logger)
	}

	transport, err := mail.NewSMTPTransport(config, logger)
	if err != nil {
		panic(fmt.Errorf("failed to create SMTP transport: %w", err))
	}

	return transport
}
