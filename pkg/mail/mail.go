// Package mail sends the emails fired by the job queue.
package mail

import (
	"context"
	"errors"
)

var ErrMissingRecipient = errors.New("message has no recipient")

// Message is a single HTML email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Transport delivers messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
