package sms

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("sms: no provider configured")

// Provider sends a single text message. Emergency alerts fan out by calling
// Send once per contact.
type Provider interface {
	Send(ctx context.Context, to, body string) (messageID string, err error)
}

// Noop reports ErrDisabled for every message.
type Noop struct{}

func (Noop) Send(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}
