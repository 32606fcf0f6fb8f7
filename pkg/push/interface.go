package push

import (
	"context"
)

type Provider interface {
	// Send delivers msg to every token and returns the tokens that were rejected
	// as permanently invalid so that callers can forget them.
	Send(ctx context.Context, tokens []string, msg *Message) (invalid []string, err error)
}

type Message struct {
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data,omitempty"`
	CollapseKey  string            `json:"collapse_key,omitempty"`
	HighPriority bool              `json:"high_priority,omitempty"`
}
