package queue

import "context"

// Message is a keyed JSON payload. Key keeps events of one ride in order on
// partitioned brokers.
type Message struct {
	Key        string
	RoutingKey string
	Body       []byte
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}
