package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

// Producer publishes settlement outcomes. The traced writer from
// NewTracedWriter satisfies it.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafkago.Message) error
	Close() error
}

// Consumer yields kiosk order messages one at a time. ReadMessage returns
// ctx.Err() once ctx is done.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafkago.Message, error)
	Close() error
}
