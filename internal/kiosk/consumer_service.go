package kiosk

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"posservice/internal/platform/kafka"
	"posservice/internal/platform/observability"
)

type ConsumerService interface {
	Start(ctx context.Context) error
}

// KafkaConsumerService reads kiosk orders until ctx is done. A message that
// fails to process is logged by the handler and skipped.
type KafkaConsumerService struct {
	consumer       kafka.Consumer
	messageHandler MessageHandler
	logger         observability.Logger
}

func NewConsumerService(consumer kafka.Consumer, messageHandler MessageHandler, logger observability.Logger) ConsumerService {
	return &KafkaConsumerService{
		consumer:       consumer,
		messageHandler: messageHandler,
		logger:         logger,
	}
}

func (c *KafkaConsumerService) Start(ctx context.Context) error {
	c.logger.Info("Kiosk order consumer started. Waiting for messages...")

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err))
			continue
		}

		if err := c.messageHandler.HandleKioskOrder(ctx, *msg); err != nil {
			// Already logged by the handler; move on to the next message.
			continue
		}
	}

	c.logger.Info("Kiosk order consumer finished.")
	return nil
}
