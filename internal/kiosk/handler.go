package kiosk

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"posservice/internal/platform/kafka"
	"posservice/internal/platform/observability"
)

// MessageHandler processes incoming kiosk messages.
type MessageHandler interface {
	HandleKioskOrder(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler decodes KioskOrderPlaced messages, settles them and
// publishes the outcome.
type KafkaMessageHandler struct {
	service  Service
	producer kafka.Producer
	logger   observability.Logger
}

func NewMessageHandler(service Service, producer kafka.Producer, logger observability.Logger) MessageHandler {
	return &KafkaMessageHandler{
		service:  service,
		producer: producer,
		logger:   logger,
	}
}

// HandleKioskOrder processes one KioskOrderPlaced message.
func (h *KafkaMessageHandler) HandleKioskOrder(ctx context.Context, msg kafkago.Message) error {
	// Continue the kiosk's trace.
	msgCtx := h.extractTraceContext(ctx, msg.Headers)

	h.logger.Info("📨 Kiosk order message received",
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var event KioskOrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("❌ Invalid JSON in KioskOrderPlaced event",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return err
	}

	settled, err := h.service.ProcessKioskOrder(msgCtx, event)
	if err != nil {
		h.logger.Error("❌ Failed to process kiosk order", zap.Error(err), zap.String("order_id", event.OrderID))
		return err
	}

	return h.publishOrderSettled(msgCtx, settled)
}

func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (h *KafkaMessageHandler) publishOrderSettled(ctx context.Context, event *OrderSettledEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("❌ Failed to serialize OrderSettled event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	}
	if err := h.producer.WriteMessage(ctx, msg); err != nil {
		h.logger.Error("❌ Failed to publish OrderSettled event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return err
	}

	h.logger.Info("📤 Sent OrderSettled event",
		zap.String("order_id", event.OrderID),
		zap.String("status", event.Status),
	)
	return nil
}
