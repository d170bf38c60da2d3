package kafka

import (
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ReaderConfig names the topic and consumer group to read from.
type ReaderConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

// WriterConfig names the topic to publish to.
type WriterConfig struct {
	Broker       string
	Topic        string
	ClientID     string
	BatchTimeout time.Duration
	BatchSize    int
}

// NewTracedReader returns a Consumer whose reads continue the producer's trace.
func NewTracedReader(cfg ReaderConfig, tp trace.TracerProvider) (Consumer, error) {
	base := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.Broker},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})

	reader, err := otelkafka.NewReader(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(cfg.Topic),
			attribute.String("messaging.kafka.consumer.group", cfg.GroupID),
		}),
	)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return reader, nil
}

// NewTracedWriter returns a Producer that injects the current trace into
// message headers.
func NewTracedWriter(cfg WriterConfig, tp trace.TracerProvider) (Producer, error) {
	base := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		BatchSize:    cfg.BatchSize,
	}

	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(cfg.Topic),
			attribute.String("messaging.kafka.client_id", cfg.ClientID),
		}),
	)
	if err != nil {
		return nil, err
	}
	return writer, nil
}
