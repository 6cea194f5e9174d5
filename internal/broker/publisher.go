// Package broker moves saga events over AMQP: the Publisher turns typed
// events into persistent, confirmed, traced messages and the Consumer turns
// deliveries back into typed events for a handler.
package broker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
)

const (
	headerSource     = "x-source"
	headerRetryCount = "x-retry-count"
	tracerName       = "github.com/nikolovlazar/tracing-demos/internal/broker"
)

// EventPublisher is what services depend on to emit events.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// AMQPPublisher is the confirmed publish primitive of the rabbitmq client.
type AMQPPublisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

type Publisher struct {
	amqp   AMQPPublisher
	source string
	tracer trace.Tracer
}

func NewPublisher(p AMQPPublisher, source string) *Publisher {
	return &Publisher{amqp: p, source: source, tracer: otel.Tracer(tracerName)}
}

// Publish wraps ev in its envelope and sends it to the producer exchange
// named by its routing key.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	key := ev.RoutingKey()
	exchange := events.ExchangeFor(key)

	ctx, span := p.tracer.Start(ctx, key+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", key),
			attribute.Int64("order.id", ev.OrderRef()),
		),
	)
	defer span.End()

	body, err := events.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return err
	}

	headers := amqp.Table{headerSource: p.source}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	msg := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: strconv.FormatInt(ev.OrderRef(), 10),
		AppId:         p.source,
		Headers:       headers,
		Body:          body,
	}
	if err := p.amqp.Publish(ctx, exchange, key, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("publish %s: %w", key, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
