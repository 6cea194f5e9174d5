package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
)

// ErrPermanent marks a handler failure that retrying cannot fix; the message
// is dead-lettered at once.
var ErrPermanent = errors.New("permanent failure")

// Handler processes one decoded event. Returning nil acknowledges it.
type Handler func(ctx context.Context, ev events.Event) error

// Channel is the subset of *amqp.Channel a consumer needs.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

type ConsumerConfig struct {
	Prefetch   int
	MaxRetries int
	RetryDelay time.Duration
}

type Consumer struct {
	ch      Channel
	retry   AMQPPublisher
	binding rabbitmq.Binding
	handler Handler
	cfg     ConsumerConfig
	lg      *zap.Logger
	tracer  trace.Tracer
	tag     string
}

// NewConsumer builds a consumer of b.Queue. Retries are republished through
// retry, which must be a confirmed publisher on another channel.
func NewConsumer(ch Channel, retry AMQPPublisher, b rabbitmq.Binding, h Handler, cfg ConsumerConfig, lg *zap.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{
		ch:      ch,
		retry:   retry,
		binding: b,
		handler: h,
		cfg:     cfg,
		lg:      lg.With(zap.String("queue", b.Queue)),
		tracer:  otel.Tracer(tracerName),
		tag:     b.Queue + "-consumer",
	}
}

// Run consumes until ctx is cancelled. Deliveries are handled one at a time
// so per-queue order is preserved. Unacknowledged deliveries go back to the
// queue when the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos %s: %w", c.binding.Queue, err)
	}
	msgs, err := c.ch.Consume(c.binding.Queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.binding.Queue, err)
	}
	c.lg.Info("consumer_started", zap.Int("prefetch", c.cfg.Prefetch), zap.Int("max_retries", c.cfg.MaxRetries))

	for {
		select {
		case <-ctx.Done():
			_ = c.ch.Cancel(c.tag, false)
			_ = c.ch.Close()
			c.lg.Info("consumer_stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.binding.Queue)
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	lg := c.lg.With(zap.String("routing_key", d.RoutingKey), zap.String("message_id", d.MessageId))

	ev, err := events.Decode(d.Body)
	if err != nil {
		lg.Error("message_undecodable", zap.Error(err))
		c.nack(lg, d, false)
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(d.Headers))
	ctx, span := c.tracer.Start(ctx, ev.RoutingKey()+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", c.binding.Queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", ev.RoutingKey()),
			attribute.Int64("order.id", ev.OrderRef()),
			attribute.Int("messaging.retry_count", retryCount(d.Headers)),
		),
	)
	defer span.End()

	err = c.handler(ctx, ev)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		if ackErr := d.Ack(false); ackErr != nil {
			lg.Error("message_ack_failed", zap.Error(ackErr))
		}
	case errors.Is(err, ErrPermanent):
		span.RecordError(err)
		span.SetStatus(codes.Error, "permanent failure")
		lg.Error("message_dead_lettered", zap.Int64("order_id", ev.OrderRef()), zap.Error(err))
		c.nack(lg, d, false)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		c.retryOrDeadLetter(ctx, lg, d, err)
	}
}

// retryOrDeadLetter republishes a copy of d straight to its queue with an
// incremented x-retry-count after a linear backoff, then acks the original.
// Once MaxRetries is reached the delivery is rejected into the dead-letter queue.
func (c *Consumer) retryOrDeadLetter(ctx context.Context, lg *zap.Logger, d amqp.Delivery, cause error) {
	attempt := retryCount(d.Headers)
	if attempt >= c.cfg.MaxRetries {
		lg.Error("message_dead_lettered", zap.Int("attempts", attempt), zap.Error(cause))
		c.nack(lg, d, false)
		return
	}

	lg.Warn("message_retry_scheduled", zap.Int("attempt", attempt+1), zap.Error(cause))
	select {
	case <-time.After(c.cfg.RetryDelay * time.Duration(attempt+1)):
	case <-ctx.Done():
		c.nack(lg, d, true)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[headerRetryCount] = int32(attempt + 1)

	err := c.retry.Publish(ctx, "", c.binding.Queue, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   d.ContentType,
		MessageId:     d.MessageId,
		CorrelationId: d.CorrelationId,
		AppId:         d.AppId,
		Headers:       headers,
		Body:          d.Body,
	})
	if err != nil {
		lg.Error("message_retry_publish_failed", zap.Error(err))
		c.nack(lg, d, true)
		return
	}
	if err := d.Ack(false); err != nil {
		lg.Error("message_ack_failed", zap.Error(err))
	}
}

func (c *Consumer) nack(lg *zap.Logger, d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		lg.Error("message_nack_failed", zap.Bool("requeue", requeue), zap.Error(err))
	}
}
