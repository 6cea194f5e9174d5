package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
)

// fakeAcker records the outcome of each delivery.
type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

type fakeChannel struct {
	deliveries chan amqp.Delivery
	canceled   bool
	closed     bool
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Cancel(string, bool) error { c.canceled = true; return nil }
func (c *fakeChannel) Close() error              { c.closed = true; return nil }

var testBinding = rabbitmq.Binding{Queue: "order_kitchen_events", Exchange: events.KitchenExchange, Patterns: []string{"kitchen.#"}}

func delivery(t *testing.T, acker amqp.Acknowledger, tag uint64, ev events.Event, headers amqp.Table) amqp.Delivery {
	t.Helper()
	body, err := events.Marshal(ev)
	require.NoError(t, err)
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  tag,
		RoutingKey:   ev.RoutingKey(),
		MessageId:    "m-1",
		Headers:      headers,
		Body:         body,
	}
}

func newTestConsumer(h Handler, retry AMQPPublisher, maxRetries int) *Consumer {
	return NewConsumer(&fakeChannel{}, retry, testBinding, h,
		ConsumerConfig{Prefetch: 1, MaxRetries: maxRetries, RetryDelay: time.Millisecond}, zap.NewNop())
}

func TestConsumer_HandleSuccessAcks(t *testing.T) {
	var got events.Event
	c := newTestConsumer(func(_ context.Context, ev events.Event) error { got = ev; return nil }, &mockAMQP{}, 3)
	acker := &fakeAcker{}

	c.handle(context.Background(), delivery(t, acker, 7, events.KitchenOrderReadyEvent{KitchenOrderID: 1, OrderID: 9}, nil))

	assert.Equal(t, []uint64{7}, acker.acked)
	assert.Empty(t, acker.nacked)
	assert.Equal(t, events.KitchenOrderReadyEvent{KitchenOrderID: 1, OrderID: 9}, got)
}

func TestConsumer_UndecodableIsDeadLettered(t *testing.T) {
	called := false
	c := newTestConsumer(func(context.Context, events.Event) error { called = true; return nil }, &mockAMQP{}, 3)
	acker := &fakeAcker{}

	c.handle(context.Background(), amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("not json")})

	assert.False(t, called)
	assert.Equal(t, []uint64{1}, acker.nacked)
	assert.Equal(t, []bool{false}, acker.requeue)
}

func TestConsumer_PermanentErrorIsDeadLettered(t *testing.T) {
	c := newTestConsumer(func(context.Context, events.Event) error {
		return errors.Join(ErrPermanent, errors.New("bad payload"))
	}, &mockAMQP{}, 3)
	acker := &fakeAcker{}

	c.handle(context.Background(), delivery(t, acker, 2, events.KitchenOrderCompletedEvent{OrderID: 1}, nil))

	assert.Equal(t, []bool{false}, acker.requeue)
}

// Bounded retry replaces the unbounded nack-and-requeue loop: each failure
// republishes a copy with an incremented x-retry-count and acks the original.
func TestConsumer_TransientErrorIsRetriedWithIncrementedCount(t *testing.T) {
	retry := &mockAMQP{}
	var republished amqp.Publishing
	retry.On("Publish", mock.Anything, "", testBinding.Queue, mock.Anything).
		Run(func(args mock.Arguments) { republished = args.Get(3).(amqp.Publishing) }).
		Return(nil).Once()

	c := newTestConsumer(func(context.Context, events.Event) error { return errors.New("db down") }, retry, 3)
	acker := &fakeAcker{}
	d := delivery(t, acker, 3, events.KitchenOrderReadyEvent{OrderID: 5}, amqp.Table{headerRetryCount: int32(1), "traceparent": "x"})

	c.handle(context.Background(), d)

	retry.AssertExpectations(t)
	assert.Equal(t, []uint64{3}, acker.acked)
	assert.Empty(t, acker.nacked)
	assert.Equal(t, int32(2), republished.Headers[headerRetryCount])
	assert.Equal(t, "x", republished.Headers["traceparent"])
	assert.Equal(t, d.Body, republished.Body)
	assert.Equal(t, amqp.Persistent, republished.DeliveryMode)
}

func TestConsumer_RetriesExhaustedIsDeadLettered(t *testing.T) {
	retry := &mockAMQP{}
	c := newTestConsumer(func(context.Context, events.Event) error { return errors.New("db down") }, retry, 3)
	acker := &fakeAcker{}

	c.handle(context.Background(), delivery(t, acker, 4, events.KitchenOrderReadyEvent{OrderID: 5}, amqp.Table{headerRetryCount: int32(3)}))

	retry.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []uint64{4}, acker.nacked)
	assert.Equal(t, []bool{false}, acker.requeue)
}

func TestConsumer_RetryPublishFailureRequeues(t *testing.T) {
	retry := &mockAMQP{}
	retry.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed"))
	c := newTestConsumer(func(context.Context, events.Event) error { return errors.New("db down") }, retry, 3)
	acker := &fakeAcker{}

	c.handle(context.Background(), delivery(t, acker, 5, events.KitchenOrderReadyEvent{OrderID: 5}, nil))

	assert.Empty(t, acker.acked)
	assert.Equal(t, []bool{true}, acker.requeue)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	acker := &fakeAcker{}
	handled := make(chan struct{}, 2)
	c := NewConsumer(ch, &mockAMQP{}, testBinding, func(context.Context, events.Event) error {
		handled <- struct{}{}
		return nil
	}, ConsumerConfig{Prefetch: 2, MaxRetries: 1}, zap.NewNop())

	ch.deliveries <- delivery(t, acker, 1, events.KitchenOrderReadyEvent{OrderID: 1}, nil)
	ch.deliveries <- delivery(t, acker, 2, events.KitchenOrderReadyEvent{OrderID: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-handled
	<-handled
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.True(t, ch.canceled)
	assert.True(t, ch.closed)
	assert.Equal(t, []uint64{1, 2}, acker.acked)
}

func TestConsumer_RunFailsWhenChannelCloses(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	close(ch.deliveries)
	c := NewConsumer(ch, &mockAMQP{}, testBinding, func(context.Context, events.Event) error { return nil },
		ConsumerConfig{}, zap.NewNop())

	err := c.Run(context.Background())
	assert.ErrorContains(t, err, "closed")
}
