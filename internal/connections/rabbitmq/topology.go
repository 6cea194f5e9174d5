package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterExchange receives messages rejected without requeue.
const DeadLetterExchange = "saga_dlx"

// Binding ties a consumer queue to a producer's exchange.
type Binding struct {
	Queue    string
	Exchange string
	Patterns []string
}

// DeadLetterQueue is where Queue's rejected messages end up.
func (b Binding) DeadLetterQueue() string { return b.Queue + ".dlq" }

// Declarer is the subset of *amqp.Channel used to declare topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology idempotently declares the durable topic exchanges, the
// dead-letter exchange and, for every binding, its queue and dead-letter queue.
func DeclareTopology(ch Declarer, exchanges []string, bindings []Binding) error {
	if err := ch.ExchangeDeclare(DeadLetterExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetterExchange, err)
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", ex, err)
		}
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": b.Queue,
		}); err != nil {
			return fmt.Errorf("queue declare %s: %w", b.Queue, err)
		}
		for _, p := range b.Patterns {
			if err := ch.QueueBind(b.Queue, p, b.Exchange, false, nil); err != nil {
				return fmt.Errorf("queue bind %s -> %s (%s): %w", b.Queue, b.Exchange, p, err)
			}
		}

		dlq := b.DeadLetterQueue()
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, b.Queue, DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", dlq, err)
		}
	}
	return nil
}
