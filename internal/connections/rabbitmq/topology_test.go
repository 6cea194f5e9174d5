package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeclarer struct {
	exchanges map[string]string
	queues    map[string]amqp.Table
	binds     []string
	failOn    string
}

func newRecordingDeclarer() *recordingDeclarer {
	return &recordingDeclarer{exchanges: map[string]string{}, queues: map[string]amqp.Table{}}
}

func (d *recordingDeclarer) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if !durable {
		return errors.New("exchange must be durable")
	}
	d.exchanges[name] = kind
	return nil
}

func (d *recordingDeclarer) QueueDeclare(name string, durable, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if name == d.failOn {
		return amqp.Queue{}, errors.New("access refused")
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	d.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (d *recordingDeclarer) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	d.binds = append(d.binds, exchange+"|"+key+"|"+name)
	return nil
}

func TestDeclareTopology(t *testing.T) {
	d := newRecordingDeclarer()
	err := DeclareTopology(d,
		[]string{"order_exchange", "kitchen_exchange"},
		[]Binding{{Queue: "order_kitchen_events", Exchange: "kitchen_exchange", Patterns: []string{"kitchen.#"}}},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		DeadLetterExchange: amqp.ExchangeDirect,
		"order_exchange":   amqp.ExchangeTopic,
		"kitchen_exchange": amqp.ExchangeTopic,
	}, d.exchanges)

	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": "order_kitchen_events",
	}, d.queues["order_kitchen_events"])
	assert.Contains(t, d.queues, "order_kitchen_events.dlq")

	assert.Equal(t, []string{
		"kitchen_exchange|kitchen.#|order_kitchen_events",
		DeadLetterExchange + "|order_kitchen_events|order_kitchen_events.dlq",
	}, d.binds)
}

func TestDeclareTopology_PropagatesErrors(t *testing.T) {
	d := newRecordingDeclarer()
	d.failOn = "inventory_order_events"
	err := DeclareTopology(d, nil, []Binding{{Queue: "inventory_order_events", Exchange: "order_exchange", Patterns: []string{"order.created"}}})
	assert.ErrorContains(t, err, "inventory_order_events")
}
