package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Exchanges, one per producing service.
const (
	OrderExchange     = "order_exchange"
	InventoryExchange = "inventory_exchange"
	KitchenExchange   = "kitchen_exchange"
	DeliveryExchange  = "delivery_exchange"
)

// Exchanges lists every producer exchange; each service declares all of them.
var Exchanges = []string{OrderExchange, InventoryExchange, KitchenExchange, DeliveryExchange}

var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the wire format of every message body.
type Envelope struct {
	RoutingKey string          `json:"routingKey"`
	Payload    json.RawMessage `json:"payload"`
}

// ExchangeFor maps a routing key to its producer's exchange: the first
// segment of the key names the producer.
func ExchangeFor(routingKey string) string {
	producer, _, _ := strings.Cut(routingKey, ".")
	return producer + "_exchange"
}

// Marshal wraps ev in an envelope.
func Marshal(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.RoutingKey(), err)
	}
	return json.Marshal(Envelope{RoutingKey: ev.RoutingKey(), Payload: payload})
}

var registry = map[string]func() Event{
	OrderCreated:              func() Event { return &OrderCreatedEvent{} },
	OrderReadyForKitchen:      func() Event { return &OrderReadyForKitchenEvent{} },
	OrderReady:                func() Event { return &OrderReadyEvent{} },
	OrderReadyForDelivery:     func() Event { return &OrderReadyForDeliveryEvent{} },
	OrderShipped:              func() Event { return &OrderShippedEvent{} },
	OrderDelivered:            func() Event { return &OrderDeliveredEvent{} },
	OrderDeliveryFailed:       func() Event { return &OrderDeliveryFailedEvent{} },
	OrderInventoryUnavailable: func() Event { return &OrderInventoryUnavailableEvent{} },
	InventoryReserved:         func() Event { return &InventoryReservedEvent{} },
	InventoryUnavailable:      func() Event { return &InventoryUnavailableEvent{} },
	KitchenOrderReceived:      func() Event { return &KitchenOrderReceivedEvent{} },
	KitchenOrderReady:         func() Event { return &KitchenOrderReadyEvent{} },
	KitchenOrderCompleted:     func() Event { return &KitchenOrderCompletedEvent{} },
	DeliveryScheduled:         func() Event { return &DeliveryScheduledEvent{} },
	DeliveryCompleted:         func() Event { return &DeliveryCompletedEvent{} },
	DeliveryFailed:            func() Event { return &DeliveryFailedEvent{} },
}

// Decode parses an envelope into its concrete variant. The returned value is
// the variant by value (e.g. InventoryReservedEvent), ready for a type switch.
func Decode(body []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	newEvent, ok := registry[env.RoutingKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.RoutingKey)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("decode %s: empty payload", env.RoutingKey)
	}
	ptr := newEvent()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.RoutingKey, err)
	}
	return deref(ptr), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *OrderCreatedEvent:
		return *e
	case *OrderReadyForKitchenEvent:
		return *e
	case *OrderReadyEvent:
		return *e
	case *OrderReadyForDeliveryEvent:
		return *e
	case *OrderShippedEvent:
		return *e
	case *OrderDeliveredEvent:
		return *e
	case *OrderDeliveryFailedEvent:
		return *e
	case *OrderInventoryUnavailableEvent:
		return *e
	case *InventoryReservedEvent:
		return *e
	case *InventoryUnavailableEvent:
		return *e
	case *KitchenOrderReceivedEvent:
		return *e
	case *KitchenOrderReadyEvent:
		return *e
	case *KitchenOrderCompletedEvent:
		return *e
	case *DeliveryScheduledEvent:
		return *e
	case *DeliveryCompletedEvent:
		return *e
	case *DeliveryFailedEvent:
		return *e
	}
	return ev
}
