// Package brokertest provides an in-memory stand-in for the AMQP broker.
package brokertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
)

// Bus records every published event and fans it out to subscribers whose
// topic patterns match, each subscriber in its own goroutine and in publish
// order. Events round-trip through the wire envelope so tests exercise the
// same encoding as production.
type Bus struct {
	mu        sync.Mutex
	published []events.Event
	subs      []*subscription
	errs      []error
	failNext  error
}

type subscription struct {
	patterns []string
	handler  broker.Handler
	queue    chan events.Event
}

func New() *Bus { return &Bus{} }

// Subscribe registers h for the given topic patterns (AMQP syntax).
func (b *Bus) Subscribe(ctx context.Context, h broker.Handler, patterns ...string) {
	s := &subscription{patterns: patterns, handler: h, queue: make(chan events.Event, 1024)}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.queue:
				if err := s.handler(ctx, ev); err != nil {
					b.mu.Lock()
					b.errs = append(b.errs, fmt.Errorf("%s: %w", ev.RoutingKey(), err))
					b.mu.Unlock()
				}
			}
		}
	}()
}

// FailNext makes the next Publish return err without recording the event.
func (b *Bus) FailNext(err error) {
	b.mu.Lock()
	b.failNext = err
	b.mu.Unlock()
}

func (b *Bus) Publish(_ context.Context, ev events.Event) error {
	body, err := events.Marshal(ev)
	if err != nil {
		return err
	}
	decoded, err := events.Decode(body)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext != nil {
		err, b.failNext = b.failNext, nil
		return err
	}
	b.published = append(b.published, decoded)
	for _, s := range b.subs {
		for _, p := range s.patterns {
			if Match(p, decoded.RoutingKey()) {
				s.queue <- decoded
				break
			}
		}
	}
	return nil
}

// Published returns a snapshot of every recorded event.
func (b *Bus) Published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.published...)
}

// Keys returns the routing keys of the recorded events in publish order.
func (b *Bus) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.published))
	for _, ev := range b.published {
		keys = append(keys, ev.RoutingKey())
	}
	return keys
}

// Count returns how many events with routingKey were published.
func (b *Bus) Count(routingKey string) int {
	n := 0
	for _, k := range b.Keys() {
		if k == routingKey {
			n++
		}
	}
	return n
}

// Last returns the most recent event with routingKey.
func (b *Bus) Last(routingKey string) (events.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].RoutingKey() == routingKey {
			return b.published[i], true
		}
	}
	return nil, false
}

// Errors returns handler failures seen by subscribers.
func (b *Bus) Errors() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}

// Match reports whether an AMQP topic pattern matches key: "*" matches one
// word, "#" matches zero or more.
func Match(pattern, key string) bool {
	return match(strings.Split(pattern, "."), strings.Split(key, "."))
}

func match(p, k []string) bool {
	if len(p) == 0 {
		return len(k) == 0
	}
	switch p[0] {
	case "#":
		for i := 0; i <= len(k); i++ {
			if match(p[1:], k[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(k) > 0 && match(p[1:], k[1:])
	default:
		return len(k) > 0 && p[0] == k[0] && match(p[1:], k[1:])
	}
}

var _ broker.EventPublisher = (*Bus)(nil)
