package broker

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// headerCarrier adapts AMQP headers to the OpenTelemetry TextMapCarrier.
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c headerCarrier) Set(key, value string) { c[key] = value }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// retryCount reads x-retry-count whatever integer type the broker decoded.
func retryCount(h amqp.Table) int {
	switch v := h[headerRetryCount].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	}
	return 0
}
