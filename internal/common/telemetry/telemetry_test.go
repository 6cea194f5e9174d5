package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSetup_WithoutEndpointInstallsPropagatorOnly(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "order-service"})
	require.NoError(t, err)

	assert.Nil(t, p.Logs)
	assert.NoError(t, p.Shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
}

func TestProviders_ShutdownRunsInReverseOrder(t *testing.T) {
	var order []string
	p := &Providers{shutdown: []func(context.Context) error{
		func(context.Context) error { order = append(order, "traces"); return nil },
		func(context.Context) error { order = append(order, "logs"); return errors.New("flush failed") },
	}}

	err := p.Shutdown(context.Background())
	assert.EqualError(t, err, "flush failed")
	assert.Equal(t, []string{"logs", "traces"}, order)
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestSetup_PropagatorRoundTrip(t *testing.T) {
	_, err := Setup(context.Background(), Config{ServiceName: "kitchen-service"})
	require.NoError(t, err)

	carrier := propagation.MapCarrier{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)

	out := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, out)
	assert.Equal(t, carrier["traceparent"], out["traceparent"])
}
