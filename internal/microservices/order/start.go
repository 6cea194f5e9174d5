package order

import (
	"context"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/handlers"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/repository"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/service"
)

var Bindings = []rabbitmq.Binding{
	{Queue: "order_inventory_events", Exchange: events.InventoryExchange, Patterns: []string{"inventory.#"}},
	{Queue: "order_kitchen_events", Exchange: events.KitchenExchange, Patterns: []string{"kitchen.#"}},
	{Queue: "order_delivery_events", Exchange: events.DeliveryExchange, Patterns: []string{"delivery.#"}},
}

func Run(ctx context.Context, d app.Deps) error {
	if err := db.Migrate(ctx, d.Pool, migrations.FS, d.Logger); err != nil {
		return err
	}

	repo := repository.New(d.Pool)
	svc := service.New(*repo, d.Publisher(), d.Logger)
	handler := handlers.New(svc, d.Logger)

	return app.Serve(ctx, d, app.Service{
		Bindings: Bindings,
		Handler:  svc.OrderService.HandleEvent,
		Routes:   handler.Routes(d.Health()),
	})
}
