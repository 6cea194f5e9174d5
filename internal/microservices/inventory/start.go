package inventory

import (
	"context"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/handlers"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/repository"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/service"
)

var Bindings = []rabbitmq.Binding{
	{Queue: "inventory_order_events", Exchange: events.OrderExchange, Patterns: []string{events.OrderCreated}},
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
		Handler:  svc.InventoryService.HandleEvent,
		Routes:   handler.Routes(d.Health()),
	})
}
