package notificator

import (
	"context"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/handlers"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/repository"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/service"
)

var Bindings = []rabbitmq.Binding{
	{Queue: "notifications_queue", Exchange: events.OrderExchange, Patterns: []string{
		events.OrderReady,
		events.OrderShipped,
		events.OrderDelivered,
		events.OrderDeliveryFailed,
		events.OrderInventoryUnavailable,
	}},
}

func Run(ctx context.Context, d app.Deps) error {
	if err := db.Migrate(ctx, d.Pool, migrations.FS, d.Logger); err != nil {
		return err
	}

	repo := repository.New(d.Pool)
	svc := service.New(*repo, d.Logger)
	handler := handlers.New(svc, d.Logger)

	return app.Serve(ctx, d, app.Service{
		Bindings: Bindings,
		Handler:  svc.NotificatorService.HandleEvent,
		Routes:   handler.Routes(d.Health()),
	})
}
