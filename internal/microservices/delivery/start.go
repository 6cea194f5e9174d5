package delivery

import (
	"context"
	"io/fs"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/handlers"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/repository"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/service"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

var Bindings = []rabbitmq.Binding{
	{Queue: "delivery_order_events", Exchange: events.OrderExchange, Patterns: []string{events.OrderReadyForDelivery}},
}

func Run(ctx context.Context, d app.Deps) error {
	for _, fsys := range []fs.FS{migrations.FS, scheduler.Migrations()} {
		if err := db.Migrate(ctx, d.Pool, fsys, d.Logger); err != nil {
			return err
		}
	}

	runner := scheduler.NewRunner(scheduler.NewPostgresStore(d.Pool), d.Config.Scheduler, d.Logger)
	repo := repository.New(d.Pool)
	svc := service.New(*repo, d.Publisher(), runner, d.Config.Delivery, d.Logger)
	runner.Register(service.TaskTransit, func(ctx context.Context, t scheduler.Task) error {
		return svc.DeliveryService.CompleteDelivery(ctx, t.RefID)
	})
	handler := handlers.New(svc, d.Logger)

	return app.Serve(ctx, d, app.Service{
		Bindings: Bindings,
		Handler:  svc.DeliveryService.HandleEvent,
		Routes:   handler.Routes(d.Health()),
		Runner:   runner,
	})
}
