package kitchen

import (
	"context"
	"io/fs"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/handlers"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/repository"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/service"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

var Bindings = []rabbitmq.Binding{
	{Queue: "kitchen_order_events", Exchange: events.OrderExchange, Patterns: []string{events.OrderReadyForKitchen}},
}

func Run(ctx context.Context, d app.Deps) error {
	for _, fsys := range []fs.FS{migrations.FS, scheduler.Migrations()} {
		if err := db.Migrate(ctx, d.Pool, fsys, d.Logger); err != nil {
			return err
		}
	}

	runner := scheduler.NewRunner(scheduler.NewPostgresStore(d.Pool), d.Config.Scheduler, d.Logger)
	repo := repository.New(d.Pool)
	svc := service.New(*repo, d.Publisher(), runner, d.Config.Kitchen, d.Logger)
	runner.Register(service.TaskPrepare, func(ctx context.Context, t scheduler.Task) error {
		return svc.KitchenService.PrepareOrder(ctx, t.RefID)
	})
	handler := handlers.New(svc, d.Logger)

	return app.Serve(ctx, d, app.Service{
		Bindings: Bindings,
		Handler:  svc.KitchenService.HandleEvent,
		Routes:   handler.Routes(d.Health()),
		Runner:   runner,
	})
}
