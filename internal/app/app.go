// Package app holds the runtime every service mode shares: the connections
// built at bootstrap and the loop that serves HTTP, consumes queues and runs
// due tasks until shutdown.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

// Deps are the connections opened by the composition root.
type Deps struct {
	Config config.Config
	Pool   *pgxpool.Pool
	MQ     *rabbitmq.Client
	Logger *zap.Logger
}

// Health checks Postgres and RabbitMQ.
func (d Deps) Health() http.HandlerFunc {
	return httpx.Health(map[string]httpx.Pinger{
		"postgres": d.Pool.Ping,
		"rabbitmq": d.MQ.Ping,
	})
}

// Publisher returns the event publisher for this service.
func (d Deps) Publisher() *broker.Publisher {
	return broker.NewPublisher(d.MQ, d.Config.Service.Name)
}

// Service is what a mode contributes to the shared runtime.
type Service struct {
	Bindings []rabbitmq.Binding
	Handler  broker.Handler
	Routes   http.Handler
	// Runner is nil for services without due tasks.
	Runner *scheduler.Runner
}

// Serve declares the broker topology, then runs the HTTP server, one
// consumer per binding and the task runner until ctx is cancelled or one of
// them fails.
func Serve(ctx context.Context, d Deps, s Service) error {
	lg := d.Logger

	ch, err := d.MQ.NewChannel()
	if err != nil {
		return fmt.Errorf("open topology channel: %w", err)
	}
	err = rabbitmq.DeclareTopology(ch, events.Exchanges, s.Bindings)
	_ = ch.Close()
	if err != nil {
		return err
	}
	lg.Info("topology_declared", zap.Int("queues", len(s.Bindings)))

	g, gctx := errgroup.WithContext(ctx)

	srv := httpx.New(":"+strconv.Itoa(d.Config.Service.Port), s.Routes)
	g.Go(func() error {
		lg.Info("http_listening", zap.Int("port", d.Config.Service.Port))
		return srv.Run(gctx)
	})

	ccfg := broker.ConsumerConfig{
		Prefetch:   d.Config.RabbitMQ.Prefetch,
		MaxRetries: d.Config.RabbitMQ.MaxRetries,
		RetryDelay: d.Config.RabbitMQ.RetryDelay,
	}
	for _, b := range s.Bindings {
		ch, err := d.MQ.NewChannel()
		if err != nil {
			return fmt.Errorf("open consumer channel for %s: %w", b.Queue, err)
		}
		c := broker.NewConsumer(ch, d.MQ, b, s.Handler, ccfg, lg)
		g.Go(func() error { return c.Run(gctx) })
	}

	if s.Runner != nil {
		g.Go(func() error { return s.Runner.Run(gctx) })
	}

	return g.Wait()
}
