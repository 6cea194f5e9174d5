package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikolovlazar/tracing-demos/internal/app"
	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/common/logger"
	"github.com/nikolovlazar/tracing-demos/internal/common/telemetry"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/connections/rabbitmq"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order"
	"github.com/nikolovlazar/tracing-demos/internal/registry"
)

type mode struct {
	run      func(context.Context, app.Deps) error
	database string
}

var modes = map[string]mode{
	"order-service":     {run: order.Run, database: "orders"},
	"inventory-service": {run: inventory.Run, database: "inventory"},
	"kitchen-service":   {run: kitchen.Run, database: "kitchen"},
	"delivery-service":  {run: delivery.Run, database: "delivery"},

	"notification-subscriber": {run: notificator.Run, database: "notifications"},
}

const shutdownTimeout = 10 * time.Second

func main() {
	modeName := flag.String("mode", "", modeList())
	configPath := flag.String("config", "", "path to the YAML config (default: config.yaml or deploy/config.example.yaml)")
	port := flag.Int("port", 0, "http port (default depends on mode)")
	flag.Parse()

	m, ok := modes[*modeName]
	if !ok {
		fmt.Fprintln(os.Stderr, "--mode is required: "+modeList())
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath, *modeName, *port, m.database)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "telemetry:", err)
		os.Exit(1)
	}

	var opts []logger.Option
	if providers.Logs != nil {
		opts = append(opts, logger.WithLoggerProvider(providers.Logs))
	}
	lg := logger.New(cfg.Service.Name, cfg.Log.Level, opts...)

	err = run(ctx, cfg, m, lg)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if serr := providers.Shutdown(shutdownCtx); serr != nil {
		lg.Warn("telemetry_shutdown_failed", zap.Error(serr))
	}

	if err != nil {
		lg.Error("fatal", zap.Error(err))
		_ = lg.Sync()
		os.Exit(1)
	}
	lg.Info("service_stopped")
	_ = lg.Sync()
}

func run(ctx context.Context, cfg config.Config, m mode, lg *zap.Logger) error {
	pool, err := db.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, lg)
	if err != nil {
		return err
	}
	defer pool.Close()

	mq, err := rabbitmq.Dial(ctx, cfg.RabbitMQ, lg)
	if err != nil {
		return err
	}
	defer mq.Close()

	deps := app.Deps{Config: cfg, Pool: pool, MQ: mq, Logger: lg}
	lg.Info("service_started", zap.String("mode", cfg.Service.Name), zap.Int("port", cfg.Service.Port))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.run(gctx, deps) })

	if cfg.Redis.Addr == "" {
		lg.Info("registry_disabled")
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		g.Go(func() error { return announce(gctx, registry.New(rdb, cfg.Redis, lg), cfg, lg) })
	}

	return g.Wait()
}

// announce keeps this instance in the registry for the life of ctx. Registry
// failures are logged; they never stop the service.
func announce(ctx context.Context, reg *registry.Registry, cfg config.Config, lg *zap.Logger) error {
	inst := registry.NewInstance(cfg.Service.Name, registry.AdvertiseAddress(cfg.Service.AdvertiseHost), cfg.Service.Port, cfg.Service.Version)
	if err := reg.Register(ctx, inst); err != nil {
		lg.Warn("registry_register_failed", zap.Error(err))
	}
	err := reg.Run(ctx, inst)

	dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if derr := reg.Deregister(dctx, inst); derr != nil {
		lg.Warn("registry_deregister_failed", zap.Error(derr))
	}
	return err
}

func loadConfig(path, name string, port int, database string) (config.Config, error) {
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	cfg.Service.Name = name
	switch {
	case port != 0:
		cfg.Service.Port = port
	case cfg.Service.Port == 0:
		cfg.Service.Port = config.DefaultPorts[name]
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = database
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func modeList() string {
	names := make([]string, 0, len(modes))
	for n := range modes {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, " | ")
}
