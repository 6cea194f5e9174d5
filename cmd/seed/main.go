// Command seed creates the inventory database schema and stocks the menu
// items the demo orders refer to. Items already present by name are left
// untouched, so it is safe to run on every deploy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/common/logger"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/migrations"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/repository"
)

var menu = []dao.Item{
	{Name: "Margherita Pizza", Description: "Classic tomato and mozzarella", Quantity: 100, Price: decimal.RequireFromString("12.99")},
	{Name: "Caesar Salad", Description: "Romaine, parmesan and croutons", Quantity: 50, Price: decimal.RequireFromString("8.99")},
	{Name: "Garlic Bread", Description: "Toasted with garlic butter", Quantity: 75, Price: decimal.RequireFromString("4.99")},
}

func main() {
	cfgPath := flag.String("config", "", "path to the YAML config")
	flag.Parse()

	lg := logger.New("seed", "info")
	defer func() { _ = lg.Sync() }()

	if err := run(*cfgPath, lg); err != nil {
		lg.Error("fatal", zap.Error(err))
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(path string, lg *zap.Logger) error {
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = "inventory"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, lg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, lg); err != nil {
		return err
	}

	created, err := seed(ctx, repository.NewInventoryRepository(pool), menu, lg)
	if err != nil {
		return err
	}
	lg.Info("seed_completed", zap.Int("created", created))
	return nil
}

// seed creates every item of want whose name is not stocked yet.
func seed(ctx context.Context, repo repository.InventoryRepositoryInterface, want []dao.Item, lg *zap.Logger) (int, error) {
	have := map[string]bool{}
	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		items, err := repo.List(ctx, pageSize, offset)
		if err != nil {
			return 0, err
		}
		for _, it := range items {
			have[it.Name] = true
		}
		if len(items) < pageSize {
			break
		}
	}

	created := 0
	for _, it := range want {
		if have[it.Name] {
			lg.Debug("seed_item_exists", zap.String("name", it.Name))
			continue
		}
		out, err := repo.Create(ctx, it)
		if err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", it.Name, err)
		}
		have[it.Name] = true
		created++
		lg.Info("seed_item_created", zap.Int64("item_id", out.ID), zap.String("name", out.Name), zap.Int("quantity", out.Quantity))
	}
	return created, nil
}
