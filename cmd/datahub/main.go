// Command datahub runs the on-device data hub: the Resource Tree, push
// pipeline, optional persistence backend, periodic buffer sweep, and the
// administrative/query HTTP facade (no namespace binder or client session
// is constructed here), grounded on
// the teacher's cmd/at/main.go into.Init process-lifecycle wiring.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/jtchitty/legatoDataHub/internal/config"
	"github.com/jtchitty/legatoDataHub/internal/persistence"
	"github.com/jtchitty/legatoDataHub/internal/persistence/postgres"
	"github.com/jtchitty/legatoDataHub/internal/persistence/sqlite"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/server"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

var (
	name    = "datahub"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	t := tree.New(cfg.Tree.MaxDepth, cfg.Tree.MaxSegmentLen)

	store, err := openPersistence(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open persistence store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	if cfg.Sweep.Enabled {
		sweeper, err := resource.NewSweeper(t, cfg.Sweep.Interval)
		if err != nil {
			return fmt.Errorf("failed to create buffer sweeper: %w", err)
		}
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start buffer sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	srv, err := server.New(cfg.Server, t, store)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("starting data hub", "host", cfg.Server.Host, "port", cfg.Server.Port)
	return srv.Start(ctx)
}

// openPersistence opens the configured optional persistence backend
// (spec §6.4). At most one of Store.SQLite/Store.Postgres should be set;
// neither set means persistence is disabled (store == nil).
func openPersistence(ctx context.Context, cfg config.Store) (persistence.Persister, error) {
	switch {
	case cfg.SQLite != nil:
		sqliteCfg := sqlite.Config{Datasource: cfg.SQLite.Datasource}
		if cfg.SQLite.TablePrefix != nil {
			sqliteCfg.TablePrefix = *cfg.SQLite.TablePrefix
		}
		return sqlite.New(ctx, sqliteCfg)
	case cfg.Postgres != nil:
		if cfg.Postgres.ConnMaxLifetime != nil {
			postgres.ConnMaxLifetime = *cfg.Postgres.ConnMaxLifetime
		}
		if cfg.Postgres.MaxIdleConns != nil {
			postgres.MaxIdleConns = *cfg.Postgres.MaxIdleConns
		}
		if cfg.Postgres.MaxOpenConns != nil {
			postgres.MaxOpenConns = *cfg.Postgres.MaxOpenConns
		}
		postgresCfg := postgres.Config{Datasource: cfg.Postgres.Datasource, Schema: cfg.Postgres.Schema}
		if cfg.Postgres.TablePrefix != nil {
			postgresCfg.TablePrefix = *cfg.Postgres.TablePrefix
		}
		return postgres.New(ctx, postgresCfg)
	default:
		return nil, nil
	}
}
