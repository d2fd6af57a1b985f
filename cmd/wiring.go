package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/telesales-cli/internal/loader"
	"github.com/sells-group/telesales-cli/internal/model"
	"github.com/sells-group/telesales-cli/internal/notify"
	"github.com/sells-group/telesales-cli/internal/pipeline"
	"github.com/sells-group/telesales-cli/internal/sheet"
	"github.com/sells-group/telesales-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.Path
		if dsn == "" {
			dsn = "telesales.db"
		}
		return store.NewSQLite(dsn)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initLoader returns the pool loader plus a cleanup func for any pools opened.
func initLoader(ctx context.Context) (loader.Loader, loader.RedemptionSource, func(), error) {
	noop := func() {}

	switch cfg.Loader.Mode {
	case "mock":
		return loader.NewMockLoader(cfg.Loader.MockSeed, cfg.Loader.MockPoolSize), loader.NoRedemptions{}, noop, nil

	case "postgres":
		pools := make(map[model.SourceKey]loader.Querier, 2)
		var opened []*pgxpool.Pool
		cleanup := func() {
			for _, p := range opened {
				p.Close()
			}
		}

		for _, src := range []struct {
			key model.SourceKey
			url string
		}{
			{model.SourcePC, cfg.Loader.PCDatabaseURL},
			{model.SourceMobile, cfg.Loader.MobileDatabaseURL},
		} {
			if src.url == "" {
				continue
			}
			pool, err := pgxpool.New(ctx, src.url)
			if err != nil {
				cleanup()
				return nil, nil, noop, eris.Wrapf(err, "connect %s database", src.key)
			}
			opened = append(opened, pool)
			pools[src.key] = pool
		}
		if len(pools) == 0 {
			return nil, nil, noop, eris.New("postgres loader mode requires at least one source database URL")
		}

		var redemptions loader.RedemptionSource = loader.NoRedemptions{}
		if cfg.Loader.RedemptionDatabaseURL != "" {
			pool, err := pgxpool.New(ctx, cfg.Loader.RedemptionDatabaseURL)
			if err != nil {
				cleanup()
				return nil, nil, noop, eris.Wrap(err, "connect redemption database")
			}
			opened = append(opened, pool)
			redemptions = loader.NewPGRedemptions(pool, cfg.Loader.RedemptionTimeColumn)
		}

		return loader.NewPGLoader(pools), redemptions, cleanup, nil

	default:
		return nil, nil, noop, eris.Errorf("unsupported loader mode: %s", cfg.Loader.Mode)
	}
}

func initNotifiers() map[model.Tier]pipeline.Notifier {
	timeout := time.Duration(cfg.Notify.TimeoutSecs) * time.Second
	return map[model.Tier]pipeline.Notifier{
		model.TierHighValue: notify.NewDiscord(cfg.Notify.WebhookHighValue, timeout, cfg.Notify.PerMinute),
		model.TierGeneral:   notify.NewDiscord(cfg.Notify.WebhookGeneral, timeout, cfg.Notify.PerMinute),
	}
}

func initSink() pipeline.Sink {
	return sheet.NewWriter(cfg.Output.Dir, cfg.Output.Prefix)
}
