package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"pitboss/internal/bootstrap/config"
	"pitboss/internal/bootstrap/database"
	"pitboss/internal/bootstrap/logging"
	auditinfra "pitboss/internal/infrastructure/audit"
	cacheinfra "pitboss/internal/infrastructure/cache"
	sqliterepo "pitboss/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "pitboss/internal/infrastructure/persistence/sqlite/uow"
	"pitboss/internal/ports"
	"pitboss/internal/usecase/floor"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewFloorRepository,
			fx.As(new(ports.FloorRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideAuditStream),
	fx.Provide(provideService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// provideAuditStream is nil when no NATS URL is configured; the service
// treats a nil stream as "sqlite audit log only".
func provideAuditStream(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.AuditStream, error) {
	if cfg.Audit.NATSURL == "" {
		return nil, nil
	}

	stream, err := auditinfra.NewNATSStream(cfg.Audit.NATSURL, cfg.Audit.Subject)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return stream.Close()
		},
	})

	logging.Info(ctx, "audit stream connected", slog.String("subject", cfg.Audit.Subject))
	return stream, nil
}

func provideService(repo ports.FloorRepository, uow ports.UnitOfWork, cache ports.Cache, stream ports.AuditStream, cfg config.Config) (*floor.Service, error) {
	loc, err := time.LoadLocation(cfg.Casino.Timezone)
	if err != nil {
		return nil, err
	}

	return floor.NewService(repo, uow, cache, stream, floor.CasinoSettings{
		CasinoID:        cfg.Casino.ID,
		GamingDayCutoff: cfg.Casino.GamingDayCutoff,
		Location:        loc,
		IdempotencyTTL:  time.Duration(cfg.Casino.IdempotencyTTLHours) * time.Hour,
	}), nil
}
