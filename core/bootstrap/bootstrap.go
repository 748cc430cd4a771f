package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/walletbot/core/config"
	coredatabase "github.com/m3rciful/walletbot/core/database"
	"github.com/m3rciful/walletbot/core/logger"
)

// Options control the bootstrap pipeline. Storage is opened only for the
// session backend that needs it.
type Options struct {
	Config *coreconfig.Config

	// Migrations and MigrationsDir locate the schema applied for the postgres backend.
	Migrations    fs.FS
	MigrationsDir string

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(coredatabase.Config) (*sqlx.DB, error)
	Migrate      func(ctx context.Context, cfg coredatabase.Config, fsys fs.FS, dir string) error
	ConnectRedis func(ctx context.Context, cfg coreconfig.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// Fields for backends that were not selected stay nil.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every opened connection.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger and opens the storage required by the session backend.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	switch cfg.Session.Backend {
	case coreconfig.SessionBackendPostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		if opts.Migrations != nil {
			migrate := opts.Migrate
			if migrate == nil {
				migrate = coredatabase.RunMigrations
			}
			if err := migrate(ctx, cfg.Database, opts.Migrations, opts.MigrationsDir); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
			}
		}
	case coreconfig.SessionBackendRedis:
		connect := opts.ConnectRedis
		if connect == nil {
			connect = coredatabase.ConnectRedis
		}
		client, err := connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}

	return res, nil
}
