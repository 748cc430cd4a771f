// Package app wires configuration, storage and the Telegram runtime into a
// runnable wallet bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/walletbot/core/bootstrap"
	corecmd "github.com/m3rciful/walletbot/core/cmd"
	coreconfig "github.com/m3rciful/walletbot/core/config"
	"github.com/m3rciful/walletbot/core/logger"
	tg "github.com/m3rciful/walletbot/core/telegram"
	"github.com/m3rciful/walletbot/core/telegram/middleware"
	"github.com/m3rciful/walletbot/core/telegram/router"
	"github.com/m3rciful/walletbot/core/telegram/sender"
	"github.com/m3rciful/walletbot/internal/actions"
	"github.com/m3rciful/walletbot/internal/dispatch"
	"github.com/m3rciful/walletbot/internal/flow"
	"github.com/m3rciful/walletbot/internal/remote"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/transport"
	"github.com/m3rciful/walletbot/internal/ui"
)

// Config carries the core configuration through core/cmd.
type Config struct {
	*coreconfig.Config
}

// CoreConfig implements corecmd.ConfigCarrier.
func (c Config) CoreConfig() *coreconfig.Config { return c.Config }

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return Config{Config: cfg}, nil
}

// App holds the wired components between bootstrap and shutdown.
type App struct {
	cfg   *coreconfig.Config
	infra *bootstrap.Result

	store      *session.Store
	dispatcher *sender.Dispatcher
	sequencer  *middleware.Sequencer
	bot        *transport.Bot
}

// Bootstrap opens storage, restores persisted sessions and builds the bot.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	ctx := context.Background()

	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:        cfg,
		Migrations:    session.Migrations,
		MigrationsDir: session.MigrationsDir,
	})
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, infra, remote.NewClient(cfg.API, nil))
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *coreconfig.Config, infra *bootstrap.Result, api remote.Service) (*App, error) {
	backend, err := newBackend(cfg, infra)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(session.Options{Backend: backend, Expiry: cfg.Session.Expiry})
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	machine := flow.New(store, api, flow.Options{MaxOTPAttempts: cfg.Session.MaxOTPAttempts})

	reg := dispatch.NewRegistry()
	if err := actions.Register(reg, actions.New(actions.Deps{Store: store, Machine: machine, API: api})); err != nil {
		return nil, fmt.Errorf("app: register actions: %w", err)
	}
	rt := dispatch.NewRouter(reg, store, dispatch.Options{
		NotAvailable: ui.MsgNotAvailable,
		ErrorText:    ui.MsgGenericError,
		Recovery:     ui.Recovery(),
	})

	dispatcher := sender.NewDispatcher(sender.Options{MaxRetries: 3})
	bot := transport.New(transport.Options{
		Router:     rt,
		Machine:    machine,
		Store:      store,
		SendErrors: dispatcher.ErrorCount,
	})

	return &App{
		cfg:        cfg,
		infra:      infra,
		store:      store,
		dispatcher: dispatcher,
		sequencer:  middleware.NewSequencer(middleware.DefaultSequenceWait),
		bot:        bot,
	}, nil
}

func newBackend(cfg *coreconfig.Config, infra *bootstrap.Result) (session.Backend, error) {
	switch cfg.Session.Backend {
	case coreconfig.SessionBackendFile:
		return session.NewFileBackend(cfg.Session.Dir)
	case coreconfig.SessionBackendPostgres:
		if infra == nil || infra.DB == nil {
			return nil, fmt.Errorf("app: postgres session backend without a database connection")
		}
		return session.NewPostgresBackend(infra.DB), nil
	case coreconfig.SessionBackendRedis:
		if infra == nil || infra.Redis == nil {
			return nil, fmt.Errorf("app: redis session backend without a redis client")
		}
		return session.NewRedisBackend(infra.Redis, cfg.Redis.KeyPrefix, cfg.Session.Expiry), nil
	case coreconfig.SessionBackendMemory:
		return session.NopBackend{}, nil
	default:
		return nil, fmt.Errorf("app: unknown session backend %q", cfg.Session.Backend)
	}
}

// TelegramRunOptions implements corecmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.bot.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.bot.AdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.bot.HandleCallback))
	routes = append(routes, router.TextRoutes(a.bot, reg, router.TextOptions{})...)

	return tg.RunOptions{
		Config:       a.cfg,
		Registry:     reg,
		Dispatcher:   a.dispatcher,
		Middlewares:  tg.DefaultMiddlewares(a.cfg, a.sequencer, a.bot.OnLimited),
		PollerFilter: a.sequencer.Filter,
		Routes:       routes,
		OnStart:      a.onStart,
		OnStop:       a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	go a.store.RunSweeper(ctx, a.cfg.Session.SweepInterval)
	logger.Info(ctx, "session", "session.sweeper",
		slog.String("status", "ok"),
		slog.String("backend", a.store.Backend()),
		slog.Duration("interval", a.cfg.Session.SweepInterval),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	start := time.Now()
	a.store.PersistAll(ctx)
	logger.Info(ctx, "session", "session.persist_all",
		slog.String("status", "ok"),
		slog.String("backend", a.store.Backend()),
		slog.Int("count", a.store.Len()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return a.infra.Close()
}
