package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/walletbot/core/config"
	coretelegram "github.com/m3rciful/walletbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct{ opts coretelegram.RunOptions }

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestRunRequiresLoaders(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatalf("expected error without LoadConfig")
	}
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	t.Setenv("WALLETBOT_TEST_CONFIG", "ignored.yaml")

	var order []string
	app := fakeApp{opts: coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			order = append(order, "start")
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			order = append(order, "stop")
			return nil
		},
	}}

	err := Run(Options{
		Args:         []string{},
		ConfigEnvVar: "WALLETBOT_TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			if path != "ignored.yaml" {
				t.Fatalf("path = %q", path)
			}
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "start" || order[1] != "stop" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	err := Run(Options{
		Args:              []string{},
		DefaultConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return nil, errors.New("no db") },
	})
	if err == nil {
		t.Fatalf("expected bootstrap error")
	}
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	t.Setenv("WALLETBOT_TEST_CONFIG", "env.yaml")
	opts := Options{ConfigEnvVar: "WALLETBOT_TEST_CONFIG", DefaultConfigPath: "default.yaml"}

	opts.Args = []string{"-config", "flag.yaml"}
	if path, _, err := resolveConfigPath(opts); err != nil || path != "flag.yaml" {
		t.Fatalf("flag: path=%q err=%v", path, err)
	}
	opts.Args = []string{}
	if path, _, err := resolveConfigPath(opts); err != nil || path != "env.yaml" {
		t.Fatalf("env: path=%q err=%v", path, err)
	}
	t.Setenv("WALLETBOT_TEST_CONFIG", "")
	if path, _, err := resolveConfigPath(opts); err != nil || path != "default.yaml" {
		t.Fatalf("default: path=%q err=%v", path, err)
	}
	opts.DefaultConfigPath = ""
	if _, _, err := resolveConfigPath(opts); err == nil {
		t.Fatalf("expected error without any path")
	}
	opts.Args = []string{"-version"}
	if _, version, err := resolveConfigPath(opts); err != nil || !version {
		t.Fatalf("version: %v %v", version, err)
	}
}
