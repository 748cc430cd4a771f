package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "x"}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Session.Backend != SessionBackendFile || cfg.Session.Dir != defaultSessionDir {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Session.Expiry != 24*time.Hour || cfg.Session.SweepInterval != time.Hour {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Session.MaxOTPAttempts != defaultMaxOTPAttempts {
		t.Fatalf("max otp attempts = %d", cfg.Session.MaxOTPAttempts)
	}
	if cfg.API.BaseURL != defaultAPIBaseURL || cfg.API.Timeout != 10*time.Second {
		t.Fatalf("unexpected api defaults: %+v", cfg.API)
	}
	if cfg.Redis.KeyPrefix != defaultRedisPrefix {
		t.Fatalf("redis prefix = %q", cfg.Redis.KeyPrefix)
	}
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	cases := map[string]Config{
		"token":    {},
		"run_mode": {Telegram: TelegramConfig{Token: "x", RunMode: "carrier-pigeon"}},
		"webhook":  {Telegram: TelegramConfig{Token: "x", RunMode: "webhook"}},
		"backend":  {Telegram: TelegramConfig{Token: "x"}, Session: SessionConfig{Backend: "etcd"}},
		"redis":    {Telegram: TelegramConfig{Token: "x"}, Session: SessionConfig{Backend: "redis"}},
		"postgres": {Telegram: TelegramConfig{Token: "x"}, Session: SessionConfig{Backend: "postgres"}},
		"base_url": {Telegram: TelegramConfig{Token: "x"}, API: APIConfig{BaseURL: "not a url"}},
		"exclude":  {Telegram: TelegramConfig{Token: "x"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := strings.Join([]string{
		"telegram:",
		"  token: from-file",
		"session:",
		"  backend: memory",
		"  expiry: 2h",
		"  sweep_interval: 10m",
		"api:",
		"  base_url: https://api.example.com/",
		"  timeout: 3s",
	}, "\n")
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("API_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Session.Backend != SessionBackendMemory || cfg.Session.Expiry != 2*time.Hour || cfg.Session.SweepInterval != 10*time.Minute {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.API.BaseURL != "https://api.example.com" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected api config: %+v", cfg.API)
	}
	if cfg.API.RequestsPerSecond != 2.5 {
		t.Fatalf("requests per second = %v", cfg.API.RequestsPerSecond)
	}
}
