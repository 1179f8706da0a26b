package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LeadTime != time.Hour {
		t.Fatalf("LeadTime = %v, want 1h", cfg.LeadTime)
	}
	if cfg.CancellationCutoff != 24*time.Hour {
		t.Fatalf("CancellationCutoff = %v, want 24h", cfg.CancellationCutoff)
	}
	if cfg.DefaultDuration != 60*time.Minute {
		t.Fatalf("DefaultDuration = %v, want 60m", cfg.DefaultDuration)
	}
	if cfg.Timezone.String() != "Asia/Ho_Chi_Minh" {
		t.Fatalf("Timezone = %v", cfg.Timezone)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q", cfg.GRPCAddr())
	}
	if cfg.StoreDriver != StoreDriverPostgres || cfg.AuthMode != AuthModeHeader {
		t.Fatalf("driver/auth = %q/%q", cfg.StoreDriver, cfg.AuthMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONSULTBOOK_BOOKING_LEAD_TIME", "2h")
	t.Setenv("CONSULTBOOK_BOOKING_TIMEZONE", "UTC")
	t.Setenv("GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("CONSULTBOOK_STORE_DRIVER", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LeadTime != 2*time.Hour {
		t.Fatalf("LeadTime = %v, want 2h", cfg.LeadTime)
	}
	if cfg.Timezone != time.UTC {
		t.Fatalf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if cfg.GRPCAddr() != "127.0.0.1:6000" {
		t.Fatalf("GRPCAddr = %q", cfg.GRPCAddr())
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("StoreDriver = %q", cfg.StoreDriver)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad duration": {"CONSULTBOOK_BOOKING_CANCELLATION_CUTOFF", "a day"},
		"bad timezone": {"CONSULTBOOK_BOOKING_TIMEZONE", "Mars/Olympus"},
		"bad driver":   {"CONSULTBOOK_STORE_DRIVER", "sqlite"},
		"jwt no key":   {"CONSULTBOOK_AUTH_MODE", "jwt"},
		"tiny default": {"CONSULTBOOK_BOOKING_DEFAULT_DURATION", "30s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s succeeded", kv[0], kv[1])
			}
		})
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "CONSULTBOOK_BOOKING_LEAD_TIME=3h\nCONSULTBOOK_LOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CONSULTBOOK_LOG_LEVEL", "warn")
	t.Cleanup(func() {
		_ = os.Unsetenv("CONSULTBOOK_BOOKING_LEAD_TIME")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LeadTime != 3*time.Hour {
		t.Fatalf("LeadTime = %v, want 3h from .env", cfg.LeadTime)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want environment to win", cfg.LogLevel)
	}
}
