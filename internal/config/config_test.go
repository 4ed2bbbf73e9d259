package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Executor != ExecutorModeBrowser {
		t.Errorf("expected browser mode by default, got %s", cfg.Executor)
	}
	if cfg.LookupMaxAttempts != 3 {
		t.Errorf("expected 3 lookup attempts, got %d", cfg.LookupMaxAttempts)
	}
	if cfg.LookupRetryDelay != 60*time.Second {
		t.Errorf("expected 60s retry delay, got %v", cfg.LookupRetryDelay)
	}
	if cfg.SweepDelay != 10*time.Minute {
		t.Errorf("expected 10m sweep delay, got %v", cfg.SweepDelay)
	}
	if !cfg.SweepEnabled {
		t.Error("sweep should be enabled by default")
	}
	if !cfg.BrowserHeadless {
		t.Error("headless should be the default")
	}
	if cfg.WorkerPort != "8084" {
		t.Errorf("expected port 8084, got %s", cfg.WorkerPort)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("EXECUTOR_MODE", "spawn")
	t.Setenv("SPAWN_CMD", "python3 booker.py")
	t.Setenv("LOOKUP_MAX_ATTEMPTS", "5")
	t.Setenv("LOOKUP_RETRY_DELAY", "5s")
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("SWEEP_CRON", "0 3 * * *")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Executor != ExecutorModeSpawn {
		t.Errorf("expected spawn mode, got %s", cfg.Executor)
	}
	if cfg.SpawnCmd != "python3 booker.py" {
		t.Errorf("unexpected spawn cmd: %s", cfg.SpawnCmd)
	}
	if cfg.LookupMaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.LookupMaxAttempts)
	}
	if cfg.LookupRetryDelay != 5*time.Second {
		t.Errorf("expected 5s delay, got %v", cfg.LookupRetryDelay)
	}
	if cfg.SweepEnabled {
		t.Error("sweep should be disabled")
	}
	if cfg.SweepCron != "0 3 * * *" {
		t.Errorf("unexpected cron: %s", cfg.SweepCron)
	}
}

func TestFromEnv_InvalidExecutorMode(t *testing.T) {
	t.Setenv("EXECUTOR_MODE", "teleport")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error for invalid executor mode")
	}
	if !strings.Contains(err.Error(), "EXECUTOR_MODE") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestFromEnv_SpawnRequiresCommand(t *testing.T) {
	t.Setenv("EXECUTOR_MODE", "spawn")
	t.Setenv("SPAWN_CMD", "")

	if _, err := FromEnv(); err == nil {
		t.Error("expected error for spawn mode without SPAWN_CMD")
	}
}

func TestFromEnv_AttemptsLowerBound(t *testing.T) {
	t.Setenv("LOOKUP_MAX_ATTEMPTS", "0")

	if _, err := FromEnv(); err == nil {
		t.Error("expected error for zero lookup attempts")
	}
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("LOOKUP_RETRY_DELAY", "soon")
	t.Setenv("SWEEP_ENABLED", "maybe")
	t.Setenv("REPLAY_BATCH_SIZE", "many")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LookupRetryDelay != 60*time.Second {
		t.Errorf("malformed duration should fall back to default, got %v", cfg.LookupRetryDelay)
	}
	if !cfg.SweepEnabled {
		t.Error("malformed bool should fall back to default")
	}
	if cfg.ReplayBatchSize != 100 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.ReplayBatchSize)
	}
}
