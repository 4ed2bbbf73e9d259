// Package config — конфигурация процесса из переменных окружения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ExecutorMode — способ выполнения бронирования.
type ExecutorMode string

const (
	// ExecutorModeBrowser — одна долгоживущая браузерная сессия в процессе.
	ExecutorModeBrowser ExecutorMode = "browser"

	// ExecutorModeSpawn — отдельный запуск внешней автоматизации на заявку.
	ExecutorModeSpawn ExecutorMode = "spawn"
)

// Config — конфигурация воркера.
type Config struct {
	// RabbitURL — адрес RabbitMQ.
	RabbitURL string

	// LookupBaseURL — базовый URL сервиса адресов (GET /properties/{id}).
	LookupBaseURL string

	// LookupTimeout — таймаут одного запроса к сервису адресов.
	LookupTimeout time.Duration

	// LookupMaxAttempts — максимум попыток получить адрес.
	LookupMaxAttempts int

	// LookupRetryDelay — задержка перед повторной попыткой.
	LookupRetryDelay time.Duration

	// SweepEnabled — включён ли cancellation sweep.
	SweepEnabled bool

	// SweepDelay — задержка debounce после опустошения очереди.
	SweepDelay time.Duration

	// SweepCron — опциональное cron-расписание sweep ("" — выключено).
	SweepCron string

	// SweepStaleAfter — возраст auto-booked брони, после которого она
	// считается устаревшей.
	SweepStaleAfter time.Duration

	// HealthInterval — интервал фоновой проверки executor'а.
	HealthInterval time.Duration

	// Executor — режим выполнения бронирования.
	Executor ExecutorMode

	// SpawnCmd — команда внешней автоматизации для режима spawn.
	SpawnCmd string

	// BookingBaseURL — базовый URL сайта бронирования (режим browser).
	BookingBaseURL string

	// BrowserHeadless — запускать браузер без UI.
	BrowserHeadless bool

	// ChromeProfileDir — путь к существующему Chrome-профилю
	// (залогиненная сессия); "" — чистый профиль.
	ChromeProfileDir string

	// MaxConsumeFailures — порог подряд неудачных подписок на события,
	// после которого процесс завершается.
	MaxConsumeFailures int

	// WorkerPort — порт HTTP (/healthz, /metrics).
	WorkerPort string

	// ReplayBatchSize — количество заявок за один catch-up replay.
	ReplayBatchSize int
}

// FromEnv читает конфигурацию из окружения.
func FromEnv() (Config, error) {
	cfg := Config{
		RabbitURL:          envDefault("RABBITMQ_URL", ""),
		LookupBaseURL:      envDefault("LOOKUP_BASE_URL", "http://localhost:8090"),
		LookupTimeout:      envDuration("LOOKUP_TIMEOUT", 30*time.Second),
		LookupMaxAttempts:  envInt("LOOKUP_MAX_ATTEMPTS", 3),
		LookupRetryDelay:   envDuration("LOOKUP_RETRY_DELAY", 60*time.Second),
		SweepEnabled:       envBool("SWEEP_ENABLED", true),
		SweepDelay:         envDuration("SWEEP_DELAY", 10*time.Minute),
		SweepCron:          strings.TrimSpace(os.Getenv("SWEEP_CRON")),
		SweepStaleAfter:    envDuration("SWEEP_STALE_AFTER", 24*time.Hour),
		HealthInterval:     envDuration("HEALTH_INTERVAL", 60*time.Second),
		Executor:           ExecutorMode(envDefault("EXECUTOR_MODE", string(ExecutorModeBrowser))),
		SpawnCmd:           strings.TrimSpace(os.Getenv("SPAWN_CMD")),
		BookingBaseURL:     envDefault("BOOKING_BASE_URL", "https://www.brokerbay.ca"),
		BrowserHeadless:    envBool("BROWSER_HEADLESS", true),
		ChromeProfileDir:   strings.TrimSpace(os.Getenv("CHROME_PROFILE_DIR")),
		MaxConsumeFailures: envInt("MQ_MAX_CONSUME_FAILURES", 5),
		WorkerPort:         envDefault("WORKER_PORT", "8084"),
		ReplayBatchSize:    envInt("REPLAY_BATCH_SIZE", 100),
	}

	switch cfg.Executor {
	case ExecutorModeBrowser, ExecutorModeSpawn:
	default:
		return cfg, fmt.Errorf("EXECUTOR_MODE must be %q or %q (got %q)",
			ExecutorModeBrowser, ExecutorModeSpawn, cfg.Executor)
	}

	if cfg.Executor == ExecutorModeSpawn && cfg.SpawnCmd == "" {
		return cfg, fmt.Errorf("SPAWN_CMD is required in spawn mode")
	}

	if cfg.LookupMaxAttempts < 1 {
		return cfg, fmt.Errorf("LOOKUP_MAX_ATTEMPTS must be >= 1 (got %d)", cfg.LookupMaxAttempts)
	}

	return cfg, nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envInt(k string, d int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envDuration(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return parsed
}
