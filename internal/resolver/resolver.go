package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shaiso/Showrunner/internal/domain"
	"github.com/shaiso/Showrunner/internal/repo"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 60 * time.Second
	defaultTimeout     = 30 * time.Second
)

// AddressCache — хранилище адресов (реализуется repo.AddressCacheRepo).
type AddressCache interface {
	Get(ctx context.Context, propertyID string) (*domain.AddressCacheEntry, error)
	Put(ctx context.Context, propertyID, address string) error
}

// Resolver разрешает адрес объекта по property id.
type Resolver struct {
	cache   AddressCache
	client  *http.Client
	baseURL string

	maxAttempts int
	retryDelay  time.Duration

	// Retry state — только в памяти, ключ property id.
	mu    sync.Mutex
	retry map[string]*domain.RetryState

	logger *slog.Logger
}

// Config — конфигурация Resolver.
type Config struct {
	// Cache — кэш адресов.
	Cache AddressCache

	// BaseURL — базовый URL сервиса адресов (GET /properties/{id}).
	BaseURL string

	// Timeout — таймаут одного HTTP-запроса (default: 30s).
	Timeout time.Duration

	// MaxAttempts — максимум попыток lookup (default: 3).
	MaxAttempts int

	// RetryDelay — минимальная пауза между попытками (default: 60s).
	RetryDelay time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Resolver.
func New(cfg Config) *Resolver {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		cache:       cfg.Cache,
		client:      &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		retry:       make(map[string]*domain.RetryState),
		logger:      logger,
	}
}

// RetryDelay возвращает паузу между попытками lookup.
func (r *Resolver) RetryDelay() time.Duration {
	return r.retryDelay
}

// Resolve возвращает адрес объекта.
//
// Возвращаемые ошибки:
//   - ErrRetryable — lookup не удался, попытки не исчерпаны; вызывающая
//     сторона планирует повтор не раньше RetryState.NotBefore.
//   - ErrNoAddress — попытки исчерпаны, property терминально без адреса.
//
// Resolve не выдерживает паузы сам: темп повторов обеспечивает
// отложенный re-enqueue оркестратора, поэтому каждая попытка ровно
// один вызов lookup (важно для инварианта retry cap).
func (r *Resolver) Resolve(ctx context.Context, propertyID string) (string, error) {
	// Терминально провалившиеся property не запрашиваем повторно.
	if r.isTerminal(propertyID) {
		return "", fmt.Errorf("%w: property %s exhausted retries", ErrNoAddress, propertyID)
	}

	// 1. Кэш
	entry, err := r.cache.Get(ctx, propertyID)
	if err == nil {
		r.clearRetry(propertyID)
		telemetry.AddressLookups.WithLabelValues("hit").Inc()
		return entry.Address, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		// Ошибка хранилища — не считаем попыткой lookup
		return "", fmt.Errorf("address cache get: %w", err)
	}

	// 2. Внешний lookup
	address, lookupErr := r.lookup(ctx, propertyID)
	if lookupErr == nil {
		if err := r.cache.Put(ctx, propertyID, address); err != nil {
			// Адрес получен — ошибку кэша только логируем
			r.logger.Warn("failed to cache address",
				"property_id", propertyID,
				"error", err,
			)
		}
		r.clearRetry(propertyID)
		telemetry.AddressLookups.WithLabelValues("resolved").Inc()
		return address, nil
	}

	telemetry.AddressLookups.WithLabelValues("failed").Inc()
	return "", r.recordFailure(propertyID, lookupErr)
}

// lookup выполняет HTTP-запрос к сервису адресов.
func (r *Resolver) lookup(ctx context.Context, propertyID string) (string, error) {
	url := fmt.Sprintf("%s/properties/%s", r.baseURL, propertyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup property %s: %w", propertyID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup property %s: HTTP %d", propertyID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	address, err := ExtractAddress(body)
	if err != nil {
		return "", fmt.Errorf("property %s: %w", propertyID, err)
	}

	return address, nil
}

// recordFailure фиксирует неудачную попытку и возвращает
// ErrRetryable либо ErrNoAddress при исчерпании попыток.
func (r *Resolver) recordFailure(propertyID string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.retry[propertyID]
	if !ok {
		state = &domain.RetryState{PropertyID: propertyID}
		r.retry[propertyID] = state
	}

	now := time.Now()
	state.Attempts++
	state.LastAttemptAt = now

	if state.Attempts >= r.maxAttempts {
		// Запись сохраняется для наблюдаемости, но попыток больше не будет.
		state.Terminal = true
		r.logger.Warn("address lookup exhausted",
			"property_id", propertyID,
			"attempts", state.Attempts,
			"error", cause,
		)
		return fmt.Errorf("%w: %v", ErrNoAddress, cause)
	}

	state.NotBefore = now.Add(r.retryDelay)
	r.logger.Warn("address lookup failed, will retry",
		"property_id", propertyID,
		"attempt", state.Attempts,
		"max_attempts", r.maxAttempts,
		"not_before", state.NotBefore,
		"error", cause,
	)
	return fmt.Errorf("%w: attempt %d/%d: %v", ErrRetryable, state.Attempts, r.maxAttempts, cause)
}

// RetryState возвращает копию retry state для property (наблюдаемость).
func (r *Resolver) RetryState(propertyID string) (domain.RetryState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.retry[propertyID]
	if !ok {
		return domain.RetryState{}, false
	}
	return *state, true
}

// isTerminal проверяет, исчерпаны ли попытки для property.
func (r *Resolver) isTerminal(propertyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.retry[propertyID]
	return ok && state.Terminal
}

// clearRetry удаляет retry state после успешного разрешения.
func (r *Resolver) clearRetry(propertyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.retry, propertyID)
}
