package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/shaiso/Showrunner/internal/domain"
)

// Таймауты отдельных шагов браузерного сценария.
const (
	pingTimeout     = 5 * time.Second
	navigateTimeout = 45 * time.Second
	stepTimeout     = 30 * time.Second
)

// StaleLister — источник устаревших auto-booked броней для sweep
// (реализуется repo.LedgerRepo).
type StaleLister interface {
	ListStaleAutoBooked(ctx context.Context, cutoff time.Time, limit int) ([]domain.LedgerEntry, error)
}

// BrowserExecutor — исполнитель с одной долгоживущей браузерной сессией.
//
// Сессия создаётся при New и живёт до Close; разрыв обнаруживается
// через Ping и лечится Reconnect (Health Monitor фоном, Execution
// Handoff синхронно). Выполняет также cancellation sweep — у него
// единственная залогиненная сессия, способная отменять брони.
type BrowserExecutor struct {
	baseURL    string
	headless   bool
	profileDir string

	stale      StaleLister
	staleAfter time.Duration

	mu          sync.Mutex
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context

	logger *slog.Logger
}

// BrowserConfig — конфигурация BrowserExecutor.
type BrowserConfig struct {
	// BaseURL — базовый URL сайта бронирования.
	BaseURL string

	// Headless — запуск без UI (default в конфиге процесса: true).
	Headless bool

	// ProfileDir — существующий Chrome-профиль с залогиненной сессией;
	// "" — чистый профиль.
	ProfileDir string

	// Stale + StaleAfter — источник и возраст устаревших броней для sweep.
	Stale      StaleLister
	StaleAfter time.Duration

	// Logger
	Logger *slog.Logger
}

// NewBrowser создаёт BrowserExecutor и запускает браузер.
func NewBrowser(ctx context.Context, cfg BrowserConfig) (*BrowserExecutor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}

	b := &BrowserExecutor{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headless:   cfg.Headless,
		profileDir: cfg.ProfileDir,
		stale:      cfg.Stale,
		staleAfter: staleAfter,
		logger:     logger,
	}

	if err := b.launch(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// launch запускает браузер и открывает сессию.
func (b *BrowserExecutor) launch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if b.profileDir != "" {
		// Существующий профиль — залогиненная сессия
		opts = append(opts, chromedp.UserDataDir(b.profileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	// Стартуем браузер и проверяем, что DevTools отвечает
	startCtx, cancel := context.WithTimeout(browserCtx, navigateTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, network.Enable()); err != nil {
		ctxCancel()
		allocCancel()
		return fmt.Errorf("launch browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.ctxCancel = ctxCancel
	b.browserCtx = browserCtx

	b.logger.Info("browser session started", "headless", b.headless, "profile", b.profileDir != "")
	return nil
}

// session возвращает текущий browser context.
func (b *BrowserExecutor) session() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browserCtx
}

// Ping проверяет, что браузерная сессия жива: выполняет тривиальный
// JavaScript в текущем контексте.
func (b *BrowserExecutor) Ping(ctx context.Context) error {
	sess := b.session()
	if sess == nil || sess.Err() != nil {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(sess, pingTimeout)
	defer cancel()

	var one int
	if err := chromedp.Run(pingCtx, chromedp.Evaluate(`1`, &one)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Reconnect перезапускает браузерную сессию.
func (b *BrowserExecutor) Reconnect(ctx context.Context) error {
	b.teardown()
	if err := b.launch(ctx); err != nil {
		return fmt.Errorf("relaunch browser: %w", err)
	}
	return nil
}

// Execute выполняет сценарий бронирования показа.
//
// Шаги: поиск объекта по адресу → карточка объекта → форма
// бронирования → выбор даты/времени/длительности → подтверждение.
// Ошибка сценария (элемент не найден, слот занят) — логический провал
// бронирования, а не инфраструктурная ошибка.
func (b *BrowserExecutor) Execute(ctx context.Context, booking Booking) (*Outcome, error) {
	sess := b.session()
	if sess == nil || sess.Err() != nil {
		return nil, ErrNotConnected
	}

	b.logger.Info("booking started",
		"request_id", booking.RequestID,
		"address", booking.Address,
		"date", booking.PreferredDate,
		"time", booking.PreferredTime,
	)

	// 1. Поиск объекта по адресу
	if err := b.run(sess, navigateTimeout,
		chromedp.Navigate(b.baseURL+"/search"),
		chromedp.WaitVisible(`input[name="search"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="search"]`, booking.Address, chromedp.ByQuery),
		chromedp.Submit(`input[name="search"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`.property-card a`, chromedp.ByQuery),
		chromedp.Click(`.property-card a`, chromedp.ByQuery),
	); err != nil {
		return b.failure(booking, "property search failed", err)
	}

	// 2. Открываем форму бронирования
	if err := b.run(sess, stepTimeout,
		chromedp.WaitVisible(`button.book-showing`, chromedp.ByQuery),
		chromedp.Click(`button.book-showing`, chromedp.ByQuery),
		chromedp.WaitVisible(`form.showing-form`, chromedp.ByQuery),
	); err != nil {
		return b.failure(booking, "booking form unavailable", err)
	}

	// 3. Заполняем дату/время/длительность
	actions := []chromedp.Action{}
	if booking.PreferredDate != "" {
		actions = append(actions,
			chromedp.SetValue(`form.showing-form input[name="date"]`, booking.PreferredDate, chromedp.ByQuery))
	}
	if booking.PreferredTime != "" {
		actions = append(actions,
			chromedp.SetValue(`form.showing-form select[name="time"]`, booking.PreferredTime, chromedp.ByQuery))
	}
	if booking.DurationMinutes > 0 {
		actions = append(actions,
			chromedp.SetValue(`form.showing-form select[name="duration"]`,
				fmt.Sprintf("%d", booking.DurationMinutes), chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Submit(`form.showing-form`, chromedp.ByQuery))

	if err := b.run(sess, stepTimeout, actions...); err != nil {
		return b.failure(booking, "booking submit failed", err)
	}

	// 4. Читаем подтверждение
	var confirmation string
	if err := b.run(sess, stepTimeout,
		chromedp.WaitVisible(`.booking-confirmation`, chromedp.ByQuery),
		chromedp.Text(`.booking-confirmation .confirmation-id`, &confirmation, chromedp.ByQuery),
	); err != nil {
		return b.failure(booking, "no booking confirmation", err)
	}

	confirmation = strings.TrimSpace(confirmation)
	b.logger.Info("booking completed",
		"request_id", booking.RequestID,
		"booking_id", confirmation,
	)

	return &Outcome{Success: true, BookingID: confirmation}, nil
}

// run выполняет набор chromedp-действий с таймаутом шага.
func (b *BrowserExecutor) run(sess context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(sess, timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// failure конвертирует ошибку сценария в логический Outcome.
// Мёртвая сессия остаётся инфраструктурной ошибкой.
func (b *BrowserExecutor) failure(booking Booking, msg string, err error) (*Outcome, error) {
	if sess := b.session(); sess == nil || sess.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	b.logger.Warn("booking failed",
		"request_id", booking.RequestID,
		"reason", msg,
		"error", err,
	)
	return &Outcome{Success: false, Error: fmt.Sprintf("%s: %v", msg, err)}, nil
}

// RunSweep отменяет устаревшие auto-booked показы через текущую сессию.
// Реализует контракт sweeper.Service.
func (b *BrowserExecutor) RunSweep(ctx context.Context) (cancelled, failed int, err error) {
	if b.stale == nil {
		return 0, 0, ErrSweepUnsupported
	}

	sess := b.session()
	if sess == nil || sess.Err() != nil {
		return 0, 0, ErrNotConnected
	}

	cutoff := time.Now().Add(-b.staleAfter)
	entries, err := b.stale.ListStaleAutoBooked(ctx, cutoff, 100)
	if err != nil {
		return 0, 0, fmt.Errorf("list stale bookings: %w", err)
	}

	for _, entry := range entries {
		if entry.BookingID == "" {
			continue
		}
		if err := b.cancelBooking(sess, entry.BookingID); err != nil {
			failed++
			b.logger.Warn("failed to cancel stale booking",
				"request_id", entry.RequestID,
				"booking_id", entry.BookingID,
				"error", err,
			)
			continue
		}
		cancelled++
	}

	return cancelled, failed, nil
}

// cancelBooking отменяет одну бронь по её идентификатору.
func (b *BrowserExecutor) cancelBooking(sess context.Context, bookingID string) error {
	return b.run(sess, navigateTimeout,
		chromedp.Navigate(fmt.Sprintf("%s/bookings/%s", b.baseURL, bookingID)),
		chromedp.WaitVisible(`button.cancel-booking`, chromedp.ByQuery),
		chromedp.Click(`button.cancel-booking`, chromedp.ByQuery),
		chromedp.WaitVisible(`.cancellation-confirmed`, chromedp.ByQuery),
	)
}

// teardown закрывает текущую сессию.
func (b *BrowserExecutor) teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctxCancel != nil {
		b.ctxCancel()
		b.ctxCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
}

// Close освобождает браузер.
func (b *BrowserExecutor) Close() error {
	b.teardown()
	b.logger.Info("browser session closed")
	return nil
}
