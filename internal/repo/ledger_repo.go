package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Showrunner/internal/domain"
)

// LedgerRepo — репозиторий booking ledger.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

// NewLedgerRepo создаёт новый LedgerRepo.
func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Admit создаёт запись ledger для заявки, если её ещё нет.
// Возвращает true, если запись была создана, и false, если заявка
// уже принималась ранее (идемпотентность — ON CONFLICT DO NOTHING).
func (r *LedgerRepo) Admit(ctx context.Context, requestID, propertyID string) (bool, error) {
	query := `
		INSERT INTO booking_ledger (request_id, property_id, booking_status, auto_booked, admitted_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $4)
		ON CONFLICT (request_id) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		requestID,
		propertyID,
		domain.BookingStatusPending,
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetByID возвращает запись ledger по id заявки.
func (r *LedgerRepo) GetByID(ctx context.Context, requestID string) (*domain.LedgerEntry, error) {
	query := `
		SELECT request_id, property_id, booking_status, auto_booked,
		       booking_id, error, admitted_at, updated_at
		FROM booking_ledger
		WHERE request_id = $1
	`
	return scanEntry(r.pool.QueryRow(ctx, query, requestID))
}

// SetStatus обновляет статус обработки заявки.
// Для failed_* статусов errMsg сохраняется в поле error.
func (r *LedgerRepo) SetStatus(ctx context.Context, requestID string, status domain.BookingStatus, errMsg string) error {
	query := `
		UPDATE booking_ledger
		SET booking_status = $2, error = $3, updated_at = $4
		WHERE request_id = $1
	`
	result, err := r.pool.Exec(ctx, query, requestID, status, nullString(errMsg), time.Now())
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkBooked переводит запись в completed и фиксирует auto_booked
// и идентификатор брони. Единственное место, где пишутся поля
// auto_booked и booking_id.
func (r *LedgerRepo) MarkBooked(ctx context.Context, requestID, bookingID string) error {
	query := `
		UPDATE booking_ledger
		SET booking_status = $2, auto_booked = true, booking_id = $3, error = NULL, updated_at = $4
		WHERE request_id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		requestID,
		domain.BookingStatusCompleted,
		nullString(bookingID),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("mark booked: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleAutoBooked возвращает записи completed с auto_booked=true,
// обновлённые раньше cutoff. Используется cancellation sweep.
func (r *LedgerRepo) ListStaleAutoBooked(ctx context.Context, cutoff time.Time, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT request_id, property_id, booking_status, auto_booked,
		       booking_id, error, admitted_at, updated_at
		FROM booking_ledger
		WHERE booking_status = $1 AND auto_booked = true AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, domain.BookingStatusCompleted, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale auto-booked: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// --- Helpers ---

// scanEntry сканирует одну строку в LedgerEntry.
func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	var bookingID *string
	var errMsg *string

	err := row.Scan(
		&entry.RequestID,
		&entry.PropertyID,
		&entry.BookingStatus,
		&entry.AutoBooked,
		&bookingID,
		&errMsg,
		&entry.AdmittedAt,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	if bookingID != nil {
		entry.BookingID = *bookingID
	}
	if errMsg != nil {
		entry.Error = *errMsg
	}
	return &entry, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
