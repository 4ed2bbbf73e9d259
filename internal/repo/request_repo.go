package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Showrunner/internal/domain"
)

// RequestRepo — чтение заявок на показ.
//
// Таблицу showing_requests пишет внешняя система (dashboard);
// оркестратор только читает её при catch-up replay на старте.
type RequestRepo struct {
	pool *pgxpool.Pool
}

// NewRequestRepo создаёт новый RequestRepo.
func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// ListUnprocessed возвращает заявки в статусах pending/scheduled/rescheduled,
// которые ещё не доведены до терминального статуса в ledger: либо записи
// в ledger нет вовсе, либо она осталась в pending/retry_pending после
// прерванной обработки. Порядок — по времени создания.
func (r *RequestRepo) ListUnprocessed(ctx context.Context, limit int) ([]domain.ShowingRequest, error) {
	query := `
		SELECT sr.id, sr.property_id, COALESCE(sr.user_id, ''), sr.status,
		       COALESCE(sr.scheduled_date, ''), COALESCE(sr.scheduled_time, ''),
		       COALESCE(sr.group_name, ''), sr.created_at
		FROM showing_requests sr
		LEFT JOIN booking_ledger bl ON bl.request_id = sr.id
		WHERE sr.status = ANY($1)
		  AND (bl.request_id IS NULL OR bl.booking_status = ANY($2))
		ORDER BY sr.created_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, domain.ReplayableStatuses, domain.ActiveBookingStatuses, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.ShowingRequest
	for rows.Next() {
		var req domain.ShowingRequest
		err := rows.Scan(
			&req.ID,
			&req.PropertyID,
			&req.UserID,
			&req.Status,
			&req.ScheduledDate,
			&req.ScheduledTime,
			&req.GroupName,
			&req.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan showing request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
