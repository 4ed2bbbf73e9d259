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

// AddressCacheRepo — репозиторий кэша адресов.
type AddressCacheRepo struct {
	pool *pgxpool.Pool
}

// NewAddressCacheRepo создаёт новый AddressCacheRepo.
func NewAddressCacheRepo(pool *pgxpool.Pool) *AddressCacheRepo {
	return &AddressCacheRepo{pool: pool}
}

// Get возвращает адрес объекта из кэша.
func (r *AddressCacheRepo) Get(ctx context.Context, propertyID string) (*domain.AddressCacheEntry, error) {
	query := `
		SELECT property_id, address, resolved_at
		FROM address_cache
		WHERE property_id = $1
	`
	var entry domain.AddressCacheEntry
	err := r.pool.QueryRow(ctx, query, propertyID).Scan(
		&entry.PropertyID,
		&entry.Address,
		&entry.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address cache entry: %w", err)
	}
	return &entry, nil
}

// Put записывает адрес объекта (идемпотентный upsert).
// Уже существующий адрес перезаписывается тем же значением — кэш
// считается авторитетным и не инвалидируется.
func (r *AddressCacheRepo) Put(ctx context.Context, propertyID, address string) error {
	query := `
		INSERT INTO address_cache (property_id, address, resolved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id) DO UPDATE SET address = EXCLUDED.address
	`
	if _, err := r.pool.Exec(ctx, query, propertyID, address, time.Now()); err != nil {
		return fmt.Errorf("upsert address cache entry: %w", err)
	}
	return nil
}
