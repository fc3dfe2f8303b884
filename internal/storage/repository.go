package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested day is not stored.
	ErrNotFound = errors.New("storage: price day not found")
)

const (
	upsertPriceDaySQL = `INSERT INTO price_days (
        day,
        source_entity,
        currency,
        hourly,
        levels,
        average_price,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,now()
    )
    ON CONFLICT (day, source_entity) DO UPDATE
    SET
        currency      = EXCLUDED.currency,
        hourly        = EXCLUDED.hourly,
        levels        = EXCLUDED.levels,
        average_price = EXCLUDED.average_price,
        updated_at    = EXCLUDED.updated_at;`

	selectPriceDayColumns = `SELECT
        day,
        source_entity,
        currency,
        hourly,
        levels,
        average_price::text,
        updated_at
    FROM price_days`

	getPriceDaySQL = selectPriceDayColumns + `
    WHERE day = $1
      AND source_entity = $2;`

	listRecentDaysSQL = selectPriceDayColumns + `
    ORDER BY day DESC, source_entity
    LIMIT $1;`

	deleteDaysBeforeSQL = `DELETE FROM price_days WHERE day < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceDayStore defines operations for price day persistence.
type PriceDayStore interface {
	UpsertPriceDay(ctx context.Context, day PriceDay) error
	GetPriceDay(ctx context.Context, day time.Time, sourceEntity string) (PriceDay, error)
	ListRecentDays(ctx context.Context, limit int) ([]PriceDay, error)
	DeleteDaysBefore(ctx context.Context, before time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store persists computed price days in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Releasing the connection drops the session lock if this fails.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertPriceDay persists or replaces the series of one day.
func (s *Store) UpsertPriceDay(ctx context.Context, day PriceDay) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	hourly, levels, err := encodePriceDay(day)
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertPriceDaySQL,
		day.Day,
		day.SourceEntity,
		day.Currency,
		hourly,
		levels,
		day.AveragePrice.String(),
	)
	if execErr != nil {
		return fmt.Errorf("upsert price day: %w", execErr)
	}
	return nil
}

// GetPriceDay loads a single day.
func (s *Store) GetPriceDay(ctx context.Context, day time.Time, sourceEntity string) (PriceDay, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceDay{}, err
	}

	rows, queryErr := pool.Query(ctx, getPriceDaySQL, day, sourceEntity)
	if queryErr != nil {
		return PriceDay{}, fmt.Errorf("get price day: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return PriceDay{}, rows.Err()
		}
		return PriceDay{}, fmt.Errorf("%w: %s %s", ErrNotFound, day.Format(time.DateOnly), sourceEntity)
	}
	return scanPriceDay(rows)
}

// ListRecentDays lists stored days, newest first.
func (s *Store) ListRecentDays(ctx context.Context, limit int) ([]PriceDay, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDaysSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent days: %w", queryErr)
	}
	defer rows.Close()

	days := make([]PriceDay, 0, limit)
	for rows.Next() {
		day, scanErr := scanPriceDay(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		days = append(days, day)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return days, nil
}

// DeleteDaysBefore prunes days older than before.
func (s *Store) DeleteDaysBefore(ctx context.Context, before time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteDaysBeforeSQL, before); execErr != nil {
		return fmt.Errorf("delete days before: %w", execErr)
	}
	return nil
}

func encodePriceDay(day PriceDay) ([]byte, []byte, error) {
	hourly, err := json.Marshal(day.Hourly)
	if err != nil {
		return nil, nil, fmt.Errorf("encode hourly: %w", err)
	}
	levels, err := json.Marshal(day.Levels)
	if err != nil {
		return nil, nil, fmt.Errorf("encode levels: %w", err)
	}
	return hourly, levels, nil
}

func decodePriceDay(day *PriceDay, hourly, levels []byte, average string) error {
	if err := json.Unmarshal(hourly, &day.Hourly); err != nil {
		return fmt.Errorf("parse hourly: %w", err)
	}
	if err := json.Unmarshal(levels, &day.Levels); err != nil {
		return fmt.Errorf("parse levels: %w", err)
	}
	avg, err := decimal.NewFromString(average)
	if err != nil {
		return fmt.Errorf("parse average price: %w", err)
	}
	day.AveragePrice = avg
	return nil
}

func scanPriceDay(rows pgx.Rows) (PriceDay, error) {
	var (
		day        PriceDay
		hourlyRaw  []byte
		levelsRaw  []byte
		averageStr string
	)

	if err := rows.Scan(
		&day.Day,
		&day.SourceEntity,
		&day.Currency,
		&hourlyRaw,
		&levelsRaw,
		&averageStr,
		&day.UpdatedAt,
	); err != nil {
		return PriceDay{}, err
	}

	if err := decodePriceDay(&day, hourlyRaw, levelsRaw, averageStr); err != nil {
		return PriceDay{}, err
	}
	return day, nil
}
