package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/platform/tx"
)

const batchTable = "inventory_batches"

var batchColumns = []string{
	"id", "code", "blood_group", "units_available", "donation_date",
	"expiry_date", "location", "source_donation_id", "created_at", "updated_at",
}

// PostgresStore persists inventory batches in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the ambient transaction when one is in flight, otherwise the
// pool, so batch inserts can share the approval transaction.
func (s *PostgresStore) db(ctx context.Context) dbtx {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (s *PostgresStore) Insert(ctx context.Context, batch *Batch) error {
	query, args, err := psql().Insert(batchTable).
		Columns(batchColumns...).
		Values(batch.ID, batch.Code, batch.BloodGroup, batch.UnitsAvailable,
			batch.DonationDate, batch.ExpiryDate, batch.Location,
			batch.SourceDonationID, batch.CreatedAt, batch.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert batch query: %w", err)
	}

	if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Batch, error) {
	query, args, err := psql().Select(batchColumns...).From(batchTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get batch query: %w", err)
	}

	var batch Batch
	if err := pgxscan.Get(ctx, s.db(ctx), &batch, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

func (s *PostgresStore) List(ctx context.Context, group BloodGroup) ([]Batch, error) {
	builder := psql().Select(batchColumns...).From(batchTable).
		OrderBy("expiry_date asc", "code asc")
	if group != "" {
		builder = builder.Where(sq.Eq{"blood_group": group})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list batches query: %w", err)
	}

	batches := make([]Batch, 0)
	if err := pgxscan.Select(ctx, s.db(ctx), &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

func (s *PostgresStore) ListUsable(ctx context.Context, group BloodGroup, now time.Time) ([]Batch, error) {
	query, args, err := psql().Select(batchColumns...).From(batchTable).
		Where(sq.Eq{"blood_group": group}).
		Where(sq.Gt{"units_available": 0}).
		Where(sq.GtOrEq{"expiry_date": now}).
		OrderBy("expiry_date asc", "code asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list usable batches query: %w", err)
	}

	batches := make([]Batch, 0)
	if err := pgxscan.Select(ctx, s.db(ctx), &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list usable batches: %w", err)
	}
	return batches, nil
}

// DecrementUnits subtracts atomically at the datastore layer; the guard in
// the WHERE clause prevents lost updates and negative balances under
// concurrent consumption.
func (s *PostgresStore) DecrementUnits(ctx context.Context, id string, units int, now time.Time) error {
	query, args, err := psql().Update(batchTable).
		Set("units_available", sq.Expr("units_available - ?", units)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Where(sq.GtOrEq{"units_available": units}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build decrement query: %w", err)
	}

	res, err := s.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("decrement batch units: %w", err)
	}
	if res.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInsufficientUnits
	}
	return nil
}

func (s *PostgresStore) CountForGroupAndDate(ctx context.Context, group BloodGroup, date time.Time) (int, error) {
	query, args, err := psql().Select("count(*)").From(batchTable).
		Where(sq.Eq{"blood_group": group}).
		Where(sq.Expr("donation_date::date = ?::date", date)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count batches query: %w", err)
	}

	var count int
	if err := s.db(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return count, nil
}
