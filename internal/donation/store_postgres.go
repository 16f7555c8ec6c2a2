package donation

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

const recordTable = "donation_records"

var recordColumns = []string{
	"id", "donor_id", "blood_group", "units_requested", "donation_center",
	"donation_date", "scheduled_time", "status", "verification_status",
	"risk_score", "admin_notes", "approved_by", "approved_at",
	"created_at", "updated_at",
}

// PostgresStore persists donation records in PostgreSQL.
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

func (s *PostgresStore) db(ctx context.Context) dbtx {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (s *PostgresStore) Create(ctx context.Context, record *DonationRecord) error {
	query, args, err := psql().Insert(recordTable).
		Columns(recordColumns...).
		Values(record.ID, record.DonorID, record.BloodGroup,
			record.UnitsRequested, record.DonationCenter, record.DonationDate,
			record.ScheduledTime, record.Status, record.VerificationStatus,
			record.RiskScore, record.AdminNotes, record.ApprovedBy,
			record.ApprovedAt, record.CreatedAt, record.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert record query: %w", err)
	}

	if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// The partial unique index on open records lost us the race.
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*DonationRecord, error) {
	query, args, err := psql().Select(recordColumns...).From(recordTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get record query: %w", err)
	}

	var record DonationRecord
	if err := pgxscan.Get(ctx, s.db(ctx), &record, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) FindOpenByDonor(ctx context.Context, donorID string) (*DonationRecord, error) {
	query, args, err := psql().Select(recordColumns...).From(recordTable).
		Where(sq.Eq{"donor_id": donorID}).
		Where(sq.Eq{"status": []Status{StatusPendingAdminApproval, StatusScheduled}}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find open record query: %w", err)
	}

	var record DonationRecord
	if err := pgxscan.Get(ctx, s.db(ctx), &record, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) LastApprovedCompletion(ctx context.Context, donorID string) (*time.Time, error) {
	query, args, err := psql().Select("donation_date").From(recordTable).
		Where(sq.Eq{"donor_id": donorID, "status": StatusCompleted}).
		Where(sq.Eq{"verification_status": []VerificationStatus{
			VerificationAdminApproved, VerificationAIVerified,
		}}).
		OrderBy("donation_date desc").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last completion query: %w", err)
	}

	var last time.Time
	if err := s.db(ctx).QueryRow(ctx, query, args...).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last completion: %w", err)
	}
	return &last, nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID string) ([]DonationRecord, error) {
	query, args, err := psql().Select(recordColumns...).From(recordTable).
		Where(sq.Eq{"donor_id": donorID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by donor query: %w", err)
	}

	records := make([]DonationRecord, 0)
	if err := pgxscan.Select(ctx, s.db(ctx), &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records by donor: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]DonationRecord, error) {
	query, args, err := psql().Select(recordColumns...).From(recordTable).
		Where(sq.Eq{"status": status}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by status query: %w", err)
	}

	records := make([]DonationRecord, 0)
	if err := pgxscan.Select(ctx, s.db(ctx), &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records by status: %w", err)
	}
	return records, nil
}

// UpdateDecision writes the decision fields only while the stored row is
// still open. Zero rows affected means either the record is gone or a
// concurrent decision already landed.
func (s *PostgresStore) UpdateDecision(ctx context.Context, record *DonationRecord) error {
	query, args, err := psql().Update(recordTable).
		Set("status", record.Status).
		Set("verification_status", record.VerificationStatus).
		Set("admin_notes", record.AdminNotes).
		Set("approved_by", record.ApprovedBy).
		Set("approved_at", record.ApprovedAt).
		Set("updated_at", record.UpdatedAt).
		Where(sq.Eq{"id": record.ID}).
		Where(sq.Eq{"status": []Status{StatusPendingAdminApproval, StatusScheduled}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update decision query: %w", err)
	}

	res, err := s.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	if res.RowsAffected() == 0 {
		if _, err := s.Get(ctx, record.ID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
