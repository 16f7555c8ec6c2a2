// Package donor reads donor profiles from the account store. Accounts are
// owned by the identity service; this adapter only reads the fields the
// donation engine needs.
package donor

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemobank/internal/eligibility"
	"hemobank/pkg/requestcontext"
)

const donorTable = "donors"

type donorRow struct {
	ID          string    `db:"id"`
	FullName    string    `db:"full_name"`
	Email       string    `db:"email"`
	BloodGroup  string    `db:"blood_group"`
	DateOfBirth time.Time `db:"date_of_birth"`
	IsActive    bool      `db:"is_active"`
}

// PostgresStore reads donor profiles from the shared donors table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetDonor(ctx context.Context, donorID string) (*eligibility.DonorProfile, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "full_name", "email", "blood_group", "date_of_birth", "is_active").
		From(donorTable).
		Where(sq.Eq{"id": donorID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get donor query: %w", err)
	}

	var row donorRow
	if err := pgxscan.Get(ctx, s.pool, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get donor: %w", err)
	}

	return &eligibility.DonorProfile{
		ID:         row.ID,
		BloodGroup: row.BloodGroup,
		Age:        ageAt(row.DateOfBirth, requestcontext.Now(ctx)),
		IsActive:   row.IsActive,
		Email:      row.Email,
		Name:       row.FullName,
	}, nil
}

func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}
