package audit

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventTable = "audit_events"

var eventColumns = []string{"id", "ts", "actor", "subject", "action", "detail"}

// PostgresStore persists audit events in PostgreSQL. Events ride outside the
// decision transaction on purpose: an audit write failure must not roll back
// a decision, and the action itself is already traceable from the record.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(eventTable).
		Columns(eventColumns...).
		Values(event.ID, event.Timestamp, event.Actor, event.Subject, event.Action, event.Detail).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append event query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(eventColumns...).From(eventTable).
		Where(sq.Eq{"subject": subject}).
		OrderBy("ts asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events query: %w", err)
	}
	events := make([]Event, 0)
	if err := pgxscan.Select(ctx, s.pool, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
