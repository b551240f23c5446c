package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Repos returns repositories bound to the pool.
func (s *PostgresStore) Repos() Repositories {
	return NewRepositories(s.pool)
}

// WithinTx runs fn inside a pgx transaction, committing when fn returns nil.
// Deadlocks and serialization failures surface as ErrVersionConflict.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return txError(pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	}))
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func txError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrVersionConflict, pgErr.Message)
		}
	}
	return err
}

// NewRepositories binds every Postgres repository to q.
func NewRepositories(q Querier) Repositories {
	return Repositories{
		Incidents: NewIncidentRepository(q),
		Timeline:  NewTimelineRepository(q),
		Audit:     NewAuditRepository(q),
		Comments:  NewCommentRepository(q),
		Staff:     NewStaffRepository(q),
		Teams:     NewTeamRepository(q),
		Tasks:     NewWorkflowTaskRepository(q),
		Policies:  NewSLAPolicyRepository(q),
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
