package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/hodl-ledger/internal/repository"
)

// Executor is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repositories serve plain reads and transactional writes.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ repo.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Repositories() repo.Repositories { return NewRepositories(s.pool) }

func NewRepositories(db Executor) repo.Repositories {
	return repo.Repositories{
		Accounts:    &accountsRepo{db},
		Checkpoints: &checkpointsRepo{db},
		Transfers:   &transfersRepo{db},
	}
}

// WithTx runs fn in one serializable transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(NewRepositories(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", repo.ErrNotFound, what)
	}
	return err
}
