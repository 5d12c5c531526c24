package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/hodl-ledger/internal/models"
)

var ErrNotFound = errors.New("not found")

type Accounts interface {
	Get(ctx context.Context, id string) (models.Account, error)
	Upsert(ctx context.Context, a models.Account) error
	// List orders by balance, largest first.
	List(ctx context.Context, limit, offset int) ([]models.Account, error)
}

type Checkpoints interface {
	Get(ctx context.Context, accountID string, bucket int64) (models.Checkpoint, error)
	Upsert(ctx context.Context, c models.Checkpoint) error
	// Floor returns the latest checkpoint of the account whose bucket is <= ts.
	Floor(ctx context.Context, accountID string, ts int64) (models.Checkpoint, error)
	// ListByAccount returns checkpoints in chronological order.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Checkpoint, error)
}

type Transfers interface {
	Get(ctx context.Context, id string) (models.Transfer, error)
	Save(ctx context.Context, t models.Transfer) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transfer, error)
	// FailPending marks every pending transfer failed with reason and
	// reports how many it changed.
	FailPending(ctx context.Context, reason string) (int, error)
}

type Repositories struct {
	Accounts    Accounts
	Checkpoints Checkpoints
	Transfers   Transfers
}

// Store hands out repositories. Everything written inside WithTx commits
// together or not at all.
type Store interface {
	Repositories() Repositories
	WithTx(ctx context.Context, fn func(Repositories) error) error
}

// PrevOf resolves the checkpoint linked as c's predecessor. ok is false when
// c is the first checkpoint of its chain.
func PrevOf(ctx context.Context, r Checkpoints, c models.Checkpoint) (models.Checkpoint, bool, error) {
	if c.PrevBucket == nil {
		return models.Checkpoint{}, false, nil
	}
	return linked(ctx, r, c.AccountID, *c.PrevBucket)
}

// NextOf resolves the checkpoint linked as c's successor.
func NextOf(ctx context.Context, r Checkpoints, c models.Checkpoint) (models.Checkpoint, bool, error) {
	if c.NextBucket == nil {
		return models.Checkpoint{}, false, nil
	}
	return linked(ctx, r, c.AccountID, *c.NextBucket)
}

func linked(ctx context.Context, r Checkpoints, accountID string, bucket int64) (models.Checkpoint, bool, error) {
	cp, err := r.Get(ctx, accountID, bucket)
	if err != nil {
		return models.Checkpoint{}, false, fmt.Errorf("linked checkpoint %s@%d: %w", accountID, bucket, err)
	}
	return cp, true, nil
}
