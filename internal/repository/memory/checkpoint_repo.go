package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

type CheckpointRepository struct {
	b backend
}

func (r *CheckpointRepository) Get(ctx context.Context, accountID string, bucket int64) (models.Checkpoint, error) {
	c, ok := r.b.checkpoint(models.CheckpointKey{AccountID: accountID, Bucket: bucket})
	if !ok {
		return models.Checkpoint{}, fmt.Errorf("%w: checkpoint %s@%d", repository.ErrNotFound, accountID, bucket)
	}
	return c, nil
}

func (r *CheckpointRepository) Upsert(ctx context.Context, c models.Checkpoint) error {
	r.b.putCheckpoint(c)
	return nil
}

func (r *CheckpointRepository) Floor(ctx context.Context, accountID string, ts int64) (models.Checkpoint, error) {
	buckets := r.b.buckets(accountID)
	i := sort.Search(len(buckets), func(i int) bool { return buckets[i] > ts }) - 1
	if i < 0 {
		return models.Checkpoint{}, fmt.Errorf("%w: no checkpoint for %s at or before %d", repository.ErrNotFound, accountID, ts)
	}
	return r.Get(ctx, accountID, buckets[i])
}

func (r *CheckpointRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Checkpoint, error) {
	buckets := paginate(r.b.buckets(accountID), limit, offset)
	out := make([]models.Checkpoint, 0, len(buckets))
	for _, b := range buckets {
		c, err := r.Get(ctx, accountID, b)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
