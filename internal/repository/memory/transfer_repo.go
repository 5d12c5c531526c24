package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

type TransferRepository struct {
	b backend
}

func (r *TransferRepository) Get(ctx context.Context, id string) (models.Transfer, error) {
	t, ok := r.b.transfer(id)
	if !ok {
		return models.Transfer{}, fmt.Errorf("%w: transfer %s", repository.ErrNotFound, id)
	}
	return t, nil
}

func (r *TransferRepository) Save(ctx context.Context, t models.Transfer) error {
	if prev, ok := r.b.transfer(t.ID); ok {
		t.CreatedAt = prev.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.b.putTransfer(t)
	return nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transfer, error) {
	var out []models.Transfer
	for _, t := range r.b.transfers() {
		if t.From == accountID || t.To == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), nil
}

func (r *TransferRepository) FailPending(ctx context.Context, reason string) (int, error) {
	n := 0
	for _, t := range r.b.transfers() {
		if t.Status != models.TransferPending {
			continue
		}
		t.Status = models.TransferFailed
		t.Reason = reason
		r.b.putTransfer(t)
		n++
	}
	return n, nil
}
