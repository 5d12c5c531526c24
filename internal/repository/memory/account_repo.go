package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

type AccountRepository struct {
	b backend
}

func (r *AccountRepository) Get(ctx context.Context, id string) (models.Account, error) {
	a, ok := r.b.account(id)
	if !ok {
		return models.Account{}, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return a, nil
}

func (r *AccountRepository) Upsert(ctx context.Context, a models.Account) error {
	a.UpdatedAt = time.Now()
	r.b.putAccount(a)
	return nil
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	all := r.b.accounts()
	sort.Slice(all, func(i, j int) bool {
		if c := all[i].Balance.Cmp(all[j].Balance); c != 0 {
			return c > 0
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, limit, offset), nil
}
