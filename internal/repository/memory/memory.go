package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

var (
	_ repository.Store       = (*Store)(nil)
	_ repository.Accounts    = (*AccountRepository)(nil)
	_ repository.Checkpoints = (*CheckpointRepository)(nil)
	_ repository.Transfers   = (*TransferRepository)(nil)
)

// backend is the storage surface the repositories are written against. The
// store itself serves non-transactional reads and writes; a txn stages
// writes until commit.
type backend interface {
	account(id string) (models.Account, bool)
	putAccount(a models.Account)
	accounts() []models.Account

	checkpoint(k models.CheckpointKey) (models.Checkpoint, bool)
	putCheckpoint(c models.Checkpoint)
	// buckets returns the account's checkpoint buckets, ascending.
	buckets(accountID string) []int64

	transfer(id string) (models.Transfer, bool)
	putTransfer(t models.Transfer)
	transfers() []models.Transfer
}

type state struct {
	accts map[string]models.Account
	cps   map[models.CheckpointKey]models.Checkpoint
	index map[string][]int64
	xfers map[string]models.Transfer
}

func newState() state {
	return state{
		accts: make(map[string]models.Account),
		cps:   make(map[models.CheckpointKey]models.Checkpoint),
		index: make(map[string][]int64),
		xfers: make(map[string]models.Transfer),
	}
}

func (s *state) putCheckpoint(c models.Checkpoint) {
	k := c.Key()
	if _, exists := s.cps[k]; !exists {
		s.index[c.AccountID] = insertSorted(s.index[c.AccountID], c.Bucket)
	}
	s.cps[k] = c
}

func insertSorted(b []int64, v int64) []int64 {
	i := sort.Search(len(b), func(i int) bool { return b[i] >= v })
	if i < len(b) && b[i] == v {
		return b
	}
	b = append(b, 0)
	copy(b[i+1:], b[i:])
	b[i] = v
	return b
}

// Store is an in-process repository.Store. Reads may run concurrently;
// WithTx holds the write lock for the whole unit of work.
type Store struct {
	mu sync.RWMutex
	st state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Repositories() repository.Repositories {
	return repos(s)
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxn(&s.st)
	if err := fn(repos(tx)); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func repos(b backend) repository.Repositories {
	return repository.Repositories{
		Accounts:    &AccountRepository{b: b},
		Checkpoints: &CheckpointRepository{b: b},
		Transfers:   &TransferRepository{b: b},
	}
}

func (s *Store) account(id string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.st.accts[id]
	return a, ok
}

func (s *Store) putAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.accts[a.ID] = a
}

func (s *Store) accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.st.accts))
	for _, a := range s.st.accts {
		out = append(out, a)
	}
	return out
}

func (s *Store) checkpoint(k models.CheckpointKey) (models.Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.cps[k]
	return c, ok
}

func (s *Store) putCheckpoint(c models.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.putCheckpoint(c)
}

func (s *Store) buckets(accountID string) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.st.index[accountID]...)
}

func (s *Store) transfer(id string) (models.Transfer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.st.xfers[id]
	return t, ok
}

func (s *Store) putTransfer(t models.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.xfers[t.ID] = t
}

func (s *Store) transfers() []models.Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transfer, 0, len(s.st.xfers))
	for _, t := range s.st.xfers {
		out = append(out, t)
	}
	return out
}

// txn stages writes over the committed state. The caller holds the store's
// write lock for the txn's lifetime.
type txn struct {
	base   *state
	staged state
}

func newTxn(base *state) *txn {
	return &txn{base: base, staged: newState()}
}

func (t *txn) commit() {
	for _, a := range t.staged.accts {
		t.base.accts[a.ID] = a
	}
	for _, c := range t.staged.cps {
		t.base.putCheckpoint(c)
	}
	for _, x := range t.staged.xfers {
		t.base.xfers[x.ID] = x
	}
}

func (t *txn) account(id string) (models.Account, bool) {
	if a, ok := t.staged.accts[id]; ok {
		return a, true
	}
	a, ok := t.base.accts[id]
	return a, ok
}

func (t *txn) putAccount(a models.Account) { t.staged.accts[a.ID] = a }

func (t *txn) accounts() []models.Account {
	out := make([]models.Account, 0, len(t.base.accts)+len(t.staged.accts))
	for id, a := range t.base.accts {
		if _, shadowed := t.staged.accts[id]; !shadowed {
			out = append(out, a)
		}
	}
	for _, a := range t.staged.accts {
		out = append(out, a)
	}
	return out
}

func (t *txn) checkpoint(k models.CheckpointKey) (models.Checkpoint, bool) {
	if c, ok := t.staged.cps[k]; ok {
		return c, true
	}
	c, ok := t.base.cps[k]
	return c, ok
}

func (t *txn) putCheckpoint(c models.Checkpoint) { t.staged.putCheckpoint(c) }

func (t *txn) buckets(accountID string) []int64 {
	out := append([]int64(nil), t.base.index[accountID]...)
	for _, b := range t.staged.index[accountID] {
		out = insertSorted(out, b)
	}
	return out
}

func (t *txn) transfer(id string) (models.Transfer, bool) {
	if x, ok := t.staged.xfers[id]; ok {
		return x, true
	}
	x, ok := t.base.xfers[id]
	return x, ok
}

func (t *txn) putTransfer(x models.Transfer) { t.staged.xfers[x.ID] = x }

func (t *txn) transfers() []models.Transfer {
	out := make([]models.Transfer, 0, len(t.base.xfers)+len(t.staged.xfers))
	for id, x := range t.base.xfers {
		if _, shadowed := t.staged.xfers[id]; !shadowed {
			out = append(out, x)
		}
	}
	for _, x := range t.staged.xfers {
		out = append(out, x)
	}
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
