package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
	"github.com/baharkarakas/hodl-ledger/internal/repository/memory"
)

const (
	alice = "0xa11ce00000000000000000000000000000000001"
	bob   = "0xb0b0000000000000000000000000000000000002"
	carol = "0xca401000000000000000000000000000000000003"
	zero  = ledger.DefaultSentinel
)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	updater *ledger.Updater
	engine  *ledger.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := ledger.DefaultParams()
	require.NoError(t, p.Validate())
	s := memory.NewStore()
	return &fixture{
		ctx:     context.Background(),
		store:   s,
		updater: ledger.NewUpdater(p),
		engine:  ledger.NewEngine(s.Repositories(), p),
	}
}

func (f *fixture) apply(from, to string, amount, ts int64) (ledger.Outcome, error) {
	var out ledger.Outcome
	err := f.store.WithTx(f.ctx, func(r repository.Repositories) error {
		var err error
		out, err = f.updater.ApplyTransfer(f.ctx, r, models.Transfer{
			ID:        "t",
			From:      from,
			To:        to,
			Amount:    decimal.NewFromInt(amount),
			Timestamp: ts,
		})
		return err
	})
	return out, err
}

func (f *fixture) mustApply(t *testing.T, from, to string, amount, ts int64) ledger.Outcome {
	t.Helper()
	out, err := f.apply(from, to, amount, ts)
	require.NoError(t, err)
	return out
}

func (f *fixture) account(t *testing.T, id string) models.Account {
	t.Helper()
	a, err := f.store.Repositories().Accounts.Get(f.ctx, id)
	require.NoError(t, err)
	return a
}

func (f *fixture) checkpoint(t *testing.T, id string, bucket int64) models.Checkpoint {
	t.Helper()
	c, err := f.store.Repositories().Checkpoints.Get(f.ctx, id, bucket)
	require.NoError(t, err)
	return c
}

func (f *fixture) metric(t *testing.T, id string, ts int64) decimal.Decimal {
	t.Helper()
	m, err := f.engine.MetricAt(f.ctx, id, ts)
	require.NoError(t, err)
	return m
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

func decimalOf(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
