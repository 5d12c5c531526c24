package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

func TestApplyTransfer_MintCreatesFirstCheckpoint(t *testing.T) {
	f := newFixture(t)

	out := f.mustApply(t, zero, alice, 1000, 1000)
	assert.Equal(t, models.KindMint, out.Kind)
	assert.Equal(t, 2, out.CheckpointsCreated)

	a := f.account(t, alice)
	requireDecimal(t, 1000, a.Balance)
	assert.EqualValues(t, 1, a.CheckpointCount)
	assert.EqualValues(t, 0, a.LastCheckpointBucket)

	cp := f.checkpoint(t, alice, 0)
	requireDecimal(t, 0, cp.CumulativeMetric)
	requireDecimal(t, 1000, cp.LastBalance)
	assert.EqualValues(t, 1000, cp.LastEventTimestamp)
	assert.Nil(t, cp.PrevBucket)
	assert.Nil(t, cp.NextBucket)

	requireDecimal(t, 1000, f.account(t, zero).Balance)
}

func TestApplyTransfer_SameBucketAccumulatesPriorBalance(t *testing.T) {
	f := newFixture(t)

	f.mustApply(t, zero, alice, 2000, 1000)
	out := f.mustApply(t, alice, zero, 1000, 2000)
	assert.Equal(t, models.KindBurn, out.Kind)
	assert.Zero(t, out.CheckpointsCreated)

	requireDecimal(t, 1000, f.account(t, alice).Balance)
	requireDecimal(t, 2_000_000, f.checkpoint(t, alice, 0).CumulativeMetric)
	requireDecimal(t, 2_000_000, f.checkpoint(t, zero, 0).CumulativeMetric)
	requireDecimal(t, 1000, f.checkpoint(t, zero, 0).LastBalance)
	requireDecimal(t, 1000, f.account(t, zero).Balance)
}

func TestApplyTransfer_ZeroAmountTouchesNothing(t *testing.T) {
	f := newFixture(t)

	out := f.mustApply(t, alice, bob, 0, 500)
	assert.True(t, out.Noop)

	repos := f.store.Repositories()
	accts, err := repos.Accounts.List(f.ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, accts)
	cps, err := repos.Checkpoints.ListByAccount(f.ctx, zero, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, cps)
}

func TestApplyTransfer_ZeroAmountLeavesBalances(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, zero, alice, 10, 0)
	before := f.checkpoint(t, alice, 0)

	f.mustApply(t, alice, bob, 0, 100)

	requireDecimal(t, 10, f.account(t, alice).Balance)
	assert.Equal(t, before, f.checkpoint(t, alice, 0))
	_, err := f.store.Repositories().Accounts.Get(f.ctx, bob)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplyTransfer_MintAndBurnAtOnceFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.apply(zero, zero, 5, 10)
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)

	_, err = f.store.Repositories().Accounts.Get(f.ctx, zero)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplyTransfer_OverdraftRollsBack(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, zero, alice, 100, 10)

	_, err := f.apply(alice, bob, 101, 20)
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)

	requireDecimal(t, 100, f.account(t, alice).Balance)
	assert.EqualValues(t, 10, f.checkpoint(t, alice, 0).LastEventTimestamp)
	_, err = f.store.Repositories().Accounts.Get(f.ctx, bob)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplyTransfer_BurnBeyondSupplyFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Repositories().Accounts.Upsert(f.ctx, models.Account{ID: alice, Balance: decimalOf(50)}))

	_, err := f.apply(alice, zero, 50, 10)
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)
}

func TestApplyTransfer_OutOfOrderEventFails(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, zero, alice, 100, 5000)

	_, err := f.apply(alice, bob, 10, 4000)
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)
	assert.ErrorIs(t, err, ledger.ErrOutOfOrder)

	_, err = f.apply(alice, bob, 10, 100)
	assert.ErrorIs(t, err, ledger.ErrOutOfOrder)
}

func TestApplyTransfer_LinksCheckpointChain(t *testing.T) {
	f := newFixture(t)

	f.mustApply(t, zero, alice, 1000, 100)
	f.mustApply(t, alice, bob, 400, 4000)
	f.mustApply(t, alice, bob, 100, 8000)

	a := f.account(t, alice)
	assert.EqualValues(t, 3, a.CheckpointCount)
	assert.EqualValues(t, 7200, a.LastCheckpointBucket)
	requireDecimal(t, 500, a.Balance)

	first := f.checkpoint(t, alice, 0)
	mid := f.checkpoint(t, alice, 3600)
	last := f.checkpoint(t, alice, 7200)

	require.NotNil(t, first.NextBucket)
	assert.EqualValues(t, 3600, *first.NextBucket)
	require.NotNil(t, mid.PrevBucket)
	assert.EqualValues(t, 0, *mid.PrevBucket)
	require.NotNil(t, mid.NextBucket)
	assert.EqualValues(t, 7200, *mid.NextBucket)
	assert.Nil(t, last.NextBucket)

	// 1000 held from 100 to 4000, then 600 from 4000 to 8000.
	requireDecimal(t, 3_900_000, mid.CumulativeMetric)
	requireDecimal(t, 3_900_000+2_400_000, last.CumulativeMetric)

	next, ok, err := repository.NextOf(f.ctx, f.store.Repositories().Checkpoints, first)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mid, next)

	prev, ok, err := repository.PrevOf(f.ctx, f.store.Repositories().Checkpoints, first)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, prev.AccountID)

	b := f.account(t, bob)
	assert.EqualValues(t, 2, b.CheckpointCount)
	requireDecimal(t, 400*4000, f.checkpoint(t, bob, 7200).CumulativeMetric)
}

func TestApplyTransfer_SelfTransferKeepsBalance(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, zero, alice, 300, 0)

	out := f.mustApply(t, alice, alice, 200, 1800)
	assert.Equal(t, models.KindTransfer, out.Kind)

	a := f.account(t, alice)
	requireDecimal(t, 300, a.Balance)
	assert.EqualValues(t, 1, a.CheckpointCount)
	cp := f.checkpoint(t, alice, 0)
	requireDecimal(t, 300*1800, cp.CumulativeMetric)
	requireDecimal(t, 300, cp.LastBalance)
}

func TestApplyTransfer_MissingPrevCheckpointIsCorruption(t *testing.T) {
	f := newFixture(t)
	repos := f.store.Repositories()
	require.NoError(t, repos.Accounts.Upsert(f.ctx, models.Account{
		ID:                   alice,
		Balance:              decimalOf(10),
		CheckpointCount:      1,
		LastCheckpointBucket: 0,
	}))
	require.NoError(t, repos.Accounts.Upsert(f.ctx, models.Account{ID: zero, Balance: decimalOf(10)}))

	_, err := f.apply(alice, bob, 1, 7200)
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)
}

func TestParams_BucketOf(t *testing.T) {
	p := ledger.DefaultParams()
	assert.EqualValues(t, 0, p.BucketOf(0))
	assert.EqualValues(t, 0, p.BucketOf(3599))
	assert.EqualValues(t, 3600, p.BucketOf(3600))
	assert.EqualValues(t, -3600, p.BucketOf(-1))
	assert.True(t, p.Aligned(7200))
	assert.False(t, p.Aligned(7201))

	assert.Error(t, ledger.Params{BucketSize: 0, Sentinel: zero}.Validate())
	assert.Error(t, ledger.Params{BucketSize: 60}.Validate())
	assert.Error(t, ledger.Params{BucketSize: 60, Sentinel: zero, RatioPrecision: -1}.Validate())
}
