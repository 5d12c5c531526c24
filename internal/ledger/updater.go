package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

// Updater is the single writer of accounts and checkpoints. It must be fed
// events in non-decreasing timestamp order, one at a time.
type Updater struct {
	p Params
}

func NewUpdater(p Params) *Updater { return &Updater{p: p} }

type Outcome struct {
	Kind               models.TransferKind
	Noop               bool
	CheckpointsCreated int
}

func (u *Updater) Kind(t models.Transfer) models.TransferKind {
	switch {
	case t.From == u.p.Sentinel:
		return models.KindMint
	case t.To == u.p.Sentinel:
		return models.KindBurn
	default:
		return models.KindTransfer
	}
}

// ApplyTransfer moves amount from -> to and folds the balances held until
// t.Timestamp into the checkpoints of from, to and the aggregate account.
// Run it inside Store.WithTx so a failure leaves nothing half-written.
func (u *Updater) ApplyTransfer(ctx context.Context, r repository.Repositories, t models.Transfer) (Outcome, error) {
	out := Outcome{Kind: u.Kind(t)}
	if t.Amount.IsZero() {
		out.Noop = true
		return out, nil
	}

	isMint := t.From == u.p.Sentinel
	isBurn := t.To == u.p.Sentinel
	if isMint && isBurn {
		return out, fmt.Errorf("%w: transfer %s both mints and burns", ErrInvariantViolation, t.ID)
	}
	if t.Amount.IsNegative() || !t.Amount.IsInteger() {
		return out, fmt.Errorf("%w: amount %s is not a non-negative integer", ErrInvariantViolation, t.Amount)
	}

	touched := make(map[string]*models.Account, 3)
	load := func(id string) (*models.Account, error) {
		if a, ok := touched[id]; ok {
			return a, nil
		}
		a, err := r.Accounts.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			a = models.NewAccount(id)
		} else if err != nil {
			return nil, fmt.Errorf("load account %s: %w", id, err)
		}
		touched[id] = &a
		return &a, nil
	}

	var from, to *models.Account
	agg, err := load(u.p.Sentinel)
	if err != nil {
		return out, err
	}
	if !isMint {
		if from, err = load(t.From); err != nil {
			return out, err
		}
	}
	if !isBurn {
		if to, err = load(t.To); err != nil {
			return out, err
		}
	}

	// What was held up to t.Timestamp, before this event moves anything.
	priorAgg := agg.Balance
	var priorFrom, priorTo decimal.Decimal
	if from != nil {
		priorFrom = from.Balance
	}
	if to != nil {
		priorTo = to.Balance
	}

	if !isMint {
		from.Balance = from.Balance.Sub(t.Amount)
		if from.Balance.IsNegative() {
			return out, fmt.Errorf("%w: %s balance %s cannot cover %s", ErrInvariantViolation, from.ID, priorFrom, t.Amount)
		}
	}
	if !isBurn {
		to.Balance = to.Balance.Add(t.Amount)
	}
	switch {
	case isMint:
		agg.Balance = agg.Balance.Add(t.Amount)
	case isBurn:
		agg.Balance = agg.Balance.Sub(t.Amount)
		if agg.Balance.IsNegative() {
			return out, fmt.Errorf("%w: burn of %s exceeds supply %s", ErrInvariantViolation, t.Amount, priorAgg)
		}
	}

	step := func(a *models.Account, prior decimal.Decimal) error {
		created, err := u.updateCheckpoint(ctx, r.Checkpoints, a, t.Timestamp, prior)
		if err != nil {
			return err
		}
		if created {
			out.CheckpointsCreated++
		}
		return nil
	}
	if !isMint {
		if err := step(from, priorFrom); err != nil {
			return out, err
		}
	}
	if !isBurn {
		if err := step(to, priorTo); err != nil {
			return out, err
		}
	}
	if err := step(agg, priorAgg); err != nil {
		return out, err
	}

	for _, a := range touched {
		if err := r.Accounts.Upsert(ctx, *a); err != nil {
			return out, fmt.Errorf("save account %s: %w", a.ID, err)
		}
	}
	return out, nil
}

// updateCheckpoint folds prior × (ts - last event) into the checkpoint of
// ts's bucket, creating and linking it when the bucket is new. It reports
// whether a checkpoint was created.
func (u *Updater) updateCheckpoint(ctx context.Context, cps repository.Checkpoints, a *models.Account, ts int64, prior decimal.Decimal) (bool, error) {
	bucket := u.p.BucketOf(ts)

	cp, err := cps.Get(ctx, a.ID, bucket)
	switch {
	case err == nil:
		if ts < cp.LastEventTimestamp {
			return false, outOfOrder(a.ID, ts, cp.LastEventTimestamp)
		}
		cp.CumulativeMetric = cp.CumulativeMetric.Add(held(prior, ts-cp.LastEventTimestamp))
		cp.LastEventTimestamp = ts
		cp.LastBalance = a.Balance
		return false, cps.Upsert(ctx, cp)
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	cp = models.Checkpoint{
		AccountID:          a.ID,
		Bucket:             bucket,
		LastEventTimestamp: ts,
		LastBalance:        a.Balance,
		CumulativeMetric:   decimal.Zero,
	}
	if a.HasCheckpoints() {
		prev, err := cps.Get(ctx, a.ID, a.LastCheckpointBucket)
		if errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("%w: account %s lost its checkpoint at bucket %d", ErrInvariantViolation, a.ID, a.LastCheckpointBucket)
		}
		if err != nil {
			return false, err
		}
		if ts < prev.LastEventTimestamp {
			return false, outOfOrder(a.ID, ts, prev.LastEventTimestamp)
		}
		cp.CumulativeMetric = prev.CumulativeMetric.Add(held(prior, ts-prev.LastEventTimestamp))
		prevBucket, nextBucket := prev.Bucket, bucket
		cp.PrevBucket = &prevBucket
		prev.NextBucket = &nextBucket
		if err := cps.Upsert(ctx, prev); err != nil {
			return false, err
		}
	}
	if err := cps.Upsert(ctx, cp); err != nil {
		return false, err
	}
	a.CheckpointCount++
	a.LastCheckpointBucket = bucket
	return true, nil
}

func held(balance decimal.Decimal, seconds int64) decimal.Decimal {
	return balance.Mul(decimal.NewFromInt(seconds))
}

func outOfOrder(accountID string, ts, last int64) error {
	return fmt.Errorf("%w: %w: %s event at %d precedes stored event at %d", ErrInvariantViolation, ErrOutOfOrder, accountID, ts, last)
}
