package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/repository"
)

// Engine answers HODL score questions from stored checkpoints. It never
// writes and is safe for concurrent use when the store is.
type Engine struct {
	accounts    repository.Accounts
	checkpoints repository.Checkpoints
	p           Params
}

func NewEngine(r repository.Repositories, p Params) *Engine {
	return &Engine{accounts: r.Accounts, checkpoints: r.Checkpoints, p: p}
}

// MetricAt returns the account's cumulative balance×time up to ts, which
// must sit on a bucket boundary. Between checkpoints the score is
// extrapolated from the nearest preceding one with the balance held since;
// it is never interpolated, as each checkpoint folds several events.
func (e *Engine) MetricAt(ctx context.Context, accountID string, ts int64) (decimal.Decimal, error) {
	if !e.p.Aligned(ts) {
		return decimal.Zero, fmt.Errorf("%w: %d is not a multiple of %d", ErrAlignment, ts, e.p.BucketSize)
	}

	acct, err := e.accounts.Get(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !acct.HasCheckpoints() {
		return decimal.Zero, nil
	}

	cp, err := e.checkpoints.Floor(ctx, accountID, ts)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	// The floor bucket can start exactly at ts and hold events after it.
	for cp.LastEventTimestamp > ts {
		prev, ok, err := repository.PrevOf(ctx, e.checkpoints, cp)
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			return decimal.Zero, nil
		}
		cp = prev
	}
	return cp.MetricAt(ts), nil
}

// Ratio is the account's share of the aggregate score accrued in [start, end].
func (e *Engine) Ratio(ctx context.Context, accountID string, start, end int64) (decimal.Decimal, error) {
	return e.RatioBetween(ctx, accountID, e.p.Sentinel, start, end)
}

// RatioBetween divides the score numeratorID accrued in [start, end] by the
// score denominatorID accrued in the same period.
func (e *Engine) RatioBetween(ctx context.Context, numeratorID, denominatorID string, start, end int64) (decimal.Decimal, error) {
	if end <= start {
		return decimal.Zero, fmt.Errorf("%w: [%d, %d]", ErrRange, start, end)
	}
	num, err := e.delta(ctx, numeratorID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	den, err := e.delta(ctx, denominatorID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	if den.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s accrued nothing in [%d, %d]", ErrDivisionByZero, denominatorID, start, end)
	}
	return QuoHalfEven(num, den, e.p.RatioPrecision), nil
}

func (e *Engine) delta(ctx context.Context, accountID string, start, end int64) (decimal.Decimal, error) {
	hi, err := e.MetricAt(ctx, accountID, end)
	if err != nil {
		return decimal.Zero, err
	}
	lo, err := e.MetricAt(ctx, accountID, start)
	if err != nil {
		return decimal.Zero, err
	}
	return hi.Sub(lo), nil
}
