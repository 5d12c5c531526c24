package models

import "github.com/shopspring/decimal"

// Checkpoint is the per-account, per-bucket summary of holding history.
// CumulativeMetric is the integral of balance over time up to
// LastEventTimestamp; LastBalance is what the account held from then on.
type Checkpoint struct {
	AccountID          string          `json:"account_id"`
	Bucket             int64           `json:"bucket"`
	LastEventTimestamp int64           `json:"last_event_timestamp"`
	LastBalance        decimal.Decimal `json:"last_balance"`
	CumulativeMetric   decimal.Decimal `json:"cumulative_metric"`
	PrevBucket         *int64          `json:"prev_bucket,omitempty"`
	NextBucket         *int64          `json:"next_bucket,omitempty"`
}

type CheckpointKey struct {
	AccountID string
	Bucket    int64
}

func (c Checkpoint) Key() CheckpointKey { return CheckpointKey{AccountID: c.AccountID, Bucket: c.Bucket} }

// MetricAt extrapolates the stored metric to ts using the balance held since
// the last event. ts must not precede LastEventTimestamp.
func (c Checkpoint) MetricAt(ts int64) decimal.Decimal {
	elapsed := decimal.NewFromInt(ts - c.LastEventTimestamp)
	return c.CumulativeMetric.Add(c.LastBalance.Mul(elapsed))
}
