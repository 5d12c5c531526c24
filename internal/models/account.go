package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
	// CheckpointCount > 0 is the only reliable "has checkpoints" test;
	// bucket 0 is a real bucket.
	CheckpointCount      int64     `json:"checkpoint_count"`
	LastCheckpointBucket int64     `json:"last_checkpoint_bucket"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewAccount returns the zero state of an account seen for the first time.
func NewAccount(id string) Account {
	return Account{ID: id, Balance: decimal.Zero}
}

func (a Account) HasCheckpoints() bool { return a.CheckpointCount > 0 }
