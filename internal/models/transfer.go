package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferKind string

const (
	KindMint     TransferKind = "mint"
	KindBurn     TransferKind = "burn"
	KindTransfer TransferKind = "transfer"
)

type TransferStatus string

const (
	TransferPending TransferStatus = "pending"
	TransferApplied TransferStatus = "applied"
	TransferFailed  TransferStatus = "failed"
)

// Transfer is one event of the feed. ID doubles as the idempotency key.
type Transfer struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Kind      TransferKind    `json:"kind,omitempty"`
	Status    TransferStatus  `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
