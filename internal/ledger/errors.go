package ledger

import "errors"

var (
	// ErrInvariantViolation marks events the ledger cannot represent and
	// store states that break the checkpoint chain. Never retry these.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrOutOfOrder is wrapped together with ErrInvariantViolation when an
	// event is older than the checkpoint it would update.
	ErrOutOfOrder = errors.New("event out of chronological order")

	ErrAlignment      = errors.New("timestamp not aligned to bucket boundary")
	ErrRange          = errors.New("end must be after start")
	ErrDivisionByZero = errors.New("division by zero")
)

// IsQueryError reports whether err is a caller mistake rather than a
// store problem.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrAlignment) || errors.Is(err, ErrRange) || errors.Is(err, ErrDivisionByZero)
}
