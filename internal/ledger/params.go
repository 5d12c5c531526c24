package ledger

import (
	"errors"
	"strings"
)

const (
	DefaultBucketSize     int64 = 3600
	DefaultRatioPrecision int32 = 18
	// DefaultSentinel is the id of the aggregate account: mints come from
	// it, burns go to it, its balance is total supply.
	DefaultSentinel = "0x0000000000000000000000000000000000000000"
)

// Params are fixed per deployment. Changing BucketSize invalidates every
// stored checkpoint.
type Params struct {
	BucketSize     int64
	Sentinel       string
	RatioPrecision int32
}

func DefaultParams() Params {
	return Params{
		BucketSize:     DefaultBucketSize,
		Sentinel:       DefaultSentinel,
		RatioPrecision: DefaultRatioPrecision,
	}
}

func (p Params) Validate() error {
	if p.BucketSize <= 0 {
		return errors.New("bucket size must be > 0")
	}
	if strings.TrimSpace(p.Sentinel) == "" {
		return errors.New("sentinel account id required")
	}
	if p.RatioPrecision < 0 {
		return errors.New("ratio precision must be >= 0")
	}
	return nil
}

// BucketOf floors ts to the start of its bucket.
func (p Params) BucketOf(ts int64) int64 {
	b := ts / p.BucketSize * p.BucketSize
	if ts < 0 && ts%p.BucketSize != 0 {
		b -= p.BucketSize
	}
	return b
}

func (p Params) Aligned(ts int64) bool { return ts%p.BucketSize == 0 }
