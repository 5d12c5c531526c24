package ledger

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var ten = big.NewInt(10)

// QuoHalfEven returns num/den with exactly places fractional digits,
// rounding half to even. The division is exact integer arithmetic, so the
// result is reproducible for any magnitude. den must not be zero.
func QuoHalfEven(num, den decimal.Decimal, places int32) decimal.Decimal {
	// num/den * 10^places = cn*10^k / cd with k = en - ed + places
	n := new(big.Int).Set(num.Coefficient())
	d := new(big.Int).Set(den.Coefficient())
	k := int64(num.Exponent()) - int64(den.Exponent()) + int64(places)
	if k >= 0 {
		n.Mul(n, new(big.Int).Exp(ten, big.NewInt(k), nil))
	} else {
		d.Mul(d, new(big.Int).Exp(ten, big.NewInt(-k), nil))
	}

	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() != 0 {
		twice := new(big.Int).Lsh(new(big.Int).Abs(r), 1)
		c := twice.Cmp(new(big.Int).Abs(d))
		if c > 0 || (c == 0 && q.Bit(0) == 1) {
			if n.Sign()*d.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
	}
	return decimal.NewFromBigInt(q, -places)
}
