package validate

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Add appends ef when it is non-nil, so checks chain without ifs.
func (e *Errs) Add(ef *ErrField) {
	if ef != nil {
		*e = append(*e, *ef)
	}
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// MaxQuantityDigits fits any uint256 and matches the numeric(78, 0) columns.
const MaxQuantityDigits = 78

// Quantity accepts whole, non-negative amounts of at most MaxQuantityDigits
// digits.
func Quantity(field string, v decimal.Decimal) *ErrField {
	if v.IsNegative() {
		return &ErrField{Field: field, Msg: "must be >= 0"}
	}
	if !v.IsInteger() {
		return &ErrField{Field: field, Msg: "must be a whole number"}
	}
	if len(v.BigInt().String()) > MaxQuantityDigits {
		return &ErrField{Field: field, Msg: "must have at most " + strconv.Itoa(MaxQuantityDigits) + " digits"}
	}
	return nil
}
