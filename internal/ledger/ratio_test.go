package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/baharkarakas/hodl-ledger/internal/ledger"
)

func TestQuoHalfEven(t *testing.T) {
	cases := []struct {
		num, den string
		places   int32
		want     string
	}{
		{"1", "3", 4, "0.3333"},
		{"2", "3", 4, "0.6667"},
		{"1", "8", 2, "0.12"},
		{"3", "8", 2, "0.38"},
		{"-1", "8", 2, "-0.12"},
		{"-3", "8", 2, "-0.38"},
		{"1", "2", 0, "0"},
		{"3", "2", 0, "2"},
		{"5", "1", 0, "5"},
		{"1", "-4", 1, "-0.2"},
		{"0.5", "0.25", 2, "2.00"},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", "3", 0,
			"38597363079105398474523661669562635951089994888546854679819194669304376546645"},
	}
	for _, tc := range cases {
		got := ledger.QuoHalfEven(decimal.RequireFromString(tc.num), decimal.RequireFromString(tc.den), tc.places)
		assert.Equal(t, tc.want, got.StringFixed(tc.places), "%s/%s@%d", tc.num, tc.den, tc.places)
	}
}
