package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestQuoFloorTruncatesTowardZero(t *testing.T) {
	assert.True(t, QuoFloor(d(7), d(2)).Equal(d(3)))
	assert.True(t, QuoFloor(d(6), d(2)).Equal(d(3)))
	assert.True(t, QuoFloor(d(1), d(3)).Equal(d(0)))
	assert.True(t, QuoFloor(d(999), d(1000)).Equal(d(0)))
}

func TestTokensForAmount(t *testing.T) {
	// price = 2，6 位小数：支付 3 个最小单位 => 3 * 10^6 / 2 = 1500000
	assert.True(t, TokensForAmount(d(3), d(2), 6).Equal(d(1500000)))

	// 除不尽时截断
	assert.True(t, TokensForAmount(d(10), d(3), 0).Equal(d(3)))
}

func TestAmountForTokensInverseTruncates(t *testing.T) {
	// 3 tokens * price 3 / 10^0 = 9，与正向换算 10 -> 3 相比少 1，
	// 差额留在池子里而不是返还给参与者
	assert.True(t, AmountForTokens(d(3), d(3), 0).Equal(d(9)))
}

func TestBpsPortion(t *testing.T) {
	assert.True(t, BpsPortion(d(10000), 2500).Equal(d(2500)))
	assert.True(t, BpsPortion(d(3), 5000).Equal(d(1)))
	assert.True(t, BpsPortion(d(100), 10000).Equal(d(100)))
}
