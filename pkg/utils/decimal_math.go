package utils

import (
	"github.com/shopspring/decimal"
)

// BpsDenominator 基点换算分母（10000 bps = 100%）
const BpsDenominator = 10000

// QuoFloor 整数截断除法：向零取整，小数部分直接丢弃。
// 分配计算统一用这个函数，保证舍入方向始终不利于参与者、有利于池子。
func QuoFloor(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// Pow10 返回 10^exp，用于整代币与最小单位之间的换算
func Pow10(exp int) decimal.Decimal {
	return decimal.New(1, int32(exp))
}

// BpsPortion 计算 amount * bps / 10000，截断取整
func BpsPortion(amount decimal.Decimal, bps int64) decimal.Decimal {
	return QuoFloor(amount.Mul(decimal.NewFromInt(bps)), decimal.NewFromInt(BpsDenominator))
}

// TokensForAmount 按固定价格把支付金额换算成 IDO 代币最小单位数量。
// price 是每整枚 IDO 代币的支付代币单价（最小单位计）。
func TokensForAmount(amount, price decimal.Decimal, idoTokenDecimals int) decimal.Decimal {
	return QuoFloor(amount.Mul(Pow10(idoTokenDecimals)), price)
}

// AmountForTokens 是 TokensForAmount 的反向换算，同样截断取整
func AmountForTokens(tokens, price decimal.Decimal, idoTokenDecimals int) decimal.Decimal {
	return QuoFloor(tokens.Mul(price), Pow10(idoTokenDecimals))
}
