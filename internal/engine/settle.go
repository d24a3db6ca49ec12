package engine

import (
	"github.com/shopspring/decimal"
)

// ClaimResult 记录一次 claim 的全部出账
type ClaimResult struct {
	TokenAllocation decimal.Decimal
	BuyAmount       decimal.Decimal
	FyAmount        decimal.Decimal
}

// Claim 在轮次 finalize 且到达 claimable 时间后结算单个仓位：
// 认购款归集到 treasury（fy 部分优先，余下走 buy token），
// IDO 代币按参与时锁定的 tokenAllocation 全额发给账户。
// 仓位在出账前先删除；批量出账失败时整体回滚，仓位原样恢复。
func (e *Engine) Claim(roundID uint, account string) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, err
	}
	if r.Clock.IsCanceled {
		return nil, ErrAlreadyCanceled
	}
	if !r.Clock.IsFinalized {
		return nil, ErrNotFinalized
	}
	if e.now().Before(r.Clock.ClaimableTime) {
		return nil, ErrNotClaimableYet
	}

	position, ok := r.Config.Positions[account]
	if !ok {
		return nil, ErrNoPosition
	}

	allocation := position.TokenAllocation
	fyAmount := position.FyAmount
	buyAmount := position.Amount.Sub(fyAmount)

	// 先落账再转账：预留扣减、领取累计、仓位删除都发生在外部调用之前
	saved := *position
	savedReserved := e.reservedOf(r.Config.IdoToken)
	savedClaimed := r.Config.TokensClaimed

	e.reserved[r.Config.IdoToken] = savedReserved.Sub(allocation)
	r.Config.TokensClaimed = savedClaimed.Add(allocation)
	delete(r.Config.Positions, account)

	payments := make([]Payment, 0, 3)
	if fyAmount.IsPositive() {
		payments = append(payments, Payment{Token: r.Config.FyToken, To: e.treasury, Amount: fyAmount})
	}
	if buyAmount.IsPositive() {
		payments = append(payments, Payment{Token: r.Config.BuyToken, To: e.treasury, Amount: buyAmount})
	}
	payments = append(payments, Payment{Token: r.Config.IdoToken, To: account, Amount: allocation})

	if err := e.ledger.Payout(payments...); err != nil {
		restored := saved
		r.Config.Positions[account] = &restored
		e.reserved[r.Config.IdoToken] = savedReserved
		r.Config.TokensClaimed = savedClaimed
		return nil, err
	}

	return &ClaimResult{
		TokenAllocation: allocation,
		BuyAmount:       buyAmount,
		FyAmount:        fyAmount,
	}, nil
}

// RefundResult 记录一次退款的两路出账
type RefundResult struct {
	BuyAmount decimal.Decimal
	FyAmount  decimal.Decimal
}

// ClaimRefund 轮次取消后按仓位原路退款：fy 部分退 fyToken，
// 其余退 buy token，两路合计恰好等于仓位记录的 amount。
// 轮次累计（tokensSold / fundedValue / 分币种累计）同步扣减，
// 仓位删除后再次退款会因仓位不存在而失败。
func (e *Engine) ClaimRefund(roundID uint, account string) (*RefundResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, err
	}
	if !r.Clock.IsCanceled {
		return nil, ErrNotCanceled
	}

	position, ok := r.Config.Positions[account]
	if !ok {
		return nil, ErrNoPosition
	}

	fyRefund := position.FyAmount
	buyRefund := position.Amount.Sub(fyRefund)

	saved := *position
	savedSold := r.Config.TokensSold
	savedFunded := r.Config.FundedValue
	savedBuyTotal := fundedOf(r, r.Config.BuyToken)
	savedFyTotal := decimal.Zero
	if r.Config.FyToken != "" {
		savedFyTotal = fundedOf(r, r.Config.FyToken)
	}

	r.Config.TokensSold = savedSold.Sub(position.TokenAllocation)
	r.Config.FundedValue = savedFunded.Sub(position.Amount)
	r.Config.FundedByToken[r.Config.BuyToken] = savedBuyTotal.Sub(buyRefund)
	if r.Config.FyToken != "" {
		r.Config.FundedByToken[r.Config.FyToken] = savedFyTotal.Sub(fyRefund)
	}
	delete(r.Config.Positions, account)

	payments := make([]Payment, 0, 2)
	if fyRefund.IsPositive() {
		payments = append(payments, Payment{Token: r.Config.FyToken, To: account, Amount: fyRefund})
	}
	if buyRefund.IsPositive() {
		payments = append(payments, Payment{Token: r.Config.BuyToken, To: account, Amount: buyRefund})
	}

	if len(payments) > 0 {
		if err := e.ledger.Payout(payments...); err != nil {
			restored := saved
			r.Config.Positions[account] = &restored
			r.Config.TokensSold = savedSold
			r.Config.FundedValue = savedFunded
			r.Config.FundedByToken[r.Config.BuyToken] = savedBuyTotal
			if r.Config.FyToken != "" {
				r.Config.FundedByToken[r.Config.FyToken] = savedFyTotal
			}
			return nil, err
		}
	}

	return &RefundResult{BuyAmount: buyRefund, FyAmount: fyRefund}, nil
}

// WithdrawSpare 提取某轮次 IDO 代币中未被任何在世轮次预留的闲置部分。
// 闲置量按代币全局计算（托管余额 - 全局预留），不限于本轮次贡献的部分。
func (e *Engine) WithdrawSpare(roundID uint, to string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := e.ledger.Balance(r.Config.IdoToken)
	if err != nil {
		return decimal.Zero, err
	}
	spare := balance.Sub(e.reservedOf(r.Config.IdoToken))
	if !spare.IsPositive() {
		return decimal.Zero, &CapacityError{
			Resource:  "spare tokens",
			Requested: decimal.NewFromInt(1),
			Available: spare,
		}
	}

	if err := e.ledger.Payout(Payment{Token: r.Config.IdoToken, To: to, Amount: spare}); err != nil {
		return decimal.Zero, err
	}
	return spare, nil
}
