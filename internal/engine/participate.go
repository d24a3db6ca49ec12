package engine

import (
	"github.com/shopspring/decimal"

	"idocontrol/pkg/utils"
)

// ParticipateResult 返回本次参与后的仓位快照
type ParticipateResult struct {
	TokenAllocation decimal.Decimal
	Position        Position
	FirstTime       bool
}

// Participate 处理一次认购。
// 校验顺序：轮次状态 → 支付代币 → 注册 → fy 子额度 → rank → 额度上限 → 轮次容量。
// 全部校验通过后先从参与者拉款（失败则无任何状态变化），再做内存记账；
// 记账本身是纯内存操作，不会失败，因此整个操作要么全做要么全不做。
func (e *Engine) Participate(roundID uint, account, token string, amount decimal.Decimal) (*ParticipateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, err
	}
	if !r.Clock.IsEnabled {
		return nil, ErrNotEnabled
	}
	if r.Clock.IsFinalized {
		return nil, ErrAlreadyFinalized
	}
	if r.Clock.IsCanceled {
		return nil, ErrAlreadyCanceled
	}
	if e.now().Before(r.Clock.StartTime) {
		return nil, ErrRoundNotStarted
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Detail: "must be positive"}
	}

	isFy := r.Config.FyToken != "" && token == r.Config.FyToken
	if token != r.Config.BuyToken && !isFy {
		return nil, ErrWrongPayToken
	}

	rank, multiplierBps, err := e.participantSnapshot(r, account)
	if err != nil {
		return nil, err
	}

	// fyToken 累计认购额（折算成 IDO 代币当量）不得超过 size 的子额度上限
	if isFy {
		fyFunded := fundedOf(r, r.Config.FyToken).Add(amount)
		fyEquivalent := utils.TokensForAmount(fyFunded, r.Config.Price, r.Config.IdoTokenDecimals)
		fyCap := utils.BpsPortion(r.Config.Size, r.Config.FyTokenMaxBps)
		if fyEquivalent.GreaterThan(fyCap) {
			return nil, &CapacityError{Resource: "fy token sub-allocation", Requested: fyEquivalent, Available: fyCap}
		}
	}

	if !r.Spec.NoRank {
		if rank < r.Spec.MinRank || rank > r.Spec.MaxRank {
			return nil, &RankError{Rank: rank, MinRank: r.Spec.MinRank, MaxRank: r.Spec.MaxRank}
		}
	}

	if amount.LessThan(r.Spec.MinAllocation) {
		return nil, &ValidationError{Field: "amount", Detail: "below minimum allocation"}
	}

	maxAllocated := effectiveMaxAllocation(&r.Spec, multiplierBps)
	position := r.Config.Positions[account]
	existing := decimal.Zero
	if position != nil {
		existing = position.Amount
	}
	if existing.Add(amount).GreaterThan(maxAllocated) {
		return nil, &AllocationError{Requested: amount, Existing: existing, Max: maxAllocated}
	}

	tokenAllocation := utils.TokensForAmount(amount, r.Config.Price, r.Config.IdoTokenDecimals)
	if r.Config.TokensSold.Add(tokenAllocation).GreaterThan(r.Config.Size) {
		return nil, &CapacityError{
			Resource:  "round size",
			Requested: r.Config.TokensSold.Add(tokenAllocation),
			Available: r.Config.Size,
		}
	}

	// 外部转账放在全部校验之后、记账之前：失败直接返回，账本不动
	if err := e.ledger.Deposit(token, account, amount); err != nil {
		return nil, err
	}

	firstTime := position == nil
	if firstTime {
		position = &Position{
			Amount:          decimal.Zero,
			FyAmount:        decimal.Zero,
			TokenAllocation: decimal.Zero,
		}
		r.Config.Positions[account] = position
		r.Config.Participants = append(r.Config.Participants, account)
	}
	position.Amount = position.Amount.Add(amount)
	if isFy {
		position.FyAmount = position.FyAmount.Add(amount)
	}
	position.TokenAllocation = position.TokenAllocation.Add(tokenAllocation)

	r.Config.FundedByToken[token] = fundedOf(r, token).Add(amount)
	r.Config.FundedValue = r.Config.FundedValue.Add(amount)
	r.Config.TokensSold = r.Config.TokensSold.Add(tokenAllocation)

	return &ParticipateResult{
		TokenAllocation: tokenAllocation,
		Position:        *position,
		FirstTime:       firstTime,
	}, nil
}

// MaxAllocationPreview 预览账户在某轮次的出资上限（只读）
func (e *Engine) MaxAllocationPreview(roundID uint, account string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return decimal.Zero, err
	}
	if !r.Spec.Initialized {
		return decimal.Zero, ErrSpecNotSet
	}
	_, multiplierBps, err := e.participantSnapshot(r, account)
	if err != nil {
		return decimal.Zero, err
	}
	return effectiveMaxAllocation(&r.Spec, multiplierBps), nil
}

// participantSnapshot 取参与者在父 MetaIDO 里的注册快照。
// 轮次要求注册而账户未注册时拒绝；免注册轮次的未注册账户按 (0, 0) 处理。
func (e *Engine) participantSnapshot(r *Round, account string) (uint, int64, error) {
	var m *MetaIDO
	if r.Clock.ParentMetaIDO != 0 {
		m = e.metaIDOs[r.Clock.ParentMetaIDO]
	}

	registered := m != nil && m.Registered[account]
	if !r.Clock.NoRegistration && !registered {
		return 0, 0, ErrNotRegistered
	}
	if !registered {
		return 0, 0, nil
	}
	return m.UserRank[account], m.UserMultiplier[account], nil
}

// effectiveMaxAllocation 计算单账户出资上限。
// noMultiplier 时直接用 maxAllocation；否则
// maxAllocation * multiplierBps * maxAllocationMultiplierBps / 10000 / 10000，截断。
func effectiveMaxAllocation(spec *RoundSpec, multiplierBps int64) decimal.Decimal {
	if spec.NoMultiplier {
		return spec.MaxAllocation
	}
	scaled := spec.MaxAllocation.
		Mul(decimal.NewFromInt(multiplierBps)).
		Mul(decimal.NewFromInt(spec.MaxAllocationMultiplierBps))
	return utils.QuoFloor(scaled, decimal.NewFromInt(utils.BpsDenominator*utils.BpsDenominator))
}

func fundedOf(r *Round, token string) decimal.Decimal {
	if v, ok := r.Config.FundedByToken[token]; ok {
		return v
	}
	return decimal.Zero
}
