package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"idocontrol/pkg/utils"
)

// CreateRoundParams 创建轮次的全部参数
type CreateRoundParams struct {
	IdoToken         string
	IdoTokenDecimals int
	BuyToken         string
	FyToken          string
	Price            decimal.Decimal
	Size             decimal.Decimal
	FundingGoal      decimal.Decimal
	FyTokenMaxBps    int64
	StartTime        time.Time
	EndTime          time.Time
	ClaimableTime    time.Time
	NoRegistration   bool
}

// SpecParams 参与资格参数，enable 之前必须设置
type SpecParams struct {
	MinRank                    uint
	MaxRank                    uint
	MaxAllocation              decimal.Decimal
	MinAllocation              decimal.Decimal
	MaxAllocationMultiplierBps int64
	NoMultiplier               bool
	NoRank                     bool
}

// CreateRound 分配新轮次 id 并写入时钟与售卖配置。
// 要求 start < end < claimable，且筹资目标不能超过 size * price 的理论上限。
func (e *Engine) CreateRound(p CreateRoundParams) (uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.IdoToken == "" || p.BuyToken == "" {
		return 0, &ValidationError{Field: "token", Detail: "ido token and buy token are required"}
	}
	if p.IdoTokenDecimals < 0 {
		return 0, &ValidationError{Field: "ido_token_decimals", Detail: "must not be negative"}
	}
	if !p.Price.IsPositive() {
		return 0, &ValidationError{Field: "price", Detail: "must be positive"}
	}
	if !p.Size.IsPositive() {
		return 0, &ValidationError{Field: "size", Detail: "must be positive"}
	}
	if p.FundingGoal.IsNegative() {
		return 0, &ValidationError{Field: "funding_goal", Detail: "must not be negative"}
	}
	if p.FyTokenMaxBps < 0 || p.FyTokenMaxBps > utils.BpsDenominator {
		return 0, &ValidationError{Field: "fy_token_max_bps", Detail: "must be within [0, 10000]"}
	}
	if !p.StartTime.Before(p.EndTime) || !p.EndTime.Before(p.ClaimableTime) {
		return 0, &ValidationError{Field: "times", Detail: "must satisfy start < end < claimable"}
	}

	// 按全量售出计算最大可筹金额，目标超过它永远无法达成
	maxRaise := utils.AmountForTokens(p.Size, p.Price, p.IdoTokenDecimals)
	if p.FundingGoal.GreaterThan(maxRaise) {
		return 0, &ValidationError{Field: "funding_goal", Detail: "exceeds size * price"}
	}

	id := e.nextRoundID
	e.nextRoundID++

	r := newRound(id)
	r.Clock = RoundClock{
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		ClaimableTime:        p.ClaimableTime,
		InitialEndTime:       p.EndTime,
		InitialClaimableTime: p.ClaimableTime,
		NoRegistration:       p.NoRegistration,
	}
	r.Config.IdoToken = p.IdoToken
	r.Config.IdoTokenDecimals = p.IdoTokenDecimals
	r.Config.BuyToken = p.BuyToken
	r.Config.FyToken = p.FyToken
	r.Config.Price = p.Price
	r.Config.Size = p.Size
	r.Config.FundingGoal = p.FundingGoal
	r.Config.FyTokenMaxBps = p.FyTokenMaxBps

	e.rounds[id] = r
	return id, nil
}

// SetRoundSpec 设置资格规则，只允许在 enable 之前。
// minAllocation 为 0 时抬升到 1，保证最低参与额检查始终有意义。
func (e *Engine) SetRoundSpec(id uint, p SpecParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsEnabled {
		return ErrAlreadyEnabled
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if p.MaxRank < p.MinRank {
		return &ValidationError{Field: "max_rank", Detail: "must be >= min_rank"}
	}

	minAlloc := p.MinAllocation
	if minAlloc.LessThan(decimal.NewFromInt(1)) {
		minAlloc = decimal.NewFromInt(1)
	}
	if p.MaxAllocation.LessThan(minAlloc) {
		return &ValidationError{Field: "max_allocation", Detail: "must be >= min_allocation"}
	}

	multiplierBps := p.MaxAllocationMultiplierBps
	if multiplierBps <= 0 {
		multiplierBps = utils.BpsDenominator
	}

	r.Spec = RoundSpec{
		MinRank:                    p.MinRank,
		MaxRank:                    p.MaxRank,
		MaxAllocation:              p.MaxAllocation,
		MinAllocation:              minAlloc,
		MaxAllocationMultiplierBps: multiplierBps,
		NoMultiplier:               p.NoMultiplier,
		NoRank:                     p.NoRank,
		Initialized:                true,
	}
	return nil
}

// EnableRound 打开参与通道，同时把 size 记入该 IDO 代币的全局预留。
// 这是唯一新增预留的地方；预留后的总量不得超过托管账本的实际余额。
func (e *Engine) EnableRound(id uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if !r.Spec.Initialized {
		return ErrSpecNotSet
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if r.Clock.IsFinalized {
		return ErrAlreadyFinalized
	}
	if r.Clock.IsEnabled {
		return ErrAlreadyEnabled
	}

	balance, err := e.ledger.Balance(r.Config.IdoToken)
	if err != nil {
		return err
	}
	newReserved := e.reservedOf(r.Config.IdoToken).Add(r.Config.Size)
	if newReserved.GreaterThan(balance) {
		return &CapacityError{
			Resource:  "token reservation",
			Requested: newReserved,
			Available: balance,
		}
	}

	e.reserved[r.Config.IdoToken] = newReserved
	r.Clock.IsEnabled = true
	return nil
}

// FinalizeRound 在结束时间之后、筹资目标达成时定格轮次，
// 未售出的 size - tokensSold 退回共享预留池供同代币的其他轮次使用。
func (e *Engine) FinalizeRound(id uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if r.Clock.IsFinalized {
		return ErrAlreadyFinalized
	}
	if !r.Clock.IsEnabled {
		return ErrNotEnabled
	}
	if e.now().Before(r.Clock.EndTime) {
		return ErrRoundNotEnded
	}
	if r.Config.FundedValue.LessThan(r.Config.FundingGoal) {
		return ErrFundingGoalNotReached
	}

	unsold := r.Config.Size.Sub(r.Config.TokensSold)
	e.reserved[r.Config.IdoToken] = e.reservedOf(r.Config.IdoToken).Sub(unsold)
	r.Clock.IsFinalized = true
	return nil
}

// CancelRound 取消轮次并打开退款通道。
// 未 finalize 时释放全部 size 预留；已 finalize 时只释放
// tokensSold - tokensClaimed（已领取的部分早已离开账本）。
// 已 finalize 的轮次仍可取消，取消后退款只覆盖未领取仓位。
func (e *Engine) CancelRound(id uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}

	if r.Clock.IsEnabled {
		release := r.Config.Size
		if r.Clock.IsFinalized {
			release = r.Config.TokensSold.Sub(r.Config.TokensClaimed)
		}
		e.reserved[r.Config.IdoToken] = e.reservedOf(r.Config.IdoToken).Sub(release)
	}
	r.Clock.IsCanceled = true
	return nil
}

// DelayEndTime 只允许向后推，上限 initialEndTime + 14 天，
// 且不能越过 claimableTime
func (e *Engine) DelayEndTime(id uint, newEnd time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsFinalized {
		return ErrAlreadyFinalized
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if !newEnd.After(r.Clock.EndTime) {
		return &ValidationError{Field: "end_time", Detail: "may only move forward"}
	}
	if newEnd.After(r.Clock.InitialEndTime.Add(MaxTimeExtension)) {
		return &ValidationError{Field: "end_time", Detail: "beyond initial end time + 14 days"}
	}
	if !newEnd.Before(r.Clock.ClaimableTime) {
		return &ValidationError{Field: "end_time", Detail: "must stay before claimable time"}
	}
	r.Clock.EndTime = newEnd
	return nil
}

// DelayClaimableTime 同样只能前移不能后退，上限 initial + 14 天
func (e *Engine) DelayClaimableTime(id uint, newClaimable time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsFinalized {
		return ErrAlreadyFinalized
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if !newClaimable.After(r.Clock.ClaimableTime) {
		return &ValidationError{Field: "claimable_time", Detail: "may only move forward"}
	}
	if newClaimable.After(r.Clock.InitialClaimableTime.Add(MaxTimeExtension)) {
		return &ValidationError{Field: "claimable_time", Detail: "beyond initial claimable time + 14 days"}
	}
	r.Clock.ClaimableTime = newClaimable
	return nil
}

// SetFyTokenCapBps 调整 fyToken 子额度上限（基点）
func (e *Engine) SetFyTokenCapBps(id uint, bps int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return err
	}
	if r.Clock.IsFinalized {
		return ErrAlreadyFinalized
	}
	if r.Clock.IsCanceled {
		return ErrAlreadyCanceled
	}
	if bps < 0 || bps > utils.BpsDenominator {
		return &ValidationError{Field: "fy_token_max_bps", Detail: "must be within [0, 10000]"}
	}
	r.Config.FyTokenMaxBps = bps
	return nil
}
