package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// 错误分五类：时间窗口、状态冲突、资格、容量、治理时序。
// 所有错误都在操作入口同步返回，任何被拒绝的操作不留下半更新状态。

var (
	// not-found
	ErrRoundNotFound   = errors.New("round not found")
	ErrMetaIDONotFound = errors.New("meta ido not found")
	ErrNoPosition      = errors.New("no funds in position")

	// temporal
	ErrRoundNotStarted    = errors.New("round has not started")
	ErrRoundNotEnded      = errors.New("round has not ended yet")
	ErrNotClaimableYet    = errors.New("claimable time not reached")
	ErrRegistrationClosed = errors.New("registration window closed")

	// state-conflict
	ErrSpecNotSet        = errors.New("round spec not set")
	ErrAlreadyEnabled    = errors.New("round already enabled")
	ErrNotEnabled        = errors.New("round not enabled")
	ErrAlreadyFinalized  = errors.New("round already finalized")
	ErrNotFinalized      = errors.New("round not finalized")
	ErrAlreadyCanceled   = errors.New("round already canceled")
	ErrNotCanceled       = errors.New("round not canceled")
	ErrRoundHasParent    = errors.New("round already belongs to a meta ido")
	ErrRoundNotInMetaIDO = errors.New("round not attached to this meta ido")

	// eligibility
	ErrNotRegistered    = errors.New("account not registered for this meta ido")
	ErrRankNotIncreased = errors.New("re-registration requires a strictly higher rank")
	ErrWrongPayToken    = errors.New("token is not accepted by this round")

	// governance-timing
	ErrProposalPending    = errors.New("a proposal is already pending")
	ErrNoProposalPending  = errors.New("no proposal pending")
	ErrTimelockNotElapsed = errors.New("timelock delay not elapsed")

	// capacity
	ErrFundingGoalNotReached = errors.New("funding goal not reached")
)

// TimeWindowError 带上违反的具体边界，方便调用方纠正后重试
type TimeWindowError struct {
	Op       string
	Limit    string
	Detail   string
	Sentinel error
}

func (e *TimeWindowError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Detail, e.Limit)
}

func (e *TimeWindowError) Unwrap() error { return e.Sentinel }

// RankError 资格检查失败时带上账户 rank 与轮次边界
type RankError struct {
	Rank    uint
	MinRank uint
	MaxRank uint
}

func (e *RankError) Error() string {
	return fmt.Sprintf("rank %d outside allowed range [%d, %d]", e.Rank, e.MinRank, e.MaxRank)
}

// AllocationError 超出单账户额度上限
type AllocationError struct {
	Requested decimal.Decimal
	Existing  decimal.Decimal
	Max       decimal.Decimal
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation cap exceeded: existing %s + requested %s > max %s",
		e.Existing, e.Requested, e.Max)
}

// CapacityError 轮次容量、fyToken 子额度或储备/余额不足
type CapacityError struct {
	Resource  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s capacity exceeded: requested %s, available %s",
		e.Resource, e.Requested, e.Available)
}

// ValidationError 参数校验失败（创建轮次/设置 spec 等管理操作）
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// OracleError 包装外部余额源的失败；注册流程整体中止，绝不默认为 0
type OracleError struct {
	Account string
	Err     error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("balance oracle lookup failed for %s: %v", e.Account, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }
