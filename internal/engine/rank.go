package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RankAndMultiplier 读取账户的外部质押余额并换算为 (rank, 乘数基点)。
// 正在解押或从未质押的账户返回 (0, 0)；
// 否则取阈值满足的最高一档，乘数取该档的值，不做插值。
func (e *Engine) RankAndMultiplier(account string) (uint, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rankAndMultiplier(account)
}

// rankAndMultiplier 内部版本，调用方必须已持锁
func (e *Engine) rankAndMultiplier(account string) (uint, int64, error) {
	staked, unstakeInitiatedAt, stakeInitiatedAt, err := e.oracle.BalanceInfo(account)
	if err != nil {
		return 0, 0, &OracleError{Account: account, Err: err}
	}
	if stakeInitiatedAt == 0 || unstakeInitiatedAt != 0 {
		return 0, 0, nil
	}

	var rank uint
	var multiplierBps int64
	for _, level := range e.levels {
		if staked.LessThan(level.Threshold) {
			break
		}
		rank = level.Level
		multiplierBps = level.MultiplierBps
	}
	return rank, multiplierBps, nil
}

// Levels 返回当前等级表副本
func (e *Engine) Levels() []RankLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RankLevel(nil), e.levels...)
}

// ProposeLevelUpdate 提议整表替换等级配置，同一时刻只允许一个待执行提议。
// 等级必须从 1 连续编号，阈值严格递增，乘数单调不减。
func (e *Engine) ProposeLevelUpdate(levels []RankLevel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingLevels != nil {
		return ErrProposalPending
	}
	if err := validateLevels(levels); err != nil {
		return err
	}
	e.pendingLevels = newPendingChange(append([]RankLevel(nil), levels...), e.now().Add(LevelUpdateDelay))
	return nil
}

// ExecuteLevelUpdate 延迟期满后整表原子替换。
// 旧表被整体丢弃，因此缩表不会留下过期的高等级。
func (e *Engine) ExecuteLevelUpdate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingLevels == nil {
		return ErrNoProposalPending
	}
	if !e.pendingLevels.Ready(e.now()) {
		return ErrTimelockNotElapsed
	}
	e.levels = e.pendingLevels.Value
	e.pendingLevels = nil
	return nil
}

// CancelLevelUpdate 撤回待执行的等级提议
func (e *Engine) CancelLevelUpdate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingLevels == nil {
		return ErrNoProposalPending
	}
	e.pendingLevels = nil
	return nil
}

// ProposeOracleSwap 提议更换质押余额源，同样受时间锁约束
func (e *Engine) ProposeOracleSwap(oracle BalanceOracle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingOracle != nil {
		return ErrProposalPending
	}
	if oracle == nil {
		return &ValidationError{Field: "oracle", Detail: "must not be nil"}
	}
	e.pendingOracle = newPendingChange(oracle, e.now().Add(OracleSwapDelay))
	return nil
}

// ExecuteOracleSwap 延迟期满后切换余额源
func (e *Engine) ExecuteOracleSwap() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingOracle == nil {
		return ErrNoProposalPending
	}
	if !e.pendingOracle.Ready(e.now()) {
		return ErrTimelockNotElapsed
	}
	e.oracle = e.pendingOracle.Value
	e.pendingOracle = nil
	return nil
}

func validateLevels(levels []RankLevel) error {
	if len(levels) == 0 {
		return &ValidationError{Field: "levels", Detail: "must not be empty"}
	}
	prevThreshold := decimal.Zero
	var prevMultiplier int64
	for i, level := range levels {
		if level.Level != uint(i+1) {
			return &ValidationError{
				Field:  "levels",
				Detail: fmt.Sprintf("levels must be consecutive starting at 1, got %d at index %d", level.Level, i),
			}
		}
		if !level.Threshold.IsPositive() {
			return &ValidationError{Field: "levels", Detail: "thresholds must be positive"}
		}
		if i > 0 && !level.Threshold.GreaterThan(prevThreshold) {
			return &ValidationError{Field: "levels", Detail: "thresholds must be strictly increasing"}
		}
		if level.MultiplierBps < prevMultiplier {
			return &ValidationError{Field: "levels", Detail: "multipliers must be non-decreasing"}
		}
		prevThreshold = level.Threshold
		prevMultiplier = level.MultiplierBps
	}
	return nil
}
