package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxTimeExtension 轮次 end/claimable 时间最多只能在初始值上再推迟 14 天
	MaxTimeExtension = 14 * 24 * time.Hour

	// LevelUpdateDelay 等级表更新的时间锁
	LevelUpdateDelay = 24 * time.Hour

	// OracleSwapDelay 更换质押余额源的时间锁
	OracleSwapDelay = 24 * time.Hour
)

// Engine 持有全部轮次记账状态：轮次 arena、MetaIDO arena、
// 跨轮次代币预留账本、等级表与两把治理时间锁。
// 一把互斥锁保证每个对外操作整体原子；操作内部一律先校验后变更，
// 校验失败时不留下任何状态修改。
type Engine struct {
	mu sync.Mutex

	now      func() time.Time
	ledger   TokenLedger
	oracle   BalanceOracle
	treasury string

	rounds      map[uint]*Round
	nextRoundID uint

	metaIDOs   map[uint]*MetaIDO
	nextMetaID uint

	// reserved[token] = 所有已启用未取消轮次对该代币的承诺总量。
	// 不变量：reserved[token] <= 托管账本中该代币的实际余额。
	reserved map[string]decimal.Decimal

	levels        []RankLevel // levels[0] 即等级 1
	pendingLevels *PendingChange[[]RankLevel]
	pendingOracle *PendingChange[BalanceOracle]
}

// New 创建引擎。treasury 是 claim 时支付代币的归集账户。
func New(ledger TokenLedger, oracle BalanceOracle, treasury string) *Engine {
	return &Engine{
		now:         time.Now,
		ledger:      ledger,
		oracle:      oracle,
		treasury:    treasury,
		rounds:      make(map[uint]*Round),
		nextRoundID: 1,
		metaIDOs:    make(map[uint]*MetaIDO),
		nextMetaID:  1,
		reserved:    make(map[string]decimal.Decimal),
	}
}

// SetClock 替换时间源，测试用
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// RestoreRound 启动时从持久化日志恢复轮次，直接安装进 arena。
// 恢复完成后必须调用 RecomputeReservations 重建预留账本。
func (e *Engine) RestoreRound(r *Round) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.Config.FundedByToken == nil {
		r.Config.FundedByToken = make(map[string]decimal.Decimal)
	}
	if r.Config.Positions == nil {
		r.Config.Positions = make(map[string]*Position)
	}
	e.rounds[r.ID] = r
	if r.ID >= e.nextRoundID {
		e.nextRoundID = r.ID + 1
	}
}

// RestoreMetaIDO 启动时恢复 MetaIDO 记录
func (e *Engine) RestoreMetaIDO(m *MetaIDO) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m.Registered == nil {
		m.Registered = make(map[string]bool)
	}
	if m.UserRank == nil {
		m.UserRank = make(map[string]uint)
	}
	if m.UserMultiplier == nil {
		m.UserMultiplier = make(map[string]int64)
	}
	e.metaIDOs[m.ID] = m
	if m.ID >= e.nextMetaID {
		e.nextMetaID = m.ID + 1
	}
}

// RelinkRound 恢复阶段把轮次 id 补回父 MetaIDO 的列表。
// 轮次的 ParentMetaIDO 字段由 RestoreRound 带入，这里只修列表侧。
func (e *Engine) RelinkRound(metaID, roundID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return err
	}
	if _, err := e.round(roundID); err != nil {
		return err
	}
	for _, id := range m.RoundIDs {
		if id == roundID {
			return nil
		}
	}
	m.RoundIDs = append(m.RoundIDs, roundID)
	return nil
}

// RestoreLevels 启动时恢复等级表
func (e *Engine) RestoreLevels(levels []RankLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.levels = append([]RankLevel(nil), levels...)
}

// RecomputeReservations 从轮次状态重建预留账本。
// 每个已启用未取消的轮次贡献：finalize 前是全量 size，
// finalize 后是尚未被领取的 tokensSold - tokensClaimed。
func (e *Engine) RecomputeReservations() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reserved = make(map[string]decimal.Decimal)
	for _, r := range e.rounds {
		if !r.Clock.IsEnabled || r.Clock.IsCanceled {
			continue
		}
		amount := r.Config.Size
		if r.Clock.IsFinalized {
			amount = r.Config.TokensSold.Sub(r.Config.TokensClaimed)
		}
		e.reserved[r.Config.IdoToken] = e.reservedOf(r.Config.IdoToken).Add(amount)
	}
}

// reservedOf 读预留量，调用方必须已持锁
func (e *Engine) reservedOf(token string) decimal.Decimal {
	if v, ok := e.reserved[token]; ok {
		return v
	}
	return decimal.Zero
}

func (e *Engine) round(id uint) (*Round, error) {
	r, ok := e.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	return r, nil
}

func (e *Engine) metaIDO(id uint) (*MetaIDO, error) {
	m, ok := e.metaIDOs[id]
	if !ok {
		return nil, ErrMetaIDONotFound
	}
	return m, nil
}
