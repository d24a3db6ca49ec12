package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundClock 记录一个 IDO 轮次的时间窗口与生命周期标志。
// isFinalized / isCanceled 置位后时间字段不再允许修改。
type RoundClock struct {
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ClaimableTime        time.Time `json:"claimable_time"`
	InitialEndTime       time.Time `json:"initial_end_time"`
	InitialClaimableTime time.Time `json:"initial_claimable_time"`
	ParentMetaIDO        uint      `json:"parent_meta_ido"` // 0 表示未挂到任何 MetaIDO
	IsFinalized          bool      `json:"is_finalized"`
	IsCanceled           bool      `json:"is_canceled"`
	IsEnabled            bool      `json:"is_enabled"`
	NoRegistration       bool      `json:"no_registration"` // true 时参与无需注册
}

// RoundConfig 是轮次的售卖参数与资金累计状态。
// Price 的单位：每整枚 IDO 代币对应的支付代币最小单位数。
// Size / TokensSold / TokensClaimed 均为 IDO 代币最小单位。
type RoundConfig struct {
	IdoToken         string
	IdoTokenDecimals int
	BuyToken         string
	FyToken          string // 可选的子额度支付代币，空串表示不启用
	Price            decimal.Decimal
	Size             decimal.Decimal
	TokensSold       decimal.Decimal
	TokensClaimed    decimal.Decimal
	FundingGoal      decimal.Decimal
	FundedValue      decimal.Decimal
	FyTokenMaxBps    int64
	FundedByToken    map[string]decimal.Decimal
	Positions        map[string]*Position
	Participants     []string
}

// RoundSpec 是参与资格规则，必须在 enable 之前设置
type RoundSpec struct {
	MinRank                    uint
	MaxRank                    uint
	MaxAllocation              decimal.Decimal
	MinAllocation              decimal.Decimal
	MaxAllocationMultiplierBps int64
	NoMultiplier               bool
	NoRank                     bool
	Initialized                bool
}

// Position 是单个账户在单个轮次中的仓位，claim / refund 后删除
type Position struct {
	Amount          decimal.Decimal `json:"amount"`
	FyAmount        decimal.Decimal `json:"fy_amount"`
	TokenAllocation decimal.Decimal `json:"token_allocation"`
}

// Round 聚合一个轮次的全部状态，按整数 id 存放在引擎的 arena 里
type Round struct {
	ID     uint
	Clock  RoundClock
	Config RoundConfig
	Spec   RoundSpec
}

// MetaIDO 是共享一个注册窗口的轮次分组。
// 注册时从 RankOracle 抓取的 rank / multiplier 快照存在这里，
// 之后该组内所有轮次的资格判断都用快照值。
type MetaIDO struct {
	ID                     uint
	RoundIDs               []uint
	RegistrationStart      time.Time
	RegistrationEnd        time.Time
	InitialRegistrationEnd time.Time
	Registered             map[string]bool
	UserRank               map[string]uint
	UserMultiplier         map[string]int64 // 基点，10000 = 1.0x
}

// RankLevel 是 RankOracle 的一档：质押阈值与对应乘数
type RankLevel struct {
	Level         uint            `json:"level"`
	Threshold     decimal.Decimal `json:"threshold"`
	MultiplierBps int64           `json:"multiplier_bps"`
}

// Payment 是一笔出账指令；同一次 Payout 调用里的多笔必须原子执行
type Payment struct {
	Token  string
	To     string
	Amount decimal.Decimal
}

// TokenLedger 是外部托管账本协作方。
// Deposit 把资金从参与者拉进引擎托管账户，余额或授权不足时报错；
// Payout 批量出账，任何一笔余额不足则整批失败且不产生部分转账。
type TokenLedger interface {
	Deposit(token, from string, amount decimal.Decimal) error
	Payout(payments ...Payment) error
	Balance(token string) (decimal.Decimal, error)
}

// BalanceOracle 是外部质押余额源
type BalanceOracle interface {
	// BalanceInfo 返回 (质押量, 发起解押时间, 发起质押时间)，时间为 unix 秒，0 表示从未发生
	BalanceInfo(account string) (staked decimal.Decimal, unstakeInitiatedAt int64, stakeInitiatedAt int64, err error)
}

func newRound(id uint) *Round {
	return &Round{
		ID: id,
		Config: RoundConfig{
			TokensSold:    decimal.Zero,
			TokensClaimed: decimal.Zero,
			FundedValue:   decimal.Zero,
			FundedByToken: make(map[string]decimal.Decimal),
			Positions:     make(map[string]*Position),
		},
	}
}

func newMetaIDO(id uint) *MetaIDO {
	return &MetaIDO{
		ID:             id,
		Registered:     make(map[string]bool),
		UserRank:       make(map[string]uint),
		UserMultiplier: make(map[string]int64),
	}
}
