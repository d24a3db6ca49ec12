package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IdoRound 轮次主记录：时钟、售卖配置与资格规则落在同一行，
// 内存引擎是权威状态，这张表是它的写穿日志，重启时从这里恢复。
type IdoRound struct {
	ID                   uint            `gorm:"primarykey" json:"id"`
	IdoToken             string          `gorm:"size:100;not null" json:"ido_token"`
	IdoTokenDecimals     int             `gorm:"not null" json:"ido_token_decimals"`
	BuyToken             string          `gorm:"size:100;not null" json:"buy_token"`
	FyToken              string          `gorm:"size:100;default:''" json:"fy_token"`
	Price                decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"price"`
	Size                 decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"size"`
	TokensSold           decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"tokens_sold"`
	TokensClaimed        decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"tokens_claimed"`
	FundingGoal          decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"funding_goal"`
	FundedValue          decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"funded_value"`
	FyTokenMaxBps        int64           `gorm:"default:0" json:"fy_token_max_bps"`
	FundedByToken        JSONB           `gorm:"type:jsonb" json:"funded_by_token"`
	StartTime            time.Time       `gorm:"not null" json:"start_time"`
	EndTime              time.Time       `gorm:"not null" json:"end_time"`
	ClaimableTime        time.Time       `gorm:"not null" json:"claimable_time"`
	InitialEndTime       time.Time       `gorm:"not null" json:"initial_end_time"`
	InitialClaimableTime time.Time       `gorm:"not null" json:"initial_claimable_time"`
	ParentMetaIdoID      uint            `gorm:"default:0" json:"parent_meta_ido_id"`
	IsFinalized          bool            `gorm:"default:false" json:"is_finalized"`
	IsCanceled           bool            `gorm:"default:false" json:"is_canceled"`
	IsEnabled            bool            `gorm:"default:false" json:"is_enabled"`
	NoRegistration       bool            `gorm:"default:false" json:"no_registration"`

	// spec 字段，SpecInitialized 为 false 时下面的值无意义
	SpecInitialized            bool            `gorm:"default:false" json:"spec_initialized"`
	MinRank                    uint            `gorm:"default:0" json:"min_rank"`
	MaxRank                    uint            `gorm:"default:0" json:"max_rank"`
	MaxAllocation              decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"max_allocation"`
	MinAllocation              decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"min_allocation"`
	MaxAllocationMultiplierBps int64           `gorm:"default:10000" json:"max_allocation_multiplier_bps"`
	NoMultiplier               bool            `gorm:"default:false" json:"no_multiplier"`
	NoRank                     bool            `gorm:"default:false" json:"no_rank"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (IdoRound) TableName() string {
	return "ido_round"
}

// RoundPosition 单账户在单轮次的仓位行，claim / refund 后删除
type RoundPosition struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	RoundID         uint            `gorm:"not null;uniqueIndex:idx_round_account" json:"round_id"`
	Account         string          `gorm:"size:100;not null;uniqueIndex:idx_round_account" json:"account"`
	Amount          decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"amount"`
	FyAmount        decimal.Decimal `gorm:"type:numeric(38,0);default:0" json:"fy_amount"`
	TokenAllocation decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"token_allocation"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (RoundPosition) TableName() string {
	return "round_position"
}

// RoundParticipant 参与者名单，保留首次参与顺序供分页枚举
type RoundParticipant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	RoundID   uint      `gorm:"not null;uniqueIndex:idx_participant_round_account" json:"round_id"`
	Account   string    `gorm:"size:100;not null;uniqueIndex:idx_participant_round_account" json:"account"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (RoundParticipant) TableName() string {
	return "round_participant"
}

// IdoFundTransferRecord 资金流水日志："in" 是认购入金，
// "out" 是 claim 归集、IDO 代币发放、退款或闲置提取
type IdoFundTransferRecord struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	RoundID   uint            `gorm:"not null;index" json:"round_id"`
	Account   string          `gorm:"size:100;not null;index" json:"account"`
	Token     string          `gorm:"size:100;not null" json:"token"`
	Direction string          `gorm:"size:20;not null" json:"direction"` // "in" or "out"
	Reason    string          `gorm:"size:32;not null" json:"reason"`    // participate / claim / refund / treasury / spare
	Amount    decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (IdoFundTransferRecord) TableName() string {
	return "ido_fund_transfer_record"
}

// TokenReservation 跨轮次预留账本的持久化镜像
type TokenReservation struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Token     string          `gorm:"size:100;uniqueIndex;not null" json:"token"`
	Reserved  decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"reserved"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TokenReservation) TableName() string {
	return "token_reservation"
}
