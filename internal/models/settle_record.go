package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundSettleRecord worker 定时落盘的轮次筹资快照
type RoundSettleRecord struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	RoundID       uint            `gorm:"not null;index" json:"round_id"`
	TokensSold    decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"tokens_sold"`
	TokensClaimed decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"tokens_claimed"`
	FundedValue   decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"funded_value"`
	Participants  int             `gorm:"not null" json:"participants"`
	RaisedByToken JSONB           `gorm:"type:jsonb" json:"raised_by_token"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (RoundSettleRecord) TableName() string {
	return "round_settle_record"
}

// IdoEventLog worker 从 ido_events 队列消费后写入的事件日志
type IdoEventLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EventType string    `gorm:"size:64;not null;index" json:"event_type"`
	Payload   JSONB     `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (IdoEventLog) TableName() string {
	return "ido_event_log"
}
