package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustodyBalance 引擎托管账户里每种代币的余额；
// 全局预留不变量 reserved <= balance 对照的就是这张表
type CustodyBalance struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Token     string          `gorm:"size:100;uniqueIndex;not null" json:"token"`
	Balance   decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CustodyBalance) TableName() string {
	return "custody_balance"
}

// CustodyTransfer 托管账本的进出明细
type CustodyTransfer struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	Token        string          `gorm:"size:100;not null;index" json:"token"`
	Counterparty string          `gorm:"size:100;not null" json:"counterparty"`
	Direction    string          `gorm:"size:20;not null" json:"direction"` // "in" or "out"
	Amount       decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"amount"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (CustodyTransfer) TableName() string {
	return "custody_transfer"
}
