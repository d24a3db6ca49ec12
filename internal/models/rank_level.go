package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RankLevelConfig 等级表的一行；整表一起被时间锁更新替换
type RankLevelConfig struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Level         uint            `gorm:"uniqueIndex;not null" json:"level"`
	Threshold     decimal.Decimal `gorm:"type:numeric(38,0);not null" json:"threshold"`
	MultiplierBps int64           `gorm:"not null" json:"multiplier_bps"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (RankLevelConfig) TableName() string {
	return "rank_level_config"
}
