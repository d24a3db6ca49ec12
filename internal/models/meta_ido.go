package models

import (
	"time"
)

// MetaIdo 注册窗口记录；归属它的轮次通过 ido_round.parent_meta_ido_id 反查
type MetaIdo struct {
	ID                     uint      `gorm:"primarykey" json:"id"`
	RegistrationStart      time.Time `gorm:"not null" json:"registration_start"`
	RegistrationEnd        time.Time `gorm:"not null" json:"registration_end"`
	InitialRegistrationEnd time.Time `gorm:"not null" json:"initial_registration_end"`
	CreatedAt              time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MetaIdo) TableName() string {
	return "meta_ido"
}

// MetaIdoRegistration 注册快照行：rank 与乘数在注册时刻定格
type MetaIdoRegistration struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	MetaIdoID     uint      `gorm:"not null;uniqueIndex:idx_meta_account" json:"meta_ido_id"`
	Account       string    `gorm:"size:100;not null;uniqueIndex:idx_meta_account" json:"account"`
	Rank          uint      `gorm:"not null" json:"rank"`
	MultiplierBps int64     `gorm:"not null" json:"multiplier_bps"`
	ByAdmin       bool      `gorm:"default:false" json:"by_admin"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MetaIdoRegistration) TableName() string {
	return "meta_ido_registration"
}
