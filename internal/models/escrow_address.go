package models

import (
	"time"
)

// EscrowAddress 托管/归集地址，私钥 AES-GCM 加密后入库
type EscrowAddress struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	Address         string    `gorm:"size:100;uniqueIndex;not null" json:"address"`
	Label           string    `gorm:"size:64;default:''" json:"label"`
	Enabled         bool      `gorm:"default:true" json:"enabled"`
	PrivateKeyVaild bool      `gorm:"column:private_key_vaild;default:false" json:"private_key_vaild"`
	EncryptedKey    string    `gorm:"size:244" json:"-"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (EscrowAddress) TableName() string {
	return "escrow_address"
}
