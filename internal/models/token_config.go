package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TokenConfig 代币登记表：轮次引用 mint 字符串，小数位从这里取
type TokenConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Mint      string    `gorm:"size:100;uniqueIndex;not null" json:"mint"`
	Symbol    string    `gorm:"size:16;not null" json:"symbol"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Decimals  int       `gorm:"not null" json:"decimals"`
	LogoURI   string    `gorm:"type:text" json:"logo_uri"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TokenConfig) TableName() string {
	return "token_info"
}

// JSONB is a custom type to handle JSONB data
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}
