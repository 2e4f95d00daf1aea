package model

import (
	"time"
)

// BaseModel 主键为 snowflake 十进制字符串。
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(20)" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}
