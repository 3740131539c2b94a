package model

import (
	"time"
)

type User struct {
	ID          uint64 `gorm:"primaryKey"`
	Email       string `gorm:"type:varchar(255);uniqueIndex:idx_email;not null"`
	DisplayName string `gorm:"type:varchar(100);not null"`
	Password    string `gorm:"type:varchar(255);not null"`
	Role        Role   `gorm:"type:varchar(20);not null;default:user"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string {
	return "users"
}
