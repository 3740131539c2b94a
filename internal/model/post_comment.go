package model

import (
	"time"
)

type PostComment struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	PostID    uint64 `gorm:"not null;index:idx_comment_post_id"`
	Author    string `gorm:"type:varchar(100);not null"`
	AuthorID  string `gorm:"type:varchar(255);not null"`
	Content   string `gorm:"type:varchar(2000);not null"`
	Likes     int    `gorm:"not null;default:0"` // 仅展示, 无点赞操作
	CreatedAt time.Time
}

func (PostComment) TableName() string {
	return "post_comments"
}
