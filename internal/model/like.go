package model

import (
	"time"
)

// PostLike likedBy 集合中的一个成员, 联合主键保证同一用户只出现一次
type PostLike struct {
	PostID    uint64 `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;type:varchar(255)"`
	CreatedAt time.Time
}

func (PostLike) TableName() string {
	return "post_likes"
}
