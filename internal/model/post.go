package model

import (
	"time"
)

type Post struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Author    string    `gorm:"type:varchar(100);not null"`
	AuthorID  string    `gorm:"type:varchar(255);not null;index:idx_author_id"`
	Category  string    `gorm:"type:varchar(50);not null;index:idx_category"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Content   string    `gorm:"type:text;not null"`
	Likes     int       `gorm:"not null;default:0"` // 恒等于 post_likes 行数
	IsPinned  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_created_at"`
	UpdatedAt time.Time

	// 关联关系
	LikedBy  []PostLike    `gorm:"foreignKey:PostID;references:ID"`
	Comments []PostComment `gorm:"foreignKey:PostID;references:ID"`
}

func (Post) TableName() string {
	return "posts"
}

// LikedByUser 判断用户是否已点赞
func (p *Post) LikedByUser(userID string) bool {
	for _, l := range p.LikedBy {
		if l.UserID == userID {
			return true
		}
	}
	return false
}
