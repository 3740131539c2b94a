package dto

import "time"

// PostDTO 帖子, 读写路径共用同一形状
type PostDTO struct {
	ID        uint64        `json:"id"`
	Author    string        `json:"author"`
	AuthorID  string        `json:"authorId"`
	Category  string        `json:"category"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Likes     int           `json:"likes"`
	LikedBy   []string      `json:"likedBy"`
	Comments  []*CommentDTO `json:"comments"`
	CreatedAt time.Time     `json:"created_at"`
	IsPinned  bool          `json:"isPinned"`
}

// CommentDTO 评论
type CommentDTO struct {
	ID        uint64    `json:"id"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
}

// LikedByUser 判断用户是否已点赞
func (p *PostDTO) LikedByUser(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CreatePostDTO 发帖, authorId 以会话身份为准
type CreatePostDTO struct {
	Author   string `json:"author" binding:"omitempty,max=100"`
	AuthorID string `json:"authorId" binding:"omitempty,max=255"`
	Category string `json:"category" binding:"required,category"`
	Title    string `json:"title" binding:"required,max=255"`
	Content  string `json:"content" binding:"required"`
}

const (
	ActionEdit          = "edit"
	ActionLike          = "like"
	ActionComment       = "comment"
	ActionDeleteComment = "delete_comment"
)

// UpdatePostDTO PUT /discussions 的部分更新体
type UpdatePostDTO struct {
	Action    string  `json:"action" binding:"omitempty,oneof=edit like comment delete_comment"`
	Title     *string `json:"title" binding:"omitempty,max=255"`
	Content   *string `json:"content"`
	Category  *string `json:"category" binding:"omitempty,category"`
	CommentID *uint64 `json:"commentId"`
}

// CommentCreateDTO 评论
type CommentCreateDTO struct {
	Author  string `json:"author" binding:"omitempty,max=100"`
	Content string `json:"content" binding:"required,max=2000"`
}

// PostEditDTO 编辑字段, nil 表示不修改
type PostEditDTO struct {
	Title    *string
	Content  *string
	Category *string
}

// ListQuery 列表查询
type ListQuery struct {
	Sort string `form:"sort"`
}

// DeleteResultDTO 删除结果
type DeleteResultDTO struct {
	ID      uint64 `json:"id"`
	Deleted bool   `json:"deleted"`
}
