package repository

import (
	"Haven/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscussionRepo 帖子/评论/点赞的持久化, 不含业务规则
type DiscussionRepo interface {
	List(ctx context.Context) ([]*model.Post, error)
	Get(ctx context.Context, id uint64) (*model.Post, error)
	Insert(ctx context.Context, post *model.Post) (*model.Post, error)
	Replace(ctx context.Context, id uint64, fields map[string]any) (*model.Post, error)
	Remove(ctx context.Context, id uint64) error

	ToggleLike(ctx context.Context, id uint64, userID string) (*model.Post, error)
	AppendComment(ctx context.Context, id uint64, comment *model.PostComment) (*model.Post, error)
	RemoveComment(ctx context.Context, id uint64, commentID uint64) (*model.Post, error)

	RecountLikes(ctx context.Context) (int64, error)
}

type DiscussionRepoImpl struct {
	db *gorm.DB
}

func NewDiscussionRepo(db *gorm.DB) DiscussionRepo {
	return &DiscussionRepoImpl{db: db}
}

const recountLikesSQL = `UPDATE posts SET likes = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)
WHERE likes <> (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)`

func (s *DiscussionRepoImpl) List(ctx context.Context) ([]*model.Post, error) {
	posts := make([]*model.Post, 0)
	if err := withRelations(s.db.WithContext(ctx)).Find(&posts).Error; err != nil {
		return nil, wrapError(err, "list posts")
	}
	return posts, nil
}

func (s *DiscussionRepoImpl) Get(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	if err := withRelations(s.db.WithContext(ctx)).Take(&post, "id = ?", id).Error; err != nil {
		return nil, wrapError(err, "get post")
	}
	return &post, nil
}

func (s *DiscussionRepoImpl) Insert(ctx context.Context, post *model.Post) (*model.Post, error) {
	post.ID = 0
	post.CreatedAt = time.Time{}
	post.LikedBy = nil
	post.Comments = nil
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, wrapError(err, "insert post")
	}
	post.LikedBy = []model.PostLike{}
	post.Comments = []model.PostComment{}
	return post, nil
}

func (s *DiscussionRepoImpl) Replace(ctx context.Context, id uint64, fields map[string]any) (*model.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error
	})
	if err != nil {
		return nil, wrapError(err, "replace post")
	}
	return s.Get(ctx, id)
}

func (s *DiscussionRepoImpl) Remove(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.PostComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Post{}, id).Error
	})
	return wrapError(err, "remove post")
}

// ToggleLike 在同一事务内切换 likedBy 成员并按 post_likes 行数重算 likes
func (s *DiscussionRepoImpl) ToggleLike(ctx context.Context, id uint64, userID string) (*model.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", id, userID).Delete(&model.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := &model.PostLike{PostID: id, UserID: userID, CreatedAt: time.Now()}
			if err := tx.Create(like).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Post{}).Where("id = ?", id).
			UpdateColumn("likes", gorm.Expr("(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = ?)", id)).Error
	})
	if err != nil {
		return nil, wrapError(err, "toggle like")
	}
	return s.Get(ctx, id)
}

func (s *DiscussionRepoImpl) AppendComment(ctx context.Context, id uint64, comment *model.PostComment) (*model.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}
		comment.ID = 0
		comment.PostID = id
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, wrapError(err, "append comment")
	}
	return s.Get(ctx, id)
}

func (s *DiscussionRepoImpl) RemoveComment(ctx context.Context, id uint64, commentID uint64) (*model.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ? AND post_id = ?", commentID, id).Delete(&model.PostComment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPostCommentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err, "remove comment")
	}
	return s.Get(ctx, id)
}

// RecountLikes 修复 likes 与 post_likes 不一致的帖子, 返回修复行数
func (s *DiscussionRepoImpl) RecountLikes(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(recountLikesSQL)
	if res.Error != nil {
		return 0, wrapError(res.Error, "recount likes")
	}
	return res.RowsAffected, nil
}

// lockPost 行锁住帖子; SQLite 忽略 FOR UPDATE, 依赖单写者串行
func lockPost(tx *gorm.DB, id uint64) error {
	var post model.Post
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Take(&post, "id = ?", id).Error
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("LikedBy", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, user_id ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}
