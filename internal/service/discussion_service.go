package service

import (
	"Haven/internal/api/dto"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"Haven/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"sort"
	"strings"

	"github.com/jinzhu/copier"
)

// Actor 会话层解析出的调用者身份
type Actor struct {
	ID   string // email
	Name string
	Role model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

type DiscussionService interface {
	List(ctx context.Context, sortBy string) ([]*dto.PostDTO, error)
	Get(ctx context.Context, postID uint64) (*dto.PostDTO, error)
	Create(ctx context.Context, actor Actor, req *dto.CreatePostDTO) (*dto.PostDTO, error)
	Update(ctx context.Context, actor Actor, postID uint64, req *dto.PostEditDTO) (*dto.PostDTO, error)
	ToggleLike(ctx context.Context, actor Actor, postID uint64) (*dto.PostDTO, error)
	AddComment(ctx context.Context, actor Actor, postID uint64, req *dto.CommentCreateDTO) (*dto.PostDTO, error)
	DeletePost(ctx context.Context, actor Actor, postID uint64) error
	DeleteComment(ctx context.Context, actor Actor, postID, commentID uint64) (*dto.PostDTO, error)
	RecountLikes(ctx context.Context) (int64, error)
}

type discussionServiceImpl struct {
	repo repository.DiscussionRepo
}

func NewDiscussionService(repo repository.DiscussionRepo) DiscussionService {
	return &discussionServiceImpl{repo: repo}
}

func (s *discussionServiceImpl) List(ctx context.Context, sortBy string) ([]*dto.PostDTO, error) {
	if sortBy == "" {
		sortBy = consts.SortNewest
	}
	if sortBy != consts.SortNewest && sortBy != consts.SortPopular {
		return nil, ErrSortInvalid
	}

	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	SortPosts(posts, sortBy)

	out := make([]*dto.PostDTO, 0, len(posts))
	for _, p := range posts {
		d, err := toPostDTO(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *discussionServiceImpl) Get(ctx context.Context, postID uint64) (*dto.PostDTO, error) {
	post, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	return toPostDTO(post)
}

func (s *discussionServiceImpl) Create(ctx context.Context, actor Actor, req *dto.CreatePostDTO) (*dto.PostDTO, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleEmpty
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentEmpty
	}
	if !consts.IsCategory(req.Category) {
		return nil, ErrCategoryInvalid
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = actor.Name
	}
	if req.AuthorID != "" && req.AuthorID != actor.ID {
		log.WarnContext(ctx, "authorId overridden by session identity", "claimed", req.AuthorID, "actor", actor.ID)
	}

	post, err := s.repo.Insert(ctx, &model.Post{
		Author:   author,
		AuthorID: actor.ID,
		Category: req.Category,
		Title:    title,
		Content:  req.Content,
	})
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", actor.ID)
	return toPostDTO(post)
}

func (s *discussionServiceImpl) Update(ctx context.Context, actor Actor, postID uint64, req *dto.PostEditDTO) (*dto.PostDTO, error) {
	post, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	fields := make(map[string]any)
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		fields["title"] = title
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, ErrContentEmpty
		}
		fields["content"] = *req.Content
	}
	if req.Category != nil {
		if !consts.IsCategory(*req.Category) {
			return nil, ErrCategoryInvalid
		}
		fields["category"] = *req.Category
	}

	updated, err := s.repo.Replace(ctx, postID, fields)
	if err != nil {
		return nil, err
	}
	return toPostDTO(updated)
}

func (s *discussionServiceImpl) ToggleLike(ctx context.Context, actor Actor, postID uint64) (*dto.PostDTO, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	post, err := s.repo.ToggleLike(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	return toPostDTO(post)
}

func (s *discussionServiceImpl) AddComment(ctx context.Context, actor Actor, postID uint64, req *dto.CommentCreateDTO) (*dto.PostDTO, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentEmpty
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = actor.Name
	}

	post, err := s.repo.AppendComment(ctx, postID, &model.PostComment{
		Author:   author,
		AuthorID: actor.ID,
		Content:  req.Content,
	})
	if err != nil {
		return nil, err
	}
	return toPostDTO(post)
}

func (s *discussionServiceImpl) DeletePost(ctx context.Context, actor Actor, postID uint64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.repo.Remove(ctx, postID); err != nil {
		return err
	}
	log.InfoContext(ctx, "post deleted", "post_id", postID, "admin", actor.ID)
	return nil
}

func (s *discussionServiceImpl) DeleteComment(ctx context.Context, actor Actor, postID, commentID uint64) (*dto.PostDTO, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	post, err := s.repo.RemoveComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "comment deleted", "post_id", postID, "comment_id", commentID, "admin", actor.ID)
	return toPostDTO(post)
}

// RecountLikes 以 post_likes 为准修复 likes 计数, 返回被修正的帖子数
func (s *discussionServiceImpl) RecountLikes(ctx context.Context) (int64, error) {
	fixed, err := s.repo.RecountLikes(ctx)
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		log.WarnContext(ctx, "likes counter drift repaired", "posts", fixed)
	}
	return fixed, nil
}

// SortPosts newest: 创建时间倒序; popular: 点赞数倒序, 同票按创建时间倒序, 再按 id 倒序
func SortPosts(posts []*model.Post, sortBy string) {
	newer := func(a, b *model.Post) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}
	switch sortBy {
	case consts.SortPopular:
		sort.SliceStable(posts, func(i, j int) bool {
			if posts[i].Likes != posts[j].Likes {
				return posts[i].Likes > posts[j].Likes
			}
			return newer(posts[i], posts[j])
		})
	default:
		sort.SliceStable(posts, func(i, j int) bool {
			return newer(posts[i], posts[j])
		})
	}
}

func toPostDTO(post *model.Post) (*dto.PostDTO, error) {
	if post == nil {
		return nil, errors.New("nil post")
	}
	out := &dto.PostDTO{
		ID:        post.ID,
		Author:    post.Author,
		AuthorID:  post.AuthorID,
		Category:  post.Category,
		Title:     post.Title,
		Content:   post.Content,
		Likes:     post.Likes,
		CreatedAt: post.CreatedAt,
		IsPinned:  post.IsPinned,
		LikedBy:   make([]string, 0, len(post.LikedBy)),
		Comments:  make([]*dto.CommentDTO, 0, len(post.Comments)),
	}
	for _, l := range post.LikedBy {
		out.LikedBy = append(out.LikedBy, l.UserID)
	}
	for i := range post.Comments {
		c := &dto.CommentDTO{}
		if err := copier.Copy(c, &post.Comments[i]); err != nil {
			return nil, err
		}
		out.Comments = append(out.Comments, c)
	}
	return out, nil
}
