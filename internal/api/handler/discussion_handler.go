package handler

import (
	"Haven/internal/api/dto"
	"Haven/internal/pkg/response"
	"Haven/internal/pkg/util"
	"Haven/internal/service"

	"github.com/gin-gonic/gin"
)

type DiscussionHandler struct {
	discussionSvc service.DiscussionService
}

func NewDiscussionHandler(discussionSvc service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{
		discussionSvc: discussionSvc,
	}
}

// List GET /discussions?sort=newest|popular
func (s *DiscussionHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}
	posts, err := s.discussionSvc.List(c.Request.Context(), query.Sort)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}

// Get GET /discussions/:post_id
func (s *DiscussionHandler) Get(c *gin.Context) {
	postID, ok := util.ParseID(c.Param("post_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	post, err := s.discussionSvc.Get(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Create POST /discussions
func (s *DiscussionHandler) Create(c *gin.Context) {
	var req dto.CreatePostDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	post, err := s.discussionSvc.Create(c.Request.Context(), actorOf(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CreatedWith(c, post)
}

// Update PUT /discussions?id= , 按 action 分派到编辑/点赞/评论/删评论
func (s *DiscussionHandler) Update(c *gin.Context) {
	postID, ok := util.ParseID(c.Query("id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.UpdatePostDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	actor := actorOf(c)

	var (
		post *dto.PostDTO
		err  error
	)
	switch req.Action {
	case dto.ActionLike:
		post, err = s.discussionSvc.ToggleLike(ctx, actor, postID)
	case dto.ActionComment:
		comment := &dto.CommentCreateDTO{}
		if req.Content != nil {
			comment.Content = *req.Content
		}
		if err = util.ValidateDTO(comment); err != nil {
			response.Fail(c, response.BadRequest, err.Error())
			return
		}
		post, err = s.discussionSvc.AddComment(ctx, actor, postID, comment)
	case dto.ActionDeleteComment:
		if req.CommentID == nil || *req.CommentID == 0 {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		post, err = s.discussionSvc.DeleteComment(ctx, actor, postID, *req.CommentID)
	default:
		post, err = s.discussionSvc.Update(ctx, actor, postID, &dto.PostEditDTO{
			Title:    req.Title,
			Content:  req.Content,
			Category: req.Category,
		})
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Delete DELETE /discussions?id=
func (s *DiscussionHandler) Delete(c *gin.Context) {
	postID, ok := util.ParseID(c.Query("id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.discussionSvc.DeletePost(c.Request.Context(), actorOf(c), postID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.DeleteResultDTO{ID: postID, Deleted: true})
}

// ToggleLike POST /discussions/:post_id/like
func (s *DiscussionHandler) ToggleLike(c *gin.Context) {
	postID, ok := util.ParseID(c.Param("post_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	post, err := s.discussionSvc.ToggleLike(c.Request.Context(), actorOf(c), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// AddComment POST /discussions/:post_id/comments
func (s *DiscussionHandler) AddComment(c *gin.Context) {
	postID, ok := util.ParseID(c.Param("post_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.CommentCreateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	post, err := s.discussionSvc.AddComment(c.Request.Context(), actorOf(c), postID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CreatedWith(c, post)
}

// DeleteComment DELETE /discussions/:post_id/comments/:comment_id
func (s *DiscussionHandler) DeleteComment(c *gin.Context) {
	postID, ok := util.ParseID(c.Param("post_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	commentID, ok := util.ParseID(c.Param("comment_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	post, err := s.discussionSvc.DeleteComment(c.Request.Context(), actorOf(c), postID, commentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// RecountLikes POST /admin/likes/recount 手动触发点赞数修复
func (s *DiscussionHandler) RecountLikes(c *gin.Context) {
	fixed, err := s.discussionSvc.RecountLikes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"fixed": fixed})
}
