package job

import (
	"Haven/internal/pkg/logger"
	"Haven/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const likeRecountTimeout = 2 * time.Minute

// LikeRecountJob 定期以 post_likes 为准修复帖子的 likes 计数
type LikeRecountJob struct {
	discussionSvc service.DiscussionService
}

func NewLikeRecountJob(discussionSvc service.DiscussionService) *LikeRecountJob {
	return &LikeRecountJob{
		discussionSvc: discussionSvc,
	}
}

func (s *LikeRecountJob) Run() {
	traceID := "job-likes-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	ctx, cancel := context.WithTimeout(ctx, likeRecountTimeout)
	defer cancel()

	start := time.Now()
	fixed, err := s.discussionSvc.RecountLikes(ctx)
	if err != nil {
		log.ErrorContext(ctx, "recount likes error", "err", err)
		return
	}

	log.InfoContext(ctx, "recount likes success",
		"fixed", fixed,
		"cost", time.Since(start))
}
