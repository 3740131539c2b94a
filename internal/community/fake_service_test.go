package community

import (
	"Haven/internal/api/dto"
	"Haven/internal/client"
	"context"
	"net/http"
	"sync"
	"time"
)

// fakeService 内存版讨论服务. 每次调用先决定结果并落库, 再按需阻塞, 模拟慢响应.
type fakeService struct {
	mu     sync.Mutex
	user   string
	nextID uint64
	posts  []*dto.PostDTO
	errs   map[string][]error
	gates  map[string][]chan struct{}
	calls  map[string]int
}

func newFakeService(user string, posts ...*dto.PostDTO) *fakeService {
	f := &fakeService{
		user:   user,
		nextID: 100,
		errs:   map[string][]error{},
		gates:  map[string][]chan struct{}{},
		calls:  map[string]int{},
	}
	for _, p := range posts {
		f.posts = append(f.posts, clonePost(p))
	}
	return f
}

// failNext 下一次 op 调用返回 err
func (f *fakeService) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], err)
}

// holdNext 下一次 op 调用在返回前阻塞, 直到返回的 channel 被关闭
func (f *fakeService) holdNext(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[op] = append(f.gates[op], gate)
	return gate
}

func (f *fakeService) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) server(id uint64) *dto.PostDTO {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.ID == id {
			return clonePost(p)
		}
	}
	return nil
}

// enter 记录调用并取出本次的错误和阻塞点
func (f *fakeService) enter(op string) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	var err error
	if q := f.errs[op]; len(q) > 0 {
		err, f.errs[op] = q[0], q[1:]
	}
	var gate chan struct{}
	if q := f.gates[op]; len(q) > 0 {
		gate, f.gates[op] = q[0], q[1:]
	}
	return gate, err
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeService) mutatePost(ctx context.Context, op string, id uint64, fn func(p *dto.PostDTO) error) (*dto.PostDTO, error) {
	gate, err := f.enter(op)
	var out *dto.PostDTO
	if err == nil {
		f.mu.Lock()
		err = &client.APIError{Status: http.StatusNotFound, Message: "帖子不存在"}
		for i, p := range f.posts {
			if p.ID == id {
				c := clonePost(p)
				if err = fn(c); err == nil {
					f.posts[i] = c
					out = clonePost(c)
				}
				break
			}
		}
		f.mu.Unlock()
	}
	if waitErr := wait(ctx, gate); waitErr != nil {
		return nil, waitErr
	}
	return out, err
}

func (f *fakeService) List(ctx context.Context, sort string) ([]*dto.PostDTO, error) {
	gate, err := f.enter("list")
	f.mu.Lock()
	out := make([]*dto.PostDTO, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, clonePost(p))
	}
	f.mu.Unlock()
	SortPosts(out, sort)
	if waitErr := wait(ctx, gate); waitErr != nil {
		return nil, waitErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeService) Create(ctx context.Context, req *dto.CreatePostDTO) (*dto.PostDTO, error) {
	gate, err := f.enter("create")
	var out *dto.PostDTO
	if err == nil {
		f.mu.Lock()
		f.nextID++
		p := &dto.PostDTO{
			ID:        f.nextID,
			Author:    req.Author,
			AuthorID:  f.user,
			Category:  req.Category,
			Title:     req.Title,
			Content:   req.Content,
			LikedBy:   []string{},
			Comments:  []*dto.CommentDTO{},
			CreatedAt: time.Now(),
		}
		f.posts = append(f.posts, p)
		out = clonePost(p)
		f.mu.Unlock()
	}
	if waitErr := wait(ctx, gate); waitErr != nil {
		return nil, waitErr
	}
	return out, err
}

func (f *fakeService) ToggleLike(ctx context.Context, postID uint64) (*dto.PostDTO, error) {
	return f.mutatePost(ctx, "like", postID, func(p *dto.PostDTO) error {
		likedBy := []string{}
		found := false
		for _, id := range p.LikedBy {
			if id == f.user {
				found = true
				continue
			}
			likedBy = append(likedBy, id)
		}
		if !found {
			likedBy = append(likedBy, f.user)
		}
		p.LikedBy = likedBy
		p.Likes = len(likedBy)
		return nil
	})
}

func (f *fakeService) AddComment(ctx context.Context, postID uint64, content string) (*dto.PostDTO, error) {
	return f.mutatePost(ctx, "comment", postID, func(p *dto.PostDTO) error {
		f.nextID++
		p.Comments = append(p.Comments, &dto.CommentDTO{ID: f.nextID, AuthorID: f.user, Content: content, CreatedAt: time.Now()})
		return nil
	})
}

func (f *fakeService) DeleteComment(ctx context.Context, postID, commentID uint64) (*dto.PostDTO, error) {
	return f.mutatePost(ctx, "delete_comment", postID, func(p *dto.PostDTO) error {
		comments := []*dto.CommentDTO{}
		for _, c := range p.Comments {
			if c.ID != commentID {
				comments = append(comments, c)
			}
		}
		if len(comments) == len(p.Comments) {
			return &client.APIError{Status: http.StatusNotFound, Message: "评论不存在"}
		}
		p.Comments = comments
		return nil
	})
}

func (f *fakeService) DeletePost(ctx context.Context, postID uint64) error {
	gate, err := f.enter("delete")
	if err == nil {
		f.mu.Lock()
		err = &client.APIError{Status: http.StatusNotFound, Message: "帖子不存在"}
		for i, p := range f.posts {
			if p.ID == postID {
				f.posts = append(f.posts[:i:i], f.posts[i+1:]...)
				err = nil
				break
			}
		}
		f.mu.Unlock()
	}
	if waitErr := wait(ctx, gate); waitErr != nil {
		return waitErr
	}
	return err
}
