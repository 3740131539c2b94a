package community

import (
	"Haven/internal/api/dto"
	"Haven/internal/client"
	"Haven/internal/pkg/consts"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultToastDelay = 3 * time.Second
)

var (
	ErrClosed         = errors.New("社区视图已关闭")
	ErrNoSession      = errors.New("请先登录")
	ErrPostNotCached  = errors.New("帖子不在缓存中")
	ErrPostPending    = errors.New("帖子仍在发布中")
	ErrEmptyField     = errors.New("标题和内容不能为空")
	ErrEmptyComment   = errors.New("评论不能为空")
	ErrInvalidSort    = errors.New("排序方式无效")
	ErrInvalidFilter  = errors.New("分类无效")
	ErrCommentPending = errors.New("评论仍在发布中")
)

// Service 视图依赖的讨论服务调用, 由 client.DiscussionClient 实现
type Service interface {
	List(ctx context.Context, sort string) ([]*dto.PostDTO, error)
	Create(ctx context.Context, post *dto.CreatePostDTO) (*dto.PostDTO, error)
	ToggleLike(ctx context.Context, postID uint64) (*dto.PostDTO, error)
	AddComment(ctx context.Context, postID uint64, content string) (*dto.PostDTO, error)
	DeletePost(ctx context.Context, postID uint64) error
	DeleteComment(ctx context.Context, postID, commentID uint64) (*dto.PostDTO, error)
}

type Option func(*View)

// WithTimeout 单次服务调用的超时
func WithTimeout(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func WithToastDelay(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.toastDelay = d
		}
	}
}

// WithAfterFunc 替换提示自动关闭使用的定时器
func WithAfterFunc(fn func(time.Duration, func())) Option {
	return func(v *View) {
		v.afterFunc = fn
	}
}

// WithOnChange 每次状态变化后在事件循环内回调
func WithOnChange(fn func(State)) Option {
	return func(v *View) {
		v.onChange = fn
	}
}

// View 客户端社区视图. 所有状态变化都在 Run 的事件循环中串行执行,
// 对外方法可以在任意 goroutine 调用.
type View struct {
	svc        Service
	timeout    time.Duration
	toastDelay time.Duration
	afterFunc  func(time.Duration, func())
	onChange   func(State)

	events  chan func()
	started chan struct{}
	closed  chan struct{}

	// 以下字段只在事件循环内访问
	runCtx       context.Context
	state        State
	inflight     int
	flushWaiters []chan struct{}
	toastSeq     uint64
	listGen      uint64
}

func NewView(svc Service, opts ...Option) *View {
	v := &View{
		svc:        svc,
		timeout:    DefaultTimeout,
		toastDelay: DefaultToastDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		events:  make(chan func(), 64),
		started: make(chan struct{}),
		closed:  make(chan struct{}),
		state:   NewState(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run 事件循环, 阻塞直到 ctx 结束
func (v *View) Run(ctx context.Context) error {
	select {
	case <-v.started:
		return errors.New("社区视图已在运行")
	default:
	}
	v.runCtx = ctx
	close(v.started)
	defer close(v.closed)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-v.events:
			ev()
		}
	}
}

// post 投递事件, 不等待执行
func (v *View) post(ev func()) {
	select {
	case v.events <- ev:
	case <-v.closed:
	}
}

// do 投递事件并等待其在事件循环中执行完毕
func (v *View) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case v.events <- func() { fn(); close(ran) }:
	case <-v.closed:
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-v.closed:
		return ErrClosed
	}
}

func (v *View) mutate(fn func() error) error {
	var err error
	if doErr := v.do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func (v *View) apply(r Reducer) {
	v.state = r(v.state)
	if v.onChange != nil {
		v.onChange(v.state)
	}
}

// launch 在独立 goroutine 中调用服务, 结果回到事件循环处理
func (v *View) launch(call func(ctx context.Context) error, done func(err error)) {
	v.inflight++
	runCtx := v.runCtx
	go func() {
		ctx, cancel := context.WithTimeout(runCtx, v.timeout)
		err := call(ctx)
		cancel()
		v.post(func() {
			done(err)
			v.inflight--
			v.notifyFlush()
		})
	}()
}

func (v *View) notifyFlush() {
	if v.inflight > 0 {
		return
	}
	for _, ch := range v.flushWaiters {
		close(ch)
	}
	v.flushWaiters = nil
}

// Flush 等待所有进行中的服务调用及其结果处理完成
func (v *View) Flush() error {
	ch := make(chan struct{})
	err := v.do(func() {
		if v.inflight == 0 {
			close(ch)
			return
		}
		v.flushWaiters = append(v.flushWaiters, ch)
	})
	if err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-v.closed:
		return ErrClosed
	}
}

// State 当前状态的快照. 视图关闭后返回关闭时的最终状态
func (v *View) State() State {
	var s State
	if err := v.do(func() { s = v.state }); err != nil {
		// 事件循环已退出, state 不会再被修改
		return v.state
	}
	return s
}

// Visible 当前应展示的帖子
func (v *View) Visible() []*dto.PostDTO {
	return v.State().Visible()
}

func (v *View) SetSession(session Session) error {
	return v.do(func() { v.apply(SetSession(session)) })
}

// Load 按当前排序拉取列表
func (v *View) Load() error {
	return v.do(v.refresh)
}

// SetSort 切换排序并重新拉取
func (v *View) SetSort(sort string) error {
	if sort != consts.SortNewest && sort != consts.SortPopular {
		return ErrInvalidSort
	}
	return v.do(func() {
		v.apply(SetSort(sort))
		v.refresh()
	})
}

func (v *View) SetCategory(category string) error {
	if category != consts.CategoryAll && !consts.IsCategory(category) {
		return ErrInvalidFilter
	}
	return v.do(func() { v.apply(SetCategory(category)) })
}

func (v *View) SetQuery(query string) error {
	return v.do(func() { v.apply(SetQuery(query)) })
}

// refresh 拉取列表. 请求期间若有新的变更发出, 返回的列表可能早于那些变更, 丢弃并重新拉取;
// 否则与仍在进行中的变更合并
func (v *View) refresh() {
	v.listGen++
	gen := v.listGen
	mutGen := v.state.Gen
	sortBy := v.state.Sort
	v.apply(SetLoading(true))

	var posts []*dto.PostDTO
	v.launch(func(ctx context.Context) error {
		var err error
		posts, err = v.svc.List(ctx, sortBy)
		return err
	}, func(err error) {
		if gen != v.listGen {
			return
		}
		if err != nil {
			log.Warn("load discussions failed", "err", err)
			v.apply(SetLoading(false))
			v.showToast("加载讨论失败: " + describe(err))
			return
		}
		if v.state.Gen != mutGen {
			log.Debug("discard list superseded by mutation", "list_gen", gen, "mut_gen", mutGen, "gen", v.state.Gen)
			v.refresh()
			return
		}
		v.apply(MergePosts(posts))
	})
}

func (v *View) nextGen(key uint64) uint64 {
	gen := v.state.Gen + 1
	v.apply(Track(key, gen))
	return gen
}

// settle 处理一次变更的结果: 最新代数成功则接受服务端结果, 失败则回滚;
// 已被后续变更取代的结果成功时丢弃, 失败时提示并重新拉取
func (v *View) settle(key, gen uint64, action string, err error, onSuccess, rollback func()) {
	current := v.state.IsCurrent(key, gen)
	if current {
		v.apply(Untrack(key, gen))
	}
	if err == nil {
		if current && onSuccess != nil {
			onSuccess()
		}
		return
	}

	log.Warn("community mutation failed", "action", action, "key", key, "gen", gen, "stale", !current, "err", err)
	v.showToast(fmt.Sprintf("%s失败: %s", action, describe(err)))
	if current {
		rollback()
		return
	}
	v.refresh()
}

func (v *View) showToast(message string) {
	v.toastSeq++
	id := v.toastSeq
	v.apply(ShowToast(Toast{ID: id, Message: message}))
	v.afterFunc(v.toastDelay, func() {
		v.post(func() { v.apply(DismissToast(id)) })
	})
}

func (v *View) cached(postID uint64) (*dto.PostDTO, int, error) {
	if !v.state.Session.LoggedIn() {
		return nil, -1, ErrNoSession
	}
	if IsTempID(postID) {
		return nil, -1, ErrPostPending
	}
	post, idx := v.state.Find(postID)
	if post == nil {
		return nil, -1, ErrPostNotCached
	}
	return post, idx, nil
}

// ToggleLike 乐观切换点赞
func (v *View) ToggleLike(postID uint64) error {
	return v.mutate(func() error {
		snapshot, _, err := v.cached(postID)
		if err != nil {
			return err
		}
		gen := v.nextGen(postID)
		v.apply(ToggleLikeLocal(postID, v.state.Session.UserID))

		var result *dto.PostDTO
		v.launch(func(ctx context.Context) error {
			var err error
			result, err = v.svc.ToggleLike(ctx, postID)
			return err
		}, func(err error) {
			v.settle(postID, gen, "点赞", err,
				func() { v.apply(ReplacePost(result)) },
				func() { v.apply(ReplacePost(snapshot)) })
		})
		return nil
	})
}

// AddComment 乐观追加评论
func (v *View) AddComment(postID uint64, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyComment
	}
	return v.mutate(func() error {
		snapshot, _, err := v.cached(postID)
		if err != nil {
			return err
		}
		session := v.state.Session
		gen := v.nextGen(postID)
		v.apply(AppendCommentLocal(postID, &dto.CommentDTO{
			ID:        TempIDBase + gen,
			Author:    session.Name,
			AuthorID:  session.UserID,
			Content:   content,
			CreatedAt: time.Now(),
		}))

		var result *dto.PostDTO
		v.launch(func(ctx context.Context) error {
			var err error
			result, err = v.svc.AddComment(ctx, postID, content)
			return err
		}, func(err error) {
			v.settle(postID, gen, "评论", err,
				func() { v.apply(ReplacePost(result)) },
				func() { v.apply(ReplacePost(snapshot)) })
		})
		return nil
	})
}

// Create 乐观发帖, 成功后用服务端返回的帖子替换临时帖子
func (v *View) Create(req dto.CreatePostDTO) error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return ErrEmptyField
	}
	return v.mutate(func() error {
		session := v.state.Session
		if !session.LoggedIn() {
			return ErrNoSession
		}
		if req.Author == "" {
			req.Author = session.Name
		}
		req.AuthorID = session.UserID

		gen := v.state.Gen + 1
		tempID := TempIDBase + gen
		v.apply(Track(tempID, gen))
		v.apply(PrependPost(&dto.PostDTO{
			ID:        tempID,
			Author:    req.Author,
			AuthorID:  req.AuthorID,
			Category:  req.Category,
			Title:     req.Title,
			Content:   req.Content,
			LikedBy:   []string{},
			Comments:  []*dto.CommentDTO{},
			CreatedAt: time.Now(),
		}))

		var result *dto.PostDTO
		v.launch(func(ctx context.Context) error {
			var err error
			result, err = v.svc.Create(ctx, &req)
			return err
		}, func(err error) {
			v.settle(tempID, gen, "发帖", err,
				func() { v.apply(ReplacePostID(tempID, result)) },
				func() { v.apply(RemovePost(tempID)) })
		})
		return nil
	})
}

// DeletePost 乐观删除. 回滚时若期间没有其他变更则恢复整个列表, 否则把帖子放回原位置
func (v *View) DeletePost(postID uint64) error {
	return v.mutate(func() error {
		snapshot, idx, err := v.cached(postID)
		if err != nil {
			return err
		}
		listSnapshot := v.state.Posts
		listGen := v.listGen
		gen := v.nextGen(postID)
		v.apply(RemovePost(postID))

		v.launch(func(ctx context.Context) error {
			return v.svc.DeletePost(ctx, postID)
		}, func(err error) {
			v.settle(postID, gen, "删除帖子", err, nil, func() {
				if v.state.Gen == gen && v.listGen == listGen {
					v.apply(SetPosts(listSnapshot))
					return
				}
				v.apply(InsertPostAt(snapshot, idx))
			})
		})
		return nil
	})
}

// DeleteComment 乐观删除评论
func (v *View) DeleteComment(postID, commentID uint64) error {
	if IsTempID(commentID) {
		return ErrCommentPending
	}
	return v.mutate(func() error {
		snapshot, _, err := v.cached(postID)
		if err != nil {
			return err
		}
		gen := v.nextGen(postID)
		v.apply(RemoveCommentLocal(postID, commentID))

		var result *dto.PostDTO
		v.launch(func(ctx context.Context) error {
			var err error
			result, err = v.svc.DeleteComment(ctx, postID, commentID)
			return err
		}, func(err error) {
			v.settle(postID, gen, "删除评论", err,
				func() { v.apply(ReplacePost(result)) },
				func() { v.apply(ReplacePost(snapshot)) })
		})
		return nil
	})
}

func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "请求超时"
	default:
		return err.Error()
	}
}
