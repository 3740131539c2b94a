package community

import (
	"Haven/internal/api/dto"
	"Haven/internal/client"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

var bob = Session{UserID: "b@x.com", Name: "Bob", Role: model.RoleUser}

type fakeTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *fakeTimers) afterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, f)
}

func (s *fakeTimers) fireAll() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func seedPosts() []*dto.PostDTO {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []*dto.PostDTO{
		{ID: 3, Author: "Cy", AuthorID: "c@x.com", Category: "Fitness", Title: "Leg day", Content: "Squats all day", Likes: 1, LikedBy: []string{"c@x.com"}, Comments: []*dto.CommentDTO{}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, Author: "Ann", AuthorID: "a@x.com", Category: "Nutrition", Title: "Meal prep", Content: "Protein ideas", Likes: 0, LikedBy: []string{}, Comments: []*dto.CommentDTO{{ID: 50, Author: "Cy", AuthorID: "c@x.com", Content: "yum"}}, CreatedAt: base.Add(time.Hour)},
		{ID: 1, Author: "Ann", AuthorID: "a@x.com", Category: "General", Title: "Hi", Content: "Hello fitness fans", Likes: 2, LikedBy: []string{"a@x.com", "c@x.com"}, Comments: []*dto.CommentDTO{}, CreatedAt: base},
	}
}

func startView(t *testing.T, svc Service, opts ...Option) (*View, *fakeTimers) {
	t.Helper()
	timers := &fakeTimers{}
	opts = append([]Option{WithAfterFunc(timers.afterFunc)}, opts...)
	v := NewView(svc, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = v.Run(ctx)
	}()
	t.Cleanup(cancel)
	return v, timers
}

func loadedView(t *testing.T, svc *fakeService, opts ...Option) (*View, *fakeTimers) {
	t.Helper()
	v, timers := startView(t, svc, opts...)
	if err := v.SetSession(bob); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if err := v.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return v, timers
}

func cachedPost(t *testing.T, v *View, id uint64) *dto.PostDTO {
	t.Helper()
	p, _ := v.State().Find(id)
	if p == nil {
		t.Fatalf("post %d not in cache", id)
	}
	return p
}

// waitCalls 等待服务端收到 n 次 op 调用, 保证被阻塞的是先发出的那次
func waitCalls(t *testing.T, svc *fakeService, op string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.callCount(op) < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s was called %d times, want %d", op, svc.callCount(op), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitSettled 等待所有已发出的变更得到结果, 不等待被阻塞的列表请求
func waitSettled(t *testing.T, v *View) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		state := v.State()
		pending := len(state.Latest) != 0
		for _, p := range state.Posts {
			if IsTempID(p.ID) {
				pending = true
			}
		}
		if !pending {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("mutations never settled: %v", state.Latest)
		}
		time.Sleep(time.Millisecond)
	}
}

func countID(posts []*dto.PostDTO, id uint64) int {
	n := 0
	for _, p := range posts {
		if p.ID == id {
			n++
		}
	}
	return n
}

func ids(posts []*dto.PostDTO) []uint64 {
	out := make([]uint64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func sameIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadAndSort(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	if got := ids(v.Visible()); !sameIDs(got, []uint64{3, 2, 1}) {
		t.Fatalf("newest: got %v", got)
	}
	if err := v.SetSort(consts.SortPopular); err != nil {
		t.Fatalf("set sort: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := ids(v.Visible()); !sameIDs(got, []uint64{1, 3, 2}) {
		t.Fatalf("popular: got %v", got)
	}
	if n := svc.callCount("list"); n != 2 {
		t.Fatalf("expected a reload on sort change, got %d list calls", n)
	}
	if err := v.SetSort("oldest"); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}

func TestToggleLikeIsOptimisticThenAcceptsServerPost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	gate := svc.holdNext("like")
	if err := v.ToggleLike(2); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	optimistic := cachedPost(t, v, 2)
	if optimistic.Likes != 1 || len(optimistic.LikedBy) != 1 || optimistic.LikedBy[0] != bob.UserID {
		t.Fatalf("expected optimistic like, got likes=%d likedBy=%v", optimistic.Likes, optimistic.LikedBy)
	}

	close(gate)
	if err := v.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := cachedPost(t, v, 2)
	want := svc.server(2)
	if got.Likes != want.Likes || len(got.LikedBy) != len(want.LikedBy) {
		t.Fatalf("expected server state, got likes=%d want %d", got.Likes, want.Likes)
	}
	if len(v.State().Latest) != 0 {
		t.Fatalf("expected generation bookkeeping to be cleared, got %v", v.State().Latest)
	}
}

func TestFailedLikeRollsBackAndShowsToast(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, timers := loadedView(t, svc)
	before := cachedPost(t, v, 1)

	svc.failNext("like", &client.APIError{Status: http.StatusInternalServerError, Message: "存储异常，请稍后重试"})
	if err := v.ToggleLike(1); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	state := v.State()
	after, _ := state.Find(1)
	if after.Likes != before.Likes || len(after.LikedBy) != len(before.LikedBy) {
		t.Fatalf("expected rollback to likes=%d, got %d", before.Likes, after.Likes)
	}
	if state.Toast == nil || !strings.Contains(state.Toast.Message, "存储异常") {
		t.Fatalf("expected failure toast, got %+v", state.Toast)
	}
	if len(timers.delays) != 1 || timers.delays[0] != DefaultToastDelay {
		t.Fatalf("expected one toast timer of %v, got %v", DefaultToastDelay, timers.delays)
	}

	timers.fireAll()
	if toast := v.State().Toast; toast != nil {
		t.Fatalf("expected toast dismissed, got %+v", toast)
	}
}

func TestToastAutoDismissWithRealTimer(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v := NewView(svc, WithToastDelay(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = v.Run(ctx)
	}()
	_ = v.SetSession(bob)
	_ = v.Load()
	_ = v.Flush()

	svc.failNext("comment", errors.New("boom"))
	if err := v.AddComment(1, "nice"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	_ = v.Flush()
	if v.State().Toast == nil {
		t.Fatalf("expected toast after failure")
	}

	deadline := time.Now().Add(2 * time.Second)
	for v.State().Toast != nil {
		if time.Now().After(deadline) {
			t.Fatalf("toast was not dismissed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateReplacesTemporaryPost(t *testing.T) {
	svc := newFakeService(bob.UserID)
	v, _ := loadedView(t, svc)

	gate := svc.holdNext("create")
	if err := v.Create(dto.CreatePostDTO{Category: "General", Title: "Hi", Content: "Hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	pending := v.State().Posts
	if len(pending) != 1 || !IsTempID(pending[0].ID) || pending[0].AuthorID != bob.UserID || pending[0].Author != bob.Name {
		t.Fatalf("expected one temporary post, got %+v", pending)
	}
	if err := v.ToggleLike(pending[0].ID); !errors.Is(err, ErrPostPending) {
		t.Fatalf("expected ErrPostPending, got %v", err)
	}

	close(gate)
	_ = v.Flush()
	posts := v.State().Posts
	if len(posts) != 1 || IsTempID(posts[0].ID) || posts[0].ID != 101 {
		t.Fatalf("expected server post to replace temporary one, got %+v", posts)
	}
}

func TestFailedCreateRemovesTemporaryPost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	svc.failNext("create", &client.APIError{Status: http.StatusBadRequest, Message: "分类无效"})
	if err := v.Create(dto.CreatePostDTO{Category: "General", Title: "Hi", Content: "Hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = v.Flush()
	if got := ids(v.State().Posts); !sameIDs(got, []uint64{3, 2, 1}) {
		t.Fatalf("expected cache restored, got %v", got)
	}
	if v.State().Toast == nil {
		t.Fatalf("expected toast")
	}

	if err := v.Create(dto.CreatePostDTO{Category: "General", Title: "  ", Content: "Hello"}); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
}

func TestFailedDeleteRestoresFullList(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)
	before := ids(v.State().Posts)

	svc.failNext("delete", &client.APIError{Status: http.StatusForbidden, Message: "权限不足"})
	if err := v.DeletePost(2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = v.Flush()

	if got := ids(v.State().Posts); !sameIDs(got, before) {
		t.Fatalf("expected %v after rollback, got %v", before, got)
	}
	if toast := v.State().Toast; toast == nil || !strings.Contains(toast.Message, "权限不足") {
		t.Fatalf("expected forbidden toast, got %+v", toast)
	}
}

func TestFailedDeleteAfterNewerMutationReinsertsPost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	svc.failNext("delete", &client.APIError{Status: http.StatusForbidden, Message: "权限不足"})
	gate := svc.holdNext("delete")
	if err := v.DeletePost(2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, idx := v.State().Find(2); idx != -1 {
		t.Fatalf("expected optimistic removal")
	}
	if err := v.ToggleLike(3); err != nil {
		t.Fatalf("like: %v", err)
	}

	close(gate)
	_ = v.Flush()

	state := v.State()
	if got := ids(state.Posts); !sameIDs(got, []uint64{3, 2, 1}) {
		t.Fatalf("expected post reinserted at its index, got %v", got)
	}
	liked, _ := state.Find(3)
	if !liked.LikedByUser(bob.UserID) || liked.Likes != 2 {
		t.Fatalf("newer like must survive the rollback, got likes=%d likedBy=%v", liked.Likes, liked.LikedBy)
	}
}

func TestSupersededSuccessIsDiscarded(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	gate := svc.holdNext("like")
	if err := v.ToggleLike(2); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	waitCalls(t, svc, "like", 1)
	if err := v.ToggleLike(2); err != nil {
		t.Fatalf("second toggle: %v", err)
	}

	// 第二次请求先返回; 第一次的响应到达时已过期
	deadline := time.Now().Add(2 * time.Second)
	for svc.callCount("like") < 2 || len(v.State().Latest) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("second toggle never settled")
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)
	_ = v.Flush()

	got := cachedPost(t, v, 2)
	want := svc.server(2)
	if got.Likes != 0 || want.Likes != 0 {
		t.Fatalf("expected client and server to agree on 0 likes, got client=%d server=%d", got.Likes, want.Likes)
	}
	if v.State().Toast != nil {
		t.Fatalf("a discarded success must not raise a toast")
	}
}

func TestSupersededFailureRefreshesInsteadOfRollingBack(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)
	listCalls := svc.callCount("list")

	svc.failNext("like", errors.New("connection reset"))
	gate := svc.holdNext("like")
	if err := v.ToggleLike(2); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	waitCalls(t, svc, "like", 1)
	if err := v.ToggleLike(2); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for svc.callCount("like") < 2 || len(v.State().Latest) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("second toggle never settled")
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)
	_ = v.Flush()

	if n := svc.callCount("list"); n != listCalls+1 {
		t.Fatalf("expected one refresh, got %d extra list calls", n-listCalls)
	}
	state := v.State()
	if state.Toast == nil {
		t.Fatalf("expected toast for the superseded failure")
	}
	got, _ := state.Find(2)
	if want := svc.server(2); got.Likes != want.Likes || got.Likes != 1 {
		t.Fatalf("expected refreshed server state likes=1, got client=%d server=%d", got.Likes, want.Likes)
	}
}

func TestTimeoutRollsBack(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc, WithTimeout(20*time.Millisecond))

	gate := svc.holdNext("comment")
	defer close(gate)
	if err := v.AddComment(1, "nice"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(cachedPost(t, v, 1).Comments) != 1 {
		t.Fatalf("expected optimistic comment")
	}
	_ = v.Flush()

	state := v.State()
	got, _ := state.Find(1)
	if len(got.Comments) != 0 {
		t.Fatalf("expected comment rolled back after timeout")
	}
	if state.Toast == nil || !strings.Contains(state.Toast.Message, "请求超时") {
		t.Fatalf("expected timeout toast, got %+v", state.Toast)
	}
}

func TestDeleteCommentAcceptsServerPost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	if err := v.DeleteComment(2, 50); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if len(cachedPost(t, v, 2).Comments) != 0 {
		t.Fatalf("expected optimistic removal")
	}
	_ = v.Flush()
	if len(cachedPost(t, v, 2).Comments) != 0 || len(svc.server(2).Comments) != 0 {
		t.Fatalf("expected comment gone on both sides")
	}

	if err := v.DeleteComment(2, 50); err != nil {
		t.Fatalf("delete comment again: %v", err)
	}
	_ = v.Flush()
	if v.State().Toast == nil {
		t.Fatalf("expected toast for missing comment")
	}
}

func TestPreconditions(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := startView(t, svc)
	_ = v.Load()
	_ = v.Flush()

	if err := v.ToggleLike(1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	_ = v.SetSession(bob)
	if err := v.ToggleLike(999); !errors.Is(err, ErrPostNotCached) {
		t.Fatalf("expected ErrPostNotCached, got %v", err)
	}
	if err := v.AddComment(1, "   "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("expected ErrEmptyComment, got %v", err)
	}
	if err := v.SetCategory("Gossip"); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if n := svc.callCount("like") + svc.callCount("comment"); n != 0 {
		t.Fatalf("rejected actions must not reach the service, got %d calls", n)
	}
}

func TestFilterAndSearchThroughView(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	if err := v.SetCategory("Fitness"); err != nil {
		t.Fatalf("set category: %v", err)
	}
	if got := ids(v.Visible()); !sameIDs(got, []uint64{3}) {
		t.Fatalf("category filter: got %v", got)
	}
	_ = v.SetCategory(consts.CategoryAll)
	_ = v.SetQuery("FITNESS")
	if got := ids(v.Visible()); !sameIDs(got, []uint64{1}) {
		t.Fatalf("search: got %v", got)
	}
	if n := len(v.State().Posts); n != 3 {
		t.Fatalf("filtering must not change the cache, got %d posts", n)
	}
}

func TestClosedView(t *testing.T) {
	v := NewView(newFakeService(bob.UserID, seedPosts()...))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = v.Run(ctx)
		close(done)
	}()
	_ = v.SetSession(bob)
	_ = v.Load()
	_ = v.Flush()
	cancel()
	<-done
	if err := v.Load(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	state := v.State()
	if got := ids(state.Posts); !sameIDs(got, []uint64{3, 2, 1}) {
		t.Fatalf("expected the final state after close, got %v", got)
	}
	if state.Latest == nil || state.Session.UserID != bob.UserID {
		t.Fatalf("closed view returned a zero state: %+v", state)
	}
}

func TestListLoadedBeforeCreateKeepsCreatedPost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	gate := svc.holdNext("list")
	if err := v.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitCalls(t, svc, "list", 2)
	if err := v.Create(dto.CreatePostDTO{Category: "General", Title: "New", Content: "Fresh"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitSettled(t, v)

	// 列表快照在创建前取得, 晚于创建结果到达
	close(gate)
	if err := v.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if svc.server(101) == nil {
		t.Fatalf("server should hold the created post")
	}
	posts := v.State().Posts
	if countID(posts, 101) != 1 {
		t.Fatalf("created post must stay cached exactly once, got %v", ids(posts))
	}
	if n := svc.callCount("list"); n != 3 {
		t.Fatalf("expected the outdated list to be fetched again, got %d list calls", n)
	}
}

func TestListLoadedBeforeDeleteDoesNotRestorePost(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	gate := svc.holdNext("list")
	if err := v.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitCalls(t, svc, "list", 2)
	if err := v.DeletePost(3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitSettled(t, v)

	close(gate)
	_ = v.Flush()

	if svc.server(3) != nil {
		t.Fatalf("server should have deleted post 3")
	}
	if got := ids(v.State().Posts); !sameIDs(got, []uint64{2, 1}) {
		t.Fatalf("deleted post reappeared in the cache: %v", got)
	}
}

func TestListDuringPendingMutationsKeepsLocalState(t *testing.T) {
	svc := newFakeService(bob.UserID, seedPosts()...)
	v, _ := loadedView(t, svc)

	createGate := svc.holdNext("create")
	if err := v.Create(dto.CreatePostDTO{Category: "General", Title: "New", Content: "Fresh"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitCalls(t, svc, "create", 1)
	svc.failNext("delete", &client.APIError{Status: http.StatusForbidden, Message: "权限不足"})
	deleteGate := svc.holdNext("delete")
	if err := v.DeletePost(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitCalls(t, svc, "delete", 1)

	// 列表在两个变更发出之后请求, 返回时二者仍未完成
	if err := v.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for svc.callCount("list") < 2 || v.State().Loading {
		if time.Now().After(deadline) {
			t.Fatalf("list never applied")
		}
		time.Sleep(time.Millisecond)
	}

	posts := v.State().Posts
	if len(posts) == 0 || !IsTempID(posts[0].ID) {
		t.Fatalf("pending post must stay in front, got %v", ids(posts))
	}
	if countID(posts, 1) != 0 {
		t.Fatalf("pending delete must not be undone by the list, got %v", ids(posts))
	}

	close(createGate)
	close(deleteGate)
	_ = v.Flush()

	posts = v.State().Posts
	if countID(posts, 101) != 1 || countID(posts, 1) != 1 {
		t.Fatalf("expected created post once and rejected delete restored, got %v", ids(posts))
	}
	for _, p := range posts {
		if IsTempID(p.ID) {
			t.Fatalf("temporary post left behind: %v", ids(posts))
		}
	}
}
