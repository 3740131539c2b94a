package repository

import (
	"Haven/internal/api/config"
	"Haven/internal/model"
	"Haven/internal/pkg/database"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := database.NewGormDB(&config.DBConfig{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func insertPost(t *testing.T, repo DiscussionRepo, title string) *model.Post {
	t.Helper()
	post, err := repo.Insert(context.Background(), &model.Post{
		Author:   "Ann",
		AuthorID: "a@x.com",
		Category: "General",
		Title:    title,
		Content:  "Hello",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return post
}

func TestInsertAssignsIDAndEmptyCollections(t *testing.T) {
	repo := NewDiscussionRepo(setupTestDB(t))

	post := insertPost(t, repo, "Hi")
	if post.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if post.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be assigned")
	}
	if post.Likes != 0 || len(post.LikedBy) != 0 || len(post.Comments) != 0 {
		t.Fatalf("expected fresh post, got likes=%d likedBy=%d comments=%d", post.Likes, len(post.LikedBy), len(post.Comments))
	}

	second := insertPost(t, repo, "Again")
	if second.ID <= post.ID {
		t.Fatalf("expected increasing ids, got %d then %d", post.ID, second.ID)
	}
}

func TestToggleLikeKeepsCountInSync(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")

	sequence := []string{"b@x.com", "c@x.com", "b@x.com", "d@x.com", "c@x.com", "b@x.com"}
	for i, user := range sequence {
		got, err := repo.ToggleLike(ctx, post.ID, user)
		if err != nil {
			t.Fatalf("step %d: toggle: %v", i, err)
		}
		if got.Likes != len(got.LikedBy) {
			t.Fatalf("step %d: likes=%d but likedBy has %d", i, got.Likes, len(got.LikedBy))
		}
	}

	got, err := repo.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Likes != 2 || !got.LikedByUser("b@x.com") || !got.LikedByUser("d@x.com") || got.LikedByUser("c@x.com") {
		t.Fatalf("unexpected final like state: likes=%d likedBy=%v", got.Likes, got.LikedBy)
	}
}

func TestToggleLikeTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")

	if _, err := repo.ToggleLike(ctx, post.ID, "b@x.com"); err != nil {
		t.Fatalf("like: %v", err)
	}
	got, err := repo.ToggleLike(ctx, post.ID, "b@x.com")
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if got.Likes != 0 || len(got.LikedBy) != 0 {
		t.Fatalf("expected no likes after double toggle, got likes=%d likedBy=%v", got.Likes, got.LikedBy)
	}
}

func TestConcurrentTogglesFromDifferentUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")

	const users = 8
	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.ToggleLike(ctx, post.ID, fmt.Sprintf("user%d@x.com", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle: %v", err)
	}

	got, err := repo.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Likes != users || len(got.LikedBy) != users {
		t.Fatalf("expected %d likes, got likes=%d likedBy=%d", users, got.Likes, len(got.LikedBy))
	}
}

func TestRemoveTwiceFailsWithNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")
	if _, err := repo.ToggleLike(ctx, post.ID, "b@x.com"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := repo.AppendComment(ctx, post.ID, &model.PostComment{Author: "Cy", AuthorID: "c@x.com", Content: "nice"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	if err := repo.Remove(ctx, post.ID); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := repo.Remove(ctx, post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on second remove, got %v", err)
	}
	if _, err := repo.Get(ctx, post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on get, got %v", err)
	}
	if _, err := repo.ToggleLike(ctx, post.ID, "b@x.com"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on toggle, got %v", err)
	}
}

func TestCommentsAppendAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")

	var got *model.Post
	var err error
	for _, content := range []string{"first", "second", "third"} {
		got, err = repo.AppendComment(ctx, post.ID, &model.PostComment{Author: "Cy", AuthorID: "c@x.com", Content: content})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if len(got.Comments) != 3 || got.Comments[0].Content != "first" || got.Comments[2].Content != "third" {
		t.Fatalf("expected comments in append order, got %+v", got.Comments)
	}

	middle := got.Comments[1].ID
	got, err = repo.RemoveComment(ctx, post.ID, middle)
	if err != nil {
		t.Fatalf("remove comment: %v", err)
	}
	if len(got.Comments) != 2 || got.Comments[0].Content != "first" || got.Comments[1].Content != "third" {
		t.Fatalf("expected middle comment removed, got %+v", got.Comments)
	}

	if _, err = repo.RemoveComment(ctx, post.ID, middle); !errors.Is(err, ErrPostCommentNotFound) {
		t.Fatalf("expected ErrPostCommentNotFound, got %v", err)
	}
	if _, err = repo.AppendComment(ctx, post.ID+100, &model.PostComment{Content: "x"}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound for missing post, got %v", err)
	}
}

func TestCommentOnOtherPostIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	first := insertPost(t, repo, "One")
	second := insertPost(t, repo, "Two")

	got, err := repo.AppendComment(ctx, first.ID, &model.PostComment{Author: "Cy", AuthorID: "c@x.com", Content: "nice"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err = repo.RemoveComment(ctx, second.ID, got.Comments[0].ID); !errors.Is(err, ErrPostCommentNotFound) {
		t.Fatalf("expected ErrPostCommentNotFound, got %v", err)
	}
}

func TestReplaceMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscussionRepo(setupTestDB(t))
	post := insertPost(t, repo, "Hi")

	got, err := repo.Replace(ctx, post.ID, map[string]any{"title": "Edited"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got.Title != "Edited" || got.Content != "Hello" {
		t.Fatalf("expected only title to change, got title=%q content=%q", got.Title, got.Content)
	}
	if _, err = repo.Replace(ctx, post.ID+100, map[string]any{"title": "x"}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestRecountLikesRepairsDrift(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewDiscussionRepo(db)
	post := insertPost(t, repo, "Hi")
	if _, err := repo.ToggleLike(ctx, post.ID, "b@x.com"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := db.Model(&model.Post{}).Where("id = ?", post.ID).UpdateColumn("likes", 7).Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	fixed, err := repo.RecountLikes(ctx)
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if fixed != 1 {
		t.Fatalf("expected 1 repaired post, got %d", fixed)
	}
	got, err := repo.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Likes != 1 {
		t.Fatalf("expected likes=1 after recount, got %d", got.Likes)
	}
}

func TestUserRepoLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))

	missing, err := repo.GetUserByEmail(ctx, "nobody@x.com")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing user, got %v, %v", missing, err)
	}

	user := &model.User{Email: "a@x.com", DisplayName: "Ann", Password: "hash", Role: model.RoleUser}
	if err = repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err = repo.CreateUser(ctx, &model.User{Email: "a@x.com", DisplayName: "Dup", Password: "hash"}); !errors.Is(err, ErrUserExist) {
		t.Fatalf("expected ErrUserExist, got %v", err)
	}

	user.Role = model.RoleAdmin
	if err = repo.SaveUser(ctx, user); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.GetUserByEmail(ctx, "a@x.com")
	if err != nil || got == nil {
		t.Fatalf("lookup: %v", err)
	}
	if !got.Role.IsAdmin() {
		t.Fatalf("expected admin role, got %q", got.Role)
	}
}
