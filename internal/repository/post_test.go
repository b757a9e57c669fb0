package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Content: "Content", AuthorID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice, "first", time.Now())

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)
	assert.Empty(t, got.Author.Password, "author password must never be loaded")

	_, err = repo.GetByID(ctx, 9999)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_ListRecent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		seedPost(t, db, alice, fmt.Sprintf("post-%02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	posts, err := repo.ListRecent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, posts, 20)

	assert.Equal(t, "post-24", posts[0].Title)
	assert.Equal(t, "post-05", posts[19].Title)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt), "posts must be newest first")
	}
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "alice", posts[0].Author.Username)
}

func TestPostRepository_UpdateKeepsAuthor(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice, "draft", time.Now())

	loaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)

	loaded.Title = "published"
	loaded.Cover = "uploads/new.png"
	// A tampered association must not leak into the users table or the author id.
	loaded.Author = &models.User{ID: alice.ID, Username: "mallory"}
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "published", reloaded.Title)
	assert.Equal(t, "uploads/new.png", reloaded.Cover)
	assert.Equal(t, alice.ID, reloaded.AuthorID)
	assert.Equal(t, "alice", reloaded.Author.Username)
}

func TestPostRepository_Delete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice, "doomed", time.Now())

	require.NoError(t, repo.Delete(ctx, post.ID))

	_, err := repo.GetByID(ctx, post.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	err = repo.Delete(ctx, post.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_CacheInvalidation(t *testing.T) {
	db := setupSQLiteDB(t)
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)

	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice, "cached", time.Now())

	_, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PostKey(post.ID)))

	post.Title = "changed"
	require.NoError(t, repo.Update(ctx, post))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)

	require.NoError(t, repo.Delete(ctx, post.ID))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))
}

func TestPostRepository_UpdateDropsEntryCachedDuringSave(t *testing.T) {
	db := setupSQLiteDB(t)
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)

	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice, "original", time.Now())
	stale := *post

	// Simulate a reader that missed the cache and stores the old row while the update is in flight.
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:stale_fill", func(*gorm.DB) {
		cache.SetJSON(ctx, cache.PostKey(stale.ID), &stale, cache.PostTTL)
	}))

	post.Title = "revised"
	require.NoError(t, repo.Update(ctx, post))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Title)
}
