package repository

import (
	"context"
	"testing"
	"time"

	"dropview/internal/models"
	"dropview/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createPost(t *testing.T, repo PostRepository, userID uint, mutate ...func(*models.Post)) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Type: models.PostTypeQuestion, Title: "Title", Content: "Content"}
	for _, m := range mutate {
		m(post)
	}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

func TestPostRepository_CreateCreditsAuthor(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	post := createPost(t, repo, author.ID)
	assert.NotZero(t, post.ID)

	var actions int
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", author.ID).Select("community_actions_count").Scan(&actions).Error)
	assert.Equal(t, 1, actions)

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, models.Author{ID: author.ID, Username: author.Username, Name: author.Name}, *got.Author)
	assert.True(t, got.Image.IsZero())

	_, err = repo.GetByID(ctx, post.ID+100, 0)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var ids []uint
	for i := range 5 {
		p := createPost(t, repo, author.ID, func(p *models.Post) { p.CreatedAt = base.Add(time.Duration(i) * time.Hour) })
		ids = append(ids, p.ID)
	}

	page, err := repo.List(ctx, 2, 0, author.ID)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.NotNil(t, page[0].Author)

	page, err = repo.List(ctx, 2, 4, author.ID)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}

func TestPostRepository_ToggleLike(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	fan := testutil.CreateUser(t, db)
	post := createPost(t, repo, author.ID)

	res, err := repo.ToggleLike(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 1, Liked: true}, res)

	res, err = repo.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 2, Liked: true}, res)

	got, err := repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikesCount)
	assert.True(t, got.Liked)

	res, err = repo.ToggleLike(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 1, Liked: false}, res)

	got, err = repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.False(t, got.Liked)
}

func TestPostRepository_UpdateAndClearImage(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	post := createPost(t, repo, author.ID)

	post.Title = ""
	post.Content = "Edited"
	post.Image = models.PostImage{Filename: "a.jpg", Path: "/uploads/DropView/a.jpg", PublicID: "DropView/a"}
	post.CommentsCount = 42
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, "Edited", got.Content)
	assert.Equal(t, "DropView/a", got.Image.PublicID)
	assert.Equal(t, 0, got.CommentsCount)

	require.NoError(t, repo.ClearImage(ctx, post.ID))
	got, err = repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.True(t, got.Image.IsZero())
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	post := createPost(t, posts, author.ID)
	keep := createPost(t, posts, author.ID)

	top := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "top"}
	require.NoError(t, comments.Create(ctx, top))
	reply := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "reply", ParentCommentID: &top.ID}
	require.NoError(t, comments.Create(ctx, reply))
	other := &models.Comment{PostID: keep.ID, UserID: author.ID, Content: "elsewhere"}
	require.NoError(t, comments.Create(ctx, other))

	_, err := posts.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	_, err = comments.ToggleLike(ctx, reply.ID, author.ID)
	require.NoError(t, err)
	_, err = comments.ToggleLike(ctx, other.ID, author.ID)
	require.NoError(t, err)

	require.NoError(t, posts.Delete(ctx, post.ID))

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Post{}, "id = ?", post.ID))
	assert.Zero(t, count(&models.Comment{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.PostLike{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.CommentLike{}, "comment_id IN ?", []uint{top.ID, reply.ID}))

	assert.EqualValues(t, 1, count(&models.Comment{}, "post_id = ?", keep.ID))
	assert.EqualValues(t, 1, count(&models.CommentLike{}, "comment_id = ?", other.ID))

	assert.ErrorIs(t, posts.Delete(ctx, post.ID), gorm.ErrRecordNotFound)
}

func TestPostRepository_ReconcileCommentCounts(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	drifted := createPost(t, posts, author.ID)
	accurate := createPost(t, posts, author.ID)

	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: drifted.ID, UserID: author.ID, Content: "one"}))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: accurate.ID, UserID: author.ID, Content: "two"}))
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", drifted.ID).UpdateColumn("comments_count", 7).Error)

	fixed, err := posts.ReconcileCommentCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fixed)

	got, err := posts.GetByID(ctx, drifted.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	fixed, err = posts.ReconcileCommentCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
