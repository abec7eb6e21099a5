package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"dropview/internal/models"
	"dropview/internal/repository"
	"dropview/internal/storage"
	"dropview/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testNamespace = "DropView"

type postFixture struct {
	db       *gorm.DB
	posts    repository.PostRepository
	comments repository.CommentRepository
	assets   *storage.MemoryStore
	svc      *PostService
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &postFixture{
		db:       db,
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		assets:   storage.NewMemoryStore(testNamespace),
	}
	f.svc = NewPostService(f.posts, f.assets, storage.NewImageProcessor(0, 64, 0), testNamespace, nil)
	return f
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPostService_CreatePost(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)

	post, err := f.svc.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Type:    "Question",
		Title:   " Which serum? ",
		Content: " Looking for tips ",
		Image:   &ImageInput{Filename: "face.png", Data: pngBytes(t, 120, 80)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeQuestion, post.Type)
	assert.Equal(t, "Which serum?", post.Title)
	assert.Equal(t, "Looking for tips", post.Content)
	require.NotNil(t, post.Author)
	assert.Equal(t, author.ID, post.Author.ID)
	assert.True(t, f.assets.Has(post.Image.PublicID))
	assert.Equal(t, 1, f.assets.Len())

	var actions int
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", author.ID).Select("community_actions_count").Scan(&actions).Error)
	assert.Equal(t, 1, actions)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), storage.NewMemoryStore(""), nil, "", nil)

	tests := []struct {
		name    string
		in      CreatePostInput
		details []string
	}{
		{"bad type", CreatePostInput{Type: "rant", Content: "x"}, []string{"type must be one of: question, experience"}},
		{"missing content", CreatePostInput{Type: "experience", Content: "  "}, []string{"content is required"}},
		{"both", CreatePostInput{}, []string{"type must be one of: question, experience", "content is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(context.Background(), tt.in)
			appErr := assertAppError(t, err, models.CodeValidation)
			assert.Equal(t, "type and content are required", appErr.Message)
			assert.Equal(t, tt.details, appErr.Details)
		})
	}
}

func TestPostService_CreatePost_ImageFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unsupported format", func(t *testing.T) {
		t.Parallel()
		svc := NewPostService(noopPostRepo(), storage.NewMemoryStore(""), nil, "", nil)
		_, err := svc.CreatePost(ctx, CreatePostInput{
			Type: "experience", Content: "c",
			Image: &ImageInput{Filename: "x.gif", Data: []byte("GIF89a....")},
		})
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("store refuses upload", func(t *testing.T) {
		t.Parallel()
		assets := storage.NewMemoryStore("")
		assets.PutErr = storage.ErrUnavailable
		repo := noopPostRepo()
		created := false
		repo.createFn = func(context.Context, *models.Post) error { created = true; return nil }

		svc := NewPostService(repo, assets, nil, "", nil)
		_, err := svc.CreatePost(ctx, CreatePostInput{
			Type: "experience", Content: "c",
			Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 4, 4)},
		})
		require.ErrorIs(t, err, storage.ErrUnavailable)
		assert.False(t, created)
	})

	t.Run("persist failure removes the stored asset", func(t *testing.T) {
		t.Parallel()
		assets := storage.NewMemoryStore("")
		repo := noopPostRepo()
		repo.createFn = func(context.Context, *models.Post) error { return errors.New("insert failed") }

		svc := NewPostService(repo, assets, nil, "", nil)
		_, err := svc.CreatePost(ctx, CreatePostInput{
			Type: "experience", Content: "c",
			Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 4, 4)},
		})
		require.Error(t, err)
		assert.Zero(t, assets.Len())
		assert.Len(t, assets.Deleted(), 1)
	})
}

func TestPostService_ListPosts_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, 1, 10, 0},
		{"negative page", -3, 5, 1, 5, 0},
		{"limit capped", 2, 500, 2, 50, 50},
		{"limit floored", 3, -1, 3, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			var gotLimit, gotOffset int
			repo.listFn = func(_ context.Context, limit, offset int, _ uint) ([]*models.Post, error) {
				gotLimit, gotOffset = limit, offset
				return nil, nil
			}
			repo.countFn = func(context.Context) (int64, error) { return 42, nil }

			svc := NewPostService(repo, nil, nil, "", nil)
			page, err := svc.ListPosts(context.Background(), ListPostsInput{Page: tt.page, Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Equal(t, tt.wantOffset, gotOffset)
			assert.Equal(t, int64(42), page.Total)
			assert.NotNil(t, page.Posts)
		})
	}
}

func TestPostService_AuthorOnlyMutations(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)
	stranger := testutil.CreateUser(t, f.db)

	post, err := f.svc.CreatePost(ctx, CreatePostInput{
		UserID: author.ID, Type: "experience", Content: "mine",
		Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 8, 8)},
	})
	require.NoError(t, err)

	title := "hijack"
	_, err = f.svc.UpdatePost(ctx, UpdatePostInput{UserID: stranger.ID, PostID: post.ID, Title: &title})
	appErr := assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "Not authorized to edit this post", appErr.Message)

	err = f.svc.DeletePost(ctx, post.ID, stranger.ID)
	appErr = assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "Not authorized to delete this post", appErr.Message)

	_, err = f.svc.DeletePostImage(ctx, post.ID, stranger.ID)
	assertAppError(t, err, models.CodeForbidden)

	_, err = f.svc.UpdatePost(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID + 99, Title: &title})
	appErr = assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Post not found", appErr.Message)

	got, err := f.svc.GetPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
	assert.Empty(t, got.Title)
	assert.True(t, f.assets.Has(got.Image.PublicID))
}

func TestPostService_UpdatePost(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)

	post, err := f.svc.CreatePost(ctx, CreatePostInput{
		UserID: author.ID, Type: "experience", Title: "old", Content: "body",
		Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 8, 8)},
	})
	require.NoError(t, err)
	oldImage := post.Image

	title := "new title"
	updated, err := f.svc.UpdatePost(ctx, UpdatePostInput{
		UserID: author.ID, PostID: post.ID, Title: &title,
		Image: &ImageInput{Filename: "b.png", Data: pngBytes(t, 8, 8)},
	})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.NotEqual(t, oldImage.PublicID, updated.Image.PublicID)
	assert.False(t, f.assets.Has(oldImage.PublicID), "replaced asset is deleted")
	assert.True(t, f.assets.Has(updated.Image.PublicID))

	blank := " "
	_, err = f.svc.UpdatePost(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Content: &blank})
	assertAppError(t, err, models.CodeValidation)
}

func TestPostService_DeletePost_CascadesWithFailingAssetStore(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)
	reader := testutil.CreateUser(t, f.db)

	post, err := f.svc.CreatePost(ctx, CreatePostInput{
		UserID: author.ID, Type: "experience", Content: "c",
		Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 8, 8)},
	})
	require.NoError(t, err)

	comment := &models.Comment{PostID: post.ID, UserID: reader.ID, Content: "hi"}
	require.NoError(t, f.comments.Create(ctx, comment))
	_, err = f.comments.ToggleLike(ctx, comment.ID, author.ID)
	require.NoError(t, err)
	_, err = f.svc.TogglePostLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)

	f.assets.DeleteErr = storage.ErrUnavailable
	require.NoError(t, f.svc.DeletePost(ctx, post.ID, author.ID))

	assert.Equal(t, []string{post.Image.PublicID}, f.assets.Deleted())
	for _, model := range []any{&models.Post{}, &models.Comment{}, &models.PostLike{}, &models.CommentLike{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows remain", model)
	}

	err = f.svc.DeletePost(ctx, post.ID, author.ID)
	assertAppError(t, err, models.CodeNotFound)
}

func TestPostService_DeletePost_LegacyImageFilename(t *testing.T) {
	t.Parallel()
	assets := storage.NewMemoryStore(testNamespace)
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 3, Image: models.PostImage{Filename: "DropView/holiday.jpg", Path: "https://cdn/x.jpg"}}, nil
	}
	deleted := uint(0)
	repo.deleteFn = func(_ context.Context, id uint) error { deleted = id; return nil }

	svc := NewPostService(repo, assets, nil, testNamespace, nil)
	require.NoError(t, svc.DeletePost(context.Background(), 11, 3))
	assert.Equal(t, uint(11), deleted)
	assert.Equal(t, []string{"DropView/holiday"}, assets.Deleted())
}

func TestPostService_DeletePostImage(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)

	plain, err := f.svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Type: "question", Content: "c"})
	require.NoError(t, err)
	_, err = f.svc.DeletePostImage(ctx, plain.ID, author.ID)
	appErr := assertAppError(t, err, models.CodeBadRequest)
	assert.Equal(t, "Post has no image", appErr.Message)

	withImage, err := f.svc.CreatePost(ctx, CreatePostInput{
		UserID: author.ID, Type: "question", Content: "c",
		Image: &ImageInput{Filename: "a.png", Data: pngBytes(t, 8, 8)},
	})
	require.NoError(t, err)

	f.assets.DeleteErr = errors.New("remote 500")
	cleared, err := f.svc.DeletePostImage(ctx, withImage.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, cleared.Image.IsZero())

	reloaded, err := f.svc.GetPost(ctx, withImage.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Image.IsZero(), "image is cleared even when the store fails")
}

func TestPostService_TogglePostLike(t *testing.T) {
	t.Parallel()
	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db)
	fan := testutil.CreateUser(t, f.db)

	post, err := f.svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Type: "question", Content: "c"})
	require.NoError(t, err)

	res, err := f.svc.TogglePostLike(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 1, Liked: true}, res)

	res, err = f.svc.TogglePostLike(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 0, Liked: false}, res)

	_, err = f.svc.TogglePostLike(ctx, post.ID+5, fan.ID)
	assertAppError(t, err, models.CodeNotFound)
}
